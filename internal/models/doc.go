// Package models manages the per-language translation models: where they live
// in the Hugging Face style cache, whether they are present, and fetching them
// on a dedicated single-worker download queue.
//
// Presence is a filesystem fact. A model counts as downloaded when its
// models--<provider>--<name> directory exists under the cache root. The
// fetcher assembles files in a staging directory and renames it into place
// only when complete, so the probe never sees a half-downloaded model. The
// base language needs no model and always reads as downloaded.
package models

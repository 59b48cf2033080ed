// Package server exposes the player session over HTTP.
//
// The JSON API lives under /api/v1. Intents are accepted asynchronously and
// their effects are streamed to clients as server-sent events from
// /api/v1/events. An exclusive lock on the state directory keeps a second
// instance from serving the same library.
package server

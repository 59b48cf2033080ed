// Package opusmt runs Helsinki-NLP opus-mt MarianMT models in a long-lived
// Python worker.
//
// The worker loads one model from the local hub cache (offline), reports
// readiness and then answers one JSON request per line. Each input string is
// translated as a single unit; no sentence splitting happens, so the output
// list always lines up with the input list.
package opusmt

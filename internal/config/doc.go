// Package config loads, normalizes, and validates zestsync configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the Hugging Face environment
// fallbacks HF_HOME and HF_ENDPOINT. The Models.Mode setting decides whether
// model caches live in the user's Hugging Face cache or next to the
// executable in a bundled deployment.
package config

// Package translate produces target-language subtitles from the base
// transcript.
//
// The translation engine is heavy, so it is held through a Lease: built on
// first use, reused for the rest of the run and closed when the run ends,
// whether it succeeded or not.
package translate

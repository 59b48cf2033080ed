// Package audio picks the audio track to transcribe.
//
// Tracks tagged with the requested language are preferred (falling back to
// every track when none match), then candidates are ranked by:
//  1. Not being a commentary or audio-description track
//  2. The container's default disposition
//  3. Container order
package audio

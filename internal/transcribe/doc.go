// Package transcribe produces base-language subtitles from a video.
//
// A Task extracts a mono 16 kHz audio track with ffmpeg, streams it through a
// speech-to-text Engine, normalizes the segments and writes an SRT file
// atomically. The temporary audio file is removed whether or not the task
// succeeds.
package transcribe

// Package player owns the interactive session: the play queue, the selected
// subtitle language and the generation controls.
//
// A Session runs on a single goroutine. Intents from the user, observations
// from the playback engine and results from the background queues all arrive
// as messages on its inbox; rendering consumers read UIEvents from Events.
// Nothing outside that goroutine touches session state.
package player

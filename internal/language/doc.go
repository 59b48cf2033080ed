// Package language holds the fixed table of subtitle languages.
//
// The table is the single source of truth for code and name lookups, model
// size labels and the BCP 47 tags used when talking to engines. English is
// the base language every other language is translated from.
package language

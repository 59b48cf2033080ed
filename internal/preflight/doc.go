// Package preflight verifies the environment before zestsync does real work.
//
// Each check returns a Result rather than an error so the doctor command can
// print every problem at once.
package preflight

// Package batch runs one conversion batch at a time on a background
// goroutine.
//
// The Controller walks its job list sequentially, handing each file to a
// Transcoder and recording results, failures and progress in a snapshot that
// pollers read through State. Stop is cooperative: the flag is checked before
// each file, so the encode already in flight always runs to completion.
package batch

// Package catalog holds the session's list of discovered source files.
//
// Discovery replaces the list wholesale; the prober and the batch controller
// update single entries by id. Status only moves forward:
// discovered -> probing -> ready | probe_failed, and any of those -> error
// when an encode of the file fails.
package catalog

// Package outcome persists the result of processing each ballot box in
// SQLite. An outcome is either verified (the counts matched the declared
// total) or quarantined (they did not, and the bundle was moved for manual
// review).
//
// A recorded id is skipped by later runs unless they are forced, so an
// interrupted batch resumes where it stopped.
package outcome

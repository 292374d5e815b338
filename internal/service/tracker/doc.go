// Package tracker follows every presented alert until it reaches a final
// outcome: acknowledged on time, acknowledged late, timed out or dismissed.
//
// Each alert gets a Session. The first resolution wins, later attempts
// return ErrAlreadyResolved, and every final transition produces exactly
// one notification.
package tracker

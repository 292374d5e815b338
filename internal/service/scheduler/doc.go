// Package scheduler fires the randomized alerts of the daily window.
package scheduler

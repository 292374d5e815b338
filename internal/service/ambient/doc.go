// Package ambient plays short sounds at random moments of the alert window.
// It runs beside the dispatcher and never creates alerts.
package ambient

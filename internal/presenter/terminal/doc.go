// Package terminal shows alerts as full-screen terminal prompts.
//
// Enter acknowledges the alert or submits the answer to its challenge.
// Esc and Ctrl+C close the prompt without acknowledging.
package terminal

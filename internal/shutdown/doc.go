// Package shutdown provides the process-wide stop signal and the
// interruptible sleep every background loop waits on.
package shutdown

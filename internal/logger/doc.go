// Package logger wraps zap with a global sugared logger, context helpers
// (ToContext, FromContext, WithName, WithKV, WithFields) and leveled
// shortcuts such as Infof and ErrorKV.
//
// Setup can add a rotating JSON log file next to the console output, or
// silence the console when a terminal UI owns the screen.
package logger

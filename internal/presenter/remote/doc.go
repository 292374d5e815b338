// Package remote presents alerts to control API clients instead of a local
// screen. The alert stays up until a client resolves it through Respond,
// the tracker times it out or the server stops.
package remote

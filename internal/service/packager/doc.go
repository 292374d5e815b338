// Package packager writes the update manifest consumed by the update checker.
//
// It checksums the binaries of a release and records them with the build
// version. Optionally it pins the server checksum in a settings file so the
// startup integrity check can verify the installed binary.
package packager

// Package updater keeps the server binary current and verifies it.
//
// Checker reads the YAML manifest written by the packager from the update
// folder, compares versions and SHA-512 checksums, and replaces the
// executable in place with go-update. VerifyIntegrity checks the running
// binary against the checksum pinned in the settings.
package updater

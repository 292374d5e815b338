package updater

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/oshokin/attention-check/internal/logger"
	"github.com/oshokin/attention-check/internal/service/loop"
)

// ErrIntegrityMismatch is returned when an executable does not match its expected checksum.
var ErrIntegrityMismatch = errors.New("checksum mismatch")

// VerifyIntegrity compares the checksum of executable with expected,
// a base64 SHA-512 digest. An empty expected value always passes.
func VerifyIntegrity(executable, expected string) error {
	if expected == "" {
		return nil
	}

	want := &Description{Files: map[string]string{executable: expected}}

	wantSum, err := want.Checksum(executable)
	if err != nil {
		return err
	}

	actual, err := GetFileChecksum(executable)
	if err != nil {
		return fmt.Errorf("checksum of %s: %w", executable, err)
	}

	if !bytes.Equal(wantSum, actual) {
		return fmt.Errorf("%w: expected %s, got %s", ErrIntegrityMismatch, expected, EncodeChecksum(actual))
	}

	return nil
}

// CheckIntegrity verifies the running executable and reports a mismatch
// through notifier. It returns false when the check failed.
func CheckIntegrity(ctx context.Context, expected string, notifier loop.Notifier) bool {
	if expected == "" {
		return true
	}

	executable, err := os.Executable()
	if err != nil {
		logger.WarnKV(ctx, "Unable to locate running executable, skipping integrity check", "error", err)
		return true
	}

	return checkExecutable(ctx, executable, expected, notifier)
}

func checkExecutable(ctx context.Context, executable, expected string, notifier loop.Notifier) bool {
	err := VerifyIntegrity(executable, expected)
	if err == nil {
		logger.InfoKV(ctx, "Integrity check passed", "executable", executable)
		return true
	}

	logger.ErrorKV(ctx, "Integrity check failed", "executable", executable, "error", err)

	if notifier != nil {
		notifier.Notify(ctx, "Integrity Check Failed", err.Error())
	}

	return false
}

package updater

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"

	goupdate "github.com/doitdistributed/go-update"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/attention-check/internal/config"
	"github.com/oshokin/attention-check/internal/logger"
	"github.com/oshokin/attention-check/internal/service/loop"
	"github.com/oshokin/attention-check/internal/shutdown"
	"github.com/oshokin/attention-check/internal/version"
)

// Name identifies the update checker in logs and notifications.
const Name = "Update Checker"

// defaultInterval applies when the settings carry no interval.
const defaultInterval = config.DefaultUpdateInterval

// maxDownloadSize caps a single downloaded artifact.
const maxDownloadSize = 256 << 20

var (
	errNoChecksum    = errors.New("checksum missing for file")
	errBadHTTPStatus = errors.New("unexpected http status")
	errTooLarge      = errors.New("download exceeds size limit")
)

// Settings provides the current configuration snapshot.
type Settings interface {
	Current() *config.Config
}

// Option configures a Checker.
type Option func(*Checker)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Checker) {
		if client != nil {
			c.client = client
		}
	}
}

// WithTarget sets the executable that is replaced. Defaults to the running executable.
func WithTarget(path string) Option {
	return func(c *Checker) {
		c.target = path
	}
}

// WithVersion sets the version considered installed. Defaults to version.Short.
func WithVersion(v string) Option {
	return func(c *Checker) {
		c.current = v
	}
}

// Checker periodically looks for a newer release in the update folder and
// applies it to the target executable. The new binary takes effect on the
// next start.
type Checker struct {
	settings Settings
	notifier loop.Notifier
	client   *http.Client
	target   string
	current  string
}

// New returns a checker reading the update folder from settings.
func New(settings Settings, notifier loop.Notifier, opts ...Option) *Checker {
	c := &Checker{
		settings: settings,
		notifier: notifier,
		client:   http.DefaultClient,
		current:  version.Short(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Run checks for updates every configured interval until ctx is done.
func (c *Checker) Run(ctx context.Context) error {
	if c.target == "" {
		executable, err := os.Executable()
		if err != nil {
			return fmt.Errorf("locate running executable: %w", err)
		}

		c.target = executable
	}

	return loop.Run(ctx, Name, c.notifier, c.cycle)
}

// cycle checks once and sleeps. A failed check is logged and retried on
// the next interval.
func (c *Checker) cycle(ctx context.Context) error {
	cfg := c.settings.Current()

	interval := cfg.Update.Interval
	if interval <= 0 {
		interval = defaultInterval
	}

	if cfg.Update.Folder == "" {
		shutdown.Sleep(ctx, interval)
		return nil
	}

	if _, err := c.Check(ctx, cfg.Update.Folder); err != nil && ctx.Err() == nil {
		logger.WarnKV(ctx, "Update check failed", "folder", cfg.Update.Folder, "error", err)
	}

	shutdown.Sleep(ctx, interval)

	return nil
}

// Check fetches the manifest from folder and applies the release when it is
// newer than the installed one, or when it has the same version but the
// installed file differs from the published checksum. It reports whether an
// update was applied.
func (c *Checker) Check(ctx context.Context, folder string) (bool, error) {
	desc, err := c.fetchDescription(ctx, folder)
	if err != nil {
		return false, fmt.Errorf("download update description: %w", err)
	}

	name := desc.Executable
	if name == "" {
		name = ServerExecutable()
	}

	expected, err := desc.Checksum(name)
	if err != nil {
		return false, err
	}

	if !c.needsUpdate(ctx, desc.VersionNumber, expected) {
		return false, nil
	}

	data, err := c.download(ctx, folder, name)
	if err != nil {
		return false, fmt.Errorf("download %s: %w", name, err)
	}

	logger.InfoKV(ctx, "Applying update", "target", c.target, "version", desc.VersionNumber)

	err = goupdate.Apply(bytes.NewReader(data), goupdate.Options{
		TargetPath: c.target,
		TargetMode: DefaultFileMode,
		Checksum:   expected,
		Hash:       DefaultChecksumFunction,
	})
	if err != nil {
		return false, fmt.Errorf("apply update: %w", err)
	}

	previous := c.current
	c.current = desc.VersionNumber

	if c.notifier != nil {
		c.notifier.Notify(ctx, "Update Applied",
			fmt.Sprintf("Updated from %s to %s. The new version runs after a restart.", previous, desc.VersionNumber))
	}

	return true, nil
}

func (c *Checker) needsUpdate(ctx context.Context, remote string, expected []byte) bool {
	if version.IsNewer(remote, c.current) {
		logger.InfoKV(ctx, "Newer version published", "local", c.current, "remote", remote)
		return true
	}

	if remote != c.current {
		logger.DebugKV(ctx, "Published version is not newer", "local", c.current, "remote", remote)
		return false
	}

	local, err := GetFileChecksum(c.target)
	if err != nil {
		logger.WarnKV(ctx, "Unable to checksum installed executable", "target", c.target, "error", err)
		return true
	}

	if !bytes.Equal(local, expected) {
		logger.InfoKV(ctx, "Installed executable differs from published checksum", "version", remote)
		return true
	}

	return false
}

func (c *Checker) fetchDescription(ctx context.Context, folder string) (*Description, error) {
	data, err := c.download(ctx, folder, VersionFilename)
	if err != nil {
		return nil, err
	}

	var desc Description
	if err = yaml.Unmarshal(data, &desc); err != nil {
		return nil, err
	}

	return &desc, nil
}

// download fetches a file from the update folder.
func (c *Checker) download(ctx context.Context, folder, fileName string) ([]byte, error) {
	folderURL, err := url.Parse(folder)
	if err != nil {
		return nil, err
	}

	// Use path.Join to normalize duplicate slashes when composing the URL path.
	folderURL.Path = path.Join(folderURL.Path, fileName)
	finalURL := folderURL.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, http.NoBody)
	if err != nil {
		return nil, err
	}

	response, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s, %s: %w", finalURL, response.Status, errBadHTTPStatus)
	}

	data, err := io.ReadAll(io.LimitReader(response.Body, maxDownloadSize+1))
	if err != nil {
		return nil, err
	}

	if len(data) > maxDownloadSize {
		return nil, fmt.Errorf("%s: %w", finalURL, errTooLarge)
	}

	return data, nil
}

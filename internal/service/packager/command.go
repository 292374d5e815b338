package packager

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/attention-check/internal/config"
	"github.com/oshokin/attention-check/internal/logger"
	"github.com/oshokin/attention-check/internal/service/updater"
)

// Options contains inputs for the packager entry point.
type Options struct {
	// Dir holds the built binaries and receives the manifest. Defaults to the working directory.
	Dir string
	// UpdateFolder is the URL the artifacts will be uploaded to.
	UpdateFolder string
	// ConfigPath, when set, is updated with the update folder and the
	// expected checksum of the server binary.
	ConfigPath string
}

var errUpdateFolderRequired = errors.New("update folder must be a valid URL")

// packager prepares update metadata (manifest) for distribution.
type packager struct {
	dir    string
	folder string
	desc   *updater.Description
}

// Run writes the update manifest for the binaries in opts.Dir.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "attention-packager")

	if _, err := url.ParseRequestURI(opts.UpdateFolder); err != nil {
		return fmt.Errorf("%w: %w", errUpdateFolderRequired, err)
	}

	dir := opts.Dir
	if dir == "" {
		dir = "."
	}

	pkg := &packager{
		dir:    dir,
		folder: opts.UpdateFolder,
		desc:   updater.NewDescription(),
	}

	if err := pkg.fillDescription(ctx); err != nil {
		return fmt.Errorf("prepare update description: %w", err)
	}

	manifest := filepath.Join(dir, updater.VersionFilename)

	logger.InfoKV(ctx, "Saving update description", "path", manifest)

	if err := pkg.saveDescription(manifest); err != nil {
		return fmt.Errorf("save update description: %w", err)
	}

	if opts.ConfigPath != "" {
		if err := pkg.pinSettings(ctx, opts.ConfigPath); err != nil {
			return err
		}
	}

	pkg.printNextSteps(ctx)

	return nil
}

// fillDescription checksums every artifact present in dir. The server
// executable is mandatory.
func (p *packager) fillDescription(ctx context.Context) error {
	for _, fileName := range updater.FilesWithChecksum() {
		path := filepath.Join(p.dir, fileName)

		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			if fileName == p.desc.Executable {
				return fmt.Errorf("%s: %w", path, os.ErrNotExist)
			}

			logger.WarnKV(ctx, "Artifact not found, leaving it out of the manifest", "path", path)

			continue
		} else if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}

		checksum, err := updater.GetFileChecksum(path)
		if err != nil {
			return err
		}

		p.desc.Files[fileName] = updater.EncodeChecksum(checksum)
	}

	return nil
}

func (p *packager) saveDescription(path string) error {
	contents, err := yaml.Marshal(p.desc)
	if err != nil {
		return err
	}

	return os.WriteFile(path, contents, updater.DefaultFileMode)
}

// pinSettings points the settings file at the update folder and pins the
// server checksum for the startup integrity check.
func (p *packager) pinSettings(ctx context.Context, path string) error {
	cfg, _, err := config.LoadOrCreate(path)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	cfg.Update.Folder = p.folder
	cfg.Integrity.ExpectedChecksum = p.desc.Files[p.desc.Executable]

	if err = config.Validate(cfg); err != nil {
		return err
	}

	if err = config.Save(path, cfg); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	logger.InfoKV(ctx, "Settings updated", "path", path, "update_folder", p.folder)

	return nil
}

// printNextSteps logs which files have to be uploaded.
func (p *packager) printNextSteps(ctx context.Context) {
	files := make([]string, 0, len(p.desc.Files)+1)
	for fileName := range p.desc.Files {
		files = append(files, fileName)
	}

	files = append(files, updater.VersionFilename)
	sort.Strings(files)

	var builder strings.Builder

	builder.WriteString("Upload the following files to ")
	builder.WriteString(p.folder)
	builder.WriteString(":\n")
	builder.WriteString(strings.Join(files, ",\n"))
	builder.WriteString("\nRunning servers pick up version ")
	builder.WriteString(p.desc.VersionNumber)
	builder.WriteString(" on their next update check.")

	logger.Info(ctx, builder.String())
}

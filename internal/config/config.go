package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/attention-check/internal/domain/alert"
)

// Config holds every setting of the attention check binaries.
type Config struct {
	// ControlAddress is the gRPC address of the control API.
	ControlAddress string `yaml:"control_addr"`
	// Timeout bounds control API calls and network operations.
	Timeout time.Duration `yaml:"timeout"`
	// LogFile is the rotating log file path. Empty disables file logging.
	LogFile string `yaml:"log_file"`
	// Presenter selects how alerts are shown: "terminal" or "remote".
	Presenter string `yaml:"presenter"`

	Schedule  Schedule  `yaml:"schedule"`
	Alert     Alert     `yaml:"alert"`
	Ambient   Ambient   `yaml:"ambient"`
	Sound     Sound     `yaml:"sound"`
	Notify    Notify    `yaml:"notify"`
	Update    Update    `yaml:"update"`
	Integrity Integrity `yaml:"integrity"`
}

// Schedule configures when scheduled alerts may fire.
type Schedule struct {
	// Start is the "HH:MM" beginning of the daily window.
	Start string `yaml:"start"`
	// End is the "HH:MM" end of the daily window. Earlier than Start wraps past midnight.
	End string `yaml:"end"`
	// MinWaitSeconds is the lower bound of the pause after a resolved alert.
	MinWaitSeconds int `yaml:"min_wait_seconds"`
	// MaxWaitSeconds is the upper bound of the pause after a resolved alert.
	MaxWaitSeconds int `yaml:"max_wait_seconds"`
	// PollInterval is how often an idle loop re-reads the window.
	PollInterval time.Duration `yaml:"poll_interval"`
}

// Alert configures alert content and acknowledgment thresholds.
type Alert struct {
	// Message is the text of scheduled alerts.
	Message string `yaml:"message"`
	// LateAfterMinutes marks later acknowledgments as late.
	LateAfterMinutes float64 `yaml:"late_after_minutes"`
	// EscalateAfterMinutes reports unacknowledged alerts after this long.
	EscalateAfterMinutes float64 `yaml:"escalate_after_minutes"`
	// PredefinedMessages can be picked by index when triggering manually.
	PredefinedMessages []string `yaml:"predefined_messages"`
	// ChallengeEnabled attaches an arithmetic challenge to manual alerts.
	ChallengeEnabled bool `yaml:"challenge_enabled"`
}

// Ambient configures the background sound.
type Ambient struct {
	// Enabled turns the ambient sound on.
	Enabled bool `yaml:"enabled"`
	// MinSeconds is the lower bound between ambient sounds.
	MinSeconds int `yaml:"min_seconds"`
	// MaxSeconds is the upper bound between ambient sounds.
	MaxSeconds int `yaml:"max_seconds"`
	// Duration is how long each ambient sound plays.
	Duration time.Duration `yaml:"duration"`
}

// Sound configures the audio clips.
type Sound struct {
	// AlertClip is the WAV file looped while an alert is shown.
	AlertClip string `yaml:"alert_clip"`
	// AmbientClip is the WAV file played by the ambient loop.
	AmbientClip string `yaml:"ambient_clip"`
	// UseCustom picks a random existing file from CustomClips instead.
	UseCustom bool `yaml:"use_custom"`
	// CustomClips lists candidate WAV files.
	CustomClips []string `yaml:"custom_clips,omitempty"`
}

// Notify configures escalation notifications.
type Notify struct {
	// JournalSize is how many recent notifications are kept in memory.
	JournalSize int `yaml:"journal_size"`
	// QueueSize is the capacity of the asynchronous send queue.
	QueueSize int `yaml:"queue_size"`
	// SendTimeout bounds a single delivery.
	SendTimeout time.Duration `yaml:"send_timeout"`
	// SMTP enables email delivery when Host is set.
	SMTP SMTP `yaml:"smtp"`
}

// SMTP holds mail delivery settings.
type SMTP struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	Username string   `yaml:"username"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to,omitempty"`
	// PasswordEnv names the environment variable holding the password.
	PasswordEnv string `yaml:"password_env"`
}

// Update configures the self-update checker.
type Update struct {
	// Folder is the URL where update artifacts are hosted. Empty disables updates.
	Folder string `yaml:"folder"`
	// Interval between update checks.
	Interval time.Duration `yaml:"interval"`
}

// Integrity configures the startup self-check.
type Integrity struct {
	// ExpectedChecksum is the base64 SHA-512 of the server executable. Empty disables the check.
	ExpectedChecksum string `yaml:"expected_checksum"`
}

const (
	// DefaultConfigFilename is the default settings file.
	DefaultConfigFilename = "attention-check-settings.yaml"

	// DefaultControlAddress is where the control API listens by default.
	DefaultControlAddress = "127.0.0.1:50551"

	// DefaultUpdateInterval is the default pause between update checks.
	DefaultUpdateInterval = time.Hour

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// PresenterTerminal shows alerts in the terminal.
	PresenterTerminal = "terminal"
	// PresenterRemote publishes alerts through the control API.
	PresenterRemote = "remote"

	defaultPollInterval  = time.Minute
	defaultAmbientLength = 5 * time.Second
	defaultJournalSize   = 100
	defaultQueueSize     = 64
	defaultSMTPPort      = 587
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errControlAddressRequired is returned when the control address is missing.
	errControlAddressRequired = errors.New("control address must be provided")
)

// Default returns the configuration used when no file exists yet.
func Default() *Config {
	return &Config{
		ControlAddress: DefaultControlAddress,
		Timeout:        DefaultTimeout,
		Presenter:      PresenterTerminal,
		Schedule: Schedule{
			Start:          "18:00",
			End:            "23:59",
			MinWaitSeconds: 60,
			MaxWaitSeconds: 300,
			PollInterval:   defaultPollInterval,
		},
		Alert: Alert{
			Message:              alert.DefaultMessage,
			LateAfterMinutes:     5,
			EscalateAfterMinutes: 10,
			PredefinedMessages: []string{
				"Please check the front door.",
				"Confirm you are at your desk.",
			},
			ChallengeEnabled: false,
		},
		Ambient: Ambient{
			Enabled:    false,
			MinSeconds: 300,
			MaxSeconds: 1800,
			Duration:   defaultAmbientLength,
		},
		Sound: Sound{
			AlertClip:   "alert.wav",
			AmbientClip: "ambient.wav",
		},
		Notify: Notify{
			JournalSize: defaultJournalSize,
			QueueSize:   defaultQueueSize,
			SendTimeout: DefaultTimeout,
			SMTP: SMTP{
				Port:        defaultSMTPPort,
				PasswordEnv: "ATTENTION_CHECK_SMTP_PASSWORD",
			},
		},
		Update: Update{
			Interval: DefaultUpdateInterval,
		},
	}
}

// Load reads configuration from path. Missing keys take their default
// values and malformed fields are repaired with defaults.
func Load(path string) (*Config, error) {
	cfg, _, err := Reload(path, nil)

	return cfg, err
}

// Reload reads configuration from path. Malformed fields fall back to the
// matching field of previous, or to the default when previous is nil.
// The returned warnings describe every repaired field.
func Reload(path string, previous *Config) (*Config, []string, error) {
	contents, err := os.ReadFile(filepath.Clean(resolvePath(path)))
	if err != nil {
		return nil, nil, fmt.Errorf("read settings: %w", err)
	}

	return Parse(contents, previous)
}

// Parse decodes YAML settings on top of the defaults and repairs them.
func Parse(contents []byte, previous *Config) (*Config, []string, error) {
	cfg := Default()
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, nil, err
	}

	fallback := previous
	if fallback == nil {
		fallback = Default()
	}

	warnings := cfg.Repair(fallback)

	return cfg, warnings, nil
}

// LoadOrCreate loads settings from path, writing the defaults first when
// the file does not exist.
func LoadOrCreate(path string) (*Config, []string, error) {
	path = resolvePath(path)

	if err := createIfMissing(path); err != nil {
		return nil, nil, err
	}

	return Reload(path, nil)
}

// createIfMissing writes the default settings to path unless it exists.
func createIfMissing(path string) error {
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return Save(path, Default())
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions, the file may carry SMTP credentials.
	if err := os.WriteFile(filepath.Clean(resolvePath(path)), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks settings that cannot be repaired and fills in
// connection defaults.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.ControlAddress == "" {
		return errControlAddressRequired
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.ControlAddress); err != nil {
		return fmt.Errorf("invalid control address: %w", err)
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.Update.Folder == "" {
		return nil
	}

	if _, err := url.ParseRequestURI(settings.Update.Folder); err != nil {
		return fmt.Errorf("invalid update folder URI: %w", err)
	}

	return nil
}

// Window returns the daily alert window.
func (c *Config) Window() alert.Window {
	start, err := alert.ParseTimeOfDay(c.Schedule.Start)
	if err != nil {
		start = alert.MustParseTimeOfDay(Default().Schedule.Start)
	}

	end, err := alert.ParseTimeOfDay(c.Schedule.End)
	if err != nil {
		end = alert.MustParseTimeOfDay(Default().Schedule.End)
	}

	return alert.Window{Start: start, End: end}
}

// LateAfter is the acknowledgment delay after which an alert counts as late.
func (c *Config) LateAfter() time.Duration {
	return minutes(c.Alert.LateAfterMinutes)
}

// EscalateAfter is how long an alert may stay unacknowledged.
func (c *Config) EscalateAfter() time.Duration {
	return minutes(c.Alert.EscalateAfterMinutes)
}

// WaitRange is the pause range between two scheduled alerts.
func (c *Config) WaitRange() (minimum, maximum time.Duration) {
	return seconds(c.Schedule.MinWaitSeconds), seconds(c.Schedule.MaxWaitSeconds)
}

// AmbientRange is the pause range between two ambient sounds.
func (c *Config) AmbientRange() (minimum, maximum time.Duration) {
	return seconds(c.Ambient.MinSeconds), seconds(c.Ambient.MaxSeconds)
}

// PredefinedMessage returns the predefined message at index.
func (c *Config) PredefinedMessage(index int) (string, bool) {
	if index < 0 || index >= len(c.Alert.PredefinedMessages) {
		return "", false
	}

	return c.Alert.PredefinedMessages[index], true
}

// Password resolves the SMTP password from the environment.
func (s SMTP) Password() string {
	if s.PasswordEnv == "" {
		return ""
	}

	return os.Getenv(s.PasswordEnv)
}

// Enabled reports whether mail delivery is configured.
func (s SMTP) Enabled() bool {
	return strings.TrimSpace(s.Host) != "" && len(s.To) > 0
}

func resolvePath(path string) string {
	if path == "" {
		return DefaultConfigFilename
	}

	return path
}

func minutes(v float64) time.Duration {
	return time.Duration(v * float64(time.Minute))
}

func seconds(v int) time.Duration {
	return time.Duration(v) * time.Second
}

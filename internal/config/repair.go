package config

import (
	"fmt"
	"strings"

	"github.com/oshokin/attention-check/internal/domain/alert"
)

// Repair replaces malformed fields with the matching field of fallback and
// returns one warning per replaced field. It never fails.
//
//nolint:cyclop,funlen // A flat list of independent field checks reads best.
func (c *Config) Repair(fallback *Config) []string {
	var warnings []string

	warn := func(field string, got, used any) {
		warnings = append(warnings, fmt.Sprintf("invalid %s %v, using %v", field, got, used))
	}

	if _, err := alert.ParseTimeOfDay(c.Schedule.Start); err != nil {
		warn("schedule.start", quote(c.Schedule.Start), fallback.Schedule.Start)
		c.Schedule.Start = fallback.Schedule.Start
	}

	if _, err := alert.ParseTimeOfDay(c.Schedule.End); err != nil {
		warn("schedule.end", quote(c.Schedule.End), fallback.Schedule.End)
		c.Schedule.End = fallback.Schedule.End
	}

	if c.Schedule.MinWaitSeconds < 0 || c.Schedule.MaxWaitSeconds < c.Schedule.MinWaitSeconds {
		warn("schedule wait range",
			fmt.Sprintf("[%d, %d]", c.Schedule.MinWaitSeconds, c.Schedule.MaxWaitSeconds),
			fmt.Sprintf("[%d, %d]", fallback.Schedule.MinWaitSeconds, fallback.Schedule.MaxWaitSeconds))

		c.Schedule.MinWaitSeconds = fallback.Schedule.MinWaitSeconds
		c.Schedule.MaxWaitSeconds = fallback.Schedule.MaxWaitSeconds
	}

	if c.Schedule.PollInterval <= 0 {
		warn("schedule.poll_interval", c.Schedule.PollInterval, fallback.Schedule.PollInterval)
		c.Schedule.PollInterval = fallback.Schedule.PollInterval
	}

	if strings.TrimSpace(c.Alert.Message) == "" {
		warn("alert.message", quote(c.Alert.Message), quote(fallback.Alert.Message))
		c.Alert.Message = fallback.Alert.Message
	}

	if c.Alert.LateAfterMinutes <= 0 {
		warn("alert.late_after_minutes", c.Alert.LateAfterMinutes, fallback.Alert.LateAfterMinutes)
		c.Alert.LateAfterMinutes = fallback.Alert.LateAfterMinutes
	}

	if c.Alert.EscalateAfterMinutes <= 0 {
		warn("alert.escalate_after_minutes", c.Alert.EscalateAfterMinutes, fallback.Alert.EscalateAfterMinutes)
		c.Alert.EscalateAfterMinutes = fallback.Alert.EscalateAfterMinutes
	}

	// The unacknowledged timeout bounds the late threshold.
	if c.Alert.EscalateAfterMinutes <= c.Alert.LateAfterMinutes {
		warn("alert thresholds",
			fmt.Sprintf("late %v, escalate %v", c.Alert.LateAfterMinutes, c.Alert.EscalateAfterMinutes),
			fmt.Sprintf("late %v, escalate %v", fallback.Alert.LateAfterMinutes, fallback.Alert.EscalateAfterMinutes))

		c.Alert.LateAfterMinutes = fallback.Alert.LateAfterMinutes
		c.Alert.EscalateAfterMinutes = fallback.Alert.EscalateAfterMinutes
	}

	if c.Ambient.MinSeconds < 0 || c.Ambient.MaxSeconds < c.Ambient.MinSeconds {
		warn("ambient range",
			fmt.Sprintf("[%d, %d]", c.Ambient.MinSeconds, c.Ambient.MaxSeconds),
			fmt.Sprintf("[%d, %d]", fallback.Ambient.MinSeconds, fallback.Ambient.MaxSeconds))

		c.Ambient.MinSeconds = fallback.Ambient.MinSeconds
		c.Ambient.MaxSeconds = fallback.Ambient.MaxSeconds
	}

	if c.Ambient.Duration <= 0 {
		warn("ambient.duration", c.Ambient.Duration, fallback.Ambient.Duration)
		c.Ambient.Duration = fallback.Ambient.Duration
	}

	if c.Presenter != PresenterTerminal && c.Presenter != PresenterRemote {
		warn("presenter", quote(c.Presenter), fallback.Presenter)
		c.Presenter = fallback.Presenter
	}

	if c.Notify.JournalSize <= 0 {
		warn("notify.journal_size", c.Notify.JournalSize, fallback.Notify.JournalSize)
		c.Notify.JournalSize = fallback.Notify.JournalSize
	}

	if c.Notify.QueueSize <= 0 {
		warn("notify.queue_size", c.Notify.QueueSize, fallback.Notify.QueueSize)
		c.Notify.QueueSize = fallback.Notify.QueueSize
	}

	if c.Notify.SendTimeout <= 0 {
		warn("notify.send_timeout", c.Notify.SendTimeout, fallback.Notify.SendTimeout)
		c.Notify.SendTimeout = fallback.Notify.SendTimeout
	}

	if c.Update.Interval <= 0 {
		warn("update.interval", c.Update.Interval, fallback.Update.Interval)
		c.Update.Interval = fallback.Update.Interval
	}

	return warnings
}

func quote(s string) string {
	return fmt.Sprintf("%q", s)
}

package terminal

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/oshokin/attention-check/internal/logger"
	"github.com/oshokin/attention-check/internal/service/tracker"
)

// Presenter runs one Bubble Tea program per alert.
type Presenter struct {
	input   io.Reader
	output  io.Writer
	options []tea.ProgramOption
}

// Option configures a Presenter.
type Option func(*Presenter)

// WithIO overrides the terminal streams. A nil input disables keyboard input.
func WithIO(input io.Reader, output io.Writer) Option {
	return func(p *Presenter) {
		p.input = input
		p.output = output
	}
}

// WithProgramOptions appends raw Bubble Tea program options.
func WithProgramOptions(opts ...tea.ProgramOption) Option {
	return func(p *Presenter) {
		p.options = append(p.options, opts...)
	}
}

// New creates a presenter bound to the process terminal.
func New(opts ...Option) *Presenter {
	p := new(Presenter)

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Present shows the alert and returns once the prompt is closed, the
// alert is resolved elsewhere or ctx is done.
func (p *Presenter) Present(ctx context.Context, session *tracker.Session) error {
	options := []tea.ProgramOption{
		tea.WithContext(ctx),
		tea.WithAltScreen(),
	}

	if p.output != nil {
		options = append(options, tea.WithInput(p.input), tea.WithOutput(p.output))
	}

	options = append(options, p.options...)

	program := tea.NewProgram(newModel(session), options...)

	final, err := program.Run()
	if ctx.Err() != nil {
		// Withdrawn by the dispatcher.
		return nil
	}

	if err != nil {
		return fmt.Errorf("run alert prompt: %w", err)
	}

	if m, ok := final.(*model); ok && m.closed {
		logger.Info(ctx, "Alert prompt closed by the user")
	}

	return nil
}

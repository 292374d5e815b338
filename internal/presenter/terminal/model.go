package terminal

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/oshokin/attention-check/internal/domain/alert"
	"github.com/oshokin/attention-check/internal/service/tracker"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	boxWidth      = 60
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#D7263D")).
			Padding(0, 2)
	messageStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F7B801"))
	detailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A0AEC0"))
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)
	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(lipgloss.Color("#D7263D")).
			Padding(1, 3).
			Width(boxWidth)
)

// resolvedMsg reports that the session got its final outcome.
type resolvedMsg struct{}

// model is the Bubble Tea model of one alert prompt.
type model struct {
	session   *tracker.Session
	challenge *alert.Challenge
	input     textinput.Model
	feedback  string
	width     int
	height    int
	// closed is set when the user left without acknowledging.
	closed bool
	done   bool
}

func newModel(session *tracker.Session) *model {
	input := textinput.New()
	input.Placeholder = "answer"
	input.CharLimit = 16
	input.Width = 20

	m := &model{
		session:   session,
		challenge: session.Challenge(),
		input:     input,
		width:     defaultWidth,
		height:    defaultHeight,
	}

	if m.challenge != nil {
		m.input.Focus()
	}

	return m
}

// Init starts watching the session and the cursor blink.
func (m *model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForResolution(m.session.Done())}

	if m.challenge != nil {
		cmds = append(cmds, textinput.Blink)
	}

	return tea.Batch(cmds...)
}

// Update handles keys, resizes and resolution.
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEnter:
			return m, m.submit()
		case tea.KeyEsc, tea.KeyCtrlC:
			m.closed = true
			m.done = true

			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		return m, nil
	case resolvedMsg:
		m.done = true

		return m, tea.Quit
	}

	if m.challenge == nil {
		return m, nil
	}

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

// submit acknowledges the alert or checks the answer.
func (m *model) submit() tea.Cmd {
	if m.challenge == nil {
		err := m.session.Acknowledge()
		if err != nil && !errors.Is(err, tracker.ErrAlreadyResolved) {
			m.feedback = err.Error()
			return nil
		}

		m.done = true

		return tea.Quit
	}

	answer := strings.TrimSpace(m.input.Value())
	if answer == "" {
		m.feedback = "Type the answer first."
		return nil
	}

	correct, next, err := m.session.Answer(answer)

	switch {
	case err != nil, correct:
		m.done = true

		return tea.Quit
	default:
		m.challenge = next
		m.feedback = "Wrong answer, try this one."
		m.input.Reset()

		return nil
	}
}

// View renders the alert box centered on the screen.
func (m *model) View() string {
	if m.done {
		return ""
	}

	request := m.session.Request()

	lines := []string{
		titleStyle.Render("ATTENTION CHECK"),
		"",
		messageStyle.Render(request.Message),
	}

	if request.RequestedBy != "" {
		lines = append(lines, detailStyle.Render("Requested by "+request.RequestedBy))
	}

	if m.challenge != nil {
		lines = append(lines, "", m.challenge.Question, m.input.View())
	}

	if m.feedback != "" {
		lines = append(lines, "", errorStyle.Render(m.feedback))
	}

	hint := "enter: acknowledge • esc: close"
	if m.challenge != nil {
		hint = "enter: submit answer • esc: close"
	}

	lines = append(lines, "", hintStyle.Render(hint))

	box := boxStyle.Render(strings.Join(lines, "\n"))

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func waitForResolution(done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-done

		return resolvedMsg{}
	}
}

package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jwebster45206/nightmare-engine/pkg/apparition"
	"github.com/jwebster45206/nightmare-engine/pkg/session"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"
)

const (
	PlaceHolderText = "Describe your nightmare..."

	ghostGlyph         = "~(°o°)"
	ghostGlyphMirrored = "(°o°)~"
)

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config       *ConsoleConfig
	client       *http.Client
	session      *session.State
	mainViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	spinner      spinner.Model
	ready        bool
	width        int
	height       int

	// pending is the request this console is waiting on, if any
	pending      session.LoadingPhase
	difficulty   session.Difficulty
	notification *session.Notification
	inputError   string

	pulses <-chan apparition.Pulse
	pulse  apparition.Pulse

	showQuitModal bool
}

type environmentMsg struct {
	result *Result
	err    error
}

type objectiveMsg struct {
	result *Result
	err    error
}

type completeMsg struct {
	result *Result
	err    error
}

type sessionMsg struct {
	session *session.State
	err     error
}

type pulseMsg apparition.Pulse

var (
	mainPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("160")). // blood red
			Bold(true)

	headingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	environmentStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")) // bone

	objectiveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	rewardStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")) // green

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("160")).
			Bold(true)

	ghostStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Faint(true)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("52")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("160")).
			Bold(true).
			Align(lipgloss.Center)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(cfg *ConsoleConfig, client *http.Client, s *session.State, pulses <-chan apparition.Pulse) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = session.MaxPromptLength
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	sp := spinner.New()
	sp.Spinner = spinner.Moon
	sp.Style = loadingStyle

	mainVp := viewport.New(50, 20)
	mainVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		config:       cfg,
		client:       client,
		session:      s,
		textarea:     ta,
		spinner:      sp,
		mainViewport: mainVp,
		metaViewport: metaVp,
		pending:      session.PhaseIdle,
		difficulty:   session.DifficultyMedium,
		pulses:       pulses,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick, waitForPulse(m.pulses))
}

// waitForPulse turns the next scheduler change into a message.
func waitForPulse(pulses <-chan apparition.Pulse) tea.Cmd {
	if pulses == nil {
		return nil
	}
	return func() tea.Msg {
		p, ok := <-pulses
		if !ok {
			return nil
		}
		return pulseMsg(p)
	}
}

func (m ConsoleUI) busy() bool {
	return m.pending != session.PhaseIdle
}

func (m ConsoleUI) canRequestObjective() bool {
	return !m.busy() && m.session != nil && m.session.CanRequestObjective()
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.mainViewport, vpCmd = m.mainViewport.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.ready = true
		m.refresh()

	case pulseMsg:
		m.pulse = apparition.Pulse(msg)
		return m, waitForPulse(m.pulses)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.busy() {
			m.refresh()
		}
		return m, cmd

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil

		case tea.KeyEnter:
			return m.submitPrompt()

		case tea.KeyTab:
			m.difficulty = nextDifficulty(m.difficulty)
			m.refresh()
			return m, nil

		case tea.KeyCtrlO:
			if !m.canRequestObjective() {
				return m, nil
			}
			m.pending = session.PhaseGeneratingObjective
			m.notification = nil
			m.refresh()
			return m, m.requestObjective(m.difficulty)

		case tea.KeyCtrlK:
			if m.busy() || m.session == nil || m.session.Objective == nil {
				return m, nil
			}
			return m, m.requestComplete()
		}

	case environmentMsg:
		m.pending = session.PhaseIdle
		return m.applyResult(msg.result, msg.err)

	case objectiveMsg:
		m.pending = session.PhaseIdle
		return m.applyResult(msg.result, msg.err)

	case completeMsg:
		return m.applyResult(msg.result, msg.err)

	case sessionMsg:
		if msg.err == nil && msg.session != nil {
			m.session = msg.session
			m.refresh()
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	if km, ok := msg.(tea.KeyMsg); ok && km.Type != tea.KeyEnter {
		m.inputError = ""
	}
	m.mainViewport, vpCmd = m.mainViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)
	m.refresh()

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

// submitPrompt validates locally before anything is sent.
func (m ConsoleUI) submitPrompt() (tea.Model, tea.Cmd) {
	if m.busy() {
		return m, nil
	}

	prompt := strings.TrimSpace(m.textarea.Value())
	if err := session.ValidatePrompt(prompt); err != nil {
		var vErr *session.ValidationError
		if errors.As(err, &vErr) {
			m.inputError = vErr.Message
		} else {
			m.inputError = err.Error()
		}
		m.refresh()
		return m, nil
	}

	m.inputError = ""
	m.notification = nil
	m.textarea.Reset()
	m.pending = session.PhaseGeneratingEnvironment
	m.session.Environment = ""
	m.session.Objective = nil
	m.refresh()
	return m, m.requestEnvironment(prompt)
}

// applyResult shows a game operation's outcome. Failed generations carry
// their notification on the error and leave the server state to refetch.
func (m ConsoleUI) applyResult(res *Result, err error) (tea.Model, tea.Cmd) {
	if err != nil {
		var apiErr *APIError
		switch {
		case errors.As(err, &apiErr) && apiErr.Notification != nil:
			m.notification = apiErr.Notification
		case errors.As(err, &apiErr) && apiErr.Field == session.FieldPrompt:
			m.inputError = apiErr.ErrorResponse.Error
		default:
			m.notification = &session.Notification{
				Kind:        session.NotificationError,
				Title:       "Error",
				Description: err.Error(),
			}
		}
		m.refresh()
		return m, m.refreshSession()
	}

	if res.State != nil {
		m.session = res.State
	}
	if res.Notification != nil {
		m.notification = res.Notification
	}
	m.refresh()
	m.mainViewport.GotoTop()
	return m, nil
}

func nextDifficulty(d session.Difficulty) session.Difficulty {
	for i, candidate := range session.Difficulties {
		if candidate == d {
			return session.Difficulties[(i+1)%len(session.Difficulties)]
		}
	}
	return session.Difficulties[0]
}

func (m *ConsoleUI) resize() {
	mainWidth := int(float64(m.width)*0.72) - 4
	metaWidth := m.width - mainWidth - 6

	m.mainViewport.Width = mainWidth - 2
	m.mainViewport.Height = max(m.height-10, 3)
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = max(m.height-4, 3)
	m.textarea.SetWidth(mainWidth - 4)
}

// refresh rebuilds both panels from the current session.
func (m *ConsoleUI) refresh() {
	if !m.ready {
		return
	}
	m.mainViewport.SetContent(m.writeMainContent(m.mainViewport.Width - 6))
	m.metaViewport.SetContent(m.writeMetadata())
}

func (m ConsoleUI) writeMainContent(width int) string {
	if width < 10 {
		width = 10
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("NIGHTMARE ENGINE") + "\n\n")

	if m.notification != nil {
		content.WriteString(renderNotification(*m.notification, width) + "\n\n")
	}

	switch {
	case m.pending == session.PhaseGeneratingEnvironment:
		content.WriteString(m.spinner.View() + " " + loadingStyle.Render("Conjuring your nightmare...") + "\n\n")
		return content.String()
	case m.session == nil || m.session.Environment == "":
		content.WriteString("Describe a place you fear and press Enter.\n")
		content.WriteString(promptStyle.Render(fmt.Sprintf("Between %d and %d characters.", session.MinPromptLength, session.MaxPromptLength)) + "\n\n")
		return content.String()
	}

	content.WriteString(headingStyle.Render("Your Nightmare") + "\n")
	content.WriteString(environmentStyle.Render(wordwrap.String(m.session.Environment, width)) + "\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", width)) + "\n\n")

	switch {
	case m.pending == session.PhaseGeneratingObjective:
		content.WriteString(m.spinner.View() + " " + loadingStyle.Render("Devising a twisted fate...") + "\n")
	case m.session.Objective != nil:
		content.WriteString(headingStyle.Render("Objective") + "\n")
		content.WriteString(objectiveStyle.Render(wordwrap.String(m.session.Objective.Objective, width)) + "\n")
		content.WriteString("Reward: " + rewardStyle.Render(m.session.Objective.Reward) + "\n\n")
		content.WriteString(promptStyle.Render("Ctrl+K when the deed is done.") + "\n")
	default:
		content.WriteString(promptStyle.Render("Ctrl+O to receive an objective.") + "\n")
	}

	return content.String()
}

func renderNotification(n session.Notification, width int) string {
	style := errorStyle
	if n.Kind == session.NotificationSuccess {
		style = successStyle
	}
	return style.Bold(true).Render(n.Title) + "\n" + style.Render(wordwrap.String(n.Description, width))
}

func (m ConsoleUI) writeMetadata() string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("SESSION") + "\n\n")

	if m.session != nil {
		content.WriteString("Session ID:\n")
		content.WriteString(m.session.ID.String()[:8] + "...\n\n")

		content.WriteString("Score:\n")
		content.WriteString(rewardStyle.Render(fmt.Sprintf("%d", m.session.Score)) + "\n\n")

		content.WriteString("Inventory:\n")
		if len(m.session.Inventory) == 0 {
			content.WriteString("Empty\n")
		} else {
			for _, item := range m.session.Inventory {
				content.WriteString(fmt.Sprintf("• %s\n", item))
			}
		}
		content.WriteString("\n")
	}

	content.WriteString("Difficulty:\n")
	for _, d := range session.Difficulties {
		label := " " + string(d) + " "
		if d == m.difficulty {
			content.WriteString(selectedStyle.Render(label))
		} else {
			content.WriteString(promptStyle.Render(label))
		}
	}
	content.WriteString("\n\n")

	content.WriteString("Commands:\n")
	content.WriteString("• Enter: Conjure\n")
	content.WriteString("• Tab: Difficulty\n")
	if m.canRequestObjective() {
		content.WriteString("• Ctrl+O: Objective\n")
	} else {
		content.WriteString(promptStyle.Render("• Ctrl+O: Objective") + "\n")
	}
	content.WriteString("• Ctrl+K: Complete\n")
	content.WriteString("• Ctrl+C: Quit\n")

	return content.String()
}

func (m ConsoleUI) requestEnvironment(prompt string) tea.Cmd {
	return func() tea.Msg {
		res, err := submitEnvironment(m.client, m.config.APIBaseURL, m.session.ID, prompt)
		return environmentMsg{res, err}
	}
}

func (m ConsoleUI) requestObjective(d session.Difficulty) tea.Cmd {
	return func() tea.Msg {
		res, err := submitObjective(m.client, m.config.APIBaseURL, m.session.ID, d)
		return objectiveMsg{res, err}
	}
}

func (m ConsoleUI) requestComplete() tea.Cmd {
	return func() tea.Msg {
		res, err := completeObjective(m.client, m.config.APIBaseURL, m.session.ID)
		return completeMsg{res, err}
	}
}

func (m ConsoleUI) refreshSession() tea.Cmd {
	return func() tea.Msg {
		s, err := getSession(m.client, m.config.APIBaseURL, m.session.ID)
		return sessionMsg{s, err}
	}
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case pulseMsg:
		m.pulse = apparition.Pulse(msg)
		return m, waitForPulse(m.pulses)

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Wake Up?"))
	content.WriteString("\n\n")
	content.WriteString("Are you sure you want to leave the nightmare?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderInputStatus() string {
	if m.inputError != "" {
		return errorStyle.Render(m.inputError)
	}
	n := utf8.RuneCountInString(strings.TrimSpace(m.textarea.Value()))
	counter := fmt.Sprintf("%d/%d", n, session.MaxPromptLength)
	if n > 0 && n < session.MinPromptLength {
		return promptStyle.Render(counter + fmt.Sprintf(" (at least %d)", session.MinPromptLength))
	}
	return promptStyle.Render(counter)
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	mainWidth := int(float64(m.width)*0.72) - 4
	metaWidth := m.width - mainWidth - 6

	mainPanel := mainPanelStyle.Width(mainWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.mainViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", max(mainWidth-4, 1))),
			m.textarea.View(),
			m.renderInputStatus(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	view := lipgloss.JoinHorizontal(lipgloss.Top, mainPanel, metaPanel)
	return overlayGhost(view, m.pulse, m.width, m.height)
}

// overlayGhost draws the apparition onto the rendered view. The glyph
// replaces the rest of the row it lands on.
func overlayGhost(view string, p apparition.Pulse, width, height int) string {
	if !p.Visible || width <= 0 || height <= 0 {
		return view
	}

	glyph := ghostGlyph
	if p.Mirrored {
		glyph = ghostGlyphMirrored
	}
	glyphWidth := utf8.RuneCountInString(glyph)

	lines := strings.Split(view, "\n")
	row := int(p.TopPercent / 100 * float64(height))
	col := int(p.LeftPercent / 100 * float64(width))
	if row >= len(lines) {
		row = len(lines) - 1
	}
	if col+glyphWidth > width {
		col = max(width-glyphWidth, 0)
	}

	line := truncate.String(lines[row], uint(col))
	if pad := col - ansi.PrintableRuneWidth(line); pad > 0 {
		line += strings.Repeat(" ", pad)
	}
	lines[row] = line + ghostStyle.Render(glyph)
	return strings.Join(lines, "\n")
}

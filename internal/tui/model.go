// Package tui is the terminal chat shell started by `kscan chat`. It drives
// a chat.Session against a running kscan server through api.Client, so the
// terminal never holds upstream credentials.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/54b3r/kscan/internal/api"
	"github.com/54b3r/kscan/internal/chat"
	"github.com/54b3r/kscan/internal/synthesis"
	"github.com/54b3r/kscan/internal/webui"
)

// Options tune the shell.
type Options struct {
	// GlamourStyle is a glamour standard style name ("dark", "light",
	// "notty"). Empty picks one from the terminal background.
	GlamourStyle string
}

// searchDoneMsg reports the end of a search started by searchCmd.
type searchDoneMsg struct{ err error }

// synthDoneMsg reports the end of a synthesis started by synthCmd.
type synthDoneMsg struct{ err error }

// Model is the bubbletea model of the terminal shell.
type Model struct {
	ctx    context.Context
	sess   *chat.Session
	search chat.Searcher
	synth  api.Synthesizer

	input    textinput.Model
	spinner  spinner.Model
	viewport viewport.Model
	styles   styles
	glamour  string

	// cursor is the highlighted row in the selection list.
	cursor int
	// busy is set while a search or synthesis command is in flight.
	busy bool
	// rendered is the glamour output for the current scan.
	rendered string
	// renderedFor is the scan ID (or query) rendered is valid for.
	renderedFor string

	width  int
	height int
}

// New builds the shell model. svc runs searches (search.Service over an
// api.Client); synth generates scans (the api.Client itself).
func New(ctx context.Context, svc chat.Searcher, synth api.Synthesizer, opts Options) Model {
	st := defaultStyles()

	ti := textinput.New()
	ti.Placeholder = "Ask about the document collection (Enter to search)"
	ti.Prompt = "│ "
	ti.CharLimit = 1024
	ti.Width = 80
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = st.spinner

	return Model{
		ctx:      ctx,
		sess:     chat.NewSession("tui"),
		search:   svc,
		synth:    synth,
		input:    ti,
		spinner:  sp,
		viewport: viewport.New(80, 20),
		styles:   st,
		glamour:  opts.GlamourStyle,
		width:    80,
		height:   24,
	}
}

// Session exposes the underlying conversation state.
func (m Model) Session() *chat.Session { return m.sess }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = max(msg.Width, 20)
		m.height = max(msg.Height, 10)
		m.input.Width = m.width - 4
		m.viewport.Width = m.width
		m.viewport.Height = max(m.height-8, 3)
		m.renderedFor = ""
		m.refreshResults()
		return m, nil

	case searchDoneMsg:
		m.busy = false
		if msg.err == nil {
			m.cursor = 0
			m.input.Blur()
			m.input.Reset()
		}
		return m, nil

	case synthDoneMsg:
		m.busy = false
		m.refreshResults()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	if m.input.Focused() {
		switch msg.Type {
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyEsc:
			if m.sess.State().View != chat.ViewLanding {
				m.input.Blur()
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	st := m.sess.State()
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "/", "tab":
		cmd := m.input.Focus()
		return m, cmd
	case "n":
		if m.busy {
			return m, nil
		}
		m.sess.Reset()
		m.cursor = 0
		m.rendered, m.renderedFor = "", ""
		cmd := m.input.Focus()
		return m, cmd
	}

	switch st.View {
	case chat.ViewSelection:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(st.Documents)-1 {
				m.cursor++
			}
		case " ", "x":
			if m.cursor < len(st.Documents) {
				_ = m.sess.Toggle(st.Documents[m.cursor].ID)
			}
		case "a":
			ids := make([]string, 0, len(st.Documents))
			if st.Selected() < len(st.Documents) {
				for _, d := range st.Documents {
					ids = append(ids, d.ID)
				}
			}
			_ = m.sess.SetSelected(ids)
		case "g", "enter":
			if st.Selected() == 0 {
				m.sess.SetError(synthesis.ErrNoSelection)
				return m, nil
			}
			m.busy = true
			return m, tea.Batch(m.spinner.Tick, m.synthCmd())
		}
	case chat.ViewResults:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

// submit starts a search for the input value.
func (m Model) submit() (tea.Model, tea.Cmd) {
	q := strings.TrimSpace(m.input.Value())
	if q == "" || m.busy {
		return m, nil
	}
	m.busy = true
	return m, tea.Batch(m.spinner.Tick, m.searchCmd(q))
}

func (m Model) searchCmd(q string) tea.Cmd {
	ctx, sess, svc := m.ctx, m.sess, m.search
	return func() tea.Msg {
		return searchDoneMsg{err: chat.RunSearch(ctx, sess, svc, q)}
	}
}

func (m Model) synthCmd() tea.Cmd {
	ctx, sess, synth := m.ctx, m.sess, m.synth
	return func() tea.Msg {
		return synthDoneMsg{err: chat.RunSynthesis(ctx, sess, synth)}
	}
}

// refreshResults renders the current scan into the viewport.
func (m *Model) refreshResults() {
	st := m.sess.State()
	if st.Scan == nil {
		return
	}
	key := st.Scan.ID + "|" + st.Query
	if key == m.renderedFor && m.rendered != "" {
		return
	}
	md := synthesis.Markdown(st.Scan)
	out, err := m.renderMarkdown(md)
	if err != nil {
		out = md
	}
	m.rendered, m.renderedFor = out, key
	m.viewport.SetContent(out)
	m.viewport.GotoTop()
}

func (m Model) renderMarkdown(md string) (string, error) {
	styleOpt := glamour.WithAutoStyle()
	if m.glamour != "" {
		styleOpt = glamour.WithStandardStyle(m.glamour)
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(max(m.width-4, 20)))
	if err != nil {
		return "", err
	}
	return r.Render(md)
}

// View implements tea.Model.
func (m Model) View() string {
	st := m.sess.State()
	var b strings.Builder

	b.WriteString(m.styles.header.Render("kscan · knowledge scan"))
	b.WriteString("\n\n")

	switch st.View {
	case chat.ViewLanding:
		b.WriteString(m.landingView())
	case chat.ViewResults:
		b.WriteString(m.viewport.View())
		b.WriteString("\n")
	default:
		for _, q := range st.Messages {
			b.WriteString(m.styles.user.Render("> " + q))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		if st.View == chat.ViewSelection {
			b.WriteString(m.selectionView(st))
		}
	}

	if m.busy || st.Loading {
		label := "Searching…"
		if st.View == chat.ViewSynthesis {
			label = "Generating knowledge scan…"
		}
		b.WriteString(m.spinner.View() + " " + label + "\n")
	}
	if st.Err != "" {
		b.WriteString(m.styles.err.Render("Error: "+st.Err) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.styles.help.Render(m.helpLine(st)))
	return b.String()
}

func (m Model) landingView() string {
	cards := make([]string, 0, len(webui.LandingCards))
	for _, c := range webui.LandingCards {
		cards = append(cards, m.styles.card.Render(lipgloss.JoinVertical(lipgloss.Left,
			m.styles.header.Render(c.Title),
			m.styles.muted.Render(c.Text),
		)))
	}
	if m.width < 90 {
		return lipgloss.JoinVertical(lipgloss.Left, cards...) + "\n"
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...) + "\n"
}

func (m Model) selectionView(st chat.State) string {
	if len(st.Documents) == 0 {
		return m.styles.muted.Render("No documents matched that query.") + "\n"
	}
	var b strings.Builder
	b.WriteString(m.styles.muted.Render(fmt.Sprintf("%d of %d selected", st.Selected(), len(st.Documents))))
	b.WriteString("\n")
	for i, d := range st.Documents {
		pointer := "  "
		if i == m.cursor && !m.input.Focused() {
			pointer = m.styles.cursor.Render("› ")
		}
		box := "[ ]"
		if d.Selected {
			box = m.styles.selected.Render("[x]")
		}
		rel := m.styles.relevance(d.Relevance.Class()).Render(fmt.Sprintf("%-5s", d.Relevance))
		fmt.Fprintf(&b, "%s%s %s %s", pointer, box, rel, d.DisplayName())
		if d.PublishedDate != "" {
			b.WriteString(m.styles.muted.Render("  " + d.PublishedDate))
		}
		b.WriteString("\n")
		if i == m.cursor && d.Summary != "" {
			b.WriteString(m.styles.muted.Render("      " + truncate(d.Summary, max(m.width-8, 20))))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) helpLine(st chat.State) string {
	if m.input.Focused() {
		if st.View == chat.ViewLanding {
			return "enter search · ctrl+c quit"
		}
		return "enter search · esc back · ctrl+c quit"
	}
	switch st.View {
	case chat.ViewSelection:
		return "↑/↓ move · space select · a all · g generate · / new query · n new scan · q quit"
	case chat.ViewResults:
		return "↑/↓ scroll · / new query · n new scan · q quit"
	default:
		return "q quit"
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// Run starts the shell full-screen and blocks until the user quits or ctx
// is cancelled.
func Run(ctx context.Context, svc chat.Searcher, synth api.Synthesizer, opts Options) error {
	p := tea.NewProgram(New(ctx, svc, synth, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

package tui

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/54b3r/kscan/internal/api"
	"github.com/54b3r/kscan/internal/chat"
	"github.com/54b3r/kscan/internal/search"
)

type fakeSearcher struct {
	docs []search.Document
	err  error
}

func (f *fakeSearcher) Search(_ context.Context, _ string) ([]search.Document, error) {
	return f.docs, f.err
}

type fakeSynth struct {
	mu  sync.Mutex
	req *api.SynthesisRequest
	err error
}

func (f *fakeSynth) Synthesize(_ context.Context, req *api.SynthesisRequest) (*api.KnowledgeScan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &api.KnowledgeScan{
		ID:           "scan-1",
		Query:        req.Query,
		GeneralNotes: "notes",
		CombinedSummaries: []api.CombinedSummary{
			{PDFName: "a.pdf", Bibliography: "Doe, J. (2020).", Summary: "Reefs are bleaching."},
		},
		OverallSummary: "Overall the reefs are in trouble.",
	}, nil
}

var testDocs = []search.Document{
	{ID: "1", FileName: "a.pdf", Relevance: search.Great, Summary: "first chunk"},
	{ID: "2", FileName: "b.pdf", Relevance: search.Good},
	{ID: "3", FileName: "c.pdf", Relevance: search.Fair},
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel(svc chat.Searcher, synth api.Synthesizer) Model {
	return New(context.Background(), svc, synth, Options{GlamourStyle: "notty"})
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok, "Update must return a Model")
	return out, cmd
}

// searched drives m through a successful search for "coral".
func searched(t *testing.T, m Model) Model {
	t.Helper()
	m.input.SetValue("coral")
	m, cmd := update(t, m, key("enter"))
	require.NotNil(t, cmd)
	require.True(t, m.busy)
	m, _ = update(t, m, m.searchCmd("coral")())
	return m
}

func TestModel_Init(t *testing.T) {
	m := newTestModel(&fakeSearcher{}, &fakeSynth{})
	assert.NotNil(t, m.Init())
	assert.Equal(t, chat.ViewLanding, m.Session().State().View)
	assert.True(t, m.input.Focused())
}

func TestModel_WindowResize(t *testing.T) {
	m := newTestModel(&fakeSearcher{}, &fakeSynth{})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	assert.Equal(t, 120, m.width)
	assert.Equal(t, 40, m.height)
	assert.Equal(t, 120, m.viewport.Width)
	assert.Equal(t, 32, m.viewport.Height)
	assert.Equal(t, 116, m.input.Width)
}

func TestModel_LandingView(t *testing.T) {
	m := newTestModel(&fakeSearcher{}, &fakeSynth{})
	v := m.View()
	assert.Contains(t, v, "Retrieve Documents")
	assert.Contains(t, v, "Generate Knowledge Scans")
	assert.Contains(t, v, "enter search")
}

func TestModel_EmptySubmitIgnored(t *testing.T) {
	m := newTestModel(&fakeSearcher{}, &fakeSynth{})
	m.input.SetValue("   ")
	m, cmd := update(t, m, key("enter"))
	assert.Nil(t, cmd)
	assert.False(t, m.busy)
}

func TestModel_SearchToSelection(t *testing.T) {
	m := searched(t, newTestModel(&fakeSearcher{docs: testDocs}, &fakeSynth{}))

	st := m.Session().State()
	assert.False(t, m.busy)
	assert.Equal(t, chat.ViewSelection, st.View)
	assert.Len(t, st.Documents, 3)
	assert.False(t, m.input.Focused(), "focus moves to the list")
	assert.Empty(t, m.input.Value())

	v := m.View()
	assert.Contains(t, v, "a.pdf")
	assert.Contains(t, v, "0 of 3 selected")
	assert.Contains(t, v, "> coral")
}

func TestModel_SearchFailure(t *testing.T) {
	m := searched(t, newTestModel(&fakeSearcher{err: errors.New("index down")}, &fakeSynth{}))

	st := m.Session().State()
	assert.Equal(t, chat.ViewLanding, st.View)
	assert.True(t, m.input.Focused())
	assert.Contains(t, m.View(), "index down")
}

func TestModel_SelectionKeys(t *testing.T) {
	m := searched(t, newTestModel(&fakeSearcher{docs: testDocs}, &fakeSynth{}))

	m, _ = update(t, m, key("space"))
	m, _ = update(t, m, key("down"))
	m, _ = update(t, m, key("down"))
	m, _ = update(t, m, key("down")) // clamped
	assert.Equal(t, 2, m.cursor)
	m, _ = update(t, m, key("x"))
	m, _ = update(t, m, key("k"))
	assert.Equal(t, 1, m.cursor)

	st := m.Session().State()
	assert.True(t, st.Documents[0].Selected)
	assert.False(t, st.Documents[1].Selected)
	assert.True(t, st.Documents[2].Selected)

	m, _ = update(t, m, key("a"))
	assert.Equal(t, 3, m.Session().State().Selected())
	m, _ = update(t, m, key("a"))
	assert.Zero(t, m.Session().State().Selected(), "second toggle-all clears")
}

func TestModel_GenerateWithoutSelection(t *testing.T) {
	m := searched(t, newTestModel(&fakeSearcher{docs: testDocs}, &fakeSynth{}))

	m, cmd := update(t, m, key("g"))
	assert.Nil(t, cmd)
	assert.False(t, m.busy)
	assert.NotEmpty(t, m.Session().State().Err)
}

func TestModel_GenerateToResults(t *testing.T) {
	synth := &fakeSynth{}
	m := searched(t, newTestModel(&fakeSearcher{docs: testDocs}, synth))
	m, _ = update(t, m, key("space"))

	m, cmd := update(t, m, key("g"))
	require.NotNil(t, cmd)
	assert.True(t, m.busy)

	m, _ = update(t, m, m.synthCmd()())
	assert.False(t, m.busy)

	st := m.Session().State()
	assert.Equal(t, chat.ViewResults, st.View)
	require.NotNil(t, st.Scan)
	require.NotNil(t, synth.req)
	assert.Equal(t, "coral", synth.req.Query)
	require.Len(t, synth.req.Documents, 1)
	assert.Equal(t, "1", synth.req.Documents[0])

	assert.Contains(t, m.rendered, "Knowledge Scan")
	assert.Contains(t, m.rendered, "Reefs are bleaching.")
	assert.Contains(t, m.rendered, "Overall Summary")
	assert.Contains(t, m.View(), "Knowledge Scan")
}

func TestModel_GenerateFailureReturnsToSelection(t *testing.T) {
	m := searched(t, newTestModel(&fakeSearcher{docs: testDocs}, &fakeSynth{err: errors.New("model timeout")}))
	m, _ = update(t, m, key("space"))
	m, _ = update(t, m, key("g"))
	m, _ = update(t, m, m.synthCmd()())

	st := m.Session().State()
	assert.Equal(t, chat.ViewSelection, st.View)
	assert.Equal(t, 1, st.Selected(), "selection survives a failed synthesis")
	assert.Contains(t, m.View(), "model timeout")
}

func TestModel_NewScanResets(t *testing.T) {
	m := searched(t, newTestModel(&fakeSearcher{docs: testDocs}, &fakeSynth{}))
	m, _ = update(t, m, key("n"))
	assert.Equal(t, chat.ViewLanding, m.Session().State().View)
	assert.True(t, m.input.Focused())
	assert.Zero(t, m.cursor)
}

func TestModel_FocusToggle(t *testing.T) {
	m := searched(t, newTestModel(&fakeSearcher{docs: testDocs}, &fakeSynth{}))

	m, _ = update(t, m, key("/"))
	assert.True(t, m.input.Focused())

	// Runes go to the input while it is focused.
	m, _ = update(t, m, key("q"))
	assert.Equal(t, "q", m.input.Value())

	m, _ = update(t, m, key("esc"))
	assert.False(t, m.input.Focused())
}

func TestModel_Quit(t *testing.T) {
	m := newTestModel(&fakeSearcher{}, &fakeSynth{})
	_, cmd := update(t, m, key("ctrl+c"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	m = searched(t, newTestModel(&fakeSearcher{docs: testDocs}, &fakeSynth{}))
	_, cmd = update(t, m, key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}

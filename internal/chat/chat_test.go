package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/54b3r/kscan/internal/api"
	"github.com/54b3r/kscan/internal/search"
	"github.com/54b3r/kscan/internal/synthesis"
)

func TestMain(m *testing.M) {
	// The opencensus view worker is started at init by a transitive import.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

var testDocs = []search.Document{
	{ID: "1", FileName: "a.pdf", Relevance: search.Great},
	{ID: "2", FileName: "b.pdf", Relevance: search.Good, Selected: true},
	{ID: "3", FileName: "c.pdf", Relevance: search.Fair},
}

// inSelection returns a session showing testDocs for "coral".
func inSelection(t *testing.T) *Session {
	t.Helper()
	s := NewSession("s1")
	require.NoError(t, s.Submit("coral"))
	s.SearchSucceeded(testDocs)
	return s
}

func TestSession_SearchFlow(t *testing.T) {
	t.Parallel()

	s := NewSession("s1")
	assert.Equal(t, ViewLanding, s.State().View)

	assert.ErrorIs(t, s.Submit("   "), ErrEmptyQuery)
	require.NoError(t, s.Submit("  coral reefs "))
	st := s.State()
	assert.True(t, st.Loading)
	assert.Equal(t, []string{"coral reefs"}, st.Messages)
	assert.Equal(t, ViewLanding, st.View)

	assert.ErrorIs(t, s.Submit("again"), ErrBusy)

	s.SearchSucceeded(testDocs)
	st = s.State()
	assert.False(t, st.Loading)
	assert.Equal(t, ViewSelection, st.View)
	require.Len(t, st.Documents, 3)
	assert.Zero(t, st.Selected(), "results start unselected")
}

func TestSession_SearchFailedKeepsView(t *testing.T) {
	t.Parallel()

	s := inSelection(t)
	require.NoError(t, s.Submit("kelp"))
	s.SearchFailed(errors.New("index down"))

	st := s.State()
	assert.False(t, st.Loading)
	assert.Equal(t, ViewSelection, st.View)
	assert.Equal(t, "index down", st.Err)
	assert.Equal(t, []string{"coral", "kelp"}, st.Messages)
	assert.Equal(t, "coral", st.Query, "documents on screen still answer the old query")
}

func TestSession_FailedSearchKeepsQueryForSynthesis(t *testing.T) {
	t.Parallel()

	s := NewSession("s1")
	require.NoError(t, s.Submit("sea level rise"))
	assert.Empty(t, s.State().Query, "query is set once the search succeeds")
	s.SearchSucceeded(testDocs[:2])
	require.NoError(t, s.SetSelected([]string{"1"}))

	require.NoError(t, s.Submit("coral bleaching"))
	s.SearchFailed(errors.New("index down"))

	req, err := s.BeginSynthesis()
	require.NoError(t, err)
	assert.Equal(t, "sea level rise", req.Query)
	assert.Equal(t, []string{"1"}, req.Documents)

	s.SynthesisFailed(errors.New("model down"))
	require.NoError(t, s.Submit("coral bleaching"))
	s.SearchSucceeded(testDocs)
	assert.Equal(t, "coral bleaching", s.State().Query)
}

func TestSession_Selection(t *testing.T) {
	t.Parallel()

	s := inSelection(t)
	require.NoError(t, s.Toggle("1"))
	require.NoError(t, s.Toggle("3"))
	require.NoError(t, s.Toggle("3"))
	assert.ErrorIs(t, s.Toggle("nope"), ErrUnknownDocument)
	assert.Equal(t, 1, s.State().Selected())

	require.NoError(t, s.SetSelected([]string{"2", "3", "zzz"}))
	st := s.State()
	assert.False(t, st.Documents[0].Selected)
	assert.True(t, st.Documents[1].Selected)
	assert.True(t, st.Documents[2].Selected)

	landing := NewSession("s2")
	assert.ErrorIs(t, landing.Toggle("1"), ErrWrongView)
	assert.ErrorIs(t, landing.SetSelected(nil), ErrWrongView)
}

func TestSession_SynthesisFlow(t *testing.T) {
	t.Parallel()

	s := inSelection(t)
	_, err := s.BeginSynthesis()
	assert.ErrorIs(t, err, synthesis.ErrNoSelection)

	require.NoError(t, s.SetSelected([]string{"3", "1"}))
	req, err := s.BeginSynthesis()
	require.NoError(t, err)
	assert.Equal(t, "coral", req.Query)
	assert.Equal(t, []string{"1", "3"}, req.Documents, "display order")

	st := s.State()
	assert.Equal(t, ViewSynthesis, st.View)
	assert.True(t, st.Loading)
	assert.ErrorIs(t, s.Toggle("1"), ErrBusy)

	s.SynthesisFailed(errors.New("timeout"))
	st = s.State()
	assert.Equal(t, ViewSelection, st.View)
	assert.False(t, st.Loading)
	assert.Equal(t, "timeout", st.Err)
	assert.Equal(t, 2, st.Selected(), "selection survives a failed synthesis")

	_, err = s.BeginSynthesis()
	require.NoError(t, err)
	scan := &api.KnowledgeScan{OverallSummary: "done"}
	s.SynthesisSucceeded(scan)
	st = s.State()
	assert.Equal(t, ViewResults, st.View)
	assert.Same(t, scan, st.Scan)
	assert.Empty(t, st.Err)

	s.SetError(errors.New("nothing selected"))
	assert.Equal(t, ViewResults, s.State().View)
	assert.Equal(t, "nothing selected", s.State().Err)

	s.Reset()
	st = s.State()
	assert.Equal(t, State{ID: "s1", View: ViewLanding}, st)
}

func TestSession_StateIsACopy(t *testing.T) {
	t.Parallel()

	s := inSelection(t)
	st := s.State()
	st.Documents[0].Selected = true
	st.Messages[0] = "changed"
	assert.Zero(t, s.State().Selected())
	assert.Equal(t, "coral", s.State().Messages[0])
}

type fakeSearcher struct {
	docs []search.Document
	err  error
}

func (f fakeSearcher) Search(context.Context, string) ([]search.Document, error) {
	return f.docs, f.err
}

type fakeSynth struct {
	scan *api.KnowledgeScan
	err  error
	got  *api.SynthesisRequest
}

func (f *fakeSynth) Synthesize(_ context.Context, req *api.SynthesisRequest) (*api.KnowledgeScan, error) {
	f.got = req
	return f.scan, f.err
}

func TestRunSearchAndSynthesis(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := NewSession("s1")
	require.NoError(t, RunSearch(ctx, s, fakeSearcher{docs: testDocs}, "coral"))
	assert.Equal(t, ViewSelection, s.State().View)

	require.NoError(t, s.Toggle("2"))
	synth := &fakeSynth{scan: &api.KnowledgeScan{OverallSummary: "ok"}}
	require.NoError(t, RunSynthesis(ctx, s, synth))
	assert.Equal(t, []string{"2"}, synth.got.Documents)
	assert.Equal(t, ViewResults, s.State().View)

	failed := NewSession("s2")
	err := RunSearch(ctx, failed, fakeSearcher{err: search.ErrNoEmbedding}, "coral")
	assert.ErrorIs(t, err, search.ErrNoEmbedding)
	assert.Equal(t, ViewLanding, failed.State().View)
	assert.False(t, failed.State().Loading)

	s2 := inSelection(t)
	require.NoError(t, s2.Toggle("1"))
	err = RunSynthesis(ctx, s2, &fakeSynth{err: errors.New("upstream")})
	assert.EqualError(t, err, "upstream")
	assert.Equal(t, ViewSelection, s2.State().View)
}

func TestManager(t *testing.T) {
	m := NewManager(time.Hour)
	defer m.Stop()

	s := m.Create()
	got, ok := m.Get(s.ID())
	require.True(t, ok)
	assert.Same(t, s, got)

	same, created := m.GetOrCreate(s.ID())
	assert.False(t, created)
	assert.Same(t, s, same)

	fresh, created := m.GetOrCreate("unknown")
	assert.True(t, created)
	assert.NotEqual(t, "unknown", fresh.ID())
	assert.Equal(t, 2, m.Len())

	m.Delete(fresh.ID())
	assert.Equal(t, 1, m.Len())
}

func TestManager_Evict(t *testing.T) {
	m := NewManager(time.Hour)
	defer m.Stop()

	m.Create()
	assert.Zero(t, m.evict(time.Now()))
	assert.Equal(t, 1, m.evict(time.Now().Add(2*time.Hour)))
	assert.Zero(t, m.Len())
}

func TestManager_EvictLoop(t *testing.T) {
	m := NewManager(20 * time.Millisecond)
	defer m.Stop()

	m.Create()
	assert.Eventually(t, func() bool { return m.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestManager_StopIdempotent(t *testing.T) {
	m := NewManager(0)
	m.Stop()
	m.Stop()
}

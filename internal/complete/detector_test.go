package complete

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cetmix/towered/internal/editor"
	"github.com/cetmix/towered/internal/types"
)

type fakeFetcher struct {
	variables []types.Candidate
	secrets   []types.Candidate
	err       error

	variableCalls int
	secretCalls   int
	keyTypes      []types.KeyType
}

func (f *fakeFetcher) Variables(ctx context.Context) ([]types.Candidate, error) {
	f.variableCalls++
	return f.variables, f.err
}

func (f *fakeFetcher) Secrets(ctx context.Context, keyType types.KeyType) ([]types.Candidate, error) {
	f.secretCalls++
	f.keyTypes = append(f.keyTypes, keyType)
	return f.secrets, f.err
}

type fakeRouter struct {
	handlers map[int]func()
	next     int
}

func newFakeRouter() *fakeRouter {
	return &fakeRouter{handlers: make(map[int]func())}
}

func (r *fakeRouter) OnClickOutside(fn func()) func() {
	id := r.next
	r.next++
	r.handlers[id] = fn
	return func() { delete(r.handlers, id) }
}

func (r *fakeRouter) click() {
	var fns []func()
	for _, fn := range r.handlers {
		fns = append(fns, fn)
	}
	for _, fn := range fns {
		fn()
	}
}

type harness struct {
	t       *testing.T
	buf     *editor.Buffer
	fetcher *fakeFetcher
	router  *fakeRouter
	det     *Detector
	msgs    []tea.Msg
}

func newHarness(t *testing.T, text string) *harness {
	t.Helper()
	h := &harness{
		t:   t,
		buf: editor.NewBuffer(text),
		fetcher: &fakeFetcher{
			variables: []types.Candidate{
				{Name: "Host", Reference: "host_ip"},
				{Name: "Port", Reference: "port"},
			},
			secrets: []types.Candidate{
				{Name: "Database password", Reference: "db_pass"},
			},
		},
		router: newFakeRouter(),
	}
	h.det = NewDetector(h.buf, h.fetcher, Options{
		SettleDelay: time.Millisecond,
		SearchDelay: time.Millisecond,
		Clicks:      h.router,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	t.Cleanup(h.det.Stop)
	return h
}

// run drives cmd to completion through the detector's update loop
func (h *harness) run(cmd tea.Cmd) {
	for cmd != nil {
		msg := cmd()
		h.msgs = append(h.msgs, msg)
		cmd = h.det.Update(msg)
	}
}

func (h *harness) typeText(s string) {
	h.buf.InsertText(s)
	h.run(h.det.Settle())
}

func (h *harness) cursorAt(row, col int) {
	h.buf.SetCursor(row, col)
}

func (h *harness) warnings() []WarningMsg {
	var out []WarningMsg
	for _, m := range h.msgs {
		if w, ok := m.(WarningMsg); ok {
			out = append(out, w)
		}
	}
	return out
}

func TestDetector_VariableTrigger(t *testing.T) {
	h := newHarness(t, "")
	h.typeText("echo {{")

	s := h.det.Session()
	require.NotNil(t, s)
	assert.Equal(t, types.KindVariable, s.Kind)
	assert.Equal(t, editor.Position{Row: 0, Col: 5}, s.Anchor)
	assert.Equal(t, 0, s.TriggerLength)
	assert.Equal(t, "echo ", h.buf.Line(0), "trigger text is consumed")
	assert.Equal(t, Point{X: 5, Y: 1}, s.Popup.Position())

	s.Popup.Enter()

	assert.Equal(t, "echo {{ host_ip }}", h.buf.Line(0))
	assert.Equal(t, editor.Position{Row: 0, Col: 18}, h.buf.Cursor())
	assert.Nil(t, h.det.Session())
}

func TestDetector_SecretTrigger(t *testing.T) {
	h := newHarness(t, "")
	h.typeText("psql -W #!")

	s := h.det.Session()
	require.NotNil(t, s)
	assert.Equal(t, types.KindSecret, s.Kind)
	assert.Equal(t, []types.KeyType{types.KeyTypeSecret}, h.fetcher.keyTypes)
	assert.Equal(t, 0, h.fetcher.variableCalls)

	s.Popup.Enter()

	assert.Equal(t, "psql -W #!cxtower.secret.db_pass!#", h.buf.Line(0))
	assert.Equal(t, 34, h.buf.Cursor().Col)
}

func TestDetector_NoTrigger(t *testing.T) {
	h := newHarness(t, "")
	h.typeText("echo {")
	h.typeText(" }")

	assert.Nil(t, h.det.Session())
	assert.Equal(t, 0, h.fetcher.variableCalls)
}

func TestDetector_SettleOnlyAfterChange(t *testing.T) {
	h := newHarness(t, "{{")
	h.cursorAt(0, 2)
	assert.Nil(t, h.det.Settle(), "cursor moves do not schedule an inspection")
}

func TestDetector_CommitInsideVariableBraces(t *testing.T) {
	h := newHarness(t, "echo {{}} done")
	h.cursorAt(0, 7)

	h.det.HandleCommandSelection(&types.Candidate{Name: "Host", Reference: "host_ip"}, types.KindVariable)

	assert.Equal(t, "echo {{ host_ip }} done", h.buf.Line(0))
	assert.Equal(t, 16, h.buf.Cursor().Col, "cursor lands after the padded reference, before the braces")
}

func TestDetector_CommitInsidePartialVariable(t *testing.T) {
	h := newHarness(t, "echo {{ ho }}")
	h.cursorAt(0, 10)

	h.run(h.det.Invoke())
	s := h.det.Session()
	require.NotNil(t, s)
	assert.Equal(t, 2, s.TriggerLength)
	assert.Equal(t, "ho", s.Popup.Search())
	assert.Equal(t, []string{"host_ip"}, references(s.Popup.Items()))

	s.Popup.Enter()

	assert.Equal(t, "echo {{ host_ip  }}", h.buf.Line(0))
	assert.Equal(t, 16, h.buf.Cursor().Col)
}

func TestDetector_InvokeReplacesTypedWord(t *testing.T) {
	h := newHarness(t, "ping po")
	h.cursorAt(0, 7)

	h.run(h.det.Invoke())
	require.NotNil(t, h.det.Session())
	h.det.Session().Popup.Enter()

	assert.Equal(t, "ping {{ port }}", h.buf.Line(0))
	assert.Equal(t, 15, h.buf.Cursor().Col)
}

func TestDetector_InvokeFresh(t *testing.T) {
	h := newHarness(t, "ping ")
	h.cursorAt(0, 5)

	h.run(h.det.Invoke())
	s := h.det.Session()
	require.NotNil(t, s)
	assert.Equal(t, 0, s.TriggerLength)
	assert.Len(t, s.Popup.Items(), 2)
}

func TestDetector_CommitInsideSecretMarker(t *testing.T) {
	h := newHarness(t, "#!cxtower.secret")
	h.cursorAt(0, 16)

	h.det.HandleCommandSelection(&types.Candidate{Name: "DB", Reference: "db_pass"}, types.KindSecret)

	assert.Equal(t, "#!cxtower.secret.db_pass!#", h.buf.Line(0))
	assert.Equal(t, 26, h.buf.Cursor().Col)
}

func TestDetector_CommitSecretAfterClosedMarker(t *testing.T) {
	h := newHarness(t, "#!cxtower.secret.a!# ")
	h.cursorAt(0, 21)

	h.det.HandleCommandSelection(&types.Candidate{Name: "DB", Reference: "db_pass"}, types.KindSecret)

	assert.Equal(t, "#!cxtower.secret.a!# #!cxtower.secret.db_pass!#", h.buf.Line(0))
}

func TestDetector_CancelDoesNotMutate(t *testing.T) {
	h := newHarness(t, "")
	h.typeText("echo {{")
	require.NotNil(t, h.det.Session())

	h.det.Session().Popup.Escape()

	assert.Nil(t, h.det.Session())
	assert.Equal(t, "echo ", h.buf.Line(0))
	assert.Empty(t, h.router.handlers)
}

func TestDetector_OutsideClickCloses(t *testing.T) {
	h := newHarness(t, "")
	h.typeText("echo {{")
	require.NotNil(t, h.det.Session())
	require.Len(t, h.router.handlers, 1)

	h.router.click()

	assert.Nil(t, h.det.Session())
	assert.Equal(t, "echo ", h.buf.Line(0))
	assert.Empty(t, h.router.handlers)
}

func TestDetector_RepeatedOpenCloseDoesNotLeak(t *testing.T) {
	h := newHarness(t, "")
	for i := 0; i < 5; i++ {
		h.typeText("{{")
		require.NotNil(t, h.det.Session())
		assert.Len(t, h.router.handlers, 1)
		h.det.Session().Popup.Escape()
	}
	assert.Empty(t, h.router.handlers)
}

func TestDetector_OpenReplacesPreviousSession(t *testing.T) {
	h := newHarness(t, "a ")
	h.cursorAt(0, 2)

	h.run(h.det.Invoke())
	first := h.det.Session()
	require.NotNil(t, first)
	first.Popup.SetSearch("po")

	h.run(h.det.Invoke())
	second := h.det.Session()
	require.NotNil(t, second)
	assert.NotSame(t, first, second)
	assert.Len(t, h.router.handlers, 1)
	assert.False(t, first.Popup.SearchPending(), "old session timers are cancelled")
}

func TestDetector_FetchFailureWarns(t *testing.T) {
	h := newHarness(t, "")
	h.fetcher.err = errors.New("connection refused")

	h.typeText("{{")

	assert.Nil(t, h.det.Session())
	w := h.warnings()
	require.Len(t, w, 1)
	assert.Contains(t, w[0].Text, "connection refused")
	assert.Contains(t, w[0].Text, "variables")
	assert.Equal(t, "", h.buf.Line(0))
}

func TestDetector_EmptyListDoesNotOpen(t *testing.T) {
	h := newHarness(t, "")
	h.fetcher.secrets = nil

	h.typeText("#!")

	assert.Nil(t, h.det.Session())
	assert.Empty(t, h.warnings())
}

func TestDetector_InvalidCandidatesDropped(t *testing.T) {
	h := newHarness(t, "")
	h.fetcher.variables = []types.Candidate{
		{Name: "", Reference: "bare"},
		{Name: "Broken", Reference: "has space"},
		{Name: "Dup", Reference: "bare"},
	}

	h.typeText("{{")

	s := h.det.Session()
	require.NotNil(t, s)
	assert.Equal(t, []types.Candidate{{Name: "bare", Reference: "bare"}}, s.Popup.Items())
}

func TestDetector_StaleFetchIgnored(t *testing.T) {
	h := newHarness(t, "x ")
	h.cursorAt(0, 2)

	stale := h.det.Invoke()
	fresh := h.det.Invoke()

	staleMsg := stale()
	assert.Nil(t, h.det.Update(staleMsg))
	assert.Nil(t, h.det.Session(), "superseded fetch must not open")

	h.det.Update(fresh())
	assert.NotNil(t, h.det.Session())
}

func TestDetector_CloseDropsInFlightFetch(t *testing.T) {
	h := newHarness(t, "x ")
	h.cursorAt(0, 2)

	cmd := h.det.Invoke()
	assert.True(t, h.det.Loading())
	h.det.Close()
	h.det.Update(cmd())

	assert.Nil(t, h.det.Session())
}

func TestDetector_SearchTicksReachPopup(t *testing.T) {
	h := newHarness(t, "")
	h.typeText("{{")
	s := h.det.Session()
	require.NotNil(t, s)

	h.run(s.Popup.UpdateSearchFromEditor("p"))
	h.run(s.Popup.UpdateSearchFromEditor("o"))

	assert.Equal(t, []string{"port"}, references(s.Popup.Items()))
}

func TestDetector_CommitClampsRange(t *testing.T) {
	h := newHarness(t, "ab")
	h.cursorAt(0, 2)
	h.run(h.det.Invoke())
	s := h.det.Session()
	require.NotNil(t, s)

	// the line shrinks under the session
	h.buf.SetText("")
	s.TriggerLength = 10
	h.det.HandleCommandSelection(&types.Candidate{Name: "Port", Reference: "port"}, types.KindVariable)

	assert.Equal(t, "{{ port }}", h.buf.Line(0))
	assert.Equal(t, 10, h.buf.Cursor().Col)
}

func TestDetector_ReportsSelectionChanges(t *testing.T) {
	h := newHarness(t, "")
	var seen []string
	h.det.opts.OnSelectionChange = func(kind types.Kind, item *types.Candidate) {
		assert.Equal(t, types.KindVariable, kind)
		if item == nil {
			seen = append(seen, "")
			return
		}
		seen = append(seen, item.Reference)
	}

	h.typeText("{{")
	s := h.det.Session()
	require.NotNil(t, s)

	s.Popup.MoveDown()
	h.run(s.Popup.SetSearch("zzz"))

	assert.Equal(t, []string{"host_ip", "port", ""}, seen)
}

func TestDetector_NilFetcherDisablesCompletion(t *testing.T) {
	buf := editor.NewBuffer("")
	det := NewDetector(buf, nil, Options{SettleDelay: time.Millisecond})
	t.Cleanup(det.Stop)

	buf.InsertText("echo {{")
	cmd := det.Settle()
	require.NotNil(t, cmd)
	assert.Nil(t, det.Update(cmd()))
	assert.Nil(t, det.Invoke())

	assert.Nil(t, det.Session())
	assert.Equal(t, "echo {{", buf.Line(0), "trigger stays in the text")
}

package tui

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cetmix/towered/internal/config"
	"github.com/cetmix/towered/internal/types"
)

// fakeSource serves fixed candidate lists
type fakeSource struct {
	variables []types.Candidate
	secrets   []types.Candidate
	err       error
}

func (s *fakeSource) Variables(context.Context) ([]types.Candidate, error) {
	return s.variables, s.err
}

func (s *fakeSource) Secrets(context.Context, types.KeyType) ([]types.Candidate, error) {
	return s.secrets, s.err
}

func testSource() *fakeSource {
	return &fakeSource{
		variables: []types.Candidate{
			{Name: "Database Name", Reference: "db_name"},
			{Name: "Domain", Reference: "domain"},
			{Name: "Branch", Reference: "git_branch"},
		},
		secrets: []types.Candidate{
			{Name: "API Token", Reference: "api_token"},
			{Name: "DB Password", Reference: "db_password"},
		},
	}
}

// testSettings uses short delays and disables message timeouts so tests never wait long
func testSettings() config.Settings {
	settings := config.DefaultSettings()
	settings.SettleDelay = time.Millisecond
	settings.SearchDelay = time.Millisecond
	settings.MessageTimeout = 0
	return settings
}

// CreateTestModel creates a sized Model over text for testing
func CreateTestModel(t *testing.T, path, text string, src *fakeSource) *Model {
	t.Helper()

	m := New(path, text, Options{
		Source:   src,
		Settings: testSettings(),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	t.Cleanup(m.Cleanup)

	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return m
}

// run executes cmd and feeds every resulting message back into the model,
// following batches until no work is left
func run(m *Model, cmd tea.Cmd) {
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		switch msg := next().(type) {
		case nil:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case tea.QuitMsg:
		default:
			_, follow := m.Update(msg)
			queue = append(queue, follow)
		}
	}
}

// send delivers msg and runs whatever it triggers
func send(m *Model, msg tea.Msg) {
	_, cmd := m.Update(msg)
	run(m, cmd)
}

// typeText sends each rune as its own key press
func typeText(m *Model, text string) {
	for _, r := range text {
		send(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func press(m *Model, keyType tea.KeyType) {
	send(m, tea.KeyMsg{Type: keyType})
}

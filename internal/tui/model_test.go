package tui

import (
	"context"
	"strings"
	"testing"

	"github.com/Jduquenne/job-lens/internal/record"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

func TestModelInitLoadsApplications(t *testing.T) {
	t.Parallel()

	client := &fakeClient{apps: sampleApps()}
	model := NewModel(Options{Client: client})

	cmd := model.Init()
	require.NotNil(t, cmd)
	msg := cmd()
	require.IsType(t, loadedMsg{}, msg)

	next, _ := model.Update(msg)
	state := next.(Model)
	require.Equal(t, ScreenList, state.screen)
	require.Len(t, state.appsList.Items(), 2)
	require.Equal(t, 2, state.stats.Total)

	view := state.View()
	require.Contains(t, view, "Applications")
	require.Contains(t, view, "Total 2")
}

func TestModelEmptyStateGuidance(t *testing.T) {
	t.Parallel()

	model := NewModel(Options{Client: &fakeClient{}})
	next, _ := model.Update(model.Init()())
	require.Contains(t, next.(Model).View(), "No applications yet.")

	archived := false
	filtered := NewModel(Options{Client: &fakeClient{}, Filter: record.Filter{Archived: &archived}})
	next, _ = filtered.Update(filtered.Init()())
	require.Contains(t, next.(Model).View(), "No applications match the current filter.")
}

func TestModelEnterOpensDetailAndEscReturns(t *testing.T) {
	t.Parallel()

	model := loadedModel(t, &fakeClient{apps: sampleApps()})

	next, _ := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	state := next.(Model)
	require.Equal(t, ScreenDetail, state.screen)
	view := state.View()
	require.Contains(t, view, "Application Detail")
	require.Contains(t, view, "Acme")
	require.Contains(t, view, "Entretien")
	require.Contains(t, view, "Go, TypeScript")

	next, _ = state.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.Equal(t, ScreenList, next.(Model).screen)
}

func TestModelSearchAppliesFilterAndReloads(t *testing.T) {
	t.Parallel()

	client := &fakeClient{apps: sampleApps()}
	model := loadedModel(t, client)

	next, _ := model.Update(keyRunes("f"))
	state := next.(Model)
	require.Equal(t, ScreenSearch, state.screen)

	state.searchInput.SetValue("globex")
	next, cmd := state.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	state = next.(Model)
	require.Equal(t, "globex", state.filter.Search)

	next, _ = state.Update(cmd())
	state = next.(Model)
	require.Len(t, state.appsList.Items(), 1)
	require.Equal(t, "globex", client.lastFilter.Search)
	require.Contains(t, state.View(), `search="globex"`)
}

func TestModelArchivedToggleCycles(t *testing.T) {
	t.Parallel()

	client := &fakeClient{apps: sampleApps()}
	model := loadedModel(t, client)

	next, cmd := model.Update(keyRunes("a"))
	state := next.(Model)
	require.NotNil(t, state.filter.Archived)
	require.False(t, *state.filter.Archived)
	next, _ = state.Update(cmd())
	state = next.(Model)
	require.Len(t, state.appsList.Items(), 1)

	next, _ = state.Update(keyRunes("a"))
	state = next.(Model)
	require.True(t, *state.filter.Archived)

	next, _ = state.Update(keyRunes("a"))
	require.Nil(t, next.(Model).filter.Archived)
}

func TestModelStatusCycleCallsClient(t *testing.T) {
	t.Parallel()

	client := &fakeClient{apps: sampleApps()}
	model := loadedModel(t, client)
	selected := model.appsList.SelectedItem().(appItem)

	_, cmd := model.Update(keyRunes("s"))
	require.NotNil(t, cmd)
	msg := cmd()
	require.IsType(t, mutatedMsg{}, msg)
	require.Equal(t, selected.id, client.statusID)
	require.Equal(t, record.StatusOfferReceived, client.status)
}

func TestModelDeleteRequiresConfirmation(t *testing.T) {
	t.Parallel()

	client := &fakeClient{apps: sampleApps()}
	model := loadedModel(t, client)

	next, cmd := model.Update(keyRunes("d"))
	require.Nil(t, cmd)
	state := next.(Model)
	require.Equal(t, ScreenConfirm, state.screen)
	require.Contains(t, state.View(), "Delete Acme")

	next, _ = state.Update(keyRunes("n"))
	state = next.(Model)
	require.Equal(t, ScreenList, state.screen)
	require.Empty(t, client.deleted)

	next, _ = state.Update(keyRunes("d"))
	next, cmd = next.(Model).Update(keyRunes("y"))
	require.NotNil(t, cmd)
	msg := cmd()
	require.Equal(t, []string{"a1"}, client.deleted)

	next, reload := next.(Model).Update(msg)
	require.NotNil(t, reload)
	require.Contains(t, next.(Model).View(), "Application deleted")
}

func TestModelShowsClientErrors(t *testing.T) {
	t.Parallel()

	model := NewModel(Options{Client: &fakeClient{}})
	next, _ := model.Update(loadedMsg{err: context.DeadlineExceeded})
	require.Contains(t, next.(Model).View(), "Error: context deadline exceeded")
}

func TestNextStatusWrapsAndHandlesUnknown(t *testing.T) {
	t.Parallel()

	require.Equal(t, record.StatusSent, nextStatus(record.StatusToSend))
	require.Equal(t, record.StatusToSend, nextStatus(record.StatusOfferReceived))
	require.Equal(t, record.StatusToSend, nextStatus("mystery"))
}

func loadedModel(t *testing.T, client *fakeClient) Model {
	t.Helper()
	model := NewModel(Options{Client: client})
	next, _ := model.Update(model.Init()())
	return next.(Model)
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func sampleApps() []record.Application {
	return []record.Application{
		{
			ID:              "a1",
			CompanyName:     "Acme",
			JobTitle:        "Backend Engineer",
			Location:        "Paris",
			ApplicationDate: "2024-06-01",
			Status:          record.StatusInterview,
			TechStack:       []string{"go", "typescript"},
			Priority:        record.PriorityHigh,
		},
		{
			ID:              "g1",
			CompanyName:     "Globex",
			JobTitle:        "SRE",
			Location:        "Lyon",
			ApplicationDate: "2024-05-01",
			Status:          record.StatusSent,
			Archived:        true,
		},
	}
}

type fakeClient struct {
	apps       []record.Application
	lastFilter record.Filter
	statusID   string
	status     record.Status
	deleted    []string
}

func (f *fakeClient) List(_ context.Context, filter record.Filter) ([]record.Application, error) {
	f.lastFilter = filter
	out := filter.Apply(f.apps)
	return out, nil
}

func (f *fakeClient) SetStatus(_ context.Context, id string, status record.Status) error {
	f.statusID = id
	f.status = status
	return nil
}

func (f *fakeClient) SetArchived(_ context.Context, id string, archived bool) error {
	for i := range f.apps {
		if f.apps[i].ID == id {
			f.apps[i].Archived = archived
		}
	}
	return nil
}

func (f *fakeClient) Delete(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	kept := f.apps[:0]
	for _, app := range f.apps {
		if !strings.EqualFold(app.ID, id) {
			kept = append(kept, app)
		}
	}
	f.apps = kept
	return nil
}

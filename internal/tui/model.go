package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/Jduquenne/job-lens/internal/record"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type Screen string

const (
	ScreenList    Screen = "list"
	ScreenDetail  Screen = "detail"
	ScreenSearch  Screen = "search"
	ScreenConfirm Screen = "confirm"
)

// Client is what the browser needs from the application layer.
type Client interface {
	List(ctx context.Context, filter record.Filter) ([]record.Application, error)
	SetStatus(ctx context.Context, id string, status record.Status) error
	SetArchived(ctx context.Context, id string, archived bool) error
	Delete(ctx context.Context, id string) error
}

type Options struct {
	Client Client
	Filter record.Filter
	IsTTY  func() bool
}

type Model struct {
	client Client

	screen   Screen
	previous Screen
	err      string
	notice   string

	filter      record.Filter
	searchInput textinput.Model
	appsList    list.Model

	byID            map[string]record.Application
	stats           record.Stats
	selectedID      string
	pendingDeleteID string
}

type loadedMsg struct {
	apps []record.Application
	err  error
}

type mutatedMsg struct {
	notice string
	err    error
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Faint(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusColor = map[record.Status]lipgloss.Color{
		record.StatusToSend:        lipgloss.Color("8"),
		record.StatusSent:          lipgloss.Color("12"),
		record.StatusFollowUp:      lipgloss.Color("11"),
		record.StatusRejected:      lipgloss.Color("9"),
		record.StatusInterview:     lipgloss.Color("13"),
		record.StatusOfferReceived: lipgloss.Color("10"),
	}
)

func Run(opts Options) error {
	if opts.IsTTY != nil && !opts.IsTTY() {
		return fmt.Errorf("tui: requires a tty")
	}
	_, err := tea.NewProgram(NewModel(opts), tea.WithAltScreen()).Run()
	return err
}

func NewModel(opts Options) Model {
	searchInput := textinput.New()
	searchInput.Placeholder = "company, title, location, notes"
	searchInput.SetValue(opts.Filter.Search)

	appsList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	appsList.Title = "Applications"
	appsList.SetShowStatusBar(false)
	appsList.SetFilteringEnabled(true)
	appsList.SetShowHelp(false)
	appsList.SetSize(80, 20)

	return Model{
		client:      opts.Client,
		screen:      ScreenList,
		filter:      opts.Filter,
		searchInput: searchInput,
		appsList:    appsList,
		byID:        map[string]record.Application{},
	}
}

func (m Model) Init() tea.Cmd {
	if m.client == nil {
		return nil
	}
	return m.loadCmd()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		if typed.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		height := typed.Height - 6
		if height < 1 {
			height = 1
		}
		m.appsList.SetSize(typed.Width, height)
	case loadedMsg:
		if typed.err != nil {
			m.err = typed.err.Error()
			return m, nil
		}
		m.err = ""
		m.populate(typed.apps)
		return m, nil
	case mutatedMsg:
		if typed.err != nil {
			m.err = typed.err.Error()
			return m, nil
		}
		m.err = ""
		m.notice = typed.notice
		return m, m.loadCmd()
	}

	switch m.screen {
	case ScreenSearch:
		return m.updateSearch(msg)
	case ScreenConfirm:
		return m.updateConfirm(msg)
	case ScreenDetail:
		return m.updateDetail(msg)
	default:
		return m.updateList(msg)
	}
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Job Lens"))
	b.WriteString("  ")
	b.WriteString(renderStats(m.stats))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("[enter] Open  [f] Search  [a] Archived  [s] Next status  [x] Archive  [d] Delete  [r] Reload  [q] Quit"))
	b.WriteString("\n")
	if summary := describeFilter(m.filter); summary != "" {
		b.WriteString("Filter: " + summary + "\n")
	}
	if m.err != "" {
		b.WriteString(errorStyle.Render("Error: "+m.err) + "\n")
	} else if m.notice != "" {
		b.WriteString(m.notice + "\n")
	}
	b.WriteString("\n")

	switch m.screen {
	case ScreenDetail:
		b.WriteString(m.renderDetailView())
	case ScreenSearch:
		b.WriteString("Search: " + m.searchInput.View() + "\n\n[enter] Apply  [esc] Cancel")
	case ScreenConfirm:
		app := m.byID[m.pendingDeleteID]
		b.WriteString(fmt.Sprintf("Delete %s (%s)?\n\n[y] Confirm  [n]/[esc] Cancel", app.CompanyName, app.JobTitle))
	default:
		if len(m.appsList.Items()) == 0 {
			if m.filter.Active() {
				b.WriteString(renderEmptyState("No applications match the current filter.", "Press 'f' to change the search or 'a' to show archived entries."))
			} else {
				b.WriteString(renderEmptyState("No applications yet.", "Add one with `joblens add --company ... --title ... --location ...`"))
			}
		} else {
			b.WriteString(m.appsList.View())
		}
	}
	return b.String()
}

func renderEmptyState(title, guidance string) string {
	return title + "\n" + guidance
}

func (m Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && m.appsList.FilterState() != list.Filtering {
		switch key.String() {
		case "q":
			return m, tea.Quit
		case "enter":
			item, ok := m.appsList.SelectedItem().(appItem)
			if !ok {
				return m, nil
			}
			m.selectedID = item.id
			m.previous = ScreenList
			m.screen = ScreenDetail
			return m, nil
		case "f":
			m.previous = ScreenList
			m.screen = ScreenSearch
			m.searchInput.SetValue(m.filter.Search)
			m.searchInput.Focus()
			return m, textinput.Blink
		case "a":
			m.filter.Archived = nextArchivedFilter(m.filter.Archived)
			return m, m.loadCmd()
		case "r":
			return m, m.loadCmd()
		case "s", "x", "d":
			item, ok := m.appsList.SelectedItem().(appItem)
			if !ok {
				return m, nil
			}
			return m.actOn(key.String(), item.id)
		}
	}

	var cmd tea.Cmd
	m.appsList, cmd = m.appsList.Update(msg)
	return m, cmd
}

func (m Model) updateDetail(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q":
		return m, tea.Quit
	case "esc", "backspace":
		m.screen = ScreenList
		return m, nil
	case "s", "x", "d":
		return m.actOn(key.String(), m.selectedID)
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter":
			m.filter.Search = strings.TrimSpace(m.searchInput.Value())
			m.searchInput.Blur()
			m.screen = ScreenList
			return m, m.loadCmd()
		case "esc":
			m.searchInput.Blur()
			m.screen = ScreenList
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m Model) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "y":
		id := m.pendingDeleteID
		m.pendingDeleteID = ""
		m.screen = ScreenList
		return m, m.deleteCmd(id)
	case "n", "esc":
		m.pendingDeleteID = ""
		m.screen = m.previous
		return m, nil
	}
	return m, nil
}

func (m Model) actOn(action, id string) (tea.Model, tea.Cmd) {
	app, ok := m.byID[id]
	if !ok {
		return m, nil
	}
	switch action {
	case "s":
		return m, m.setStatusCmd(app.ID, nextStatus(app.Status))
	case "x":
		return m, m.setArchivedCmd(app.ID, !app.Archived)
	case "d":
		m.previous = m.screen
		m.pendingDeleteID = app.ID
		m.screen = ScreenConfirm
		return m, nil
	}
	return m, nil
}

func (m Model) loadCmd() tea.Cmd {
	client := m.client
	filter := m.filter
	return func() tea.Msg {
		apps, err := client.List(context.Background(), filter)
		return loadedMsg{apps: apps, err: err}
	}
}

func (m Model) setStatusCmd(id string, status record.Status) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		err := client.SetStatus(context.Background(), id, status)
		return mutatedMsg{notice: "Status set to " + status.Label(), err: err}
	}
}

func (m Model) setArchivedCmd(id string, archived bool) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		err := client.SetArchived(context.Background(), id, archived)
		notice := "Application restored"
		if archived {
			notice = "Application archived"
		}
		return mutatedMsg{notice: notice, err: err}
	}
}

func (m Model) deleteCmd(id string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		err := client.Delete(context.Background(), id)
		return mutatedMsg{notice: "Application deleted", err: err}
	}
}

func (m *Model) populate(apps []record.Application) {
	items := make([]list.Item, 0, len(apps))
	byID := make(map[string]record.Application, len(apps))
	for _, app := range apps {
		items = append(items, newAppItem(app))
		byID[app.ID] = app
	}
	m.byID = byID
	m.stats = record.ComputeStats(apps)
	m.appsList.SetItems(items)
	if m.screen == ScreenDetail {
		if _, ok := byID[m.selectedID]; !ok {
			m.screen = ScreenList
		}
	}
}

func (m Model) renderDetailView() string {
	app, ok := m.byID[m.selectedID]
	if !ok {
		return "Application detail unavailable"
	}

	tech := make([]string, 0, len(app.TechStack))
	for _, tag := range app.TechStack {
		tech = append(tech, record.TechLabel(tag))
	}
	rows := [][2]string{
		{"Company", app.CompanyName},
		{"Title", app.JobTitle},
		{"Location", app.Location},
		{"Applied", app.ApplicationDate},
		{"Status", renderStatus(app.Status)},
		{"Contract", app.ContractType.Label()},
		{"Remote", app.Remote.Label()},
		{"Priority", app.Priority.Label()},
		{"Source", app.Source.Label()},
		{"Salary", app.Salary},
		{"Contact", app.ContactEmail},
		{"Link", app.JobLink},
		{"Attachment", app.AttachmentName},
		{"Tech", strings.Join(tech, ", ")},
		{"Archived", fmt.Sprintf("%t", app.Archived)},
		{"Notes", app.Notes},
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Application Detail") + "\n\n")
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		b.WriteString(fmt.Sprintf("%-11s %s\n", row[0]+":", row[1]))
	}
	b.WriteString("\nPress ESC to go back.")
	return b.String()
}

func renderStatus(status record.Status) string {
	color, ok := statusColor[status]
	if !ok {
		return status.Label()
	}
	return lipgloss.NewStyle().Foreground(color).Render(status.Label())
}

func renderStats(stats record.Stats) string {
	return fmt.Sprintf("Total %d | %s %d | %s %d | %s %d",
		stats.Total,
		record.StatusSent.Label(), stats.Sent,
		record.StatusInterview.Label(), stats.Interviews,
		record.StatusOfferReceived.Label(), stats.Offers,
	)
}

func describeFilter(filter record.Filter) string {
	parts := []string{}
	if filter.Search != "" {
		parts = append(parts, fmt.Sprintf("search=%q", filter.Search))
	}
	if filter.Status != "" {
		parts = append(parts, "status="+string(filter.Status))
	}
	if filter.Location != "" {
		parts = append(parts, "location="+filter.Location)
	}
	if filter.Archived != nil {
		if *filter.Archived {
			parts = append(parts, "archived only")
		} else {
			parts = append(parts, "active only")
		}
	}
	return strings.Join(parts, " ")
}

// nextArchivedFilter cycles all -> active only -> archived only.
func nextArchivedFilter(current *bool) *bool {
	switch {
	case current == nil:
		v := false
		return &v
	case !*current:
		v := true
		return &v
	default:
		return nil
	}
}

// nextStatus follows the form's status order and wraps around. Unknown
// statuses restart at the first one.
func nextStatus(current record.Status) record.Status {
	for i, status := range record.Statuses {
		if status == current {
			return record.Statuses[(i+1)%len(record.Statuses)]
		}
	}
	return record.Statuses[0]
}

type appItem struct {
	id          string
	title       string
	description string
	filterValue string
}

func newAppItem(app record.Application) appItem {
	title := app.CompanyName
	if app.JobTitle != "" {
		title += " - " + app.JobTitle
	}
	if app.Archived {
		title += " (archived)"
	}
	parts := []string{app.Status.Label()}
	if app.ApplicationDate != "" {
		parts = append(parts, app.ApplicationDate)
	}
	if app.Location != "" {
		parts = append(parts, app.Location)
	}
	return appItem{
		id:          app.ID,
		title:       title,
		description: strings.Join(parts, " | "),
		filterValue: strings.Join(append([]string{app.CompanyName, app.JobTitle, app.Location}, app.TechStack...), " "),
	}
}

func (i appItem) Title() string       { return i.title }
func (i appItem) Description() string { return i.description }
func (i appItem) FilterValue() string { return i.filterValue }

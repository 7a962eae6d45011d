package view

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/elpasofurniture/invoicer/internal/backup"
	"github.com/elpasofurniture/invoicer/internal/client"
)

type backupsState int

const (
	backupsStateBrowse backupsState = iota
	backupsStateConfirm
	backupsStateRestored
)

// BackupsModel lists snapshots and drives restores. A successful restore
// stops the service, so the view parks on a final message afterwards.
type BackupsModel struct {
	CommonModel
	api *client.Client

	state   backupsState
	table   table.Model
	records []backup.Record
	health  client.Health
	form    *huh.Form

	loading bool
	err     error
	status  string

	formConfirm bool
}

func NewBackupsModel(api *client.Client) BackupsModel {
	return BackupsModel{
		api: api,
		table: newTable([]table.Column{
			{Title: "Backup", Width: 36},
			{Title: "Size", Width: 10},
			{Title: "Created", Width: 34},
		}),
		loading: true,
	}
}

func (m BackupsModel) Title() string { return "Backups" }

func (m BackupsModel) ShortHelp() string {
	switch m.state {
	case backupsStateConfirm:
		return "Navigate form | Esc: cancel"
	case backupsStateRestored:
		return "Esc: back to menu"
	}
	return "Esc: back | r: refresh | c: create backup | Enter: restore"
}

func (m BackupsModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m BackupsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadBackupsMsg:
		m.loading = false
		m.err = msg.err
		m.health = msg.health
		if msg.err == nil {
			m.records = msg.records
			m.refreshTable()
		}
		return m, nil

	case backupCreatedMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
			return m, nil
		}
		m.status = "Created " + msg.record.Filename
		return m, m.loadCmd()

	case restoreResultMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
			return m, nil
		}
		m.state = backupsStateRestored
		m.status = msg.message
		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetHeight(max(msg.Height-12, 5))
		return m, nil
	}

	switch m.state {
	case backupsStateBrowse:
		return m.updateBrowse(msg)
	case backupsStateConfirm:
		return m.updateConfirm(msg)
	case backupsStateRestored:
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
			return m, Back
		}
	}

	return m, nil
}

func (m BackupsModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "c":
			m.status = "Creating backup..."
			return m, m.createCmd()
		case "enter":
			return m.enterConfirm()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m BackupsModel) selected() (backup.Record, bool) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.records) {
		return backup.Record{}, false
	}
	return m.records[idx], true
}

func (m BackupsModel) enterConfirm() (tea.Model, tea.Cmd) {
	rec, ok := m.selected()
	if !ok {
		return m, nil
	}

	m.formConfirm = false
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Key("confirm").
				Title("Restore " + rec.Filename + "?").
				Description("Every change made after this backup is lost.\nThe service restarts afterwards.").
				Affirmative("Restore").
				Negative("Cancel").
				Value(&m.formConfirm),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = backupsStateConfirm
	m.table.Blur()
	return m, m.form.Init()
}

func (m BackupsModel) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = backupsStateBrowse
		m.form = nil
		m.table.Focus()
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	confirmed := m.form.GetBool("confirm")

	m.state = backupsStateBrowse
	m.form = nil
	m.table.Focus()

	rec, ok := m.selected()
	if !confirmed || !ok {
		return m, nil
	}

	m.status = "Restoring " + rec.Filename + "..."
	return m, m.restoreCmd(rec.Filename)
}

func (m BackupsModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading backups...")
	}

	if m.state == backupsStateRestored {
		header := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46")).Render("Restore Complete!")
		return lipgloss.NewStyle().Padding(1).Render(
			lipgloss.JoinVertical(lipgloss.Left, header, "", m.status, "", "(Esc to back)"),
		)
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(errorStyle(fmt.Sprintf("Error: %v", m.err)) + "\n\n(r to retry, Esc to back)")
	}

	header := fmt.Sprintf("Service: %s | Database: %s | %d backups",
		activeStyle(m.health.Status),
		activeStyle(m.health.Database),
		len(m.records),
	)

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		tableView,
	)

	if m.state == backupsStateConfirm && m.form != nil {
		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(48).
			Render(m.form.View())

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *BackupsModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.records))
	for _, rec := range m.records {
		rows = append(rows, table.Row{
			rec.Filename,
			FormatSize(rec.SizeBytes),
			FormatTime(rec.CreatedAt),
		})
	}
	m.table.SetRows(rows)
}

type loadBackupsMsg struct {
	records []backup.Record
	health  client.Health
	err     error
}

func (m BackupsModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := APICtx()
		defer cancel()

		// A degraded service still reports its status.
		health, _ := m.api.Health(ctx)

		records, err := m.api.ListBackups(ctx)
		return loadBackupsMsg{records: records, health: health, err: err}
	}
}

type backupCreatedMsg struct {
	record backup.Record
	err    error
}

func (m BackupsModel) createCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := APICtx()
		defer cancel()

		rec, err := m.api.CreateBackup(ctx)
		return backupCreatedMsg{record: rec, err: err}
	}
}

type restoreResultMsg struct {
	message string
	err     error
}

func (m BackupsModel) restoreCmd(filename string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := APICtx()
		defer cancel()

		msg, err := m.api.Restore(ctx, filename)
		return restoreResultMsg{message: msg, err: err}
	}
}

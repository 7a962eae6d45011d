package main

import (
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/elpasofurniture/invoicer/cmd/tui/internal/view"
	"github.com/elpasofurniture/invoicer/internal/client"
	"github.com/elpasofurniture/invoicer/internal/config"
)

type model struct {
	api  *client.Client
	name string

	currentView View

	invoicesView view.InvoicesModel
	backupsView  view.BackupsModel
	exportView   view.ExportModel
}

type View int

const (
	ViewMenu     View = 0
	ViewInvoices View = 1
	ViewBackups  View = 2
	ViewExport   View = 3
)

func initialModel() model {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	api := client.New(cfg.API.URL)

	return model{
		api:          api,
		name:         cfg.App.Name,
		currentView:  ViewMenu,
		invoicesView: view.NewInvoicesModel(api),
		backupsView:  view.NewBackupsModel(api),
		exportView:   view.NewExportModel(api),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.currentView == ViewMenu {
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewInvoices
				m.invoicesView = view.NewInvoicesModel(m.api)

				return m, m.invoicesView.Init()
			case "2":
				m.currentView = ViewBackups
				m.backupsView = view.NewBackupsModel(m.api)

				return m, m.backupsView.Init()
			case "3":
				m.currentView = ViewExport
				m.exportView = view.NewExportModel(m.api)

				return m, m.exportView.Init()
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewInvoices:
		var newModel tea.Model
		newModel, cmd = m.invoicesView.Update(msg)
		m.invoicesView = newModel.(view.InvoicesModel)
	case ViewBackups:
		var newModel tea.Model
		newModel, cmd = m.backupsView.Update(msg)
		m.backupsView = newModel.(view.BackupsModel)
	case ViewExport:
		var newModel tea.Model
		newModel, cmd = m.exportView.Update(msg)
		m.exportView = newModel.(view.ExportModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			m.name + " Console\n\n" +
				"1. Invoices\n" +
				"2. Backups\n" +
				"3. Export Invoices\n\n" +
				"q. Quit",
		)
	case ViewInvoices:
		return withHelp(m.invoicesView)
	case ViewBackups:
		return withHelp(m.backupsView)
	case ViewExport:
		return withHelp(m.exportView)
	}

	return "Unknown View"
}

func withHelp(v view.View) string {
	help := lipgloss.NewStyle().Faint(true).PaddingLeft(1).Render(v.Title() + " | " + v.ShortHelp())
	return v.View() + "\n" + help
}

func main() {
	p := tea.NewProgram(initialModel())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run console", "error", err)
		os.Exit(1)
	}
}

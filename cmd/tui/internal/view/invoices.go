package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/elpasofurniture/invoicer/internal/client"
	"github.com/elpasofurniture/invoicer/internal/invoice"
)

type invoicesState int

const (
	invoicesStateBrowse invoicesState = iota
	invoicesStateSave
	invoicesStateDelete
)

type InvoicesModel struct {
	CommonModel
	api *client.Client

	state    invoicesState
	table    table.Model
	invoices []*invoice.Invoice
	form     *huh.Form

	timeframe Timeframe
	loading   bool
	err       error
	status    string

	// Form bindings
	formDir     string
	formConfirm bool
}

func NewInvoicesModel(api *client.Client) InvoicesModel {
	return InvoicesModel{
		api: api,
		table: newTable([]table.Column{
			{Title: "Date", Width: 12},
			{Title: "Number", Width: 14},
			{Title: "Customer", Width: 28},
			{Title: "Payment", Width: 14},
			{Title: "Total", Width: 14},
		}),
		timeframe: TimeframeAll,
		loading:   true,
		formDir:   "./invoices",
	}
}

func (m InvoicesModel) Title() string { return "Invoices" }

func (m InvoicesModel) ShortHelp() string {
	if m.state != invoicesStateBrowse {
		return "Navigate form | Esc: cancel"
	}
	return "Esc: back | r: refresh | f: date filter | p: save PDF | d: delete"
}

func (m InvoicesModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m InvoicesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadInvoicesMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.invoices = msg.invoices
			m.refreshTable()
		}
		return m, nil

	case invoiceActionMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
			return m, nil
		}

		m.status = msg.status
		if msg.reload {
			return m, m.loadCmd()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetHeight(max(msg.Height-10, 5))
		return m, nil
	}

	switch m.state {
	case invoicesStateBrowse:
		return m.updateBrowse(msg)
	case invoicesStateSave, invoicesStateDelete:
		return m.updateForm(msg)
	}

	return m, nil
}

func (m InvoicesModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "f":
			m.timeframe = (m.timeframe + 1) % TimeframeCustom
			m.loading = true
			return m, m.loadCmd()
		case "p":
			return m.enterSave()
		case "d":
			return m.enterDelete()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m InvoicesModel) selected() *invoice.Invoice {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.invoices) {
		return nil
	}
	return m.invoices[idx]
}

func (m InvoicesModel) enterSave() (tea.Model, tea.Cmd) {
	if m.selected() == nil {
		return m, nil
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("dir").
				Title("Save PDF to").
				Description("Directory will be created if it doesn't exist").
				Value(&m.formDir).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("directory cannot be empty")
					}
					return nil
				}),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = invoicesStateSave
	m.table.Blur()
	return m, m.form.Init()
}

func (m InvoicesModel) enterDelete() (tea.Model, tea.Cmd) {
	inv := m.selected()
	if inv == nil {
		return m, nil
	}

	m.formConfirm = false
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Key("confirm").
				Title(fmt.Sprintf("Delete %s for %s?", inv.InvoiceNumber, inv.Customer.Name)).
				Description("This cannot be undone.").
				Affirmative("Delete").
				Negative("Keep").
				Value(&m.formConfirm),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = invoicesStateDelete
	m.table.Blur()
	return m, m.form.Init()
}

func (m InvoicesModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = invoicesStateBrowse
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

	state, confirmed, dir := m.state, m.form.GetBool("confirm"), strings.TrimSpace(m.form.GetString("dir"))

	m.state = invoicesStateBrowse
	m.form = nil
	m.table.Focus()

	inv := m.selected()
	if inv == nil {
		return m, nil
	}

	if state == invoicesStateSave {
		m.formDir = dir
		m.status = "Saving " + inv.InvoiceNumber + "..."
		return m, m.savePDFCmd(inv, dir)
	}

	if !confirmed {
		return m, nil
	}

	m.status = "Deleting " + inv.InvoiceNumber + "..."
	return m, m.deleteCmd(inv)
}

func (m InvoicesModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading invoices...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(errorStyle(fmt.Sprintf("Error: %v", m.err)) + "\n\n(r to retry, Esc to back)")
	}

	var total float64
	for _, inv := range m.invoices {
		total += inv.Total
	}

	header := fmt.Sprintf(
		"[f] Date: %s | %d invoices | %s",
		activeStyle(m.timeframe.String()),
		len(m.invoices),
		FormatAmount(total),
	)

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		tableView,
	)

	if m.state != invoicesStateBrowse && m.form != nil {
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

func (m *InvoicesModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.invoices))
	for _, inv := range m.invoices {
		rows = append(rows, table.Row{
			inv.Date,
			inv.InvoiceNumber,
			inv.Customer.Name,
			inv.PaymentMethod.Label(),
			FormatAmount(inv.Total),
		})
	}
	m.table.SetRows(rows)
}

type loadInvoicesMsg struct {
	invoices []*invoice.Invoice
	err      error
}

func (m InvoicesModel) loadCmd() tea.Cmd {
	filter := m.timeframe.Filter(time.Now())

	return func() tea.Msg {
		ctx, cancel := APICtx()
		defer cancel()

		invoices, err := m.api.ListInvoices(ctx, filter)
		return loadInvoicesMsg{invoices: invoices, err: err}
	}
}

type invoiceActionMsg struct {
	status string
	reload bool
	err    error
}

func (m InvoicesModel) savePDFCmd(inv *invoice.Invoice, dir string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := APICtx()
		defer cancel()

		path, err := m.api.DownloadPDF(ctx, inv, dir)
		if err != nil {
			return invoiceActionMsg{err: err}
		}

		return invoiceActionMsg{status: "Saved " + path}
	}
}

func (m InvoicesModel) deleteCmd(inv *invoice.Invoice) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := APICtx()
		defer cancel()

		if err := m.api.DeleteInvoice(ctx, inv.ID); err != nil {
			return invoiceActionMsg{err: err}
		}

		return invoiceActionMsg{status: "Deleted " + inv.InvoiceNumber, reload: true}
	}
}

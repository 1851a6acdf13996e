package view

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/helios/internal/ledger"
)

type marketState int

const (
	marketStateBrowse marketState = iota
	marketStateBuy
	marketStatePurchasing
)

// BalanceMsg reports the user's balance after a change.
type BalanceMsg struct {
	User *ledger.User
}

type purchaseFields struct {
	shares  string
	confirm bool
}

type MarketModel struct {
	CommonModel
	svc    *ledger.Service
	userID uuid.UUID

	state    marketState
	table    table.Model
	projects []*ledger.Project
	form     *huh.Form
	fields   *purchaseFields
	spinner  spinner.Model

	loading bool
	err     error
	status  string
}

func NewMarketModel(svc *ledger.Service, userID uuid.UUID, currency string) MarketModel {
	columns := []table.Column{
		{Title: "Project", Width: 24},
		{Title: "Location", Width: 20},
		{Title: "Capacity", Width: 9},
		{Title: "Price", Width: 10},
		{Title: "Yield", Width: 7},
		{Title: "Available", Width: 14},
		{Title: "Status", Width: 10},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return MarketModel{
		CommonModel: CommonModel{Currency: currency},
		svc:         svc,
		userID:      userID,
		table:       t,
		spinner:     sp,
		loading:     true,
	}
}

func (m MarketModel) Title() string { return "Marketplace" }
func (m MarketModel) ShortHelp() string {
	if m.state == marketStateBuy {
		return "Navigate form | Esc: cancel"
	}
	return "Esc: back | b/Enter: buy shares | r: refresh"
}

func (m MarketModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m MarketModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadProjectsMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.projects = msg.projects
		m.refreshTable()
		return m, nil

	case purchaseMsg:
		m.state = marketStateBrowse
		m.form = nil
		m.table.Focus()

		if msg.err != nil {
			m.status = errorStyle.Render(describeError(msg.err))
			return m, m.loadCmd()
		}

		m.status = okStyle.Render(fmt.Sprintf("Bought %d shares of %s. New balance %s.",
			msg.shares, msg.project, m.money(msg.user.Balance)))

		return m, tea.Batch(m.loadCmd(), func() tea.Msg { return BalanceMsg{User: msg.user} })

	case spinner.TickMsg:
		if m.state != marketStatePurchasing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.table.SetHeight(max(msg.Height-14, 5))
		return m, nil
	}

	switch m.state {
	case marketStateBrowse:
		return m.updateBrowse(msg)
	case marketStateBuy:
		return m.updateBuy(msg)
	}

	return m, nil
}

func (m MarketModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "b", "enter":
			return m.enterBuyMode()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m MarketModel) selected() *ledger.Project {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.projects) {
		return nil
	}

	return m.projects[idx]
}

func (m MarketModel) enterBuyMode() (tea.Model, tea.Cmd) {
	p := m.selected()
	if p == nil {
		return m, nil
	}

	if p.AvailableShares == 0 {
		m.status = errorStyle.Render("This project is fully funded.")
		return m, nil
	}

	m.fields = &purchaseFields{shares: "1", confirm: true}
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Shares").
				Description(fmt.Sprintf("%s per share, %d available", m.money(p.PricePerShare), p.AvailableShares)).
				Value(&m.fields.shares).
				Validate(func(s string) error {
					n, err := strconv.ParseInt(s, 10, 64)
					if err != nil || n <= 0 {
						return errors.New("enter a whole number of shares")
					}
					if n > p.AvailableShares {
						return fmt.Errorf("only %d shares available", p.AvailableShares)
					}
					return nil
				}),

			huh.NewConfirm().
				TitleFunc(func() string {
					n, err := strconv.ParseInt(m.fields.shares, 10, 64)
					if err != nil || n <= 0 {
						return "Confirm purchase?"
					}
					total := p.PricePerShare.Mul(decimal.NewFromInt(n))
					return fmt.Sprintf("Pay %s for %d shares?", m.money(total), n)
				}, &m.fields.shares).
				Affirmative("Buy").
				Negative("Cancel").
				Value(&m.fields.confirm),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = marketStateBuy
	m.status = ""
	m.table.Blur()

	return m, m.form.Init()
}

func (m MarketModel) updateBuy(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = marketStateBrowse
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

	if !m.fields.confirm {
		m.state = marketStateBrowse
		m.form = nil
		m.table.Focus()

		return m, nil
	}

	m.state = marketStatePurchasing

	return m, tea.Batch(m.spinner.Tick, m.purchaseCmd())
}

func (m MarketModel) View() string {
	if m.loading && m.projects == nil {
		return lipgloss.NewStyle().Padding(2).Render("Loading projects...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	content := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.PaddingBottom(1).Render("Marketplace"),
		tableView,
	)

	if p := m.selected(); p != nil {
		content = lipgloss.JoinVertical(lipgloss.Left, content,
			faintStyle.Width(90).Render(p.Description))
	}

	switch m.state {
	case marketStateBuy:
		if p := m.selected(); p != nil && m.form != nil {
			panel := boxStyle.Width(48).Render(
				fmt.Sprintf("Buy %s\n\n%s", activeStyle(p.Name), m.form.View()),
			)
			content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
		}
	case marketStatePurchasing:
		content += "\n\n" + m.spinner.View() + " Processing purchase..."
	}

	if m.status != "" {
		content = m.status + "\n\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *MarketModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.projects))
	for _, p := range m.projects {
		rows = append(rows, table.Row{
			p.Name,
			p.Location,
			p.Capacity,
			m.money(p.PricePerShare),
			p.ExpectedYield.StringFixed(1) + "%",
			fmt.Sprintf("%d/%d", p.AvailableShares, p.TotalShares),
			string(p.Status),
		})
	}
	m.table.SetRows(rows)
}

// Messages

type loadProjectsMsg struct {
	projects []*ledger.Project
	err      error
}

func (m MarketModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		projects, err := m.svc.ListProjects(ctx)
		return loadProjectsMsg{projects: projects, err: err}
	}
}

type purchaseMsg struct {
	user    *ledger.User
	project string
	shares  int64
	err     error
}

func (m MarketModel) purchaseCmd() tea.Cmd {
	p := m.selected()
	if p == nil {
		return nil
	}

	shares, _ := strconv.ParseInt(m.fields.shares, 10, 64)

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		u, err := m.svc.Purchase(ctx, m.userID, p.ID, shares)
		return purchaseMsg{user: u, project: p.Name, shares: shares, err: err}
	}
}

package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/helios/internal/ledger"
)

type PortfolioModel struct {
	CommonModel
	svc    *ledger.Service
	userID uuid.UUID

	summary *ledger.Summary
	table   table.Model
	loading bool
	err     error
}

func NewPortfolioModel(svc *ledger.Service, userID uuid.UUID) PortfolioModel {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Project", Width: 24},
			{Title: "Location", Width: 20},
			{Title: "Shares", Width: 8},
			{Title: "Invested", Width: 12},
			{Title: "Yield", Width: 7},
			{Title: "Bought", Width: 16},
		}),
		table.WithFocused(true),
		table.WithHeight(8),
	)

	return PortfolioModel{
		svc:     svc,
		userID:  userID,
		table:   t,
		loading: true,
	}
}

func (m PortfolioModel) Title() string     { return "Portfolio" }
func (m PortfolioModel) ShortHelp() string { return "Esc: back | r: refresh" }

func (m PortfolioModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m PortfolioModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadPortfolioMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.summary = msg.summary
			m.refreshTable()
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m *PortfolioModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.summary.Holdings))
	for _, h := range m.summary.Holdings {
		rows = append(rows, table.Row{
			h.ProjectName,
			h.Location,
			fmt.Sprintf("%d", h.Shares),
			m.summary.Format(h.Amount),
			h.ExpectedYield.StringFixed(1) + "%",
			FormatDate(h.Timestamp),
		})
	}
	m.table.SetRows(rows)
}

func (m PortfolioModel) View() string {
	if m.loading && m.summary == nil {
		return lipgloss.NewStyle().Padding(2).Render("Loading portfolio...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	s := m.summary

	stat := func(label, value string) string {
		return boxStyle.Width(22).Render(faintStyle.Render(label) + "\n" + activeStyle(value))
	}

	stats := lipgloss.JoinHorizontal(lipgloss.Top,
		stat("Balance", s.Format(s.User.Balance)),
		stat("Invested", s.Format(s.TotalInvested)),
		stat("Projected / year", s.Format(s.ProjectedEarnings)),
	)

	impact := lipgloss.JoinHorizontal(lipgloss.Top,
		stat("Energy", s.EnergyKWh.StringFixed(0)+" kWh"),
		stat("CO2 offset", s.CO2Tons.StringFixed(2)+" t"),
		stat("Trees", fmt.Sprintf("%d", s.Trees)),
	)

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Portfolio of %s", s.User.Name)))
	b.WriteString("\n\n")
	b.WriteString(stats)
	b.WriteString("\n")
	b.WriteString(impact)
	b.WriteString("\n\n")

	if len(s.Holdings) == 0 {
		b.WriteString(faintStyle.Render("No investments yet. Visit the marketplace to buy shares."))
	} else {
		b.WriteString(fmt.Sprintf("%d shares across %d investments\n", s.TotalShares, len(s.Holdings)))
		b.WriteString(lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			Render(m.table.View()))
	}

	return lipgloss.NewStyle().Padding(1).Render(b.String())
}

type loadPortfolioMsg struct {
	summary *ledger.Summary
	err     error
}

func (m PortfolioModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		s, err := m.svc.Portfolio(ctx, m.userID)
		return loadPortfolioMsg{summary: s, err: err}
	}
}

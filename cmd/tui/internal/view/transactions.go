package view

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/helios/internal/ledger"
)

type transactionItem struct {
	tx       *ledger.Transaction
	currency string
}

func (i transactionItem) Title() string {
	label := string(i.tx.Type)
	if i.tx.ProjectName != nil {
		label += " · " + *i.tx.ProjectName
	}

	return fmt.Sprintf("%-40s %12s", label, ledger.FormatMoney(i.tx.Amount, i.currency))
}

func (i transactionItem) Description() string {
	return FormatDate(i.tx.Timestamp)
}

func (i transactionItem) FilterValue() string {
	if i.tx.ProjectName != nil {
		return string(i.tx.Type) + " " + *i.tx.ProjectName
	}

	return string(i.tx.Type)
}

type TransactionsModel struct {
	CommonModel
	svc    *ledger.Service
	userID uuid.UUID

	list    list.Model
	loading bool
	err     error
}

func NewTransactionsModel(svc *ledger.Service, userID uuid.UUID, currency string) TransactionsModel {
	l := list.New(nil, list.NewDefaultDelegate(), 80, 20)
	l.Title = "Transactions"
	l.SetShowHelp(false)

	return TransactionsModel{
		CommonModel: CommonModel{Currency: currency},
		svc:         svc,
		userID:      userID,
		list:        l,
		loading:     true,
	}
}

func (m TransactionsModel) Title() string     { return "Transactions" }
func (m TransactionsModel) ShortHelp() string { return "Esc: back | /: filter | r: refresh" }

func (m TransactionsModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m TransactionsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadTransactionsMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		items := make([]list.Item, 0, len(msg.txs))
		for _, tx := range msg.txs {
			items = append(items, transactionItem{tx: tx, currency: m.Currency})
		}

		return m, m.list.SetItems(items)

	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width-4, msg.Height-8)

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}

		switch msg.String() {
		case "esc":
			if m.list.FilterState() == list.FilterApplied {
				m.list.ResetFilter()
				return m, nil
			}
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)

	return m, cmd
}

func (m TransactionsModel) View() string {
	if m.loading && len(m.list.Items()) == 0 {
		return lipgloss.NewStyle().Padding(2).Render("Loading transactions...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}

	if len(m.list.Items()) == 0 {
		return lipgloss.NewStyle().Padding(2).Render(faintStyle.Render("No transactions yet."))
	}

	return lipgloss.NewStyle().Padding(1).Render(m.list.View())
}

type loadTransactionsMsg struct {
	txs []*ledger.Transaction
	err error
}

func (m TransactionsModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		txs, err := m.svc.ListTransactions(ctx, m.userID)
		return loadTransactionsMsg{txs: txs, err: err}
	}
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/helios/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/helios/internal/app"
	"github.com/MrJamesThe3rd/helios/internal/config"
	"github.com/MrJamesThe3rd/helios/internal/ledger"
)

type model struct {
	app  *app.App
	user *ledger.User

	currentView View
	width       int
	height      int

	loginView        view.LoginModel
	marketView       view.MarketModel
	portfolioView    view.PortfolioModel
	transactionsView view.TransactionsModel
}

type View int

const (
	ViewLogin        View = 0
	ViewMenu         View = 1
	ViewMarket       View = 2
	ViewPortfolio    View = 3
	ViewTransactions View = 4
)

func initialModel() (model, func()) {
	_ = godotenv.Load()

	// Logs would corrupt the alt screen.
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	ctx := context.Background()

	a, err := app.Open(ctx, cfg, slog.Default())
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to open store:", err)
		os.Exit(1)
	}

	if _, err := a.Seed(ctx, ""); err != nil {
		fmt.Fprintln(os.Stderr, "failed to seed projects:", err)
		os.Exit(1)
	}

	return model{
		app:         a,
		currentView: ViewLogin,
		loginView:   view.NewLoginModel(a.Profiles),
	}, func() { _ = a.Close() }
}

func (m model) Init() tea.Cmd {
	return m.loginView.Init()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.currentView == ViewMenu {
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewMarket
				m.marketView = view.NewMarketModel(m.app.Ledger, m.user.ID, m.app.Config.App.Currency)

				return m, m.marketView.Init()
			case "2":
				m.currentView = ViewPortfolio
				m.portfolioView = view.NewPortfolioModel(m.app.Ledger, m.user.ID)

				return m, m.portfolioView.Init()
			case "3":
				m.currentView = ViewTransactions
				m.transactionsView = view.NewTransactionsModel(m.app.Ledger, m.user.ID, m.app.Config.App.Currency)

				return m, tea.Batch(m.transactionsView.Init(), m.resize())
			case "l":
				m.user = nil
				m.currentView = ViewLogin
				m.loginView = view.NewLoginModel(m.app.Profiles)

				return m, m.loginView.Init()
			}
		}
	case view.LoggedInMsg:
		m.user = msg.User
		m.currentView = ViewMenu

		return m, nil
	case view.BalanceMsg:
		m.user = msg.User
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, m.refreshUser()
	}

	switch m.currentView {
	case ViewLogin:
		var newModel tea.Model
		newModel, cmd = m.loginView.Update(msg)
		m.loginView = newModel.(view.LoginModel)
	case ViewMarket:
		var newModel tea.Model
		newModel, cmd = m.marketView.Update(msg)
		m.marketView = newModel.(view.MarketModel)
	case ViewPortfolio:
		var newModel tea.Model
		newModel, cmd = m.portfolioView.Update(msg)
		m.portfolioView = newModel.(view.PortfolioModel)
	case ViewTransactions:
		var newModel tea.Model
		newModel, cmd = m.transactionsView.Update(msg)
		m.transactionsView = newModel.(view.TransactionsModel)
	}

	return m, cmd
}

// resize replays the last window size so a freshly built view can lay itself out.
func (m model) resize() tea.Cmd {
	if m.width == 0 {
		return nil
	}

	size := tea.WindowSizeMsg{Width: m.width, Height: m.height}

	return func() tea.Msg { return size }
}

func (m model) refreshUser() tea.Cmd {
	if m.user == nil {
		return nil
	}

	id := m.user.ID

	return func() tea.Msg {
		ctx, cancel := view.DbCtx()
		defer cancel()

		u, err := m.app.Ledger.GetUser(ctx, id)
		if err != nil {
			return nil
		}

		return view.BalanceMsg{User: u}
	}
}

func (m model) header() string {
	if m.user == nil {
		return ""
	}

	return lipgloss.NewStyle().Faint(true).PaddingLeft(2).Render(
		fmt.Sprintf("%s · %s · balance %s", m.user.Name, m.user.Email, ledger.FormatMoney(m.user.Balance, m.app.Config.App.Currency)),
	) + "\n"
}

func (m model) View() string {
	switch m.currentView {
	case ViewLogin:
		return m.loginView.View()
	case ViewMenu:
		return m.header() + lipgloss.NewStyle().Padding(2).Render(
			"Helios TUI\n\n"+
				"1. Marketplace\n"+
				"2. Portfolio\n"+
				"3. Transactions\n\n"+
				"l. Sign out\n"+
				"q. Quit",
		)
	case ViewMarket:
		return m.header() + m.marketView.View()
	case ViewPortfolio:
		return m.header() + m.portfolioView.View()
	case ViewTransactions:
		return m.header() + m.transactionsView.View()
	}

	return "Unknown View"
}

func main() {
	m, closeApp := initialModel()
	defer closeApp()

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "failed to run TUI:", err)
		closeApp()
		os.Exit(1)
	}
}

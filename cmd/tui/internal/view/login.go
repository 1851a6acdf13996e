package view

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/helios/internal/ledger"
	"github.com/MrJamesThe3rd/helios/internal/profile"
)

const (
	modeSignIn   = "signin"
	modeRegister = "register"
)

// LoggedInMsg is sent once the user has signed in or registered.
type LoggedInMsg struct {
	User *ledger.User
}

// loginFields lives on the heap so the form keeps writing to the same values
// across model copies.
type loginFields struct {
	mode     string
	email    string
	password string
	name     string
}

type LoginModel struct {
	CommonModel
	profiles *profile.Service

	fields *loginFields
	form   *huh.Form
	status string
	busy   bool
}

func NewLoginModel(profiles *profile.Service) LoginModel {
	m := LoginModel{
		profiles: profiles,
		fields:   &loginFields{mode: modeSignIn},
	}
	m.form = m.buildForm()

	return m
}

func (m LoginModel) Title() string     { return "Sign in" }
func (m LoginModel) ShortHelp() string { return "Enter: next | Ctrl+C: quit" }

func (m LoginModel) buildForm() *huh.Form {
	required := func(field string) func(string) error {
		return func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("%s cannot be empty", field)
			}
			return nil
		}
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Welcome to Helios").
				Options(
					huh.NewOption("Sign in", modeSignIn),
					huh.NewOption("Create an account", modeRegister),
				).
				Value(&m.fields.mode),

			huh.NewInput().
				Title("Email").
				Placeholder("you@example.com").
				Value(&m.fields.email).
				Validate(func(s string) error {
					if !strings.Contains(s, "@") {
						return errors.New("enter a valid email")
					}
					return nil
				}),

			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fields.password).
				Validate(required("password")),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Display name").
				Placeholder("optional").
				Value(&m.fields.name),
		).WithHideFunc(func() bool { return m.fields.mode != modeRegister }),
	).WithWidth(50).WithShowHelp(false)
}

func (m LoginModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m LoginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loginResultMsg:
		m.busy = false
		if msg.err != nil {
			m.status = describeError(msg.err)
			m.fields.password = ""
			m.form = m.buildForm()

			return m, m.form.Init()
		}

		return m, func() tea.Msg { return LoggedInMsg{User: msg.user} }
	}

	if m.busy {
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	m.busy = true
	m.status = ""

	return m, m.submitCmd()
}

func (m LoginModel) View() string {
	content := titleStyle.Render("☀ Helios") + "\n" +
		faintStyle.Render("Own a share of the sun.") + "\n\n"

	if m.busy {
		content += "Signing in..."
	} else {
		content += m.form.View()
	}

	if m.status != "" {
		content += "\n\n" + errorStyle.Render(m.status)
	}

	return lipgloss.NewStyle().Padding(2).Render(content)
}

type loginResultMsg struct {
	user *ledger.User
	err  error
}

func (m LoginModel) submitCmd() tea.Cmd {
	f := *m.fields

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		var (
			u   *ledger.User
			err error
		)

		if f.mode == modeRegister {
			u, err = m.profiles.Register(ctx, f.email, f.password, f.name)
		} else {
			u, err = m.profiles.Login(ctx, f.email, f.password)
		}

		return loginResultMsg{user: u, err: err}
	}
}

// describeError turns service errors into short user-facing text.
func describeError(err error) string {
	switch ledger.Code(err) {
	case ledger.CodeInvalidCredentials:
		return "Invalid email or password."
	case ledger.CodeDuplicateIdentity:
		return "An account with that email already exists."
	case ledger.CodeInsufficientFunds:
		return "Insufficient balance."
	case ledger.CodeInsufficientInventory:
		return "Not enough shares available."
	case ledger.CodeNotFound:
		return "Not found."
	case ledger.CodeInvalidRequest:
		return err.Error()
	}

	return fmt.Sprintf("Error: %v", err)
}

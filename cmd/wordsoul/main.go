package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rewrz/word-soul/internal/client"
	"github.com/rewrz/word-soul/internal/model"
)

const defaultAPIBase = "http://127.0.0.1:8080"

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	playerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	narratorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	systemStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("178")).Italic(true)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	choiceStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	selectedStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	separatorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
)

type view int

const (
	viewLogin view = iota
	viewMenu
	viewGame
)

type loginDoneMsg struct{ err error }

type sessionsMsg struct {
	sessions []model.SessionSummary
	err      error
}

type gameStartedMsg struct{ err error }

type turnDoneMsg struct{ err error }

type loggedOutMsg struct{}

type tuiModel struct {
	cli   *client.Client
	creds *client.CredentialStore

	view   view
	width  int
	height int
	status string

	// Login form.
	username textinput.Model
	password textinput.Model
	focus    int

	// Session menu.
	sessions []model.SessionSummary
	cursor   int

	// Game screen.
	engine   *client.TurnEngine
	viewport viewport.Model
	input    textinput.Model
	spin     spinner.Model
	busy     bool
}

func newTUIModel(cli *client.Client, creds *client.CredentialStore) tuiModel {
	username := textinput.New()
	username.Placeholder = "用户名"
	username.Focus()

	password := textinput.New()
	password.Placeholder = "密码"
	password.EchoMode = textinput.EchoPassword

	input := textinput.New()
	input.Placeholder = "你要做什么？"

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	m := tuiModel{
		cli:      cli,
		creds:    creds,
		view:     viewLogin,
		username: username,
		password: password,
		input:    input,
		spin:     spin,
		viewport: viewport.New(80, 20),
	}
	if creds.Get().AccessToken != "" {
		m.view = viewMenu
	}
	return m
}

func (m tuiModel) Init() tea.Cmd {
	if m.view == viewMenu {
		return tea.Batch(m.spin.Tick, m.fetchSessions())
	}
	return tea.Batch(textinput.Blink, m.spin.Tick)
}

func (m tuiModel) fetchSessions() tea.Cmd {
	return func() tea.Msg {
		sessions, err := m.cli.Sessions(context.Background())
		return sessionsMsg{sessions: sessions, err: err}
	}
}

func (m tuiModel) login() tea.Cmd {
	username := m.username.Value()
	password := m.password.Value()
	return func() tea.Msg {
		return loginDoneMsg{err: m.cli.Login(context.Background(), username, password)}
	}
}

func (m tuiModel) startGame(engine *client.TurnEngine) tea.Cmd {
	return func() tea.Msg {
		return gameStartedMsg{err: engine.Start(context.Background())}
	}
}

func (m tuiModel) submitTurn(engine *client.TurnEngine, action string) tea.Cmd {
	return func() tea.Msg {
		return turnDoneMsg{err: engine.Submit(context.Background(), action)}
	}
}

func (m tuiModel) retryTurn(engine *client.TurnEngine) tea.Cmd {
	return func() tea.Msg {
		return turnDoneMsg{err: engine.Retry(context.Background())}
	}
}

func (m tuiModel) logout() tea.Cmd {
	return func() tea.Msg {
		m.cli.Logout(context.Background())
		return loggedOutMsg{}
	}
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - 8
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.view {
		case viewLogin:
			return m.updateLogin(msg)
		case viewMenu:
			return m.updateMenu(msg)
		case viewGame:
			return m.updateGame(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case loginDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.status = errorStyle.Render(fmt.Sprintf("登录失败: %v", msg.err))
			return m, nil
		}
		m.view = viewMenu
		m.status = ""
		return m, m.fetchSessions()

	case sessionsMsg:
		m.busy = false
		if msg.err != nil {
			m.status = errorStyle.Render(fmt.Sprintf("获取会话失败: %v", msg.err))
			return m, nil
		}
		m.sessions = msg.sessions
		m.cursor = 0
		return m, nil

	case gameStartedMsg, turnDoneMsg:
		m.busy = false
		var err error
		switch resolved := msg.(type) {
		case gameStartedMsg:
			err = resolved.err
		case turnDoneMsg:
			err = resolved.err
		}
		if err != nil {
			if errors.Is(err, client.ErrAuthRejected) {
				m.view = viewLogin
				m.status = errorStyle.Render("登录已失效，请重新登录。")
				return m, nil
			}
			m.status = errorStyle.Render(err.Error())
		} else {
			m.status = ""
		}
		m.refreshGameView()
		return m, nil

	case loggedOutMsg:
		m.view = viewLogin
		m.engine = nil
		m.status = ""
		return m, textinput.Blink
	}

	return m, nil
}

func (m tuiModel) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyTab, tea.KeyShiftTab:
		m.focus = (m.focus + 1) % 2
		if m.focus == 0 {
			m.username.Focus()
			m.password.Blur()
		} else {
			m.password.Focus()
			m.username.Blur()
		}
		return m, nil
	case tea.KeyEnter:
		if m.username.Value() == "" || m.password.Value() == "" {
			m.status = errorStyle.Render("用户名和密码不能为空")
			return m, nil
		}
		m.busy = true
		m.status = "登录中..."
		return m, m.login()
	}

	var cmd tea.Cmd
	if m.focus == 0 {
		m.username, cmd = m.username.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m tuiModel) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.sessions)-1 {
			m.cursor++
		}
	case "r":
		m.busy = true
		return m, m.fetchSessions()
	case "q":
		return m, m.logout()
	case "enter":
		if len(m.sessions) == 0 {
			return m, nil
		}
		session := m.sessions[m.cursor]
		engine := client.NewTurnEngine(m.cli, session.SessionID)
		m.engine = engine
		m.view = viewGame
		m.busy = true
		m.status = "载入会话..."
		m.input.Focus()
		return m, m.startGame(engine)
	}
	return m, nil
}

func (m tuiModel) updateGame(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.view = viewMenu
		m.engine = nil
		m.busy = false
		return m, m.fetchSessions()
	case tea.KeyEnter:
		if m.busy || m.engine == nil {
			return m, nil
		}
		action := strings.TrimSpace(m.input.Value())
		if action == "" {
			return m, nil
		}
		m.input.SetValue("")
		m.busy = true
		return m, m.submitTurn(m.engine, action)
	case tea.KeyCtrlR:
		if m.busy || m.engine == nil || m.engine.State() != client.StateRetryAvailable {
			return m, nil
		}
		m.busy = true
		return m, m.retryTurn(m.engine)
	case tea.KeyTab:
		// Cycle suggested choices into the input box.
		if m.engine == nil || len(m.engine.Choices()) == 0 {
			return m, nil
		}
		choices := m.engine.Choices()
		current := m.input.Value()
		next := 0
		for i, c := range choices {
			if c.ActionCommand == current {
				next = (i + 1) % len(choices)
				break
			}
		}
		m.input.SetValue(choices[next].ActionCommand)
		m.input.CursorEnd()
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *tuiModel) refreshGameView() {
	if m.engine == nil {
		return
	}
	var b strings.Builder
	for _, entry := range m.engine.History().Entries() {
		switch entry.Role {
		case model.RolePlayer:
			b.WriteString(playerStyle.Render("> " + entry.Content))
		case model.RoleAssistant:
			line := entry.Content
			if entry.Sync == client.SyncDiverged {
				line += systemStyle.Render("  [未同步]")
			}
			b.WriteString(narratorStyle.Render(line))
		default:
			b.WriteString(systemStyle.Render(entry.Content))
		}
		b.WriteString("\n\n")
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

func (m tuiModel) View() string {
	switch m.view {
	case viewLogin:
		return m.viewLogin()
	case viewMenu:
		return m.viewMenu()
	default:
		return m.viewGame()
	}
}

func (m tuiModel) viewLogin() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("言灵世界"))
	b.WriteString("\n\n")
	b.WriteString(m.username.View())
	b.WriteString("\n")
	b.WriteString(m.password.View())
	b.WriteString("\n\n")
	if m.busy {
		b.WriteString(m.spin.View() + " ")
	}
	b.WriteString(m.status)
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("tab 切换 · enter 登录 · ctrl+c 退出"))
	return b.String()
}

func (m tuiModel) viewMenu() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("言灵纪事"))
	b.WriteString("\n\n")
	if len(m.sessions) == 0 {
		b.WriteString(statusStyle.Render("暂无游戏会话。"))
		b.WriteString("\n")
	}
	for i, s := range m.sessions {
		line := fmt.Sprintf("%s  (%s)", s.WorldName, s.LastPlayed.Format("2006-01-02 15:04"))
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("▸ " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	if m.busy {
		b.WriteString(m.spin.View() + " ")
	}
	b.WriteString(m.status)
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓ 选择 · enter 进入 · r 刷新 · q 登出 · ctrl+c 退出"))
	return b.String()
}

func (m tuiModel) viewGame() string {
	var b strings.Builder
	title := "言灵世界"
	if m.engine != nil && m.engine.WorldName() != "" {
		title = m.engine.WorldName()
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", max(20, m.width))))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if m.engine != nil {
		b.WriteString(statusStyle.Render(renderState(m.engine.CurrentState())))
		b.WriteString("\n")
		if choices := m.engine.Choices(); len(choices) > 0 {
			parts := make([]string, 0, len(choices))
			for _, c := range choices {
				text := c.DisplayText
				if len(c.Details) > 0 {
					text += " (" + strings.Join(c.Details, ", ") + ")"
				}
				parts = append(parts, text)
			}
			b.WriteString(choiceStyle.Render("建议: " + strings.Join(parts, " · ")))
			b.WriteString("\n")
		}
	}

	if m.busy {
		b.WriteString(m.spin.View() + " ")
	}
	b.WriteString(m.status)
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	help := "enter 行动 · tab 建议 · esc 返回 · ctrl+c 退出"
	if m.engine != nil && m.engine.State() == client.StateRetryAvailable {
		help = "ctrl+r 重试上次行动 · " + help
	}
	b.WriteString(helpStyle.Render(help))
	return b.String()
}

func renderState(state model.CurrentState) string {
	parts := make([]string, 0, 4)
	if state.CurrentLocation != "" {
		parts = append(parts, "地点: "+state.CurrentLocation)
	}
	if len(state.Attributes) > 0 {
		names := make([]string, 0, len(state.Attributes))
		for name := range state.Attributes {
			names = append(names, name)
		}
		sort.Strings(names)
		attrs := make([]string, 0, len(names))
		for _, name := range names {
			attrs = append(attrs, fmt.Sprintf("%s %g", name, state.Attributes[name]))
		}
		parts = append(parts, strings.Join(attrs, " "))
	}
	if len(state.Inventory) > 0 {
		parts = append(parts, "物品: "+strings.Join(state.Inventory, "、"))
	}
	if state.InCombat {
		parts = append(parts, "⚔ 战斗中")
	}
	return strings.Join(parts, " │ ")
}

func main() {
	apiBase := flag.String("api", envOr("WORD_SOUL_API", defaultAPIBase), "word-soul server base URL")
	credPath := flag.String("credentials", client.DefaultCredentialPath(), "credential store path")
	flag.Parse()

	creds, err := client.NewCredentialStore(*credPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open credential store: %v\n", err)
		os.Exit(1)
	}

	cli := client.New(strings.TrimRight(*apiBase, "/"), creds)

	p := tea.NewProgram(newTUIModel(cli, creds), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

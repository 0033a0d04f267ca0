package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/unklstewy/navmap-online/internal/online"
	"github.com/unklstewy/navmap-online/pkg/whazzup"
)

const maxMessages = 8

type session interface {
	Info() online.Info
	NumClients() int
	StartProcessing()
}

type atcStore interface {
	Atc() ([]whazzup.Client, error)
	Servers() ([]whazzup.Server, error)
}

type statusLine struct {
	time  time.Time
	title string
	text  string
}

type model struct {
	session session
	store   atcStore

	info        online.Info
	pilots      int
	controllers int
	servers     int
	updates     int
	messages    []statusLine
	fileMessage string
	prompt      *sslPromptMsg
	err         error
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func newModel(sess session, st atcStore) model {
	return model{session: sess, store: st}
}

func (m model) Init() tea.Cmd {
	return tick()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.prompt != nil {
			return m.answerPrompt(msg.String())
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			m.session.StartProcessing()
		case "c":
			m.messages = nil
			m.fileMessage = ""
		}

	case tickMsg:
		m.info = m.session.Info()
		return m, tick()

	case clientsUpdatedMsg:
		m.updates++
		m.refreshCounts()

	case serversUpdatedMsg:
		servers, err := m.store.Servers()
		m.err = err
		m.servers = len(servers)

	case networkChangedMsg:
		m.info = m.session.Info()

	case statusMsg:
		m.addMessage(msg.title, msg.text)

	case statusFileMsg:
		m.fileMessage = msg.text

	case sslPromptMsg:
		if m.prompt != nil {
			// Only one download runs at a time
			m.prompt.reply <- sslAnswer{}
		}
		m.prompt = &msg
	}
	return m, nil
}

func (m model) answerPrompt(key string) (tea.Model, tea.Cmd) {
	var answer sslAnswer
	switch key {
	case "y":
		answer.accept = true
	case "a":
		answer = sslAnswer{accept: true, remember: true}
	case "n", "esc":
	case "ctrl+c":
		m.prompt.reply <- answer
		m.prompt = nil
		return m, tea.Quit
	default:
		return m, nil
	}

	m.prompt.reply <- answer
	m.prompt = nil
	return m, nil
}

func (m *model) refreshCounts() {
	m.pilots = m.session.NumClients()

	atc, err := m.store.Atc()
	m.err = err
	m.controllers = 0
	for _, c := range atc {
		if c.IsATC() {
			m.controllers++
		}
	}
}

func (m *model) addMessage(title, text string) {
	m.messages = append(m.messages, statusLine{time: time.Now(), title: title, text: text})
	if len(m.messages) > maxMessages {
		m.messages = m.messages[len(m.messages)-maxMessages:]
	}
}

// cancelPrompt rejects an open prompt so the decider does not wait forever.
func (m model) cancelPrompt() {
	if m.prompt != nil {
		m.prompt.reply <- sslAnswer{}
	}
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	busyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	promptStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("208")).
			Padding(0, 1)
)

func (m model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("ONLINE NETWORK MONITOR"))
	s.WriteString("\n\n")

	if m.prompt != nil {
		s.WriteString(m.renderPrompt())
		s.WriteString("\n")
		return s.String()
	}

	s.WriteString(m.renderSession())
	s.WriteString("\n")
	s.WriteString(m.renderMessages())

	if m.err != nil {
		s.WriteString("\n")
		s.WriteString(errStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render("r: reload  c: clear messages  q: quit"))
	return s.String()
}

func (m model) renderSession() string {
	var s strings.Builder

	network := m.info.Network
	if !m.info.Active {
		network = "Disabled"
	}

	state := okStyle.Render(m.info.State)
	if m.info.State != "" && m.info.State != online.None.String() {
		state = busyStyle.Render(m.info.State)
	}

	lastUpdate := "never"
	if !m.info.LastUpdate.IsZero() {
		lastUpdate = m.info.LastUpdate.Local().Format("15:04:05")
	}

	rows := [][2]string{
		{"Network", network},
		{"Status", m.info.StatusText},
		{"State", state},
		{"Last update", lastUpdate},
		{"Pilots", fmt.Sprintf("%d", m.pilots)},
		{"Controllers", fmt.Sprintf("%d", m.controllers)},
		{"Servers", fmt.Sprintf("%d", m.servers)},
		{"Updates", fmt.Sprintf("%d", m.updates)},
	}
	for _, row := range rows {
		s.WriteString(labelStyle.Render(fmt.Sprintf("%-12s", row[0])))
		s.WriteString(row[1])
		s.WriteString("\n")
	}
	return s.String()
}

func (m model) renderMessages() string {
	var s strings.Builder

	if m.fileMessage != "" {
		s.WriteString(headerStyle.Render("Network message"))
		s.WriteString("\n")
		s.WriteString(m.fileMessage)
		s.WriteString("\n\n")
	}

	s.WriteString(headerStyle.Render("Messages"))
	s.WriteString("\n")
	if len(m.messages) == 0 {
		s.WriteString(helpStyle.Render("  none"))
		s.WriteString("\n")
	}
	for _, line := range m.messages {
		text := line.text
		if text == "" {
			text = "Disconnected."
		}
		if line.title != "" {
			text = errStyle.Render(line.title+": ") + text
		}
		s.WriteString(fmt.Sprintf("  %s %s\n", line.time.Format("15:04:05"), text))
	}
	return s.String()
}

func (m model) renderPrompt() string {
	var s strings.Builder
	s.WriteString(errStyle.Render("Certificate errors"))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("URL: %s\n\n", m.prompt.url))
	for _, e := range m.prompt.errors {
		s.WriteString(fmt.Sprintf("  - %s\n", e))
	}
	s.WriteString("\nContinue the download?\n\n")
	s.WriteString(helpStyle.Render("y: yes  a: always  n: no"))
	return promptStyle.Render(s.String())
}

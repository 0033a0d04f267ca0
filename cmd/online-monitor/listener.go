package main

import (
	tea "github.com/charmbracelet/bubbletea"
)

type clientsUpdatedMsg struct{ loadAll bool }

type serversUpdatedMsg struct{ loadAll bool }

type networkChangedMsg struct{}

type statusMsg struct{ title, text string }

type statusFileMsg struct{ text string }

// programListener forwards controller notifications to the program. send
// must not block since the controller calls it from its own goroutine.
type programListener struct {
	send func(tea.Msg)
}

func (l programListener) OnlineServersUpdated(loadAll, keepSelection bool) {
	l.send(serversUpdatedMsg{loadAll: loadAll})
}

func (l programListener) OnlineClientAndAtcUpdated(loadAll, keepSelection bool) {
	l.send(clientsUpdatedMsg{loadAll: loadAll})
}

func (l programListener) OnlineNetworkChanged() {
	l.send(networkChangedMsg{})
}

func (l programListener) StatusMessage(title, text string) {
	l.send(statusMsg{title: title, text: text})
}

func (l programListener) StatusFileMessage(text string) {
	l.send(statusFileMsg{text: text})
}

type sslAnswer struct {
	accept   bool
	remember bool
}

// sslPromptMsg asks the user about certificate errors. The answer is sent
// on reply exactly once.
type sslPromptMsg struct {
	url    string
	errors []string
	reply  chan sslAnswer
}

// promptDecider shows certificate errors in the monitor and waits for the
// user.
type promptDecider struct {
	send func(tea.Msg)
}

func (d promptDecider) Decide(url string, errors []string) (bool, bool) {
	reply := make(chan sslAnswer, 1)
	d.send(sslPromptMsg{url: url, errors: errors, reply: reply})
	answer := <-reply
	return answer.accept, answer.remember
}

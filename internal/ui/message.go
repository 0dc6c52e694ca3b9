package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/genx/internal/services"
	"github.com/desertthunder/genx/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgPageFetched MsgKind = iota
	MsgPollTick
	MsgPolled
	MsgJobStarted
	MsgProgressUpdate
	MsgActionDone
	MsgPromptsLoaded
)

type pageFetched struct {
	req  tasks.PageRequest
	page *services.ItemPage
	err  error
}

type polled struct {
	finished int
	err      error
}

type actionDone struct {
	status string
	err    error
}

// pageFetchedMsg is the constructor for [MsgPageFetched]
func pageFetchedMsg(req tasks.PageRequest, page *services.ItemPage, err error) Msg {
	return Msg{kind: MsgPageFetched, data: pageFetched{req, page, err}}
}

// pollTickMsg is the constructor for [MsgPollTick]
func pollTickMsg() Msg {
	return Msg{kind: MsgPollTick}
}

// polledMsg is the constructor for [MsgPolled]
func polledMsg(finished int, err error) Msg {
	return Msg{kind: MsgPolled, data: polled{finished, err}}
}

// jobStartedMsg is the constructor for [MsgJobStarted]
func jobStartedMsg() Msg {
	return Msg{kind: MsgJobStarted}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// actionDoneMsg is the constructor for [MsgActionDone]
func actionDoneMsg(status string, err error) Msg {
	return Msg{kind: MsgActionDone, data: actionDone{status, err}}
}

// promptsLoadedMsg is the constructor for [MsgPromptsLoaded]
func promptsLoadedMsg(texts []string) Msg {
	return Msg{kind: MsgPromptsLoaded, data: texts}
}

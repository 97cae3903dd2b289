package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/betterblend/internal/formatter"
	"github.com/desertthunder/betterblend/internal/tasks"
)

// MsgKind enumerates all message types in the viewer.
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
	MsgBlendLoaded MsgKind = iota
	MsgProgressUpdate
	MsgGenerateComplete
)

type loadedData struct {
	export *formatter.BlendExport
	err    error
}

// blendLoadedMsg is the constructor for [MsgBlendLoaded]
func blendLoadedMsg(export *formatter.BlendExport, err error) Msg {
	return Msg{kind: MsgBlendLoaded, data: loadedData{export, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// generateCompleteMsg is the constructor for [MsgGenerateComplete]
func generateCompleteMsg(err error) Msg {
	return Msg{kind: MsgGenerateComplete, data: err}
}

// ABOUTME: Interactive single-key transport control
// ABOUTME: Bubbletea model that dispatches key presses as player commands
package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/aircast-audio/aircast-go/internal/player"
)

// KeyControl carries commands from the key listener to the streaming loop.
// The listener only enqueues; it never touches the transport itself.
type KeyControl struct {
	Commands chan player.Command
	Quit     chan struct{}
}

// NewKeyControl creates the command channels.
func NewKeyControl() *KeyControl {
	return &KeyControl{
		Commands: make(chan player.Command, 8),
		Quit:     make(chan struct{}, 1),
	}
}

// Model maps key presses to transport commands: p pauses, r restarts,
// s or q stops.
type Model struct {
	ctrl *KeyControl
}

// NewModel creates the key listener model.
func NewModel(ctrl *KeyControl) Model {
	return Model{ctrl: ctrl}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles key messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "p":
		m.dispatch(player.CmdPause)
	case "r":
		m.dispatch(player.CmdRestart)
	case "s", "q", "ctrl+c":
		m.dispatch(player.CmdStop)
		select {
		case m.ctrl.Quit <- struct{}{}:
		default:
		}
		return m, tea.Quit
	}

	return m, nil
}

// View renders the key help line.
func (m Model) View() string {
	return "p:Pause  r:Restart  s/q:Stop\n"
}

// dispatch enqueues a command without blocking. The queue is bounded; when
// the loop is behind, excess key presses are dropped.
func (m Model) dispatch(cmd player.Command) {
	select {
	case m.ctrl.Commands <- cmd:
	default:
	}
}

// Run starts the key listener program.
func Run(ctrl *KeyControl) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(ctrl))
	return p, nil
}

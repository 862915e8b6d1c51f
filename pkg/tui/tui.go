package tui

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vergame/client/pkg/chat"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	inputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	channelStyles = map[chat.Channel]lipgloss.Style{
		chat.ChannelPublic:  lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		chat.ChannelAdmin:   lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true),
		chat.ChannelPrivate: lipgloss.NewStyle().Foreground(lipgloss.Color("141")),
		chat.ChannelSystem:  lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true),
	}
)

// ClientInterface is what the TUI needs from the game side.
type ClientInterface interface {
	Title() string
	MaxLogLines() int
	SendChatMessage(msg string) error
	SendPrivateMessage(userID int, msg string) error
	SendCommand(cmd string) error
	Quit()
}

// TUI shows the log and chat of one session and takes chat input.
type TUI struct {
	client       ClientInterface
	viewport     viewport.Model
	textInput    textinput.Model
	logs         []string
	logMutex     sync.Mutex
	ready        bool
	inputEnabled bool
	width        int
	height       int
}

func New(client ClientInterface) *TUI {
	ti := textinput.New()
	ti.Placeholder = "Waiting for the session to start..."
	ti.Blur()
	ti.CharLimit = 256
	ti.Width = 50

	return &TUI{
		client:    client,
		textInput: ti,
		logs:      []string{},
	}
}

func (t *TUI) Init() tea.Cmd {
	return textinput.Blink
}

func (t *TUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			t.client.Quit()
			return t, tea.Quit

		case tea.KeyEnter:
			if !t.inputEnabled {
				return t, nil
			}
			var send tea.Cmd
			if input := strings.TrimSpace(t.textInput.Value()); input != "" {
				send = t.submit(input)
				t.refresh()
				t.textInput.SetValue("")
			}
			return t, send
		}

	case tea.WindowSizeMsg:
		if !t.ready {
			t.viewport = viewport.New(msg.Width, msg.Height-3)
			t.viewport.SetContent(t.renderLogs())
			t.ready = true
		} else {
			t.viewport.Width = msg.Width
			t.viewport.Height = msg.Height - 3
		}
		t.width = msg.Width
		t.height = msg.Height
		t.textInput.Width = msg.Width - 2

	case LogMsg:
		t.AddLog(string(msg))
		t.refresh()
		return t, nil

	case ChatMsg:
		t.AddLog(FormatLine(chat.Line(msg)))
		t.refresh()
		return t, nil

	case EnableInputMsg:
		t.inputEnabled = true
		t.textInput.Placeholder = "Type a message, /w <id> <msg> or /command..."
		t.textInput.Focus()
		return t, nil
	}

	if t.ready {
		t.viewport, cmd = t.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	if t.inputEnabled {
		t.textInput, cmd = t.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return t, tea.Batch(cmds...)
}

// submit parses input and returns a command that calls the client. The
// client may log through this program, so it never runs inside Update.
func (t *TUI) submit(input string) tea.Cmd {
	switch {
	case strings.HasPrefix(input, "/w "):
		fields := strings.SplitN(strings.TrimPrefix(input, "/w "), " ", 2)
		if len(fields) != 2 {
			t.AddLog("usage: /w <user id> <message>")
			return nil
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			t.AddLog(fmt.Sprintf("invalid user id %q", fields[0]))
			return nil
		}
		msg := fields[1]
		return func() tea.Msg {
			if err := t.client.SendPrivateMessage(id, msg); err != nil {
				return LogMsg(fmt.Sprintf("Error sending private message: %v", err))
			}
			return LogMsg(fmt.Sprintf("to %d > %s", id, msg))
		}
	case strings.HasPrefix(input, "/"):
		t.AddLog(fmt.Sprintf("cmd > %s", input))
		return func() tea.Msg {
			if err := t.client.SendCommand(input); err != nil {
				return LogMsg(fmt.Sprintf("Error sending command: %v", err))
			}
			return nil
		}
	default:
		return func() tea.Msg {
			if err := t.client.SendChatMessage(input); err != nil {
				return LogMsg(fmt.Sprintf("Error sending message: %v", err))
			}
			return nil
		}
	}
}

func (t *TUI) refresh() {
	if !t.ready {
		return
	}
	// do not scroll if not at bottom, to prevent flickering
	wasAtBottom := t.viewport.AtBottom()
	t.viewport.SetContent(t.renderLogs())
	if wasAtBottom {
		t.viewport.GotoBottom()
	}
}

func (t *TUI) View() string {
	if !t.ready {
		return "Initializing..."
	}

	title := titleStyle.Render(t.client.Title())

	var helpText string
	if t.inputEnabled {
		helpText = helpStyle.Render("Enter: send • Ctrl+C/Esc: quit")
	} else {
		helpText = helpStyle.Render("Waiting for the session to start... • Ctrl+C/Esc: quit")
	}

	return fmt.Sprintf(
		"%s\n%s\n%s\n%s",
		title,
		t.viewport.View(),
		inputStyle.Render("> "+t.textInput.View()),
		helpText,
	)
}

// AddLog appends a line, dropping the oldest beyond MaxLogLines.
func (t *TUI) AddLog(msg string) {
	t.logMutex.Lock()
	defer t.logMutex.Unlock()
	t.logs = append(t.logs, msg)

	maxLines := t.client.MaxLogLines()
	if maxLines > 0 && len(t.logs) > maxLines {
		t.logs = t.logs[len(t.logs)-maxLines:]
	}
}

// Logs returns a copy of the buffered lines.
func (t *TUI) Logs() []string {
	t.logMutex.Lock()
	defer t.logMutex.Unlock()
	return append([]string(nil), t.logs...)
}

func (t *TUI) renderLogs() string {
	t.logMutex.Lock()
	defer t.logMutex.Unlock()
	return strings.Join(t.logs, "\n")
}

// FormatLine renders a chat line for the log view.
func FormatLine(l chat.Line) string {
	style, ok := channelStyles[l.Channel]
	if !ok {
		style = channelStyles[chat.ChannelPublic]
	}
	switch l.Channel {
	case chat.ChannelSystem:
		return style.Render("* " + l.Text)
	case chat.ChannelAdmin:
		return style.Render(fmt.Sprintf("[ADMIN] %s: %s", l.Sender, l.Text))
	case chat.ChannelPrivate:
		return style.Render(fmt.Sprintf("[%s -> me] %s", l.Sender, l.Text))
	default:
		return style.Render(fmt.Sprintf("%s: %s", l.Sender, l.Text))
	}
}

// LogMsg is a message type for logging
type LogMsg string

// ChatMsg carries a chat line into the program.
type ChatMsg chat.Line

// EnableInputMsg is a message type to enable input
type EnableInputMsg struct{}

// Writer is an io.Writer that sends output to the TUI
type Writer struct {
	program *tea.Program
}

func NewWriter(program *tea.Program) *Writer {
	return &Writer{program: program}
}

func (w *Writer) Write(p []byte) (n int, err error) {
	msg := strings.TrimSuffix(string(p), "\n")
	if msg != "" {
		w.program.Send(LogMsg(msg))
	}
	return len(p), nil
}

// Display forwards chat lines to a running program.
type Display struct {
	program *tea.Program
}

func NewDisplay(program *tea.Program) *Display {
	return &Display{program: program}
}

func (d *Display) Show(line chat.Line) {
	if d.program != nil {
		d.program.Send(ChatMsg(line))
	}
}

// Start creates a TUI program, returning the program and a writer for logging.
func Start(client ClientInterface) (*tea.Program, io.Writer) {
	t := New(client)
	p := tea.NewProgram(t, tea.WithAltScreen())
	return p, NewWriter(p)
}

// EnableInput sends an enable input message to the given program
func EnableInput(program *tea.Program) {
	if program != nil {
		program.Send(EnableInputMsg{})
	}
}

package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/twoseats/twoseats/internal/media"
	"github.com/twoseats/twoseats/internal/playback"
	"github.com/twoseats/twoseats/internal/session"
)

const chatHistory = 8

// RoomOptions wires the room screen to the running session.
type RoomOptions struct {
	Session *session.Session
	Player  *playback.Player

	// Stream sinks; the UI itself only shows that a stream arrived.
	OnPartnerStream func(*media.RemoteStream)
	OnMovieStream   func(*media.RemoteStream)
}

type eventMsg session.Event
type tickMsg time.Time

// RoomModel is the in-room TUI: status, chat, and playback controls.
type RoomModel struct {
	opts RoomOptions

	input textinput.Model
	bar   progress.Model

	state    session.State
	status   string
	chat     []string
	cameraOn bool
	micOn    bool

	chatCount   int
	cameraUsed  bool
	movieShared bool
	startedAt   time.Time

	width    int
	quitting bool
}

// NewRoomModel builds the room screen.
func NewRoomModel(opts RoomOptions) *RoomModel {
	input := textinput.New()
	input.Placeholder = "Say something nice"
	input.CharLimit = 240
	input.Prompt = ChatSelfStyle.Render("> ")

	bar := progress.New(progress.WithGradient(ProgressStart, ProgressEnd))
	bar.ShowPercentage = false

	return &RoomModel{
		opts:      opts,
		input:     input,
		bar:       bar,
		state:     opts.Session.State(),
		status:    "Setting up the room",
		micOn:     true,
		startedAt: time.Now(),
		width:     80,
	}
}

// Summary reports what happened in the room, for the closing table.
func (m *RoomModel) Summary() SessionSummary {
	return SessionSummary{
		RoomCode:     m.opts.Session.RoomCode(),
		Role:         string(m.opts.Session.Role()),
		Duration:     time.Since(m.startedAt),
		ChatMessages: m.chatCount,
		CameraUsed:   m.cameraUsed,
		MovieShared:  m.movieShared,
	}
}

func (m *RoomModel) Init() tea.Cmd {
	return tea.Batch(m.listen(), tick(), textinput.Blink)
}

// listen waits for the next session event.
func (m *RoomModel) listen() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.opts.Session.Events()
		if !ok {
			return tea.Quit()
		}
		return eventMsg(ev)
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *RoomModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = msg.Width - 20
		return m, nil

	case tickMsg:
		return m, tick()

	case eventMsg:
		m.applyEvent(session.Event(msg))
		return m, m.listen()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *RoomModel) applyEvent(ev session.Event) {
	switch ev.Type {
	case session.EventStatus:
		m.status = ev.Text

	case session.EventChat:
		m.chatCount++
		m.pushChat(ChatPartnerStyle.Render("partner") + " " + ev.Text)

	case session.EventState:
		m.state = ev.State

	case session.EventError:
		m.status = ErrorStyle.Render(ev.Text)

	case session.EventPartnerStream:
		m.cameraUsed = true
		m.status = IconCamera + " Partner camera is live"
		if m.opts.OnPartnerStream != nil && ev.Stream != nil {
			m.opts.OnPartnerStream(ev.Stream)
		}

	case session.EventMovieStream:
		m.movieShared = true
		m.status = IconMovie + " Movie stream is live"
		if m.opts.OnMovieStream != nil && ev.Stream != nil {
			m.opts.OnMovieStream(ev.Stream)
		}
	}
}

func (m *RoomModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.input.Focused() {
		switch msg.String() {
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text != "" {
				if err := m.opts.Session.SendChat(text); err == nil {
					m.chatCount++
					m.pushChat(ChatSelfStyle.Render("you") + " " + text)
				} else {
					m.status = ErrorStyle.Render("Not connected yet")
				}
			}
			m.input.SetValue("")
			return m, nil
		case "esc":
			m.input.Blur()
			return m, nil
		default:
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		m.opts.Session.Close()
		return m, tea.Quit

	case "i", "enter":
		m.input.Focus()
		return m, textinput.Blink

	case "c":
		if m.cameraOn {
			m.opts.Session.DisableCamera()
			m.cameraOn = false
		} else if err := m.opts.Session.EnableCamera(); err == nil {
			m.cameraOn = true
			m.cameraUsed = true
		}
		return m, nil

	case "v":
		m.opts.Session.SwitchCamera()
		return m, nil

	case "m":
		if on, err := m.opts.Session.ToggleMicrophone(); err == nil {
			m.micOn = on
		}
		return m, nil

	case " ":
		if m.opts.Player.Playing() {
			m.opts.Player.Pause()
		} else {
			m.opts.Player.Play()
		}
		return m, nil

	case "left":
		m.opts.Session.Seek(m.opts.Player.Progress() - 0.05)
		return m, nil

	case "right":
		m.opts.Session.Seek(m.opts.Player.Progress() + 0.05)
		return m, nil
	}

	return m, nil
}

func (m *RoomModel) pushChat(line string) {
	m.chat = append(m.chat, line)
	if len(m.chat) > chatHistory {
		m.chat = m.chat[len(m.chat)-chatHistory:]
	}
}

func (m *RoomModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	header := fmt.Sprintf("%s TwoSeats %s %s (%s)",
		IconSofa,
		IconRoom,
		BoldStyle.Foreground(Primary).Render(m.opts.Session.RoomCode()),
		strings.ToLower(string(m.opts.Session.Role())),
	)
	b.WriteString(TitleStyle.Render(header))
	b.WriteString("\n")

	b.WriteString(StatusStyle.Render(m.state.String()))
	b.WriteString(" ")
	b.WriteString(m.status)
	b.WriteString("\n\n")

	if len(m.chat) == 0 {
		b.WriteString(MutedStyle.Render("No chat yet"))
	} else {
		b.WriteString(strings.Join(m.chat, "\n"))
	}
	b.WriteString("\n\n")

	b.WriteString(m.playbackView())
	b.WriteString("\n")

	b.WriteString(m.input.View())
	b.WriteString("\n")

	help := "space play/pause · ←/→ seek · c camera · v switch · m mic · i chat · q quit"
	b.WriteString(MutedStyle.Render(help))

	return b.String()
}

func (m *RoomModel) playbackView() string {
	p := m.opts.Player
	if !p.Loaded() {
		return MutedStyle.Render(IconMovie + " No movie loaded")
	}

	icons := IconMovie
	if m.cameraOn {
		icons += " " + IconCamera
	}
	if !m.micOn {
		icons += " " + IconMuted
	}

	return fmt.Sprintf("%s %s %s %s",
		icons,
		playback.FormatTime(p.Position()),
		m.bar.ViewAs(p.Progress()),
		playback.FormatTime(p.Duration()),
	)
}

// RunRoom runs the room screen until the user quits and returns the
// session summary.
func RunRoom(opts RoomOptions) (SessionSummary, error) {
	model := NewRoomModel(opts)
	p := tea.NewProgram(model)

	final, err := p.Run()
	if err != nil {
		return SessionSummary{}, err
	}
	if room, ok := final.(*RoomModel); ok {
		return room.Summary(), nil
	}
	return model.Summary(), nil
}

// Package progress renders a live terminal view of a statement run.
package progress

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/card-statements/internal/keys"
	"github.com/nhle/card-statements/internal/model"
	"github.com/nhle/card-statements/internal/pipeline"
	"github.com/nhle/card-statements/internal/theme"
)

// recentFiles is how many saved files the view lists.
const recentFiles = 5

// EventMsg is a tea.Msg carrying one pipeline event.
type EventMsg pipeline.Event

// DoneMsg is a tea.Msg sent when the run returns.
type DoneMsg struct {
	Summary *model.RunSummary
	Err     error
}

// ErrNotStarted is reported when the view exits before starting the run.
var ErrNotStarted = errors.New("run was not started")

// RunFunc performs the run, reporting through the given callback.
type RunFunc func(ctx context.Context, report func(pipeline.Event)) (*model.RunSummary, error)

// Tracker bridges pipeline events into the Bubble Tea runtime.
type Tracker struct {
	events chan pipeline.Event
	done   chan DoneMsg

	started atomic.Bool

	// finished is closed once the run has returned and result is set.
	finished chan struct{}
	result   DoneMsg

	// detached is closed when the view stops reading events.
	detached   chan struct{}
	detachOnce sync.Once
}

// NewTracker creates a Tracker with a buffered event channel.
func NewTracker() *Tracker {
	return &Tracker{
		events:   make(chan pipeline.Event, 64),
		done:     make(chan DoneMsg, 1),
		finished: make(chan struct{}),
		detached: make(chan struct{}),
	}
}

// Report forwards e to the view. Message events are dropped when the
// buffer is full; file and terminal events always get through while the
// view is attached.
func (t *Tracker) Report(e pipeline.Event) {
	if e.Kind == pipeline.EventMessage {
		select {
		case t.events <- e:
		default:
		}
		return
	}
	select {
	case t.events <- e:
	case <-t.detached:
	}
}

// Start returns a tea.Cmd that runs fn in the background and waits for
// the first message.
func (t *Tracker) Start(ctx context.Context, fn RunFunc) tea.Cmd {
	t.started.Store(true)
	go func() {
		summary, err := fn(ctx, t.Report)
		t.result = DoneMsg{Summary: summary, Err: err}
		close(t.finished)
		t.done <- t.result
	}()
	return t.Wait()
}

// Finish detaches the view and blocks until the run has returned. A run
// that was never started finishes with ErrNotStarted.
func (t *Tracker) Finish() DoneMsg {
	t.detachOnce.Do(func() { close(t.detached) })
	if !t.started.Load() {
		return DoneMsg{Err: ErrNotStarted}
	}
	<-t.finished
	return t.result
}

// Wait returns a tea.Cmd that waits for the next event or the result of
// the run. It must be called again after each EventMsg.
func (t *Tracker) Wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case e := <-t.events:
			return EventMsg(e)
		case d := <-t.done:
			return d
		}
	}
}

// Model is the run progress view.
type Model struct {
	tracker *Tracker
	run     RunFunc
	ctx     context.Context
	cancel  context.CancelFunc

	spinner  spinner.Model
	bar      progress.Model
	keys     *keys.KeyMap
	help     help.Model
	searched bool
	done     int
	total    int
	files    []pipeline.Event
	result   *DoneMsg
	width    int
}

// New creates a progress view that executes run once started.
func New(ctx context.Context, run RunFunc) Model {
	ctx, cancel := context.WithCancel(ctx)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorBlue)

	return Model{
		tracker: NewTracker(),
		run:     run,
		ctx:     ctx,
		cancel:  cancel,
		spinner: sp,
		bar:     progress.New(progress.WithDefaultGradient()),
		keys:    keys.DefaultKeyMap(),
		help:    help.New(),
		width:   60,
	}
}

// Init starts the run and the spinner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.tracker.Start(m.ctx, m.run))
}

// Update handles messages for the progress view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Cancel):
			m.cancel()
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = min(msg.Width-4, 80)
		m.help.Width = msg.Width
		return m, nil

	case EventMsg:
		m = m.apply(pipeline.Event(msg))
		return m, m.tracker.Wait()

	case DoneMsg:
		m.result = &msg
		m.cancel()
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd
	}

	return m, nil
}

func (m Model) apply(e pipeline.Event) Model {
	switch e.Kind {
	case pipeline.EventSearch:
		m.searched = true
		m.total = e.Total
	case pipeline.EventMessage:
		m.done, m.total = e.Done, e.Total
	case pipeline.EventFile:
		m.files = append(m.files, e)
		if len(m.files) > recentFiles {
			m.files = m.files[len(m.files)-recentFiles:]
		}
	}
	return m
}

// Finish cancels the run if it is still going and waits for it to return,
// including the persistence of whatever it collected. It must be called
// after the program exits, however it exited.
func (m Model) Finish() DoneMsg {
	m.cancel()
	return m.tracker.Finish()
}

// Percent returns the fraction of messages processed.
func (m Model) Percent() float64 {
	if m.total == 0 {
		return 0
	}
	return float64(m.done) / float64(m.total)
}

// Result returns the outcome of the run once it has finished.
func (m Model) Result() (DoneMsg, bool) {
	if m.result == nil {
		return DoneMsg{}, false
	}
	return *m.result, true
}

// View renders the progress view.
func (m Model) View() string {
	if m.result != nil {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(theme.HeaderStyle.Render("Fetching statements"))
	sb.WriteString("\n\n")

	if !m.searched {
		sb.WriteString(m.spinner.View() + " searching mailbox...\n")
	} else {
		sb.WriteString(m.bar.ViewAs(m.Percent()))
		sb.WriteString(fmt.Sprintf("\n%d/%d messages\n", m.done, m.total))
	}

	for _, f := range m.files {
		sb.WriteString(theme.BankStyle(f.Bank).Render(string(f.Bank)) + " " + f.File + "\n")
	}

	sb.WriteString("\n" + m.help.View(m.keys))
	return sb.String()
}

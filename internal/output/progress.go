package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// writerIsTTY reports whether w is a file attached to a terminal.
func writerIsTTY(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && isatty.IsTerminal(f.Fd())
}

// ProgressBar tracks a fixed number of pipeline steps.
// Example: [==========>         ] 2/4 Loading listing 2015
type ProgressBar struct {
	mu      sync.Mutex
	total   int
	current int
	label   string
	width   int
	writer  io.Writer
	full    bool // the last rendered line showed completion
}

// NewProgress creates a progress bar over total steps.
func NewProgress(total int, label string) *ProgressBar {
	return &ProgressBar{total: total, label: label, width: 30, writer: os.Stderr}
}

// SetWriter sets the output writer (useful for testing).
func (p *ProgressBar) SetWriter(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writer = w
}

// Step advances by one step and shows label as the current activity.
func (p *ProgressBar) Step(label string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current < p.total {
		p.current++
	}
	if label != "" {
		p.label = label
	}
	p.render()
}

// Finish completes the bar and ends the line.
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = p.total
	if writerIsTTY(p.writer) {
		p.render()
		fmt.Fprintln(p.writer)
		return
	}
	if !p.full {
		p.render()
	}
}

// render draws the bar. Callers hold p.mu. Without a terminal each step
// is written as its own line.
func (p *ProgressBar) render() {
	filled := 0
	if p.total > 0 {
		filled = p.current * p.width / p.total
	}

	bar := strings.Repeat("=", filled)
	if filled > 0 && filled < p.width {
		bar = bar[:filled-1] + ">"
	}
	bar += strings.Repeat(" ", p.width-filled)

	p.full = p.current == p.total
	line := fmt.Sprintf("[%s] %d/%d %s", bar, p.current, p.total, p.label)
	if writerIsTTY(p.writer) {
		fmt.Fprintf(p.writer, "\r\033[K%s", line)
		return
	}
	fmt.Fprintln(p.writer, line)
}

// Spinner shows an animated indicator while a model fits.
// Example: |  Fitting subsequent model (3s)
type Spinner struct {
	mu      sync.Mutex
	message string
	writer  io.Writer
	running bool
	started time.Time
	done    chan struct{}
}

var spinnerFrames = []string{"|", "/", "-", "\\"}

// NewSpinner creates a stopped spinner with a message.
func NewSpinner(message string) *Spinner {
	return &Spinner{message: message, writer: os.Stderr}
}

// SetWriter sets the output writer (useful for testing).
func (s *Spinner) SetWriter(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writer = w
}

// Start begins the animation. Without a terminal the message is printed
// once and nothing animates.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.started = time.Now()
	s.done = make(chan struct{})

	if !writerIsTTY(s.writer) {
		fmt.Fprintf(s.writer, "%s...\n", s.message)
		return
	}

	go s.loop(s.done)
}

func (s *Spinner) loop(done <-chan struct{}) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.mu.Lock()
			fmt.Fprintf(s.writer, "\r%s  %s (%ds)", spinnerFrames[i%len(spinnerFrames)], s.message,
				int(time.Since(s.started).Seconds()))
			s.mu.Unlock()
		}
	}
}

// UpdateMessage replaces the message while the spinner runs.
func (s *Spinner) UpdateMessage(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = message
}

// Stop ends the animation and clears the line. Stopping twice is a no-op.
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	close(s.done)

	if writerIsTTY(s.writer) {
		fmt.Fprint(s.writer, "\r\033[K")
	}
}

// StopWithMessage stops the spinner and prints a final message.
func (s *Spinner) StopWithMessage(message string) {
	s.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.writer, message)
}

package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

var spinnerFrames = []string{"|", "/", "-", "\\"}

const spinnerInterval = 100 * time.Millisecond

// Spinner animates a message while a subprocess runs.
// Without a terminal it prints the message once.
type Spinner struct {
	mu      sync.Mutex
	output  io.Writer
	message string
	isTTY   bool

	done     chan struct{}
	finished chan struct{}
	stopOnce sync.Once
}

// NewSpinner creates a spinner writing to output, or os.Stderr when nil.
func NewSpinner(output io.Writer) *Spinner {
	if output == nil {
		output = os.Stderr
	}
	return &Spinner{
		output:   output,
		isTTY:    ShouldShowProgress(),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
}

// Start shows message and, on a terminal, starts the animation.
func (s *Spinner) Start(message string) {
	s.SetMessage(message)
	if !s.isTTY {
		fmt.Fprintf(s.output, "%s\n", message)
		close(s.finished)
		return
	}
	go s.animate()
}

// SetMessage replaces the message while the spinner runs.
func (s *Spinner) SetMessage(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = message
}

// Stop halts the animation and clears the line. Safe to call twice.
func (s *Spinner) Stop() {
	s.stop("")
}

// StopWithMessage halts the animation and prints a final line.
// Only the first call has any effect.
func (s *Spinner) StopWithMessage(message string) {
	s.stop(message)
}

func (s *Spinner) stop(final string) {
	s.stopOnce.Do(func() {
		close(s.done)
		<-s.finished
		if s.isTTY {
			fmt.Fprintf(s.output, "\r%s\r", strings.Repeat(" ", lineWidth))
		}
		if final != "" {
			fmt.Fprintf(s.output, "%s\n", final)
		}
	})
}

func (s *Spinner) animate() {
	defer close(s.finished)
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			line := fmt.Sprintf("\r%s %s", spinnerFrames[frame%len(spinnerFrames)], s.message)
			s.mu.Unlock()
			if len(line) < lineWidth {
				line += strings.Repeat(" ", lineWidth-len(line))
			}
			fmt.Fprint(s.output, line)
		}
	}
}

// Spin runs fn with a spinner showing message. The spinner stops before
// Spin returns, whatever fn returns.
func Spin(output io.Writer, message string, fn func() error) error {
	s := NewSpinner(output)
	s.Start(message)
	defer s.Stop()
	return fn()
}

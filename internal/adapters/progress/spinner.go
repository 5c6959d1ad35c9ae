package progress

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/trebuchet-org/nftwallet/internal/usecase"
)

// SpinnerSink shows progress events on a terminal spinner
type SpinnerSink struct {
	mu         sync.Mutex
	spinner    *spinner.Spinner
	out        io.Writer
	stageStart time.Time
}

// NewSpinnerSink creates a spinner sink writing to stderr
func NewSpinnerSink() *SpinnerSink {
	return newSpinnerSink(os.Stderr)
}

func newSpinnerSink(out io.Writer) *SpinnerSink {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(out))
	s.HideCursor = false
	return &SpinnerSink{spinner: s, out: out}
}

// OnProgress handles progress events
func (r *SpinnerSink) OnProgress(ctx context.Context, event usecase.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.Stage == "complete" {
		r.stop()
		elapsed := ""
		if !r.stageStart.IsZero() {
			elapsed = fmt.Sprintf(" (%s)", time.Since(r.stageStart).Round(time.Millisecond))
		}
		fmt.Fprintf(r.out, "%s %s%s\n", color.GreenString("✓"), event.Message, elapsed)
		r.stageStart = time.Time{}
		return
	}
	if r.stageStart.IsZero() {
		r.stageStart = time.Now()
	}

	if !event.Spinner {
		r.stop()
		return
	}
	suffix := " " + event.Message
	if event.Total > 0 {
		suffix = fmt.Sprintf(" [%d/%d] %s", event.Current, event.Total, event.Message)
	}
	r.spinner.Suffix = suffix
	if !r.spinner.Active() {
		r.spinner.Start()
	}
}

// Info prints an info message
func (r *SpinnerSink) Info(message string) {
	r.println(color.New(color.FgCyan), message)
}

// Error prints an error message
func (r *SpinnerSink) Error(message string) {
	r.println(color.New(color.FgRed), message)
}

// println pauses the spinner around the message
func (r *SpinnerSink) println(c *color.Color, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wasActive := r.spinner.Active()
	r.stop()
	c.Fprintln(r.out, message)
	if wasActive {
		r.spinner.Start()
	}
}

// Stop halts the spinner if it is still running
func (r *SpinnerSink) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stop()
}

func (r *SpinnerSink) stop() {
	if r.spinner.Active() {
		r.spinner.Stop()
	}
}

// Ensure SpinnerSink implements ProgressSink
var _ usecase.ProgressSink = (*SpinnerSink)(nil)

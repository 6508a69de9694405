package style

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

var frames = [...]string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧"}

// Spinner animates a message on a terminal while a request is in flight.
// On anything other than a terminal it prints the message once.
type Spinner struct {
	w    io.Writer
	msg  string
	stop chan struct{}
	wg   sync.WaitGroup
	tty  bool
}

// StartSpinner shows msg on w until Stop is called.
func StartSpinner(w io.Writer, msg string) *Spinner {
	s := &Spinner{w: w, msg: msg, stop: make(chan struct{})}
	if f, ok := w.(*os.File); ok {
		s.tty = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	if !s.tty {
		fmt.Fprintln(w, msg)
		return s
	}

	s.wg.Add(1)
	go s.animate()
	return s
}

func (s *Spinner) animate() {
	defer s.wg.Done()
	tick := time.NewTicker(80 * time.Millisecond)
	defer tick.Stop()
	for i := 0; ; i++ {
		fmt.Fprintf(s.w, "\r%s %s", Dim.Render(frames[i%len(frames)]), s.msg)
		select {
		case <-s.stop:
			fmt.Fprint(s.w, "\r\033[K")
			return
		case <-tick.C:
		}
	}
}

// Stop clears the spinner line. It is safe to call more than once.
func (s *Spinner) Stop() {
	if !s.tty {
		return
	}
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	s.wg.Wait()
}

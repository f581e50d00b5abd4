package export

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/chzchzchz/sweeprx/sweep"
)

// Text prints one block per window: the center frequency, then one
// indented line per peak. Single prints exactly one line per window.
type Text struct {
	W      io.Writer
	Single bool
}

func (t *Text) Write(ctx context.Context, results <-chan sweep.WindowResult) error {
	w := bufio.NewWriter(t.W)
	for res := range results {
		if err := t.write(w, res); err != nil {
			return err
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (t *Text) write(w io.Writer, res sweep.WindowResult) (err error) {
	if t.Single {
		if len(res.Peaks) == 0 {
			_, err = fmt.Fprintf(w, "%d:\n", res.Window.Center)
			return err
		}
		p := res.Peaks[0]
		_, err = fmt.Fprintf(w, "%d: %d\t%d Hz\t%.2f dB\n", res.Window.Center, p.Bin, p.Frequency, p.Power)
		return err
	}
	if _, err = fmt.Fprintf(w, "%d:\n", res.Window.Center); err != nil {
		return err
	}
	for _, p := range res.Peaks {
		if _, err = fmt.Fprintf(w, "    %d: %d Hz  %.2f dB\n", p.Bin, p.Frequency, p.Power); err != nil {
			return err
		}
	}
	return nil
}

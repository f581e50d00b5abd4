package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/golang/glog"

	"github.com/chzchzchz/sweeprx/sweep"
)

// CSV writes one row per peak.
type CSV struct {
	W  io.Writer
	ID string
}

func (c *CSV) Write(ctx context.Context, results <-chan sweep.WindowResult) error {
	w := csv.NewWriter(c.W)
	w.Write([]string{
		"SweepID",
		"Window",
		"CenterHz",
		"LowerHz",
		"UpperHz",
		"Bin",
		"FrequencyHz",
		"PowerDB",
		"ProminenceDB",
		"WidthBins",
	})
	for res := range results {
		win := res.Window
		for _, p := range res.Peaks {
			if err := w.Write([]string{
				c.ID,
				fmt.Sprintf("%d", win.Index),
				fmt.Sprintf("%d", win.Center),
				fmt.Sprintf("%d", win.Lower),
				fmt.Sprintf("%d", win.Upper),
				fmt.Sprintf("%d", p.Bin),
				fmt.Sprintf("%d", p.Frequency),
				fmt.Sprintf("%f", p.Power),
				fmt.Sprintf("%f", p.Prominence),
				fmt.Sprintf("%f", p.Width),
			}); err != nil {
				glog.Warningf("error while writing CSV line: %s", err)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			glog.Warningf("error flushing CSV: %s", err)
		}
	}
	w.Flush()
	return w.Error()
}

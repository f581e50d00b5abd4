package export

import (
	"context"
	"encoding/json"
	"io"

	"github.com/chzchzchz/sweeprx/sweep"
)

// JSON writes one object per window, newline delimited.
type JSON struct {
	W  io.Writer
	ID string
}

type jsonResult struct {
	ID string `json:"sweep_id,omitempty"`
	sweep.WindowResult
}

func (j *JSON) Write(ctx context.Context, results <-chan sweep.WindowResult) error {
	enc := json.NewEncoder(j.W)
	for res := range results {
		if err := enc.Encode(jsonResult{ID: j.ID, WindowResult: res}); err != nil {
			return err
		}
	}
	return nil
}

package export

import (
	"context"
	"sync"

	"github.com/chzchzchz/sweeprx/sweep"
)

// Exporter consumes window results until the channel closes.
type Exporter interface {
	Write(context.Context, <-chan sweep.WindowResult) error
}

// Start runs each exporter on its own channel. The returned channels are
// meant for sweep.WithListeners; wait blocks until every exporter drained
// its channel and returns the first error.
func Start(ctx context.Context, exps ...Exporter) (chans []chan<- sweep.WindowResult, wait func() error) {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for _, exp := range exps {
		ch := make(chan sweep.WindowResult, 16)
		chans = append(chans, ch)
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := exp.Write(ctx, ch)
			// keep the sweep from blocking on a failed exporter
			for range ch {
			}
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}()
	}
	return chans, func() error {
		wg.Wait()
		return firstErr
	}
}

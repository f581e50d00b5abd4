package sweep

import (
	"iter"
)

// Plan is the sequence of windows covering a request.
type Plan struct {
	req   Request
	start uint64
	stop  uint64
	step  uint64
}

func NewPlan(req Request) (*Plan, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	p := &Plan{req: req, start: req.Start, stop: req.Stop, step: req.Bandwidth}
	if req.Mode == Overlap {
		half := req.Bandwidth / 2
		p.step = half
		p.stop += half
		if p.start > half {
			p.start -= half
		} else {
			p.start = 0
		}
	}
	return p, nil
}

// Len is the number of windows Windows yields.
func (p *Plan) Len() int {
	span := p.stop - p.start
	if span <= p.req.Bandwidth {
		return 1
	}
	return int((span-p.req.Bandwidth+p.step-1)/p.step) + 1
}

// Windows yields windows by ascending frequency. Each call starts over.
func (p *Plan) Windows() iter.Seq[Window] {
	return func(yield func(Window) bool) {
		for i := 0; ; i++ {
			lower := p.start + uint64(i)*p.step
			upper := min(lower+p.req.Bandwidth, p.stop)
			if !yield(newWindow(i, lower, upper, p.req.BinSize)) || upper == p.stop {
				return
			}
		}
	}
}

package radio

import (
	"context"
	"io"
)

// IQReader decodes interleaved unsigned 8-bit I/Q samples.
type IQReader struct {
	r   io.Reader
	err error
}

// NewIQReader takes a reader that uses u8 I/Q samples.
func NewIQReader(r io.Reader) *IQReader {
	if r == nil {
		panic("nil reader")
	}
	return &IQReader{r: r}
}

// Err returns the error that ended the last stream, if any.
func (iq *IQReader) Err() error {
	if iq.err == io.EOF {
		return nil
	}
	return iq.err
}

func (iq *IQReader) Batch64(batch, limit int) <-chan []complex64 {
	return iq.BatchStream64(context.Background(), batch, limit)
}

// BatchStream64 emits batches of complex samples until limit batches
// were sent (limit <= 0 means unbounded), the reader fails or ctx ends.
func (iq *IQReader) BatchStream64(ctx context.Context, batch, limit int) <-chan []complex64 {
	ch := make(chan []complex64, 1)
	go func() {
		defer close(ch)
		iq8buf := make([]byte, batch*2)
		for i := 0; limit <= 0 || i < limit; i++ {
			if iq.err = ctx.Err(); iq.err != nil {
				return
			}
			if _, iq.err = io.ReadFull(iq.r, iq8buf); iq.err != nil {
				return
			}
			samps := make([]complex64, batch)
			for i := range samps {
				samps[i] = complex(
					(float32(iq8buf[2*i])-127)/128.0,
					(float32(iq8buf[2*i+1])-127)/128.0)
			}
			select {
			case ch <- samps:
			case <-ctx.Done():
				iq.err = ctx.Err()
				return
			}
		}
	}()
	return ch
}

type IQWriter struct{ w io.Writer }

func NewIQWriter(w io.Writer) *IQWriter { return &IQWriter{w} }

func (iq *IQWriter) Write64(out []complex64) error {
	buf := make([]byte, 2*len(out))
	for i := range out {
		buf[2*i] = quantize(real(out[i]))
		buf[2*i+1] = quantize(imag(out[i]))
	}
	_, err := iq.w.Write(buf)
	return err
}

func quantize(v float32) byte {
	q := v*128.0 + 127.0
	if q < 0 {
		return 0
	} else if q > 255 {
		return 255
	}
	return byte(q + 0.5)
}

//go:build fftw

package spectrum

import (
	"github.com/runningwild/go-fftw/fftw32"
)

type fftwFFT struct {
	arr *fftw32.Array
}

func newPowerFFT(n int) powerFFT {
	return &fftwFFT{arr: fftw32.NewArray(n)}
}

func (f *fftwFFT) power(frame []complex64, pow []float64) {
	copy(f.arr.Elems, frame)
	for i, v := range fftw32.FFT(f.arr).Elems {
		re, im := float64(real(v)), float64(imag(v))
		pow[i] = re*re + im*im
	}
}

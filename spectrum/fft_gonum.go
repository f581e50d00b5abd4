//go:build !fftw

package spectrum

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

type gonumFFT struct {
	fft *fourier.CmplxFFT
	in  []complex128
	out []complex128
}

func newPowerFFT(n int) powerFFT {
	return &gonumFFT{
		fft: fourier.NewCmplxFFT(n),
		in:  make([]complex128, n),
		out: make([]complex128, n),
	}
}

func (g *gonumFFT) power(frame []complex64, pow []float64) {
	for i, v := range frame {
		g.in[i] = complex128(v)
	}
	g.out = g.fft.Coefficients(g.out, g.in)
	for i, v := range g.out {
		pow[i] = real(v)*real(v) + imag(v)*imag(v)
	}
}

package spectrum

// powerFFT writes the unshifted squared magnitude of the DFT of frame into pow.
type powerFFT interface {
	power(frame []complex64, pow []float64)
}

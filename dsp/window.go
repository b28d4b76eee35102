package dsp

import (
	"fmt"
	"math"
)

// Hann is a symmetric Hann analysis window with precomputed coefficients.
type Hann struct {
	size   int
	coeffs []float64
}

// NewHann creates a Hann window of the given size. Sizes below 2 are
// rejected: the symmetric form divides by size-1.
func NewHann(size int) (*Hann, error) {
	if size < 2 {
		return nil, fmt.Errorf("hann: window size must be at least 2, got %d", size)
	}

	h := &Hann{
		size:   size,
		coeffs: make([]float64, size),
	}
	denominator := float64(size - 1)
	for i := range size {
		h.coeffs[i] = 0.5 * (1.0 - math.Cos(2*math.Pi*float64(i)/denominator))
	}
	return h, nil
}

// Size returns the window size.
func (h *Hann) Size() int {
	return h.size
}

// ApplyInPlace multiplies the signal by the window coefficients in place.
func (h *Hann) ApplyInPlace(signal []float64) error {
	if len(signal) != h.size {
		return fmt.Errorf("hann: signal length (%d) doesn't match window size (%d)", len(signal), h.size)
	}

	for i := range signal {
		signal[i] *= h.coeffs[i]
	}
	return nil
}

// Coefficients returns a copy of the window coefficients.
func (h *Hann) Coefficients() []float64 {
	coeffs := make([]float64, len(h.coeffs))
	copy(coeffs, h.coeffs)
	return coeffs
}

package dsp

import (
	"fmt"
	"math"
)

// Spectrum computes magnitude spectra of real windowed segments with an
// iterative radix-2 Cooley-Tukey transform. The bit-reversal permutation and
// scratch buffers are prepared once at construction so a steady-state call
// performs no allocation.
type Spectrum struct {
	size int
	rev  []int
	re   []float64
	im   []float64
}

// NewSpectrum creates a transform for segments of the given size. The size
// must be a power of two no smaller than 2; radix-2 butterflies produce
// garbage for anything else, so the precondition is enforced here once.
func NewSpectrum(size int) (*Spectrum, error) {
	if size < 2 || size&(size-1) != 0 {
		return nil, fmt.Errorf("spectrum: size must be a power of two >= 2, got %d", size)
	}

	s := &Spectrum{
		size: size,
		rev:  make([]int, size),
		re:   make([]float64, size),
		im:   make([]float64, size),
	}

	// Bit-reversal permutation. The decimation-in-time butterflies below
	// consume their input in bit-reversed order; feeding them natural order
	// scrambles the bin layout for any size > 2.
	bits := 0
	for n := size; n > 1; n >>= 1 {
		bits++
	}
	for i := range size {
		r := 0
		for b := range bits {
			if i&(1<<b) != 0 {
				r |= 1 << (bits - 1 - b)
			}
		}
		s.rev[i] = r
	}

	return s, nil
}

// Size returns the segment size the transform was built for.
func (s *Spectrum) Size() int {
	return s.size
}

// Magnitudes computes the DFT magnitude of the first size/2 bins, overwriting
// that prefix of buf. The remaining half of buf is left untouched and holds
// no meaningful data after the call.
func (s *Spectrum) Magnitudes(buf []float64) error {
	if len(buf) != s.size {
		return fmt.Errorf("spectrum: buffer length (%d) doesn't match size (%d)", len(buf), s.size)
	}

	for i, r := range s.rev {
		s.re[i] = buf[r]
		s.im[i] = 0
	}

	for m := 2; m <= s.size; m <<= 1 {
		// Twiddle rotation for this stage: w steps by exp(-2*pi*i/m).
		wmRe := math.Cos(2 * math.Pi / float64(m))
		wmIm := -math.Sin(2 * math.Pi / float64(m))

		for k := 0; k < s.size; k += m {
			wRe, wIm := 1.0, 0.0
			for j := range m / 2 {
				hi := k + j + m/2
				lo := k + j

				tRe := wRe*s.re[hi] - wIm*s.im[hi]
				tIm := wRe*s.im[hi] + wIm*s.re[hi]

				s.re[hi] = s.re[lo] - tRe
				s.im[hi] = s.im[lo] - tIm
				s.re[lo] += tRe
				s.im[lo] += tIm

				wRe, wIm = wRe*wmRe-wIm*wmIm, wRe*wmIm+wIm*wmRe
			}
		}
	}

	for i := range s.size / 2 {
		buf[i] = math.Sqrt(s.re[i]*s.re[i] + s.im[i]*s.im[i])
	}
	return nil
}

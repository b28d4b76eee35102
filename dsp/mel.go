package dsp

import (
	"fmt"
	"math"
)

// HzToMel converts frequency in Hz to the HTK mel scale.
func HzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

// MelToHz converts a mel value back to Hz. Exact inverse of HzToMel.
func MelToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// MelBank maps magnitude spectra onto triangular mel filters. The filter
// boundaries are derived once at construction: numMels+2 points equally
// spaced in mel space between minFreq and maxFreq, converted back to Hz and
// rounded to FFT bin indices.
type MelBank struct {
	numMels int
	fftSize int
	edges   []int
}

// NewMelBank builds the filterbank for the given spectral layout.
func NewMelBank(numMels, fftSize, sampleRate int, minFreq, maxFreq float64) (*MelBank, error) {
	if numMels <= 0 {
		return nil, fmt.Errorf("melbank: num mels must be positive, got %d", numMels)
	}
	if fftSize <= 0 || sampleRate <= 0 {
		return nil, fmt.Errorf("melbank: fft size and sample rate must be positive")
	}
	if minFreq < 0 || minFreq >= maxFreq {
		return nil, fmt.Errorf("melbank: frequency range [%g, %g] is invalid", minFreq, maxFreq)
	}

	melMin := HzToMel(minFreq)
	melMax := HzToMel(maxFreq)
	melStep := (melMax - melMin) / float64(numMels+1)

	edges := make([]int, numMels+2)
	for i := range edges {
		hz := MelToHz(melMin + float64(i)*melStep)
		edges[i] = int(math.Round(hz * float64(fftSize) / float64(sampleRate)))
	}

	// MelToHz is monotonic, so rounding can at worst flatten neighbors into
	// the same bin. A decreasing pair would mean broken inputs.
	for i := 1; i < len(edges); i++ {
		if edges[i] < edges[i-1] {
			return nil, fmt.Errorf("melbank: filter edges not monotonic at %d", i)
		}
	}

	return &MelBank{
		numMels: numMels,
		fftSize: fftSize,
		edges:   edges,
	}, nil
}

// NumMels returns the number of filters.
func (mb *MelBank) NumMels() int {
	return mb.numMels
}

// Edges returns a copy of the FFT bin boundaries, one per mel point
// (numMels+2 entries). Filter i spans edges[i]..edges[i+2] with its peak at
// edges[i+1].
func (mb *MelBank) Edges() []int {
	edges := make([]int, len(mb.edges))
	copy(edges, mb.edges)
	return edges
}

// Apply accumulates the magnitude bins into numMels triangular filter
// energies. Bins at or above fftSize/2 are skipped. A filter whose edges
// collapse onto a single bin gets zero energy instead of a division by zero.
func (mb *MelBank) Apply(magnitudes, energies []float64) error {
	if len(magnitudes) < mb.fftSize/2 {
		return fmt.Errorf("melbank: need %d magnitude bins, got %d", mb.fftSize/2, len(magnitudes))
	}
	if len(energies) != mb.numMels {
		return fmt.Errorf("melbank: energies length (%d) doesn't match num mels (%d)", len(energies), mb.numMels)
	}

	for i := range mb.numMels {
		left := mb.edges[i]
		center := mb.edges[i+1]
		right := mb.edges[i+2]

		sum := 0.0
		for j := left; j < right; j++ {
			if j < 0 || j >= mb.fftSize/2 {
				continue
			}
			var weight float64
			if j < center {
				if center == left {
					continue
				}
				weight = float64(j-left) / float64(center-left)
			} else {
				if right == center {
					continue
				}
				weight = float64(right-j) / float64(right-center)
			}
			sum += magnitudes[j] * weight
		}
		energies[i] = sum
	}
	return nil
}

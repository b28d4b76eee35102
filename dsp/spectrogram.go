package dsp

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Assembler slides the analysis window across an audio frame and fills a
// mel-major spectrogram grid: grid[mel*numFrames + frame]. All scratch
// buffers are owned by the struct, so assembling a frame allocates nothing.
type Assembler struct {
	window   *Hann
	spectrum *Spectrum
	bank     *MelBank

	fftSize   int
	numMels   int
	numFrames int
	hopLength int

	segment  []float64
	energies []float64
}

// NewAssembler wires the window, transform and filterbank for the given
// layout. The fft size must be a power of two >= 2; the other counts must be
// positive.
func NewAssembler(fftSize, numMels, numFrames, hopLength, sampleRate int, minFreq, maxFreq float64) (*Assembler, error) {
	if numFrames <= 0 {
		return nil, fmt.Errorf("assembler: num frames must be positive, got %d", numFrames)
	}
	if hopLength <= 0 {
		return nil, fmt.Errorf("assembler: hop length must be positive, got %d", hopLength)
	}

	window, err := NewHann(fftSize)
	if err != nil {
		return nil, err
	}
	spectrum, err := NewSpectrum(fftSize)
	if err != nil {
		return nil, err
	}
	bank, err := NewMelBank(numMels, fftSize, sampleRate, minFreq, maxFreq)
	if err != nil {
		return nil, err
	}

	return &Assembler{
		window:    window,
		spectrum:  spectrum,
		bank:      bank,
		fftSize:   fftSize,
		numMels:   numMels,
		numFrames: numFrames,
		hopLength: hopLength,
		segment:   make([]float64, fftSize),
		energies:  make([]float64, numMels),
	}, nil
}

// GridLen is the spectrogram length the assembler fills: numMels*numFrames.
func (a *Assembler) GridLen() int {
	return a.numMels * a.numFrames
}

// Bank returns the mel filterbank the assembler applies.
func (a *Assembler) Bank() *MelBank {
	return a.bank
}

// Assemble extracts numFrames windowed segments from samples, runs each
// through the FFT and filterbank, and writes the normalized result into
// grid. Segment indices beyond the end of samples read as zero.
func (a *Assembler) Assemble(samples []float64, grid []float64) error {
	if len(grid) != a.GridLen() {
		return fmt.Errorf("assembler: grid length (%d) doesn't match %dx%d", len(grid), a.numMels, a.numFrames)
	}

	for f := range a.numFrames {
		base := f * a.hopLength
		for i := range a.segment {
			if idx := base + i; idx < len(samples) {
				a.segment[i] = samples[idx]
			} else {
				a.segment[i] = 0
			}
		}

		if err := a.window.ApplyInPlace(a.segment); err != nil {
			return err
		}
		if err := a.spectrum.Magnitudes(a.segment); err != nil {
			return err
		}
		if err := a.bank.Apply(a.segment[:a.fftSize/2], a.energies); err != nil {
			return err
		}

		for m := range a.numMels {
			grid[m*a.numFrames+f] = a.energies[m]
		}
	}

	Normalize(grid)
	return nil
}

// Normalize scales the grid by its global maximum so values land in [0, 1].
// An all-zero grid is left unchanged.
func Normalize(grid []float64) {
	if len(grid) == 0 {
		return
	}
	if max := floats.Max(grid); max > 0 {
		floats.Scale(1/max, grid)
	}
}

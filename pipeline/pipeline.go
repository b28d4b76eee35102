// Package pipeline drives the repeating capture->validate->extract->infer->
// classify cycle that turns raw microphone frames into labeled sound events.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/soundsentry/soundsentry/audio"
	"github.com/soundsentry/soundsentry/classify"
	"github.com/soundsentry/soundsentry/config"
	"github.com/soundsentry/soundsentry/dsp"
	"github.com/soundsentry/soundsentry/infer"
	"github.com/soundsentry/soundsentry/logging"
)

// Pipeline owns every buffer in the signal path and re-enters the stages
// serially once per cycle. All buffers are allocated in New and reused in
// place; nothing in the steady state allocates.
type Pipeline struct {
	cfg        *config.Config
	source     audio.Source
	engine     infer.Engine
	assembler  *dsp.Assembler
	classifier *classify.Classifier
	presenter  Presenter
	log        logging.Logger

	raw     []int16   // one capture, BufferSize samples
	samples []float64 // capture scaled to [-1, 1)
	grid    []float64 // normalized mel spectrogram, mel-major
	tensor  []float32 // engine input copy of the grid
	scores  []float32 // engine output, one score per class
}

// New validates the config and constructs the pipeline with all fixed-size
// buffers. Construction failure means the system is inoperable; there is no
// degraded mode.
func New(cfg *config.Config, source audio.Source, engine infer.Engine, presenter Presenter, log logging.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if source == nil {
		return nil, fmt.Errorf("pipeline: audio source is required")
	}
	if engine == nil {
		return nil, fmt.Errorf("pipeline: inference engine is required")
	}
	if presenter == nil {
		return nil, fmt.Errorf("pipeline: presenter is required")
	}
	if log == nil {
		log = logging.GetGlobalLogger()
	}

	assembler, err := dsp.NewAssembler(cfg.FFTSize, cfg.NumMels, cfg.NumFrames, cfg.HopLength, cfg.SampleRate, cfg.MinFreq, cfg.MaxFreq)
	if err != nil {
		return nil, err
	}
	classifier, err := classify.New(cfg.Labels)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		cfg:        cfg,
		source:     source,
		engine:     engine,
		assembler:  assembler,
		classifier: classifier,
		presenter:  presenter,
		log:        log,
		raw:        make([]int16, cfg.BufferSize()),
		samples:    make([]float64, cfg.BufferSize()),
		grid:       make([]float64, cfg.TensorLen()),
		tensor:     make([]float32, cfg.TensorLen()),
		scores:     make([]float32, cfg.NumClasses()),
	}, nil
}

// SelfTest performs one capture and reports what the microphone delivered.
// Run it once before the loop to catch a dead or stuck capture path early.
// A static frame is reported, not treated as an error: a quiet room fails
// the variability gate too.
func (p *Pipeline) SelfTest() error {
	if err := p.source.Read(p.raw); err != nil {
		return fmt.Errorf("%w: %v", ErrAcquisition, err)
	}

	stats := audio.Analyze(p.raw)
	p.log.Info("microphone self-test", logging.Fields{
		"max":      stats.Max,
		"min":      stats.Min,
		"non_zero": stats.NonZero,
		"samples":  stats.Len,
		"varies":   stats.Varies(),
	})
	if !stats.Varies() {
		p.log.Warn("self-test audio is static; check the capture path or make some noise")
	}
	return nil
}

// RunOnce executes a single cycle and returns its outcome. The stages run
// strictly in order; a failed stage short-circuits the rest of the cycle.
func (p *Pipeline) RunOnce() Cycle {
	// Capture. Blocks until a full frame or a hardware error.
	if err := p.source.Read(p.raw); err != nil {
		return Cycle{
			Status: StatusAcquisitionFailed,
			Err:    fmt.Errorf("%w: %v", ErrAcquisition, err),
		}
	}

	// Validate. Rejection is a normal branch, not a failure.
	stats := audio.Analyze(p.raw)
	p.log.Debug("frame captured", logging.Fields{
		"max":      stats.Max,
		"min":      stats.Min,
		"mean":     stats.Mean,
		"non_zero": stats.NonZero,
	})
	if !stats.Varies() {
		p.log.Debug("frame rejected as static", logging.Fields{
			"non_zero": stats.NonZero,
			"samples":  stats.Len,
		})
		return Cycle{Status: StatusSkippedSilence, Stats: stats}
	}

	// Extract.
	audio.ToFloat(p.samples, p.raw)
	if err := p.assembler.Assemble(p.samples, p.grid); err != nil {
		// Buffer sizes are fixed at construction; this cannot happen in a
		// validated pipeline and indicates memory corruption if it does.
		return Cycle{Status: StatusShapeMismatch, Stats: stats, Err: fmt.Errorf("%w: %v", ErrShapeMismatch, err)}
	}
	p.logGrid()

	// Check the engine contract before any data crosses the boundary. A
	// mismatch aborts the cycle; it is never coerced.
	if err := infer.CheckIO(p.engine, len(p.tensor), len(p.scores)); err != nil {
		return Cycle{Status: StatusShapeMismatch, Stats: stats, Err: fmt.Errorf("%w: %v", ErrShapeMismatch, err)}
	}
	for i, v := range p.grid {
		p.tensor[i] = float32(v)
	}

	// Infer.
	if err := p.engine.Invoke(p.tensor, p.scores); err != nil {
		return Cycle{Status: StatusInferenceFailed, Stats: stats, Err: fmt.Errorf("%w: %v", ErrInference, err)}
	}

	// Classify.
	result, err := p.classifier.Classify(p.scores)
	if err != nil {
		return Cycle{Status: StatusInferenceFailed, Stats: stats, Err: fmt.Errorf("%w: %v", ErrInference, err)}
	}
	return Cycle{Status: StatusClassified, Stats: stats, Result: &result}
}

// Run loops cycles until ctx is canceled, handing every outcome to the
// presenter. Classified cycles are followed by the settle delay; failed or
// rejected captures by the capture backoff.
func (p *Pipeline) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		c := p.RunOnce()
		p.presenter.Present(c)

		var pause time.Duration
		switch c.Status {
		case StatusClassified:
			pause = p.cfg.SettleDelay()
		case StatusAcquisitionFailed, StatusSkippedSilence:
			pause = p.cfg.CaptureBackoff()
		case StatusShapeMismatch, StatusInferenceFailed:
			p.log.Error(c.Err, "cycle aborted")
		}

		if pause > 0 {
			if !sleepCtx(ctx, pause) {
				return ctx.Err()
			}
		}
	}
}

// logGrid reports spectrogram diagnostics at debug level.
func (p *Pipeline) logGrid() {
	active := 0
	for _, v := range p.grid {
		if v > 0.001 {
			active++
		}
	}
	p.log.Debug("spectrogram assembled", logging.Fields{
		"min":    floats.Min(p.grid),
		"max":    floats.Max(p.grid),
		"mean":   stat.Mean(p.grid, nil),
		"active": active,
		"cells":  len(p.grid),
	})
}

// sleepCtx waits for d or until ctx is canceled. Returns false on cancel.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

package pipeline

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundsentry/soundsentry/config"
	"github.com/soundsentry/soundsentry/infer"
	"github.com/soundsentry/soundsentry/logging"
)

// fakeSource serves a fixed frame (or a fixed error) for every read.
type fakeSource struct {
	frame []int16
	err   error
	reads int
}

func (f *fakeSource) Read(buf []int16) error {
	f.reads++
	if f.err != nil {
		return f.err
	}
	copy(buf, f.frame)
	return nil
}

// fakeEngine records invocations and returns canned scores.
type fakeEngine struct {
	in, out   infer.TensorSpec
	scores    []float32
	err       error
	invokes   int
	lastInput []float32
}

func (f *fakeEngine) InputSpec() infer.TensorSpec  { return f.in }
func (f *fakeEngine) OutputSpec() infer.TensorSpec { return f.out }

func (f *fakeEngine) Invoke(input, output []float32) error {
	f.invokes++
	f.lastInput = append([]float32(nil), input...)
	if f.err != nil {
		return f.err
	}
	copy(output, f.scores)
	return nil
}

// recordingPresenter collects every cycle it is handed.
type recordingPresenter struct {
	cycles []Cycle
}

func (r *recordingPresenter) Present(c Cycle) {
	r.cycles = append(r.cycles, c)
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.SettleDelayMS = 0
	cfg.CaptureBackoffMS = 0
	return cfg
}

func matchingEngine(cfg *config.Config, scores []float32) *fakeEngine {
	return &fakeEngine{
		in:     infer.TensorSpec{DType: infer.Float32, Shape: []int{1, cfg.NumMels, cfg.NumFrames, 1}},
		out:    infer.TensorSpec{DType: infer.Float32, Shape: []int{1, cfg.NumClasses()}},
		scores: scores,
	}
}

func sineFrame(n int, freq float64, amplitude int16) []int16 {
	frame := make([]int16, n)
	for i := range frame {
		frame[i] = int16(float64(amplitude) * math.Sin(2*math.Pi*freq*float64(i)/16000))
	}
	return frame
}

func newTestPipeline(t *testing.T, cfg *config.Config, src *fakeSource, eng *fakeEngine) *Pipeline {
	t.Helper()
	p, err := New(cfg, src, eng, &recordingPresenter{}, &logging.NoOpLogger{})
	require.NoError(t, err)
	return p
}

func TestNew_Validation(t *testing.T) {
	cfg := testConfig()
	src := &fakeSource{frame: make([]int16, cfg.BufferSize())}
	eng := matchingEngine(cfg, []float32{1, 0, 0})

	_, err := New(cfg, nil, eng, &recordingPresenter{}, nil)
	assert.Error(t, err)

	_, err = New(cfg, src, nil, &recordingPresenter{}, nil)
	assert.Error(t, err)

	_, err = New(cfg, src, eng, nil, nil)
	assert.Error(t, err)

	bad := testConfig()
	bad.FFTSize = 1
	_, err = New(bad, src, eng, &recordingPresenter{}, nil)
	assert.Error(t, err)
}

// Scenario A: an all-zero frame is rejected by the validator and the cycle
// ends without feature extraction or inference.
func TestRunOnce_SilenceSkipsInference(t *testing.T) {
	cfg := testConfig()
	src := &fakeSource{frame: make([]int16, cfg.BufferSize())}
	eng := matchingEngine(cfg, []float32{1, 0, 0})
	p := newTestPipeline(t, cfg, src, eng)

	c := p.RunOnce()

	assert.Equal(t, StatusSkippedSilence, c.Status)
	assert.Nil(t, c.Result)
	assert.NoError(t, c.Err)
	assert.Equal(t, 0, eng.invokes)
	assert.False(t, c.Stats.Varies())
}

// Scenario B: a 1 kHz sinusoid flows through the whole chain and the engine
// receives a full normalized tensor.
func TestRunOnce_SinusoidClassified(t *testing.T) {
	cfg := testConfig()
	src := &fakeSource{frame: sineFrame(cfg.BufferSize(), 1000, 8000)}
	eng := matchingEngine(cfg, []float32{0.1, 0.8, 0.1})
	p := newTestPipeline(t, cfg, src, eng)

	c := p.RunOnce()

	require.Equal(t, StatusClassified, c.Status)
	require.NotNil(t, c.Result)
	assert.Equal(t, 1, c.Result.Index)
	assert.Equal(t, "door", c.Result.Label)
	assert.Equal(t, float32(0.8), c.Result.Score)

	require.Equal(t, 1, eng.invokes)
	require.Len(t, eng.lastInput, cfg.TensorLen())

	var maxVal float32
	for _, v := range eng.lastInput {
		assert.GreaterOrEqual(t, v, float32(0))
		assert.LessOrEqual(t, v, float32(1))
		if v > maxVal {
			maxVal = v
		}
	}
	assert.Equal(t, float32(1.0), maxVal, "tensor is globally normalized")
}

// A type mismatch at the engine boundary aborts the cycle before any data is
// copied; the classifier is never reached.
func TestRunOnce_ShapeMismatchAbortsBeforeInvoke(t *testing.T) {
	cfg := testConfig()
	src := &fakeSource{frame: sineFrame(cfg.BufferSize(), 1000, 8000)}
	eng := matchingEngine(cfg, []float32{1, 0, 0})
	eng.in.DType = infer.Int8
	p := newTestPipeline(t, cfg, src, eng)

	c := p.RunOnce()

	assert.Equal(t, StatusShapeMismatch, c.Status)
	assert.Nil(t, c.Result)
	assert.ErrorIs(t, c.Err, ErrShapeMismatch)
	assert.Equal(t, 0, eng.invokes)
}

func TestRunOnce_WrongTensorSizeAborts(t *testing.T) {
	cfg := testConfig()
	src := &fakeSource{frame: sineFrame(cfg.BufferSize(), 1000, 8000)}
	eng := matchingEngine(cfg, []float32{1, 0, 0})
	eng.in.Shape = []int{1, 10, 10, 1}
	p := newTestPipeline(t, cfg, src, eng)

	c := p.RunOnce()

	assert.Equal(t, StatusShapeMismatch, c.Status)
	assert.ErrorIs(t, c.Err, ErrShapeMismatch)
	assert.Equal(t, 0, eng.invokes)
}

func TestRunOnce_AcquisitionFailure(t *testing.T) {
	cfg := testConfig()
	src := &fakeSource{err: errors.New("i2s timeout")}
	eng := matchingEngine(cfg, []float32{1, 0, 0})
	p := newTestPipeline(t, cfg, src, eng)

	c := p.RunOnce()

	assert.Equal(t, StatusAcquisitionFailed, c.Status)
	assert.ErrorIs(t, c.Err, ErrAcquisition)
	assert.Nil(t, c.Result)
	assert.Equal(t, 0, eng.invokes)
}

func TestRunOnce_InferenceFailure(t *testing.T) {
	cfg := testConfig()
	src := &fakeSource{frame: sineFrame(cfg.BufferSize(), 1000, 8000)}
	eng := matchingEngine(cfg, nil)
	eng.err = errors.New("arena exhausted")
	p := newTestPipeline(t, cfg, src, eng)

	c := p.RunOnce()

	assert.Equal(t, StatusInferenceFailed, c.Status)
	assert.ErrorIs(t, c.Err, ErrInference)
	assert.Nil(t, c.Result)
	assert.Equal(t, 1, eng.invokes)
}

func TestRun_PresentsEveryCycleUntilCanceled(t *testing.T) {
	cfg := testConfig()
	src := &fakeSource{frame: sineFrame(cfg.BufferSize(), 1000, 8000)}
	eng := matchingEngine(cfg, []float32{0.9, 0.05, 0.05})
	pres := &recordingPresenter{}
	p, err := New(cfg, src, eng, pres, &logging.NoOpLogger{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = p.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NotEmpty(t, pres.cycles)
	for _, c := range pres.cycles {
		assert.Equal(t, StatusClassified, c.Status)
	}
	assert.Equal(t, len(pres.cycles), eng.invokes, "one presentation per cycle, in order")
}

func TestRun_CanceledContextStopsImmediately(t *testing.T) {
	cfg := testConfig()
	src := &fakeSource{frame: make([]int16, cfg.BufferSize())}
	eng := matchingEngine(cfg, []float32{1, 0, 0})
	pres := &recordingPresenter{}
	p, err := New(cfg, src, eng, pres, &logging.NoOpLogger{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, p.Run(ctx), context.Canceled)
	assert.Empty(t, pres.cycles)
}

func TestSelfTest(t *testing.T) {
	cfg := testConfig()
	eng := matchingEngine(cfg, []float32{1, 0, 0})

	p := newTestPipeline(t, cfg, &fakeSource{frame: make([]int16, cfg.BufferSize())}, eng)
	assert.NoError(t, p.SelfTest(), "a static frame is reported, not fatal")

	p = newTestPipeline(t, cfg, &fakeSource{err: errors.New("no device")}, eng)
	assert.ErrorIs(t, p.SelfTest(), ErrAcquisition)
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "classified", StatusClassified.String())
	assert.Equal(t, "skipped-silence", StatusSkippedSilence.String())
	assert.Equal(t, "acquisition-failed", StatusAcquisitionFailed.String())
	assert.Equal(t, "shape-mismatch", StatusShapeMismatch.String())
	assert.Equal(t, "inference-failed", StatusInferenceFailed.String())
}

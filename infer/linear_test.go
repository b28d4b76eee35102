package infer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLinearEngine_Validation(t *testing.T) {
	_, err := NewLinearEngine(nil, nil)
	assert.Error(t, err)

	_, err = NewLinearEngine([][]float64{{1, 2}, {1}}, []float64{0, 0})
	assert.Error(t, err, "ragged rows")

	_, err = NewLinearEngine([][]float64{{1, 2}}, []float64{0, 0})
	assert.Error(t, err, "bias length")
}

func TestLinearEngine_Specs(t *testing.T) {
	e, err := NewLinearEngine([][]float64{{1, 0, 0}, {0, 1, 0}}, []float64{0, 0})
	require.NoError(t, err)

	assert.Equal(t, Float32, e.InputSpec().DType)
	assert.Equal(t, 3, e.InputSpec().Elems())
	assert.Equal(t, 2, e.OutputSpec().Elems())
	require.NoError(t, CheckIO(e, 3, 2))
	assert.Error(t, CheckIO(e, 4, 2))
	assert.Error(t, CheckIO(e, 3, 3))
}

func TestLinearEngine_SoftmaxOutput(t *testing.T) {
	e, err := NewLinearEngine([][]float64{{1, 0, 0}, {0, 1, 0}}, []float64{0, 0})
	require.NoError(t, err)

	out := make([]float32, 2)
	require.NoError(t, e.Invoke([]float32{2, 1, 0}, out))

	sum := out[0] + out[1]
	assert.InDelta(t, 1.0, float64(sum), 1e-6)
	assert.Greater(t, out[0], out[1], "higher logit wins")
	assert.InDelta(t, 0.7311, float64(out[0]), 1e-3)
}

func TestLinearEngine_BiasShiftsScores(t *testing.T) {
	e, err := NewLinearEngine([][]float64{{0, 0}, {0, 0}}, []float64{0, 2})
	require.NoError(t, err)

	out := make([]float32, 2)
	require.NoError(t, e.Invoke([]float32{0, 0}, out))
	assert.Greater(t, out[1], out[0])
}

func TestLinearEngine_InvokeLengthChecks(t *testing.T) {
	e, err := NewLinearEngine([][]float64{{1, 0}}, []float64{0})
	require.NoError(t, err)

	assert.Error(t, e.Invoke([]float32{1}, make([]float32, 1)))
	assert.Error(t, e.Invoke([]float32{1, 2}, make([]float32, 2)))
}

func TestLoadLinearEngine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.yaml")
	data := `weights:
  - [1.0, 0.0]
  - [0.0, 1.0]
bias: [0.0, 0.5]
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	e, err := LoadLinearEngine(path)
	require.NoError(t, err)
	assert.Equal(t, 2, e.InputSpec().Elems())

	out := make([]float32, 2)
	require.NoError(t, e.Invoke([]float32{0, 0}, out))
	assert.Greater(t, out[1], out[0], "bias favors class 1")

	_, err = LoadLinearEngine(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestTensorSpec_Elems(t *testing.T) {
	assert.Equal(t, 0, TensorSpec{}.Elems())
	assert.Equal(t, 1960, TensorSpec{DType: Float32, Shape: []int{1, 40, 49, 1}}.Elems())
}

func TestDType_String(t *testing.T) {
	assert.Equal(t, "float32", Float32.String())
	assert.Equal(t, "int8", Int8.String())
	assert.Equal(t, "uint8", UInt8.String())
}

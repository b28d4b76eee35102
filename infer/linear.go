package infer

import (
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

// LinearEngine is a reference scorer: one affine layer over the flattened
// feature tensor followed by softmax. It lets the pipeline run end to end
// without a native inference runtime and honors the same Engine contract a
// compiled network would.
type LinearEngine struct {
	weights *mat.Dense // classes x inputLen
	bias    []float64

	inputLen int
	classes  int

	x      *mat.VecDense // scratch input vector
	logits *mat.VecDense // scratch output vector
}

// NewLinearEngine builds an engine from a classes x inputLen weight matrix
// and a per-class bias.
func NewLinearEngine(weights [][]float64, bias []float64) (*LinearEngine, error) {
	if len(weights) == 0 || len(weights[0]) == 0 {
		return nil, fmt.Errorf("linear engine: empty weight matrix")
	}
	classes := len(weights)
	inputLen := len(weights[0])

	if len(bias) != classes {
		return nil, fmt.Errorf("linear engine: bias length (%d) doesn't match classes (%d)", len(bias), classes)
	}

	w := mat.NewDense(classes, inputLen, nil)
	for i, row := range weights {
		if len(row) != inputLen {
			return nil, fmt.Errorf("linear engine: ragged weight row %d (%d != %d)", i, len(row), inputLen)
		}
		w.SetRow(i, row)
	}

	return &LinearEngine{
		weights:  w,
		bias:     append([]float64(nil), bias...),
		inputLen: inputLen,
		classes:  classes,
		x:        mat.NewVecDense(inputLen, nil),
		logits:   mat.NewVecDense(classes, nil),
	}, nil
}

// linearModelFile is the yaml layout of a weights file.
type linearModelFile struct {
	Weights [][]float64 `yaml:"weights"`
	Bias    []float64   `yaml:"bias"`
}

// LoadLinearEngine reads a yaml weights file.
func LoadLinearEngine(path string) (*LinearEngine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("linear engine: %w", err)
	}
	defer f.Close()

	var model linearModelFile
	if err := yaml.NewDecoder(f).Decode(&model); err != nil {
		return nil, fmt.Errorf("linear engine: decode %s: %w", path, err)
	}
	return NewLinearEngine(model.Weights, model.Bias)
}

func (e *LinearEngine) InputSpec() TensorSpec {
	return TensorSpec{DType: Float32, Shape: []int{1, e.inputLen}}
}

func (e *LinearEngine) OutputSpec() TensorSpec {
	return TensorSpec{DType: Float32, Shape: []int{1, e.classes}}
}

// Invoke computes softmax(Wx + b) into output.
func (e *LinearEngine) Invoke(input []float32, output []float32) error {
	if len(input) != e.inputLen {
		return fmt.Errorf("linear engine: input length (%d) doesn't match %d", len(input), e.inputLen)
	}
	if len(output) != e.classes {
		return fmt.Errorf("linear engine: output length (%d) doesn't match %d", len(output), e.classes)
	}

	for i, v := range input {
		e.x.SetVec(i, float64(v))
	}
	e.logits.MulVec(e.weights, e.x)

	// Softmax with the max subtracted for stability.
	maxLogit := math.Inf(-1)
	for i := range e.classes {
		l := e.logits.AtVec(i) + e.bias[i]
		e.logits.SetVec(i, l)
		if l > maxLogit {
			maxLogit = l
		}
	}
	sum := 0.0
	for i := range e.classes {
		v := math.Exp(e.logits.AtVec(i) - maxLogit)
		e.logits.SetVec(i, v)
		sum += v
	}
	for i := range e.classes {
		output[i] = float32(e.logits.AtVec(i) / sum)
	}
	return nil
}

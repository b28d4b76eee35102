// Package infer defines the inference boundary: an opaque engine that
// consumes a flat float32 feature tensor and produces a score per class.
package infer

import "fmt"

// DType is the element type of an engine tensor.
type DType int

const (
	Float32 DType = iota
	Int8
	UInt8
)

func (d DType) String() string {
	switch d {
	case Float32:
		return "float32"
	case Int8:
		return "int8"
	case UInt8:
		return "uint8"
	default:
		return "unknown"
	}
}

// TensorSpec describes one side of the engine boundary.
type TensorSpec struct {
	DType DType
	Shape []int
}

// Elems is the flattened element count of the tensor.
func (t TensorSpec) Elems() int {
	if len(t.Shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// Engine scores feature tensors. Invoke blocks until scoring completes;
// input and output are caller-owned flat buffers matching the specs.
type Engine interface {
	InputSpec() TensorSpec
	OutputSpec() TensorSpec
	Invoke(input []float32, output []float32) error
}

// CheckIO verifies that the engine exchanges float32 tensors of exactly the
// expected flattened sizes. Callers run this before copying any data across
// the boundary; a mismatch must abort the cycle, never be coerced.
func CheckIO(e Engine, inputLen, outputLen int) error {
	in := e.InputSpec()
	if in.DType != Float32 {
		return fmt.Errorf("input tensor type is %s, want float32", in.DType)
	}
	if in.Elems() != inputLen {
		return fmt.Errorf("input tensor has %d elements (shape %v), want %d", in.Elems(), in.Shape, inputLen)
	}

	out := e.OutputSpec()
	if out.DType != Float32 {
		return fmt.Errorf("output tensor type is %s, want float32", out.DType)
	}
	if out.Elems() != outputLen {
		return fmt.Errorf("output tensor has %d elements (shape %v), want %d", out.Elems(), out.Shape, outputLen)
	}
	return nil
}

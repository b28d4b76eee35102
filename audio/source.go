// Package audio provides the capture boundary and the raw-frame validator of
// the classification pipeline.
package audio

// Source is the blocking capture boundary. Read fills buf completely with
// signed 16-bit mono samples and returns only once data is available or the
// hardware reports an error. An unbounded wait is acceptable: the pipeline
// has nothing else to do until audio arrives.
type Source interface {
	Read(buf []int16) error
}

// ToFloat converts raw samples into dst, scaling each by 1/32768 so values
// land in [-1, 1).
func ToFloat(dst []float64, src []int16) {
	n := min(len(dst), len(src))
	for i := range n {
		dst[i] = float64(src[i]) / 32768.0
	}
}

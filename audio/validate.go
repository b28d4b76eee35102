package audio

// FrameStats summarizes one raw capture in a single pass: the extreme sample
// values, the mean, and how many samples are non-zero. The stats feed both
// the variability gate and the per-cycle diagnostics.
type FrameStats struct {
	Max     int16
	Min     int16
	Mean    float64
	NonZero int
	Len     int
}

// Analyze computes frame statistics for a raw capture.
func Analyze(frame []int16) FrameStats {
	stats := FrameStats{Len: len(frame)}
	if len(frame) == 0 {
		return stats
	}

	stats.Max = frame[0]
	stats.Min = frame[0]
	sum := int64(0)
	for _, s := range frame {
		if s > stats.Max {
			stats.Max = s
		}
		if s < stats.Min {
			stats.Min = s
		}
		if s != 0 {
			stats.NonZero++
		}
		sum += int64(s)
	}
	stats.Mean = float64(sum) / float64(len(frame))
	return stats
}

// Varies reports whether the frame carries usable signal: the samples span
// more than one value and more than a tenth of them are non-zero. A frame
// that fails this gate is silence or a stuck capture path, and the cycle is
// skipped rather than spent on feature extraction.
func (s FrameStats) Varies() bool {
	return s.Max != s.Min && s.NonZero > s.Len/10
}

// Package classify turns a raw score vector into a labeled, confidence-rated
// decision.
package classify

import "fmt"

// Tier buckets the winning score into a coarse confidence statement. The
// thresholds assume a roughly probability-like score scale; engines that
// return unnormalized logits still pick the right class, but their tiers are
// advisory.
type Tier int

const (
	TierUnrecognized Tier = iota // score < 0.3
	TierLow                      // 0.3 <= score < 0.6
	TierHigh                     // score >= 0.6
)

const (
	lowThreshold  = 0.3
	highThreshold = 0.6
)

func (t Tier) String() string {
	switch t {
	case TierUnrecognized:
		return "unrecognized"
	case TierLow:
		return "low confidence"
	case TierHigh:
		return "high confidence"
	default:
		return "unknown"
	}
}

// Result is one classification decision.
type Result struct {
	Index  int
	Label  string
	Score  float32
	Scores []float32
	Tier   Tier
}

// Classifier picks the top-scoring class from a score vector. Labels are
// injected at construction, one per model output class.
type Classifier struct {
	labels []string
}

// New creates a classifier for the given class labels.
func New(labels []string) (*Classifier, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("classify: at least one label is required")
	}
	return &Classifier{labels: append([]string(nil), labels...)}, nil
}

// NumClasses returns the number of classes.
func (c *Classifier) NumClasses() int {
	return len(c.labels)
}

// Classify returns the argmax class with its confidence tier. Ties go to the
// lowest index. The returned Scores slice is a copy; callers may retain it
// across cycles.
func (c *Classifier) Classify(scores []float32) (Result, error) {
	if len(scores) != len(c.labels) {
		return Result{}, fmt.Errorf("classify: score vector length (%d) doesn't match classes (%d)", len(scores), len(c.labels))
	}

	best := 0
	for i, s := range scores {
		if s > scores[best] {
			best = i
		}
	}

	return Result{
		Index:  best,
		Label:  c.labels[best],
		Score:  scores[best],
		Scores: append([]float32(nil), scores...),
		Tier:   tierFor(scores[best]),
	}, nil
}

func tierFor(score float32) Tier {
	switch {
	case score < lowThreshold:
		return TierUnrecognized
	case score < highThreshold:
		return TierLow
	default:
		return TierHigh
	}
}

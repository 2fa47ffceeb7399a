package detector

import "fmt"

// Reference is a single named comparison target: a reference slate image, or
// the sentinel all-black frame used by BlackFrameDetector.
type Reference struct {
	Label string
	frame *grayFrame
}

// SlateDetector holds a set of reference frames and matches candidate
// frames against them in insertion order, selecting the reference with the
// lowest dissimilarity score.
type SlateDetector struct {
	refs []Reference
}

// NewSlateDetector builds an empty detector. References are added with
// AddReference and are retained in the order added, which also governs the
// tie-break order when two references score identically against a
// candidate.
func NewSlateDetector() *SlateDetector {
	return &SlateDetector{}
}

// AddReference decodes pngData once and stores it under label for every
// future Match call.
func (d *SlateDetector) AddReference(label string, pngData []byte) error {
	frame, err := DecodeGray(pngData)
	if err != nil {
		return fmt.Errorf("adding reference %q: %w", label, err)
	}
	d.refs = append(d.refs, Reference{Label: label, frame: frame})
	return nil
}

// Result is the outcome of matching a candidate frame against a detector's
// references.
type Result struct {
	Label   string
	Score   uint32
	Matched bool
}

// Match compares candidate against every reference and returns the
// best-scoring (lowest dissimilarity) one. Matched is true only if that
// best score is within Threshold. Ties are broken in reference insertion
// order: a later reference only displaces the current best on a strictly
// lower score.
func (d *SlateDetector) Match(candidate []byte) (Result, error) {
	cand, err := DecodeGray(candidate)
	if err != nil {
		return Result{}, fmt.Errorf("decoding candidate: %w", err)
	}
	return d.matchFrame(cand)
}

func (d *SlateDetector) matchFrame(cand *grayFrame) (Result, error) {
	if len(d.refs) == 0 {
		return Result{}, nil
	}

	var best Result
	bestScore := uint32(1<<32 - 1)
	found := false

	for _, ref := range d.refs {
		dissim, err := Dissimilarity(ref.frame, cand)
		if err != nil {
			return Result{}, fmt.Errorf("comparing against reference %q: %w", ref.Label, err)
		}
		score := Score(dissim)
		if !found || score < bestScore {
			found = true
			bestScore = score
			best = Result{Label: ref.Label, Score: score}
		}
	}

	best.Matched = IsMatch(best.Score)
	return best, nil
}

// BlackFrameDetector recognizes a pure-black junk frame, checked ahead of
// the configured slate references per the classification rule: black beats
// slate beats content.
type BlackFrameDetector struct {
	inner *SlateDetector
}

// NewBlackFrameDetector builds a detector whose sole reference is a
// synthetic all-black frame at the canonical width/height.
func NewBlackFrameDetector(width, height int) *BlackFrameDetector {
	pix := make([]float64, width*height)
	d := &SlateDetector{refs: []Reference{{
		Label: "black",
		frame: &grayFrame{pix: pix, width: width, height: height},
	}}}
	return &BlackFrameDetector{inner: d}
}

// IsBlack reports whether candidate matches the all-black reference.
func (b *BlackFrameDetector) IsBlack(candidate []byte) (bool, error) {
	cand, err := DecodeGray(candidate)
	if err != nil {
		return false, fmt.Errorf("decoding candidate: %w", err)
	}
	result, err := b.inner.matchFrame(cand)
	if err != nil {
		return false, err
	}
	return result.Matched, nil
}

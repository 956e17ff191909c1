package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// ForensicRaw is the model's answer on the forensic/hybrid path before
// normalization. Pointer fields distinguish "absent" from zero values so the
// normalizer can apply defaults.
type ForensicRaw struct {
	Probability *float64    `json:"probability"`
	Verdict     string      `json:"verdict"`
	Explanation string      `json:"explanation"`
	Highlights  []Highlight `json:"highlights"`
}

// ProvenanceRaw is the grounded-search answer before normalization.
type ProvenanceRaw struct {
	Explanation string
	Sources     []GroundingSource
}

const fallbackExplanation = "The analysis engine did not provide a detailed explanation for this result."

// ParseForensic decodes model output into ForensicRaw. Models occasionally
// wrap the object in markdown fences despite instructions, so fences are
// stripped before decoding.
func ParseForensic(text string) (ForensicRaw, error) {
	var raw ForensicRaw
	cleaned := stripFences(text)
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return ForensicRaw{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return raw, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// NormalizeForensic reconciles a raw forensic answer into a canonical Result.
// When auxScore (a 0-1 fraction from the pixel classifier) is supplied, both
// the probability and the verdict are derived from it, superseding the
// model's own numbers. The band clamp runs last, unconditionally.
func NormalizeForensic(raw ForensicRaw, auxScore *float64) Result {
	res := Result{
		Probability: 50,
		Verdict:     VerdictInconclusive,
		Explanation: fallbackExplanation,
		Highlights:  []Highlight{},
	}

	if raw.Probability != nil {
		res.Probability = int(math.Round(*raw.Probability))
	}
	if v := strings.TrimSpace(raw.Verdict); v != "" {
		res.Verdict = Verdict(v)
	}
	if e := strings.TrimSpace(raw.Explanation); e != "" {
		res.Explanation = e
	}
	if len(raw.Highlights) > 0 {
		res.Highlights = raw.Highlights
	}

	if auxScore != nil {
		p := int(math.Round(*auxScore * 100))
		res.Probability = p
		switch {
		case p > 80:
			res.Verdict = VerdictFullyAI
		case p > 40:
			res.Verdict = VerdictLikelyEnhanced
		default:
			res.Verdict = VerdictHuman
		}
	}

	res.Probability = clampToBand(res.Probability, res.Verdict)
	return res
}

type band int

const (
	bandNone band = iota
	bandHuman
	bandComposite
	bandAI
)

var (
	humanPatterns     = []string{"human", "authentic", "not ai", "not-ai", "no ai"}
	compositePatterns = []string{"composite", "mixed", "enhanced", "assisted", "blend"}
	aiPatterns        = []string{"ai", "synthetic", "generated", "fabricated"}
)

// classifyVerdict places a verdict label into a probability band by
// case-insensitive substring match. Composite patterns are checked first so
// that "Composite: Human & AI" and "AI-Assisted Composite" land in the middle
// band, and human patterns before the bare "ai" so "not AI" never reads as an
// AI label.
func classifyVerdict(v Verdict) band {
	lower := strings.ToLower(string(v))
	for _, p := range compositePatterns {
		if strings.Contains(lower, p) {
			return bandComposite
		}
	}
	for _, p := range humanPatterns {
		if strings.Contains(lower, p) {
			return bandHuman
		}
	}
	for _, p := range aiPatterns {
		if strings.Contains(lower, p) {
			return bandAI
		}
	}
	return bandNone
}

func clampToBand(p int, v Verdict) int {
	switch classifyVerdict(v) {
	case bandHuman:
		if p > 39 {
			p = 39
		}
	case bandAI:
		if p < 80 {
			p = 80
		}
	case bandComposite:
		if p < 40 {
			p = 40
		}
		if p > 79 {
			p = 79
		}
	}
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	return p
}

var (
	authenticitySignals = []string{"authentic", "verified", "not fake", "genuine", "corroborated"}
	aiSignals           = []string{"ai-generated", "ai generated", "fabricated", "debunked", "deepfake", "synthetic"}
)

// NormalizeProvenance derives a verdict from the free-text dossier the
// grounded call produced. Provenance results are never scored; probability is
// always 0. Grounding sources pass through unchanged for display.
func NormalizeProvenance(raw ProvenanceRaw) Result {
	res := Result{
		Probability: 0,
		Explanation: strings.TrimSpace(raw.Explanation),
		Highlights:  []Highlight{},
	}
	if res.Explanation == "" {
		res.Explanation = fallbackExplanation
	}
	if len(raw.Sources) > 0 {
		res.Grounding = &GroundingMetadata{Sources: raw.Sources}
	}

	lower := strings.ToLower(res.Explanation)
	score := 0
	for _, s := range authenticitySignals {
		score += strings.Count(lower, s)
	}
	for _, s := range aiSignals {
		score -= strings.Count(lower, s)
	}

	switch {
	case score > 0:
		res.Verdict = VerdictAuthenticPhoto
	case score < 0:
		res.Verdict = VerdictAIGenerated
	case len(raw.Sources) > 0:
		res.Verdict = VerdictDossier
	default:
		res.Verdict = VerdictNoHistory
	}
	return res
}

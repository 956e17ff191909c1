package analysis

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(f float64) *float64 { return &f }

func TestClampingInvariant(t *testing.T) {
	// For every probability/verdict pair the output probability must fall in
	// the band implied by the verdict's pattern class.
	verdicts := []Verdict{
		VerdictFullyAI, VerdictLikelyEnhanced, VerdictComposite,
		VerdictAssistedComposite, VerdictHuman, VerdictAIGenerated,
		"Not AI", "Clearly Synthetic Content",
	}
	probs := []float64{0, 10, 39, 40, 50, 79, 80, 95, 100}

	for _, v := range verdicts {
		for _, p := range probs {
			t.Run(fmt.Sprintf("%s/%v", v, p), func(t *testing.T) {
				res := NormalizeForensic(ForensicRaw{Probability: floatPtr(p), Verdict: string(v), Explanation: "x"}, nil)
				switch classifyVerdict(res.Verdict) {
				case bandHuman:
					assert.LessOrEqual(t, res.Probability, 39)
					assert.GreaterOrEqual(t, res.Probability, 0)
				case bandComposite:
					assert.GreaterOrEqual(t, res.Probability, 40)
					assert.LessOrEqual(t, res.Probability, 79)
				case bandAI:
					assert.GreaterOrEqual(t, res.Probability, 80)
					assert.LessOrEqual(t, res.Probability, 100)
				}
			})
		}
	}
}

func TestClampDirections(t *testing.T) {
	// human verdict with a high score clamps down
	res := NormalizeForensic(ForensicRaw{Probability: floatPtr(95), Verdict: string(VerdictHuman), Explanation: "x"}, nil)
	assert.Equal(t, 39, res.Probability)

	// ai verdict with a low score clamps up
	res = NormalizeForensic(ForensicRaw{Probability: floatPtr(5), Verdict: string(VerdictFullyAI), Explanation: "x"}, nil)
	assert.Equal(t, 80, res.Probability)

	// composite verdict clamps into the middle band from both sides
	res = NormalizeForensic(ForensicRaw{Probability: floatPtr(5), Verdict: string(VerdictAssistedComposite), Explanation: "x"}, nil)
	assert.Equal(t, 40, res.Probability)
	res = NormalizeForensic(ForensicRaw{Probability: floatPtr(99), Verdict: string(VerdictLikelyEnhanced), Explanation: "x"}, nil)
	assert.Equal(t, 79, res.Probability)
}

func TestVerdictPatternPrecedence(t *testing.T) {
	// "not AI" must read as human despite containing "ai"
	assert.Equal(t, bandHuman, classifyVerdict("Definitely Not AI"))
	// "AI-Assisted Composite" must land in the composite band, not the ai band
	assert.Equal(t, bandComposite, classifyVerdict(VerdictAssistedComposite))
	assert.Equal(t, bandAI, classifyVerdict(VerdictFullyAI))
	assert.Equal(t, bandNone, classifyVerdict(VerdictInconclusive))
}

func TestAuxScoreOverride(t *testing.T) {
	// any model probability is superseded by the classifier score
	res := NormalizeForensic(ForensicRaw{Probability: floatPtr(10), Verdict: string(VerdictHuman), Explanation: "x"}, floatPtr(0.95))
	assert.Equal(t, 95, res.Probability)
	assert.Equal(t, VerdictFullyAI, res.Verdict)

	res = NormalizeForensic(ForensicRaw{Probability: floatPtr(99), Verdict: string(VerdictFullyAI), Explanation: "x"}, floatPtr(0.5))
	assert.Equal(t, 50, res.Probability)
	assert.Equal(t, VerdictLikelyEnhanced, res.Verdict)

	res = NormalizeForensic(ForensicRaw{Probability: floatPtr(99), Verdict: string(VerdictFullyAI), Explanation: "x"}, floatPtr(0.1))
	assert.Equal(t, 10, res.Probability)
	assert.Equal(t, VerdictHuman, res.Verdict)
}

func TestMissingFieldDefaults(t *testing.T) {
	res := NormalizeForensic(ForensicRaw{}, nil)
	assert.Equal(t, 50, res.Probability)
	assert.Equal(t, VerdictInconclusive, res.Verdict)
	assert.Equal(t, fallbackExplanation, res.Explanation)
	assert.Empty(t, res.Highlights)
}

func TestProbabilityRounding(t *testing.T) {
	res := NormalizeForensic(ForensicRaw{Probability: floatPtr(49.6), Verdict: string(VerdictComposite), Explanation: "x"}, nil)
	assert.Equal(t, 50, res.Probability)
}

func TestParseForensic(t *testing.T) {
	raw, err := ParseForensic(`{"probability": 10, "verdict": "Appears Human-Crafted", "explanation": "natural cadence"}`)
	require.NoError(t, err)
	require.NotNil(t, raw.Probability)
	assert.Equal(t, 10.0, *raw.Probability)

	// fenced output is tolerated
	raw, err = ParseForensic("```json\n{\"probability\": 90, \"verdict\": \"Fully AI-Generated\", \"explanation\": \"x\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "Fully AI-Generated", raw.Verdict)

	_, err = ParseForensic("not json at all")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestNormalizeProvenanceAuthentic(t *testing.T) {
	res := NormalizeProvenance(ProvenanceRaw{
		Explanation: "- The image was verified by two wire agencies and appears authentic.",
		Sources:     []GroundingSource{{URL: "https://example.com/report"}},
	})
	assert.Equal(t, VerdictAuthenticPhoto, res.Verdict)
	assert.Equal(t, 0, res.Probability)
	require.NotNil(t, res.Grounding)
	assert.Len(t, res.Grounding.Sources, 1)
}

func TestNormalizeProvenanceDebunked(t *testing.T) {
	res := NormalizeProvenance(ProvenanceRaw{
		Explanation: "- Fact-checkers debunked the photo; it is ai-generated and fabricated.",
		Sources:     []GroundingSource{{URL: "https://example.com/factcheck"}},
	})
	assert.Equal(t, VerdictAIGenerated, res.Verdict)
	assert.Equal(t, 0, res.Probability)
}

func TestNormalizeProvenanceTieWithSources(t *testing.T) {
	res := NormalizeProvenance(ProvenanceRaw{
		Explanation: "- The image circulated widely but its origin is disputed.",
		Sources:     []GroundingSource{{URL: "https://example.com/a"}},
	})
	assert.Equal(t, VerdictDossier, res.Verdict)
}

func TestNormalizeProvenanceNoSources(t *testing.T) {
	res := NormalizeProvenance(ProvenanceRaw{
		Explanation: "- No earlier appearances of this image could be located.",
	})
	assert.Equal(t, VerdictNoHistory, res.Verdict)
	assert.Nil(t, res.Grounding)
}

package prompt

import (
	"fmt"
	"math"
	"strings"

	analysis "github.com/LazarusMackles/Digital-Lazarus-sub000/internal/domain/analysis"
	"github.com/LazarusMackles/Digital-Lazarus-sub000/internal/domain/evidence"
)

// Prompt is the fully assembled instruction for one model call.
type Prompt struct {
	Instruction string
	System      string // non-empty only on re-analysis
	Schema      *analysis.Schema
}

// consistencyRule is restated to the model verbatim; the normalizer enforces
// the same bands locally as a safety net.
const consistencyRule = "Your numeric probability and your verdict must agree: " +
	"report 0-39 only with a human or authentic verdict, 40-79 only with a composite, " +
	"mixed or enhanced verdict, and 80-100 only with an AI-generated verdict."

// synthesisMandate applies to every angle: missing real-world imperfections
// are themselves evidence.
const synthesisMandate = "Treat the absence of expected real-world imperfections " +
	"(sensor noise, lens distortion, natural texture variance) as evidence of synthesis " +
	"in its own right, and report it whenever you observe it."

const scrutinyDirective = "This is a second opinion. Apply maximum scrutiny: challenge " +
	"your prior assumptions and actively look for evidence that contradicts the obvious reading."

const reanalysisSystem = "You are re-examining evidence that may have been analyzed before. " +
	"Do not anchor on earlier conclusions; weigh the evidence from scratch."

// Build assembles the instruction text and response schema for one call.
// Section order matters for model compliance and is covered by tests. Build
// performs no I/O; evidence content is attached separately by the caller.
func Build(kind evidence.Type, mode analysis.Mode, angle analysis.Angle, reanalysis bool, auxScore *float64) Prompt {
	if angle == analysis.AngleProvenance {
		return buildProvenance(reanalysis)
	}

	sections := []string{
		baseDirective(kind, angle),
		consistencyRule,
	}
	if angle == analysis.AngleHybrid && auxScore != nil {
		sections = append(sections, fmt.Sprintf(
			"A specialized pixel classifier has already scored this image at %d%% likelihood of AI generation. "+
				"Treat that score as primary context: explain where your own observations agree or disagree with it "+
				"instead of deriving a fresh score from scratch.",
			int(math.Round(*auxScore*100))))
	}
	sections = append(sections, synthesisMandate)
	if reanalysis {
		sections = append(sections, scrutinyDirective)
	}
	sections = append(sections, closing(mode))

	p := Prompt{
		Instruction: strings.Join(sections, "\n\n"),
		Schema:      ForensicSchema(mode),
	}
	if reanalysis {
		p.System = reanalysisSystem
	}
	return p
}

func buildProvenance(reanalysis bool) Prompt {
	sections := []string{
		"You are a provenance researcher. Use your web-search capability to trace the origin " +
			"and online history of the submitted content: earliest appearances, original publishers, " +
			"fact-check coverage, and any documented manipulation. Respond with a bulleted list only; " +
			"no JSON, no prose paragraphs.",
		synthesisMandate,
	}
	if reanalysis {
		sections = append(sections, scrutinyDirective)
	}
	sections = append(sections,
		"Synthesize at most 5 bullet points, each starting with '- '. If online evidence "+
			"definitively establishes authenticity or debunks the content, state that finding "+
			"in the first bullet.")

	p := Prompt{Instruction: strings.Join(sections, "\n\n")}
	if reanalysis {
		p.System = reanalysisSystem
	}
	return p
}

func baseDirective(kind evidence.Type, angle analysis.Angle) string {
	var subject string
	switch kind {
	case evidence.TypeText:
		subject = "Judge whether the submitted text was written by an AI, a human, or a blend of both."
	case evidence.TypeFile:
		subject = "Judge whether the submitted image was generated by an AI, captured or made by a human, or is a blend of both."
	case evidence.TypeURL:
		subject = "Judge whether the content at the submitted URL was produced by an AI, a human, or a blend of both."
	}

	var focus string
	switch angle {
	case analysis.AngleTechnical:
		focus = "Focus on technical artifacts: compression boundaries, frequency-domain regularities, " +
			"edge halos, repeated textures, and metadata inconsistencies."
	case analysis.AngleConceptual:
		focus = "Focus on conceptual coherence: physical plausibility, lighting logic, anatomical and " +
			"structural consistency, and stylistic fingerprints."
	default:
		focus = "Weigh both technical artifacts and conceptual coherence before settling on a verdict."
	}

	return "You are a senior digital forensics analyst. " + subject + " " + focus +
		" Respond with a single valid JSON object only: no markdown, no code fences, no commentary."
}

func closing(mode analysis.Mode) string {
	if mode == analysis.ModeDeep {
		return "Return JSON with probability (0-100), verdict, explanation, and 1 to 3 highlights, " +
			"where each highlight quotes a specific span of the evidence and states why it matters."
	}
	return "Return JSON with probability (0-100), verdict, and a concise explanation. Do not include highlights."
}

// ForensicSchema selects the response schema for the given mode. Quick mode
// uses a reduced schema without highlights; deep mode requires 1-3 of them.
func ForensicSchema(mode analysis.Mode) *analysis.Schema {
	props := map[string]*analysis.Schema{
		"probability": {
			Type:        analysis.TypeInteger,
			Description: "Likelihood of AI involvement, 0-100.",
		},
		"verdict": {
			Type: analysis.TypeString,
			Description: "One of: Fully AI-Generated, Likely AI-Enhanced, Composite: Human & AI, " +
				"AI-Assisted Composite, Appears Human-Crafted.",
		},
		"explanation": {
			Type:        analysis.TypeString,
			Description: "Reasoning behind the verdict.",
		},
	}
	required := []string{"probability", "verdict", "explanation"}

	if mode == analysis.ModeDeep {
		props["highlights"] = &analysis.Schema{
			Type:     analysis.TypeArray,
			MinItems: 1,
			MaxItems: 3,
			Items: &analysis.Schema{
				Type: analysis.TypeObject,
				Properties: map[string]*analysis.Schema{
					"text":   {Type: analysis.TypeString, Description: "Quoted span of the evidence."},
					"reason": {Type: analysis.TypeString, Description: "Why this span is indicative."},
				},
				Required: []string{"text", "reason"},
			},
		}
		required = append(required, "highlights")
	}

	return &analysis.Schema{
		Type:       analysis.TypeObject,
		Properties: props,
		Required:   required,
	}
}

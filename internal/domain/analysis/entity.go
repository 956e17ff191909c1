package analysis

import "time"

// RecordID identifier type
type RecordID string

// Mode controls how thorough a single analysis run is.
type Mode string

const (
	ModeQuick Mode = "quick"
	ModeDeep  Mode = "deep"
)

// Angle selects the analytical lens for a run.
type Angle string

const (
	AngleStandard   Angle = "standard"
	AngleTechnical  Angle = "technical"
	AngleConceptual Angle = "conceptual"
	AngleProvenance Angle = "provenance"
	AngleHybrid     Angle = "hybrid"
)

// Verdict is the closed taxonomy of category labels a result may carry.
type Verdict string

const (
	VerdictFullyAI           Verdict = "Fully AI-Generated"
	VerdictLikelyEnhanced    Verdict = "Likely AI-Enhanced"
	VerdictComposite         Verdict = "Composite: Human & AI"
	VerdictAssistedComposite Verdict = "AI-Assisted Composite"
	VerdictHuman             Verdict = "Appears Human-Crafted"
	VerdictInconclusive      Verdict = "Analysis Inconclusive"

	// Provenance-specific labels.
	VerdictAuthenticPhoto Verdict = "Authentic Photograph"
	VerdictAIGenerated    Verdict = "AI-Generated"
	VerdictDossier        Verdict = "Provenance Dossier"
	VerdictNoHistory      Verdict = "No Online History Found"
)

// Highlight is one explanatory callout tied to a span of the evidence.
type Highlight struct {
	Text   string `json:"text"`
	Reason string `json:"reason"`
}

// GroundingSource is a single web citation backing a provenance result.
type GroundingSource struct {
	Title string `json:"title,omitempty"`
	URL   string `json:"url"`
}

// GroundingMetadata carries the citations a grounded model call returned.
type GroundingMetadata struct {
	Sources []GroundingSource `json:"sources"`
}

// Result is the canonical output of one analysis run.
//
// Invariant: Probability always falls inside the band implied by Verdict
// (human 0-39, composite 40-79, ai 80-100). The normalizer enforces this
// regardless of what the upstream model answered.
type Result struct {
	Probability     int                `json:"probability"`
	Verdict         Verdict            `json:"verdict"`
	Explanation     string             `json:"explanation"`
	Highlights      []Highlight        `json:"highlights,omitempty"`
	IsSecondOpinion bool               `json:"isSecondOpinion"`
	Grounding       *GroundingMetadata `json:"groundingMetadata,omitempty"`
}

// Record is a completed analysis as stored in session history.
type Record struct {
	ID           RecordID  `json:"id"`
	Token        string    `json:"-"`
	EvidenceType string    `json:"evidence_type"`
	Mode         Mode      `json:"mode"`
	Angle        Angle     `json:"angle"`
	Result       Result    `json:"result"`
	ReportURL    string    `json:"report_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

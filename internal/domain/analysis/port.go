package analysis

import "context"

// Schema describes the response shape requested from the model. Provider
// adapters translate it into their native schema representation.
type Schema struct {
	Type        string
	Description string
	Properties  map[string]*Schema
	Items       *Schema
	Required    []string
	MinItems    int
	MaxItems    int
}

// Schema type names.
const (
	TypeObject  = "object"
	TypeArray   = "array"
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
)

// ModelRequest is one fully composed call to the generative model.
type ModelRequest struct {
	Instruction string
	System      string // optional system-instruction preamble
	Schema      *Schema
	ImageMIME   string // optional inline image
	ImageData   []byte
	UseSearch   bool // enable web-search grounding (provenance angle)
}

// ModelResponse is the validated payload of a non-streaming call.
type ModelResponse struct {
	Text    string
	Sources []GroundingSource
}

// ModelStream yields the full response text accumulated so far on each Next
// call, never a delta. io.EOF signals exhaustion.
type ModelStream interface {
	Next() (string, error)
	Close() error
}

// ModelClient port for the upstream generative-model API.
type ModelClient interface {
	Generate(ctx context.Context, req ModelRequest) (ModelResponse, error)
	Stream(ctx context.Context, req ModelRequest) (ModelStream, error)
}

// PixelClassifier port for the auxiliary image classifier. The score is the
// fraction in [0,1] the classifier assigns to "AI generated".
type PixelClassifier interface {
	ScoreImage(ctx context.Context, img []byte, mime string) (float64, error)
}

// HistoryRepository port for session-scoped analysis history.
type HistoryRepository interface {
	Save(ctx context.Context, rec *Record) error
	Get(ctx context.Context, token string, id RecordID) (*Record, error)
	Latest(ctx context.Context, token string, limit int) ([]*Record, error)
}

// ReportArchive port for optional report export storage.
type ReportArchive interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

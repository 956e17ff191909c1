package analysis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/LazarusMackles/Digital-Lazarus-sub000/internal/application"
	domain "github.com/LazarusMackles/Digital-Lazarus-sub000/internal/domain/analysis"
	"github.com/LazarusMackles/Digital-Lazarus-sub000/internal/domain/evidence"
	"github.com/LazarusMackles/Digital-Lazarus-sub000/internal/infra/ai/gateway"
	"github.com/LazarusMackles/Digital-Lazarus-sub000/internal/infra/ai/prompt"
	"github.com/LazarusMackles/Digital-Lazarus-sub000/internal/infra/imaging"
)

// Service sequences one analysis run: prepare evidence, build the prompt,
// execute the model call through the retrying gateway, normalize the verdict,
// and store the record. It is safe for concurrent use; each run owns its own
// state.
type Service struct {
	Model      domain.ModelClient
	Classifier domain.PixelClassifier
	History    domain.HistoryRepository
	Archive    domain.ReportArchive // optional
	Clock      application.Clock

	MaxRetries     int
	InitialBackoff time.Duration
	CallTimeout    time.Duration
}

// Request carries the evidence and parameters for one run. Evidence is
// immutable for the lifetime of the run.
type Request struct {
	Token      string
	Evidence   evidence.Evidence
	Mode       domain.Mode
	Angle      domain.Angle
	Reanalysis bool
}

func (r *Request) fill() {
	if r.Mode == "" {
		r.Mode = domain.ModeQuick
	}
	if r.Angle == "" {
		r.Angle = domain.AngleStandard
	}
}

// preparedEvidence is the canonical payload handed to the prompt/model layer.
type preparedEvidence struct {
	text      string
	imageMIME string
	imageData []byte
}

func (s *Service) gatewayOpts(mode domain.Mode) gateway.Options {
	return gateway.Options{
		Mode:           mode,
		MaxRetries:     s.MaxRetries,
		InitialBackoff: s.InitialBackoff,
		Timeout:        s.CallTimeout,
	}
}

// Analyze runs the full pipeline. onUpdate, when non-nil, receives the latest
// complete partial response text during streaming runs; it is never invoked
// after ctx is cancelled or Analyze returns.
func (s *Service) Analyze(ctx context.Context, req Request, onUpdate func(partial string)) (*domain.Record, error) {
	req.fill()

	prep, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	var auxScore *float64
	if req.Angle == domain.AngleHybrid {
		if s.Classifier == nil {
			return nil, fmt.Errorf("%w: no pixel classifier configured", domain.ErrUpstreamFailure)
		}
		if len(prep.imageData) == 0 {
			return nil, fmt.Errorf("%w: hybrid angle requires image evidence", evidence.ErrInvalidFormat)
		}
		score, err := gateway.Call(ctx, s.gatewayOpts(req.Mode), func(ctx context.Context) (float64, error) {
			return s.Classifier.ScoreImage(ctx, prep.imageData, prep.imageMIME)
		})
		if err != nil {
			// Hybrid depends on the classifier; abort before the model call.
			return nil, wrapUpstream(err)
		}
		auxScore = &score
	}

	p := prompt.Build(req.Evidence.Type, req.Mode, req.Angle, req.Reanalysis, auxScore)
	mreq := domain.ModelRequest{
		Instruction: composeInstruction(p.Instruction, req.Evidence.Type, prep),
		System:      p.System,
		Schema:      p.Schema,
		ImageMIME:   prep.imageMIME,
		ImageData:   prep.imageData,
		UseSearch:   req.Angle == domain.AngleProvenance,
	}

	var result domain.Result
	switch {
	case req.Angle == domain.AngleProvenance:
		resp, err := gateway.Call(ctx, s.gatewayOpts(req.Mode), func(ctx context.Context) (domain.ModelResponse, error) {
			return s.Model.Generate(ctx, mreq)
		})
		if err != nil {
			return nil, err
		}
		result = domain.NormalizeProvenance(domain.ProvenanceRaw{
			Explanation: resp.Text,
			Sources:     resp.Sources,
		})

	case req.Mode == domain.ModeDeep:
		// Retry and timeout cover obtaining the stream handle; consumption
		// runs under the caller's context only.
		stream, err := gateway.CallStream(ctx, s.gatewayOpts(req.Mode), func(ctx context.Context) (domain.ModelStream, error) {
			return s.Model.Stream(ctx, mreq)
		})
		if err != nil {
			return nil, err
		}
		raw, err := gateway.ConsumeForensic(ctx, stream, onUpdate)
		if err != nil {
			return nil, err
		}
		result = domain.NormalizeForensic(raw, auxScore)

	default:
		resp, err := gateway.Call(ctx, s.gatewayOpts(req.Mode), func(ctx context.Context) (domain.ModelResponse, error) {
			return s.Model.Generate(ctx, mreq)
		})
		if err != nil {
			return nil, err
		}
		raw, err := domain.ParseForensic(resp.Text)
		if err != nil {
			return nil, err
		}
		result = domain.NormalizeForensic(raw, auxScore)
	}

	result.IsSecondOpinion = req.Reanalysis

	rec := &domain.Record{
		ID:           domain.RecordID(uuid.New().String()),
		Token:        req.Token,
		EvidenceType: string(req.Evidence.Type),
		Mode:         req.Mode,
		Angle:        req.Angle,
		Result:       result,
		CreatedAt:    s.Clock.Now(),
	}

	if s.Archive != nil {
		key := fmt.Sprintf("%s/%s/report.txt", req.Token, rec.ID)
		url, err := s.Archive.Upload(ctx, key, []byte(domain.Report(result)), "text/plain; charset=utf-8")
		if err != nil {
			log.Printf("report archive upload failed id=%s err=%v", rec.ID, err)
		} else {
			rec.ReportURL = url
		}
	}

	if err := s.History.Save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// prepare normalizes raw evidence into the canonical payload. Text is
// sanitized; images are decoded, resized and re-encoded according to the
// mode's compression policy. Quick scans always compress aggressively before
// the model call; deep scans keep the general bound to preserve forensic
// detail.
func (s *Service) prepare(req Request) (preparedEvidence, error) {
	switch req.Evidence.Type {
	case evidence.TypeText:
		return preparedEvidence{text: evidence.SanitizeText(req.Evidence.Content)}, nil

	case evidence.TypeURL:
		u := strings.TrimSpace(req.Evidence.Content)
		if u == "" {
			return preparedEvidence{}, fmt.Errorf("%w: empty url", evidence.ErrInvalidFormat)
		}
		return preparedEvidence{text: u}, nil

	case evidence.TypeFile:
		files, err := req.Evidence.Files()
		if err != nil {
			return preparedEvidence{}, err
		}
		raw, err := files[0].Bytes()
		if err != nil {
			return preparedEvidence{}, err
		}
		bounds, quality := imaging.GeneralBounds, imaging.GeneralQuality
		if req.Mode == domain.ModeQuick {
			bounds, quality = imaging.ModelBounds, imaging.ModelQuality
		}
		data, mime, err := imaging.Compress(raw, bounds, quality)
		if err != nil {
			return preparedEvidence{}, err
		}
		return preparedEvidence{imageMIME: mime, imageData: data}, nil

	default:
		return preparedEvidence{}, fmt.Errorf("%w: unknown evidence type %q", evidence.ErrInvalidFormat, req.Evidence.Type)
	}
}

func composeInstruction(instruction string, kind evidence.Type, prep preparedEvidence) string {
	switch kind {
	case evidence.TypeText:
		return instruction + "\n\nTEXT TO ANALYZE:\n" + prep.text
	case evidence.TypeURL:
		return instruction + "\n\nURL: " + prep.text
	default:
		return instruction
	}
}

func wrapUpstream(err error) error {
	if errors.Is(err, domain.ErrUpstreamFailure) || domain.IsRateLimited(err) {
		return err
	}
	var te *domain.TimeoutError
	if errors.As(err, &te) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrUpstreamFailure, err)
}

// UserMessage translates any pipeline error into the single message shown to
// the user. Raw upstream error text never crosses this boundary.
func UserMessage(err error) string {
	var te *domain.TimeoutError
	switch {
	case errors.As(err, &te):
		if te.Mode == domain.ModeDeep {
			return "Deep analysis timed out. Try a quick scan for a faster answer."
		}
		return "The analysis timed out. Please try again."
	case domain.IsRateLimited(err):
		return "The analysis service is receiving too many requests. Please wait a moment and try again."
	case domain.IsAuthError(err):
		return "The configured API key was rejected. Please supply a valid key and retry."
	case errors.Is(err, evidence.ErrInvalidFormat):
		return "The submitted evidence is malformed and could not be read."
	case errors.Is(err, imaging.ErrDecode):
		return "The submitted file could not be decoded as an image."
	case errors.Is(err, domain.ErrMalformedStreamResult), errors.Is(err, domain.ErrMalformedResponse):
		return "The analysis engine returned an unexpected answer. Please run the analysis again."
	case errors.Is(err, domain.ErrUpstreamFailure):
		return "A supporting service failed before the analysis could complete. Please try again later."
	default:
		return "The analysis failed unexpectedly. Your evidence is untouched; please try again."
	}
}

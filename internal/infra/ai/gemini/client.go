package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	analysis "github.com/LazarusMackles/Digital-Lazarus-sub000/internal/domain/analysis"
)

const defaultModel = "gemini-1.5-flash"

// Client adapts the Gemini SDK to the ModelClient port.
type Client struct {
	client *genai.Client
	model  string
}

func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	c, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client init: %w", err)
	}
	if model == "" {
		model = defaultModel
	}
	return &Client{client: c, model: model}, nil
}

func (c *Client) Close() error { return c.client.Close() }

func (c *Client) configure(req analysis.ModelRequest) *genai.GenerativeModel {
	m := c.client.GenerativeModel(c.model)
	if req.Schema != nil {
		m.ResponseMIMEType = "application/json"
		m.ResponseSchema = toGenaiSchema(req.Schema)
	}
	if req.System != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	if req.UseSearch {
		m.Tools = []*genai.Tool{{GoogleSearchRetrieval: &genai.GoogleSearchRetrieval{}}}
	}
	return m
}

func parts(req analysis.ModelRequest) []genai.Part {
	ps := []genai.Part{genai.Text(req.Instruction)}
	if len(req.ImageData) > 0 {
		ps = append(ps, genai.Blob{MIMEType: req.ImageMIME, Data: req.ImageData})
	}
	return ps
}

func (c *Client) Generate(ctx context.Context, req analysis.ModelRequest) (analysis.ModelResponse, error) {
	resp, err := c.configure(req).GenerateContent(ctx, parts(req)...)
	if err != nil {
		return analysis.ModelResponse{}, translateErr(err)
	}
	text, sources := flatten(resp)
	if text == "" {
		return analysis.ModelResponse{}, fmt.Errorf("%w: empty candidate", analysis.ErrMalformedResponse)
	}
	return analysis.ModelResponse{Text: text, Sources: sources}, nil
}

func (c *Client) Stream(ctx context.Context, req analysis.ModelRequest) (analysis.ModelStream, error) {
	it := c.configure(req).GenerateContentStream(ctx, parts(req)...)
	return &stream{it: it}, nil
}

// stream republishes the full-so-far text on every Next call: the SDK yields
// deltas, which are folded into the running buffer here so downstream
// consumers always see complete snapshots.
type stream struct {
	it  *genai.GenerateContentResponseIterator
	buf strings.Builder
}

func (s *stream) Next() (string, error) {
	resp, err := s.it.Next()
	if errors.Is(err, iterator.Done) {
		return "", io.EOF
	}
	if err != nil {
		return "", translateErr(err)
	}
	text, _ := flatten(resp)
	s.buf.WriteString(text)
	return s.buf.String(), nil
}

func (s *stream) Close() error { return nil }

func flatten(resp *genai.GenerateContentResponse) (string, []analysis.GroundingSource) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", nil
	}
	cand := resp.Candidates[0]

	var b strings.Builder
	if cand.Content != nil {
		for _, p := range cand.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
	}

	var sources []analysis.GroundingSource
	if cand.CitationMetadata != nil {
		for _, cs := range cand.CitationMetadata.CitationSources {
			if cs == nil || cs.URI == nil {
				continue
			}
			sources = append(sources, analysis.GroundingSource{URL: *cs.URI})
		}
	}
	return b.String(), sources
}

func translateErr(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == 429:
			return fmt.Errorf("%w: %v", analysis.ErrRateLimited, err)
		case gerr.Code == 400 || gerr.Code == 401 || gerr.Code == 403:
			if strings.Contains(gerr.Message, "API key not valid") {
				return fmt.Errorf("%w: %v", analysis.ErrAuth, err)
			}
		case gerr.Code == 404:
			return fmt.Errorf("%w: %v", analysis.ErrUpstreamFailure, err)
		}
	}
	if analysis.IsRateLimited(err) {
		return fmt.Errorf("%w: %v", analysis.ErrRateLimited, err)
	}
	if analysis.IsAuthError(err) {
		return fmt.Errorf("%w: %v", analysis.ErrAuth, err)
	}
	return err
}

func toGenaiSchema(s *analysis.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Description: s.Description,
		Required:    s.Required,
		Items:       toGenaiSchema(s.Items),
	}
	switch s.Type {
	case analysis.TypeObject:
		out.Type = genai.TypeObject
	case analysis.TypeArray:
		out.Type = genai.TypeArray
	case analysis.TypeInteger:
		out.Type = genai.TypeInteger
	case analysis.TypeNumber:
		out.Type = genai.TypeNumber
	default:
		out.Type = genai.TypeString
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for k, v := range s.Properties {
			out.Properties[k] = toGenaiSchema(v)
		}
	}
	// The SDK schema has no item-count fields; fold bounds into the
	// description so the model still sees them.
	if s.MinItems > 0 || s.MaxItems > 0 {
		bound := fmt.Sprintf("Between %d and %d items.", s.MinItems, s.MaxItems)
		if out.Description == "" {
			out.Description = bound
		} else {
			out.Description += " " + bound
		}
	}
	return out
}

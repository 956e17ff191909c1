package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sashabaranov/go-openai"

	analysis "github.com/LazarusMackles/Digital-Lazarus-sub000/internal/domain/analysis"
)

const maxTokens = 2048

// Client adapts an OpenAI-compatible endpoint to the ModelClient port. It has
// no web-search grounding, so provenance-angle requests are refused before
// any network call.
type Client struct {
	client *openai.Client
	model  string
}

func NewClient(apiKey, model string) *Client {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Client{client: openai.NewClient(apiKey), model: model}
}

func (c *Client) request(req analysis.ModelRequest) (openai.ChatCompletionRequest, error) {
	if req.UseSearch {
		return openai.ChatCompletionRequest{}, fmt.Errorf("%w: provider has no search grounding", analysis.ErrUpstreamFailure)
	}

	system := req.System
	if req.Schema != nil {
		// No native schema support in JSON mode; restate the shape inline.
		system = strings.TrimSpace(system + "\n\nAnswer with a JSON object with keys: " +
			strings.Join(req.Schema.Required, ", ") + ".")
	}

	user := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Instruction}
	if len(req.ImageData) > 0 {
		dataURL := fmt.Sprintf("data:%s;base64,%s", req.ImageMIME, base64.StdEncoding.EncodeToString(req.ImageData))
		user = openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: req.Instruction},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL}},
			},
		}
	}

	out := openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			user,
		},
	}
	if req.Schema != nil {
		out.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return out, nil
}

func (c *Client) Generate(ctx context.Context, req analysis.ModelRequest) (analysis.ModelResponse, error) {
	ccr, err := c.request(req)
	if err != nil {
		return analysis.ModelResponse{}, err
	}
	resp, err := c.client.CreateChatCompletion(ctx, ccr)
	if err != nil {
		return analysis.ModelResponse{}, translateErr(err)
	}
	if len(resp.Choices) == 0 {
		return analysis.ModelResponse{}, fmt.Errorf("%w: no choices", analysis.ErrMalformedResponse)
	}
	return analysis.ModelResponse{Text: resp.Choices[0].Message.Content}, nil
}

func (c *Client) Stream(ctx context.Context, req analysis.ModelRequest) (analysis.ModelStream, error) {
	ccr, err := c.request(req)
	if err != nil {
		return nil, err
	}
	s, err := c.client.CreateChatCompletionStream(ctx, ccr)
	if err != nil {
		return nil, translateErr(err)
	}
	return &stream{s: s}, nil
}

// stream folds OpenAI deltas into full-so-far snapshots.
type stream struct {
	s   *openai.ChatCompletionStream
	buf strings.Builder
}

func (s *stream) Next() (string, error) {
	resp, err := s.s.Recv()
	if errors.Is(err, io.EOF) {
		return "", io.EOF
	}
	if err != nil {
		return "", translateErr(err)
	}
	if len(resp.Choices) > 0 {
		s.buf.WriteString(resp.Choices[0].Delta.Content)
	}
	return s.buf.String(), nil
}

func (s *stream) Close() error { return s.s.Close() }

func translateErr(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 429:
			return fmt.Errorf("%w: %v", analysis.ErrRateLimited, err)
		case 401, 403:
			return fmt.Errorf("%w: %v", analysis.ErrAuth, err)
		}
	}
	if analysis.IsRateLimited(err) {
		return fmt.Errorf("%w: %v", analysis.ErrRateLimited, err)
	}
	return err
}

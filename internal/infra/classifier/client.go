package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	analysis "github.com/LazarusMackles/Digital-Lazarus-sub000/internal/domain/analysis"
)

// Client calls the auxiliary pixel-classifier API: multipart form data with
// the image blob and a colon-delimited user:secret credential pair.
type Client struct {
	endpoint  string
	apiUser   string
	apiSecret string
	httpc     *http.Client
}

func New(endpoint, apiUser, apiSecret string) *Client {
	return &Client{
		endpoint:  endpoint,
		apiUser:   apiUser,
		apiSecret: apiSecret,
		httpc:     &http.Client{Timeout: 30 * time.Second},
	}
}

type response struct {
	Status string `json:"status"`
	Type   struct {
		AIGenerated float64 `json:"ai_generated"`
	} `json:"type"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// ScoreImage returns the classifier's ai_generated fraction in [0,1].
func (c *Client) ScoreImage(ctx context.Context, img []byte, mime string) (float64, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("media", "evidence.jpg")
	if err != nil {
		return 0, fmt.Errorf("classifier request: %w", err)
	}
	if _, err := fw.Write(img); err != nil {
		return 0, fmt.Errorf("classifier request: %w", err)
	}
	cred := c.apiUser + ":" + c.apiSecret
	if err := mw.WriteField("credentials", cred); err != nil {
		return 0, fmt.Errorf("classifier request: %w", err)
	}
	if err := mw.Close(); err != nil {
		return 0, fmt.Errorf("classifier request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return 0, fmt.Errorf("classifier request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpc.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", analysis.ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return 0, fmt.Errorf("%w: classifier returned 429", analysis.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: classifier returned status %d", analysis.ErrUpstreamFailure, resp.StatusCode)
	}

	var out response
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return 0, fmt.Errorf("%w: %v", analysis.ErrUpstreamFailure, err)
	}
	if out.Status == "failure" {
		return 0, fmt.Errorf("%w: %s", analysis.ErrUpstreamFailure, out.Error.Message)
	}
	score := out.Type.AIGenerated
	if score < 0 || score > 1 {
		return 0, fmt.Errorf("%w: score %v out of range", analysis.ErrUpstreamFailure, score)
	}
	return score, nil
}

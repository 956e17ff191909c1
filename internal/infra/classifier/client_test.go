package classifier

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	analysis "github.com/LazarusMackles/Digital-Lazarus-sub000/internal/domain/analysis"
)

func TestScoreImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "user-1:secret-1", r.FormValue("credentials"))

		f, _, err := r.FormFile("media")
		require.NoError(t, err)
		defer f.Close()
		body, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, []byte("jpegbytes"), body)

		w.Write([]byte(`{"status":"success","type":{"ai_generated":0.95}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "user-1", "secret-1")
	score, err := c.ScoreImage(context.Background(), []byte("jpegbytes"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, 0.95, score)
}

func TestScoreImageFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"failure","error":{"message":"invalid media"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "u", "s")
	_, err := c.ScoreImage(context.Background(), []byte("x"), "image/jpeg")
	assert.ErrorIs(t, err, analysis.ErrUpstreamFailure)
}

func TestScoreImageRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(srv.URL, "u", "s")
	_, err := c.ScoreImage(context.Background(), []byte("x"), "image/jpeg")
	assert.ErrorIs(t, err, analysis.ErrRateLimited)
}

func TestScoreImageOutOfRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success","type":{"ai_generated":1.7}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "u", "s")
	_, err := c.ScoreImage(context.Background(), []byte("x"), "image/jpeg")
	assert.ErrorIs(t, err, analysis.ErrUpstreamFailure)
}

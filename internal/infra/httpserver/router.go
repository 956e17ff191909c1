package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	appanalysis "github.com/LazarusMackles/Digital-Lazarus-sub000/internal/application/analysis"
	domain "github.com/LazarusMackles/Digital-Lazarus-sub000/internal/domain/analysis"
	"github.com/LazarusMackles/Digital-Lazarus-sub000/internal/domain/evidence"
	"github.com/LazarusMackles/Digital-Lazarus-sub000/internal/infra/imaging"
	"github.com/LazarusMackles/Digital-Lazarus-sub000/internal/middleware"
)

type Router struct {
	svc *appanalysis.Service
}

func NewRouter(svc *appanalysis.Service, checkers map[string]middleware.HealthChecker) http.Handler {
	r := &Router{svc: svc}
	mux := chi.NewRouter()

	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))

	mux.Get("/health", middleware.LivenessHandler)
	mux.Get("/ready", middleware.HealthHandler(checkers))
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/v1", func(rt chi.Router) {
		rt.Post("/analyze", r.wrap(r.handleAnalyze))
		rt.Post("/analyze/stream", r.wrap(r.handleAnalyzeStream))
		rt.Get("/analyses/latest", r.wrap(r.handleLatest))
		rt.Get("/analyses/{id}", r.wrap(r.handleGet))
		rt.Get("/analyses/{id}/report", r.wrap(r.handleReport))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

var errNotFound = errors.New("not found")

// wrap maps pipeline errors onto HTTP statuses. The body always carries the
// translated user-facing message, never raw upstream error text.
func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}

		status := http.StatusInternalServerError
		var te *domain.TimeoutError
		switch {
		case errors.Is(err, errNotFound):
			http.Error(w, "not found", http.StatusNotFound)
			return
		case errors.Is(err, evidence.ErrInvalidFormat), errors.Is(err, imaging.ErrDecode):
			status = http.StatusBadRequest
		case domain.IsRateLimited(err):
			status = http.StatusTooManyRequests
		case domain.IsAuthError(err):
			status = http.StatusUnauthorized
		case errors.As(err, &te):
			status = http.StatusGatewayTimeout
		case errors.Is(err, domain.ErrMalformedResponse),
			errors.Is(err, domain.ErrMalformedStreamResult),
			errors.Is(err, domain.ErrUpstreamFailure):
			status = http.StatusBadGateway
		}

		middleware.IncrementAnalysesFailed()
		writeJSON(w, status, map[string]string{"error": appanalysis.UserMessage(err)})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type analyzeBody struct {
	Evidence struct {
		Type    string `json:"type"`
		Content string `json:"content"`
	} `json:"evidence"`
	Mode       string `json:"mode"`
	Angle      string `json:"angle"`
	Reanalysis bool   `json:"reanalysis"`
}

func (r *Router) decodeRequest(req *http.Request) (appanalysis.Request, error) {
	var body analyzeBody
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return appanalysis.Request{}, fmt.Errorf("%w: %v", evidence.ErrInvalidFormat, err)
	}
	if err := middleware.ValidateEvidenceType(body.Evidence.Type); err != nil {
		return appanalysis.Request{}, fmt.Errorf("%w: %v", evidence.ErrInvalidFormat, err)
	}
	if err := middleware.ValidateMode(body.Mode); err != nil {
		return appanalysis.Request{}, fmt.Errorf("%w: %v", evidence.ErrInvalidFormat, err)
	}
	if err := middleware.ValidateAngle(body.Angle); err != nil {
		return appanalysis.Request{}, fmt.Errorf("%w: %v", evidence.ErrInvalidFormat, err)
	}
	if body.Evidence.Type == string(evidence.TypeURL) {
		if err := middleware.ValidateURL(body.Evidence.Content); err != nil {
			return appanalysis.Request{}, fmt.Errorf("%w: %v", evidence.ErrInvalidFormat, err)
		}
	}

	return appanalysis.Request{
		Token: middleware.GetTokenFromContext(req.Context()),
		Evidence: evidence.Evidence{
			Type:    evidence.Type(body.Evidence.Type),
			Content: body.Evidence.Content,
		},
		Mode:       domain.Mode(body.Mode),
		Angle:      domain.Angle(body.Angle),
		Reanalysis: body.Reanalysis,
	}, nil
}

// POST /v1/analyze
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	areq, err := r.decodeRequest(req)
	if err != nil {
		return err
	}

	middleware.IncrementAnalyses()
	rec, err := r.svc.Analyze(req.Context(), areq, nil)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, rec)
	return nil
}

// POST /v1/analyze/stream
//
// Server-sent events: one "update" event per stream snapshot carrying the
// latest complete partial text, then a terminal "result" or "error" event.
func (r *Router) handleAnalyzeStream(w http.ResponseWriter, req *http.Request) error {
	areq, err := r.decodeRequest(req)
	if err != nil {
		return err
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported by connection")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	sendEvent := func(event string, v any) {
		data, err := json.Marshal(v)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
		flusher.Flush()
	}

	middleware.IncrementAnalyses()
	middleware.IncrementStreaming()
	defer middleware.DecrementStreaming()

	rec, err := r.svc.Analyze(req.Context(), areq, func(partial string) {
		sendEvent("update", map[string]string{"partial": partial})
	})
	if err != nil {
		middleware.IncrementAnalysesFailed()
		sendEvent("error", map[string]string{"error": appanalysis.UserMessage(err)})
		return nil
	}

	sendEvent("result", rec)
	return nil
}

// GET /v1/analyses/latest?limit=
func (r *Router) handleLatest(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	limit = middleware.ValidateLimit(limit)

	list, err := r.svc.History.Latest(req.Context(), middleware.GetTokenFromContext(req.Context()), limit)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, list)
	return nil
}

// GET /v1/analyses/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	rec, err := r.lookup(req)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, rec)
	return nil
}

// GET /v1/analyses/{id}/report
func (r *Router) handleReport(w http.ResponseWriter, req *http.Request) error {
	rec, err := r.lookup(req)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(domain.Report(rec.Result)))
	return nil
}

func (r *Router) lookup(req *http.Request) (*domain.Record, error) {
	id := chi.URLParam(req, "id")
	rec, err := r.svc.History.Get(req.Context(), middleware.GetTokenFromContext(req.Context()), domain.RecordID(id))
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errNotFound
	}
	return rec, nil
}

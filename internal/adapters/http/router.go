package httpadapter

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/plant-id-assistant/internal/config"
	"github.com/kirillkom/plant-id-assistant/internal/core/domain"
	"github.com/kirillkom/plant-id-assistant/internal/core/ports"
	"github.com/kirillkom/plant-id-assistant/internal/observability/metrics"
)

const (
	serviceName = "api"
	// maxIdentifyBodyBytes leaves room for base64 overhead over a 10MB capture.
	maxIdentifyBodyBytes = 14 << 20
	maxCareBodyBytes     = 64 << 10
)

type Router struct {
	identifier ports.PlantIdentifier
	care       ports.CareAdvisor
	history    ports.HistoryReader
	identity   ports.IdentityResolver
	metrics    *metrics.HTTPServerMetrics

	authRequired     bool
	historyPageLimit int
	rateLimitRPS     float64
	rateLimitBurst   int
	maxInFlight      int
	backpressureWait time.Duration
}

func NewRouter(
	cfg config.Config,
	identifier ports.PlantIdentifier,
	care ports.CareAdvisor,
	history ports.HistoryReader,
	identity ports.IdentityResolver,
) *Router {
	return &Router{
		identifier:       identifier,
		care:             care,
		history:          history,
		identity:         identity,
		authRequired:     cfg.AuthRequired,
		historyPageLimit: cfg.HistoryPageLimit,
		rateLimitRPS:     cfg.APIRateLimitRPS,
		rateLimitBurst:   cfg.APIRateLimitBurst,
		maxInFlight:      cfg.APIMaxInFlight,
		backpressureWait: cfg.BackpressureWait(),
	}
}

// WithMetrics exposes /metrics and records request and identification series.
func (rt *Router) WithMetrics(m *metrics.HTTPServerMetrics) *Router {
	rt.metrics = m
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/plants/identify", rt.identify)
	mux.HandleFunc("POST /v1/plants/care", rt.careGuide)
	mux.HandleFunc("GET /v1/plants/history", requireUser(rt.listHistory))
	mux.HandleFunc("GET /v1/plants/history/{id}", requireUser(rt.getHistory))
	mux.HandleFunc("GET /v1/plants/history/{id}/image", requireUser(rt.historyImage))
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	var handler http.Handler = identityMiddleware(mux, rt.identity)
	handler = backpressureMiddleware(handler, rt.maxInFlight, rt.backpressureWait, rt.recordRejected)
	handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst, rt.recordRejected)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) recordRejected(reason string) {
	if rt.metrics != nil {
		rt.metrics.RecordRejected(serviceName, reason)
	}
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type identifyRequest struct {
	Image string `json:"image"`
}

func (rt *Router) identify(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	if rt.authRequired && userID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	var req identifyRequest
	if err := decodeJSONBody(w, r, maxIdentifyBodyBytes, &req); err != nil {
		writeIdentifyError(w, err)
		return
	}
	image, mimeType, err := decodeImage(req.Image)
	if err != nil {
		writeIdentifyError(w, err)
		return
	}

	start := time.Now()
	result, err := rt.identifier.Identify(r.Context(), domain.IdentifyRequest{
		UserID:   userID,
		Image:    image,
		MimeType: mimeType,
	})
	if err != nil {
		if mapErrorToHTTPStatus(err) >= http.StatusInternalServerError {
			slog.Error("identify_failed", "request_id", requestIDFromContext(r.Context()), "error", err)
		}
		writeIdentifyError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordIdentification(serviceName, string(result.Source), len(result.Suggestions), time.Since(start))
	}
	writeJSON(w, http.StatusOK, result)
}

func writeIdentifyError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{
		"error":  "identification failed",
		"detail": err.Error(),
	})
}

func (rt *Router) careGuide(w http.ResponseWriter, r *http.Request) {
	var req domain.CareRequest
	if err := decodeJSONBody(w, r, maxCareBodyBytes, &req); err != nil {
		writeError(w, err)
		return
	}
	guide, err := rt.care.CareGuide(r.Context(), req)
	if err != nil {
		if mapErrorToHTTPStatus(err) >= http.StatusInternalServerError {
			slog.Error("care_guide_failed", "request_id", requestIDFromContext(r.Context()), "error", err)
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, guide)
}

func (rt *Router) listHistory(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeError(w, err)
		return
	}
	limit, err := queryInt(r, "limit", rt.historyPageLimit)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := rt.history.ListHistory(r.Context(), userIDFromContext(r.Context()), page, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) getHistory(w http.ResponseWriter, r *http.Request) {
	record, err := rt.history.GetHistory(r.Context(), userIDFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (rt *Router) historyImage(w http.ResponseWriter, r *http.Request) {
	image, err := rt.history.OpenHistoryImage(r.Context(), userIDFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	defer image.Close()

	reader := bufio.NewReaderSize(image, 512)
	head, _ := reader.Peek(512)
	w.Header().Set("Content-Type", http.DetectContentType(head))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, reader); err != nil {
		slog.Warn("history_image_stream_failed", "request_id", requestIDFromContext(r.Context()), "error", err)
	}
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, limit int64, dst any) error {
	body := http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return domain.WrapError(domain.ErrInvalidInput, "decode request", fmt.Errorf("body exceeds %d bytes", maxBytesErr.Limit))
		}
		return domain.WrapError(domain.ErrInvalidInput, "decode request", errors.New("invalid json"))
	}
	return nil
}

// decodeImage accepts raw base64 or a data URL and returns the bytes with their mime type.
func decodeImage(value string) ([]byte, string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, "", domain.WrapError(domain.ErrInvalidInput, "decode image", errors.New("image is required"))
	}

	declaredMime := ""
	if strings.HasPrefix(value, "data:") {
		header, payload, ok := strings.Cut(value, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return nil, "", domain.WrapError(domain.ErrInvalidInput, "decode image", errors.New("data url must be base64 encoded"))
		}
		declaredMime = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		value = payload
	}

	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(value)
	}
	if err != nil || len(raw) == 0 {
		return nil, "", domain.WrapError(domain.ErrInvalidInput, "decode image", errors.New("image is not valid base64"))
	}

	mimeType := declaredMime
	if mimeType == "" {
		mimeType = http.DetectContentType(raw)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, "", domain.WrapError(domain.ErrInvalidInput, "decode image", fmt.Errorf("unsupported content type %q", mimeType))
	}
	return raw, mimeType, nil
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	value := strings.TrimSpace(r.URL.Query().Get(name))
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, domain.WrapError(domain.ErrInvalidInput, "parse query", fmt.Errorf("%s must be an integer", name))
	}
	return parsed, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Package api serves the geolocation and image search endpoints over HTTP.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/geowave/internal/imagesearch"
	"github.com/sells-group/geowave/internal/model"
)

// Error messages returned to clients.
const (
	msgBadURLs            = "Request body must have a urls array"
	msgImagesFailed       = "Failed to fetch images"
	msgMultilangFailed    = "Failed to fetch multilingual images"
	msgBodyTooLarge       = "Request body too large"
	liveness              = "API is running!"
	maxGeolocateBodyBytes = 1 << 20
)

// Geolocator resolves a batch of URLs. The result is index-aligned with urls.
type Geolocator interface {
	ResolveAll(ctx context.Context, urls []string) []model.GeoResult
}

// ImageSearcher runs single-query and multilingual image searches.
type ImageSearcher interface {
	Search(ctx context.Context, query string) ([]model.ImageRef, error)
	Multilang(ctx context.Context, query string) ([]model.LanguageResult, error)
}

// Handler holds the endpoint dependencies.
type Handler struct {
	geo    Geolocator
	images ImageSearcher
}

// NewHandler creates a Handler.
func NewHandler(geo Geolocator, images ImageSearcher) *Handler {
	return &Handler{geo: geo, images: images}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// Root answers the liveness probe.
func (h *Handler) Root(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, liveness)
}

// Geolocate handles POST /api/geolocate.
func (h *Handler) Geolocate(w http.ResponseWriter, r *http.Request) {
	urls, err := decodeURLs(http.MaxBytesReader(w, r.Body, maxGeolocateBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, msgBadURLs)
		return
	}

	// Work started for a request finishes even if the client goes away.
	results := h.geo.ResolveAll(context.WithoutCancel(r.Context()), urls)
	writeJSON(w, http.StatusOK, results)
}

var errNotURLArray = errors.New("api: urls is not an array")

// decodeURLs reads {"urls": [...]}. It fails unless urls is a JSON array.
// Array elements that are not strings become "", which resolves to an
// all-null result.
func decodeURLs(body io.Reader) ([]string, error) {
	var req struct {
		URLs json.RawMessage `json:"urls"`
	}
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return nil, err
	}
	raw := bytes.TrimSpace(req.URLs)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, errNotURLArray
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, err
	}
	urls := make([]string, len(elems))
	for i, e := range elems {
		var s string
		if json.Unmarshal(e, &s) == nil {
			urls[i] = s
		}
	}
	return urls, nil
}

// Images handles GET /api/images?q=.
func (h *Handler) Images(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")

	images, err := h.images.Search(context.WithoutCancel(r.Context()), q)
	switch {
	case errors.Is(err, imagesearch.ErrProviderFailed), errors.Is(err, imagesearch.ErrNoProvider):
		writeError(w, http.StatusInternalServerError, msgImagesFailed)
		return
	case err != nil:
		zap.L().Error("api: image search merge failed",
			zap.String("query", q),
			zap.Error(err),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if images == nil {
		images = []model.ImageRef{}
	}
	writeJSON(w, http.StatusOK, images)
}

// Multilang handles GET /api/images/multilang?q=.
func (h *Handler) Multilang(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")

	results, err := h.images.Multilang(context.WithoutCancel(r.Context()), q)
	if err != nil {
		zap.L().Error("api: multilang search failed",
			zap.String("query", q),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, msgMultilangFailed)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

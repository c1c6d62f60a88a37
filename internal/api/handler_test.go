package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/geowave/internal/imagesearch"
	"github.com/sells-group/geowave/internal/model"
	"github.com/sells-group/geowave/internal/store"
	"github.com/sells-group/geowave/pkg/google"
	"github.com/sells-group/geowave/pkg/google/mocks"
)

// echoGeo returns one result per URL whose domain is the URL itself.
type echoGeo struct {
	got []string
}

func (e *echoGeo) ResolveAll(_ context.Context, urls []string) []model.GeoResult {
	e.got = urls
	out := make([]model.GeoResult, len(urls))
	for i, u := range urls {
		out[i] = model.GeoResult{Count: 1}
		if u != "" {
			d := u
			out[i].Domain = &d
		}
	}
	return out
}

// stubSearcher returns canned results.
type stubSearcher struct {
	images       []model.ImageRef
	searchErr    error
	multi        []model.LanguageResult
	multiErr     error
	searchCalled string
}

func (s *stubSearcher) Search(_ context.Context, q string) ([]model.ImageRef, error) {
	s.searchCalled = q
	return s.images, s.searchErr
}

func (s *stubSearcher) Multilang(context.Context, string) ([]model.LanguageResult, error) {
	return s.multi, s.multiErr
}

func serve(t *testing.T, h *Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	NewRouter(h, nil).ServeHTTP(rr, req)
	return rr
}

func TestRoot(t *testing.T) {
	rr := serve(t, NewHandler(&echoGeo{}, &stubSearcher{}), http.MethodGet, "/", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "API is running!", rr.Body.String())
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/plain")
}

func TestRequestIDHeader(t *testing.T) {
	h := NewHandler(&echoGeo{}, &stubSearcher{})

	rr := serve(t, h, http.MethodGet, "/", "")
	assert.Len(t, rr.Header().Get(RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "client-id")
	rr = httptest.NewRecorder()
	NewRouter(h, nil).ServeHTTP(rr, req)
	assert.Equal(t, "client-id", rr.Header().Get(RequestIDHeader))
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/geolocate", nil)
	req.Header.Set("Origin", "https://frontend.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()

	NewRouter(NewHandler(&echoGeo{}, &stubSearcher{}), nil).ServeHTTP(rr, req)

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestGeolocate_Success(t *testing.T) {
	geo := &echoGeo{}
	rr := serve(t, NewHandler(geo, &stubSearcher{}), http.MethodPost, "/api/geolocate",
		`{"urls": ["https://a.example", "https://b.example", "x"]}`)

	require.Equal(t, http.StatusOK, rr.Code)
	var results []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &results))
	require.Len(t, results, 3)
	assert.Equal(t, "https://a.example", results[0]["domain"])
	assert.Equal(t, "x", results[2]["domain"])
	assert.EqualValues(t, 1, results[0]["count"])
	for _, key := range []string{"country", "city", "lat", "lng", "location"} {
		v, ok := results[0][key]
		assert.True(t, ok, "field %s must be present", key)
		assert.Nil(t, v)
	}
}

func TestGeolocate_EmptyArray(t *testing.T) {
	rr := serve(t, NewHandler(&echoGeo{}, &stubSearcher{}), http.MethodPost, "/api/geolocate", `{"urls": []}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestGeolocate_NonStringElements(t *testing.T) {
	geo := &echoGeo{}
	rr := serve(t, NewHandler(geo, &stubSearcher{}), http.MethodPost, "/api/geolocate",
		`{"urls": [42, "https://ok.example", null, {"a": 1}]}`)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"", "https://ok.example", "", ""}, geo.got)
}

func TestGeolocate_BadBodies(t *testing.T) {
	bodies := []string{
		`{"urls": "not-an-array"}`,
		`{"urls": null}`,
		`{"urls": {"0": "https://a.example"}}`,
		`{"urls": 7}`,
		`{}`,
		`[]`,
		`not json`,
	}
	for _, body := range bodies {
		rr := serve(t, NewHandler(&echoGeo{}, &stubSearcher{}), http.MethodPost, "/api/geolocate", body)

		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
		assert.JSONEq(t, `{"error":"Request body must have a urls array"}`, rr.Body.String(), body)
	}
}

func TestGeolocate_BodyTooLarge(t *testing.T) {
	body := `{"urls": ["` + strings.Repeat("a", maxGeolocateBodyBytes) + `"]}`
	rr := serve(t, NewHandler(&echoGeo{}, &stubSearcher{}), http.MethodPost, "/api/geolocate", body)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.JSONEq(t, `{"error":"Request body too large"}`, rr.Body.String())
}

func TestImages_Success(t *testing.T) {
	s := &stubSearcher{images: []model.ImageRef{{Link: "a", Title: "A"}}}
	rr := serve(t, NewHandler(&echoGeo{}, s), http.MethodGet, "/api/images?q=blue+sky", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[{"link":"a","title":"A"}]`, rr.Body.String())
	assert.Equal(t, "blue sky", s.searchCalled)
}

func TestImages_NoHitsIsServerError(t *testing.T) {
	provider := mocks.NewMockClient(t)
	provider.On("ImageSearch", mock.Anything, "great wave off kanagawa ", 6).Return(nil, nil).Once()

	st := store.NewMemory()
	rr := serve(t, NewHandler(&echoGeo{}, imagesearch.New(provider, st)), http.MethodGet, "/api/images", "")

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"Failed to fetch images"}`, rr.Body.String())

	rec, err := st.Get(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestImages_CancelledRequestStillMerges(t *testing.T) {
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "words.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	provider := mocks.NewMockClient(t)
	provider.On("ImageSearch", mock.Anything, mock.Anything, 6).
		Return([]google.Image{{Link: "a", Title: "A"}}, nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/images?q=gone", nil).WithContext(ctx)
	rr := httptest.NewRecorder()
	NewRouter(NewHandler(&echoGeo{}, imagesearch.New(provider, st)), nil).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	rec, err := st.Get(context.Background(), "gone")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 1, rec.Count)
}

func TestImages_ProviderFailure(t *testing.T) {
	s := &stubSearcher{searchErr: eris.Wrap(imagesearch.ErrProviderFailed, "status 403: key invalid")}
	rr := serve(t, NewHandler(&echoGeo{}, s), http.MethodGet, "/api/images?q=x", "")

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"Failed to fetch images"}`, rr.Body.String())
	assert.NotContains(t, rr.Body.String(), "key invalid")
}

func TestImages_StoreFailureIsPlainServerError(t *testing.T) {
	s := &stubSearcher{searchErr: errors.New("postgres: commit merge: connection lost")}
	rr := serve(t, NewHandler(&echoGeo{}, s), http.MethodGet, "/api/images?q=x", "")

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Internal Server Error\n", rr.Body.String())
}

func TestMultilang_Success(t *testing.T) {
	thumb := "t"
	s := &stubSearcher{multi: []model.LanguageResult{
		{Language: "English", LanguageCode: "en", Query: "Great Wave off Kanagawa", Image: &model.LanguageImage{Link: "l", Title: "T", Thumbnail: &thumb}},
		{Language: "Chinese", LanguageCode: "zh", Query: "神奈川沖浪裏"},
	}}
	rr := serve(t, NewHandler(&echoGeo{}, s), http.MethodGet, "/api/images/multilang", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[
		{"language":"English","languageCode":"en","query":"Great Wave off Kanagawa","image":{"link":"l","title":"T","thumbnail":"t"}},
		{"language":"Chinese","languageCode":"zh","query":"神奈川沖浪裏","image":null}
	]`, rr.Body.String())
}

func TestMultilang_TopLevelFailure(t *testing.T) {
	s := &stubSearcher{multiErr: errors.New("fan-out aborted")}
	rr := serve(t, NewHandler(&echoGeo{}, s), http.MethodGet, "/api/images/multilang?q=x", "")

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"Failed to fetch multilingual images"}`, rr.Body.String())
}

func TestUnknownRoute(t *testing.T) {
	rr := serve(t, NewHandler(&echoGeo{}, &stubSearcher{}), http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// The tests below run the real aggregator and memory store behind the router.

func TestImages_EndToEndAccumulation(t *testing.T) {
	provider := mocks.NewMockClient(t)
	provider.On("ImageSearch", mock.Anything, "great wave off kanagawa X", 6).
		Return([]google.Image{{Link: "a", Title: "A"}, {Link: "b", Title: "B"}}, nil).Once()
	provider.On("ImageSearch", mock.Anything, "great wave off kanagawa X", 6).
		Return([]google.Image{{Link: "b", Title: "B"}, {Link: "c", Title: "C"}}, nil).Once()
	provider.On("ImageSearch", mock.Anything, "great wave off kanagawa X", 6).
		Return(nil, errors.New("quota")).Once()

	st := store.NewMemory()
	h := NewHandler(&echoGeo{}, imagesearch.New(provider, st))

	rr := serve(t, h, http.MethodGet, "/api/images?q=X", "")
	require.Equal(t, http.StatusOK, rr.Code)
	rr = serve(t, h, http.MethodGet, "/api/images?q=X", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[{"link":"b","title":"B"},{"link":"c","title":"C"}]`, rr.Body.String())
	rr = serve(t, h, http.MethodGet, "/api/images?q=X", "")
	require.Equal(t, http.StatusInternalServerError, rr.Code)

	rec, err := st.Get(context.Background(), "X")
	require.NoError(t, err)
	assert.Equal(t, &model.QueryRecord{
		Count:  2,
		Images: []model.ImageRef{{Link: "a", Title: "A"}, {Link: "b", Title: "B"}, {Link: "c", Title: "C"}},
	}, rec)
}

func TestImages_EndToEndConcurrent(t *testing.T) {
	const m = 20
	provider := mocks.NewMockClient(t)
	provider.On("ImageSearch", mock.Anything, mock.Anything, 6).
		Return(func(_ context.Context, _ string, _ int) ([]google.Image, error) {
			return []google.Image{{Link: "same", Title: "S"}}, nil
		}).Times(m)

	st := store.NewMemory()
	router := NewRouter(NewHandler(&echoGeo{}, imagesearch.New(provider, st)), nil)

	var wg sync.WaitGroup
	for range m {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/images?q=hot", nil))
			assert.Equal(t, http.StatusOK, rr.Code)
		}()
	}
	wg.Wait()

	rec, err := st.Get(context.Background(), "hot")
	require.NoError(t, err)
	assert.Equal(t, m, rec.Count)
	assert.Len(t, rec.Images, 1)
}

func TestMultilang_EndToEndAllFail(t *testing.T) {
	provider := mocks.NewMockClient(t)
	provider.On("ImageSearch", mock.Anything, mock.Anything, 1).
		Return(nil, fmt.Errorf("down")).Times(10)

	h := NewHandler(&echoGeo{}, imagesearch.New(provider, store.NewMemory()))
	rr := serve(t, h, http.MethodGet, "/api/images/multilang?q=cat", "")

	require.Equal(t, http.StatusOK, rr.Code)
	var results []model.LanguageResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &results))
	require.Len(t, results, 10)
	for i, lang := range imagesearch.Languages {
		assert.Equal(t, lang.Label, results[i].Language)
		assert.Equal(t, lang.Phrase+" cat", results[i].Query)
		assert.Nil(t, results[i].Image)
	}
}


func TestMultilang_EndToEndNoProvider(t *testing.T) {
	h := NewHandler(&echoGeo{}, imagesearch.New(nil, store.NewMemory()))
	rr := serve(t, h, http.MethodGet, "/api/images/multilang", "")

	require.Equal(t, http.StatusOK, rr.Code)
	var results []model.LanguageResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &results))
	require.Len(t, results, len(imagesearch.Languages))
	for i, lang := range imagesearch.Languages {
		assert.Equal(t, lang.Phrase, results[i].Query)
		assert.Nil(t, results[i].Image)
	}
}

// Package imagesearch queries the image search provider and shapes results,
// for a single query or for every language variant of the topic.
package imagesearch

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geowave/internal/fanout"
	"github.com/sells-group/geowave/internal/model"
	"github.com/sells-group/geowave/internal/store"
	"github.com/sells-group/geowave/pkg/google"
)

const (
	// DefaultTopic prefixes every single-query search.
	DefaultTopic = "great wave off kanagawa"
	// DefaultNumResults is how many images a single-query search asks for.
	DefaultNumResults = 6
)

var (
	// ErrNoProvider is returned when no search provider is configured.
	ErrNoProvider = eris.New("imagesearch: no search provider configured")
	// ErrProviderFailed marks a failed request to the search provider.
	ErrProviderFailed = eris.New("imagesearch: provider request failed")

	errNoHits = eris.New("imagesearch: provider returned no results")
)

// Provider is the external image search backend. google.Client satisfies it.
type Provider interface {
	ImageSearch(ctx context.Context, query string, num int) ([]google.Image, error)
}

// Aggregator runs image searches and persists single-query results.
type Aggregator struct {
	provider   Provider
	store      store.Store
	topic      string
	numResults int
	languages  []model.Language
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithTopic overrides the text prefixed to single-query searches.
func WithTopic(topic string) Option {
	return func(a *Aggregator) {
		a.topic = topic
	}
}

// WithNumResults overrides how many images a single-query search fetches.
func WithNumResults(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.numResults = n
		}
	}
}

// WithLanguages replaces the multilingual table.
func WithLanguages(langs []model.Language) Option {
	return func(a *Aggregator) {
		a.languages = langs
	}
}

// New creates an Aggregator.
func New(provider Provider, st store.Store, opts ...Option) *Aggregator {
	a := &Aggregator{
		provider:   provider,
		store:      st,
		topic:      DefaultTopic,
		numResults: DefaultNumResults,
		languages:  Languages,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Search fetches images for the topic plus userQuery, merges them into the
// record keyed by the raw userQuery and returns the freshly fetched images.
// Provider failures, including a response with no hits, wrap
// ErrProviderFailed and skip the merge; store failures are returned as they
// are. Once the fetch succeeds the merge runs to completion even if ctx is
// cancelled.
func (a *Aggregator) Search(ctx context.Context, userQuery string) ([]model.ImageRef, error) {
	if a.provider == nil {
		return nil, ErrNoProvider
	}

	query := a.topic + " " + userQuery
	hits, err := a.provider.ImageSearch(ctx, query, a.numResults)
	if err == nil && len(hits) == 0 {
		err = errNoHits
	}
	if err != nil {
		zap.L().Error("imagesearch: provider error",
			zap.String("query", query),
			zap.Error(err),
		)
		return nil, eris.Wrap(ErrProviderFailed, err.Error())
	}

	images := make([]model.ImageRef, len(hits))
	for i, h := range hits {
		images[i] = model.ImageRef{Link: h.Link, Title: h.Title}
	}

	rec, err := a.store.Merge(context.WithoutCancel(ctx), userQuery, images)
	if err != nil {
		return nil, eris.Wrapf(err, "imagesearch: merge %q", userQuery)
	}
	zap.L().Debug("imagesearch: merged results",
		zap.String("key", userQuery),
		zap.Int("fetched", len(images)),
		zap.Int("count", rec.Count),
		zap.Int("stored", len(rec.Images)),
	)

	return images, nil
}

// Multilang searches the top image for every language in the table, all
// concurrently. The result has one entry per language in table order; a
// language whose search fails or finds nothing gets a nil Image. Without a
// provider every language fails that way.
func (a *Aggregator) Multilang(ctx context.Context, userQuery string) ([]model.LanguageResult, error) {
	return fanout.Join(ctx, a.languages, func(ctx context.Context, lang model.Language) model.LanguageResult {
		return a.searchLanguage(ctx, lang, userQuery)
	}), nil
}

func (a *Aggregator) searchLanguage(ctx context.Context, lang model.Language, userQuery string) model.LanguageResult {
	query := strings.TrimSpace(lang.Phrase + " " + userQuery)
	res := model.LanguageResult{
		Language:     lang.Label,
		LanguageCode: lang.Code(),
		Query:        query,
	}

	if a.provider == nil {
		zap.L().Warn("imagesearch: language search skipped",
			zap.String("language", lang.Label),
			zap.Error(ErrNoProvider),
		)
		return res
	}

	hits, err := a.provider.ImageSearch(ctx, query, 1)
	if err != nil {
		zap.L().Warn("imagesearch: language search failed",
			zap.String("language", lang.Label),
			zap.Error(err),
		)
		return res
	}
	if len(hits) == 0 {
		return res
	}

	top := hits[0]
	res.Image = &model.LanguageImage{Link: top.Link, Title: top.Title}
	if top.ThumbnailLink != "" {
		thumb := top.ThumbnailLink
		res.Image.Thumbnail = &thumb
	}
	return res
}

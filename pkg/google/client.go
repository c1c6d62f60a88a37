// Package google wraps the Google Custom Search JSON API for image search.
package google

import (
	"context"

	"github.com/rotisserie/eris"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

// Client performs Google Custom Search image queries.
type Client interface {
	ImageSearch(ctx context.Context, query string, num int) ([]Image, error)
}

// Image is one image search hit.
type Image struct {
	Link          string
	Title         string
	ThumbnailLink string
}

// Option configures the client.
type Option func(*settings)

type settings struct {
	baseURL string
}

// WithBaseURL overrides the default API endpoint.
func WithBaseURL(url string) Option {
	return func(s *settings) {
		s.baseURL = url
	}
}

type apiClient struct {
	engineID string
	svc      *customsearch.Service
}

// NewClient creates a Custom Search client for the search engine engineID
// (the "cx" parameter).
func NewClient(ctx context.Context, apiKey, engineID string, opts ...Option) (Client, error) {
	var s settings
	for _, o := range opts {
		o(&s)
	}

	clientOpts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if s.baseURL != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(s.baseURL))
	}

	svc, err := customsearch.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, eris.Wrap(err, "google: create customsearch service")
	}
	return &apiClient{engineID: engineID, svc: svc}, nil
}

// ImageSearch returns up to num image results for query, in provider order.
// A query with no hits returns an empty slice and no error.
func (c *apiClient) ImageSearch(ctx context.Context, query string, num int) ([]Image, error) {
	resp, err := c.svc.Cse.List().
		Q(query).
		Cx(c.engineID).
		SearchType("image").
		Num(int64(num)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, eris.Wrap(err, "google: image search")
	}

	images := make([]Image, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item == nil {
			continue
		}
		img := Image{Link: item.Link, Title: item.Title}
		if item.Image != nil {
			img.ThumbnailLink = item.Image.ThumbnailLink
		}
		images = append(images, img)
	}
	return images, nil
}

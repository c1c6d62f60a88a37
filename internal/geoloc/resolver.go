// Package geoloc resolves URLs to best-effort geolocation records.
package geoloc

import (
	"context"
	"net/netip"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geowave/internal/fanout"
	"github.com/sells-group/geowave/internal/model"
)

// NameResolver resolves a hostname to its IPv4 addresses.
type NameResolver interface {
	ResolveIPv4(ctx context.Context, host string) ([]netip.Addr, error)
}

// GeoDatabase looks up geolocation data for an address. A nil GeoInfo with
// a nil error means the address has no entry.
type GeoDatabase interface {
	Lookup(addr netip.Addr) (*model.GeoInfo, error)
}

// Resolver turns URLs into GeoResults. It never returns errors: every
// failure degrades the result to null fields.
type Resolver struct {
	names NameResolver
	geo   GeoDatabase
}

// NewResolver creates a Resolver.
func NewResolver(names NameResolver, geo GeoDatabase) *Resolver {
	return &Resolver{names: names, geo: geo}
}

// Resolve geolocates the host of rawURL. Domain is set whenever the URL has
// a host, even if resolution or lookup fails afterwards.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) model.GeoResult {
	res := model.GeoResult{Count: 1}

	host, err := Hostname(rawURL)
	if err != nil {
		zap.L().Debug("geoloc: parse url", zap.String("url", rawURL), zap.Error(err))
		return res
	}
	res.Domain = &host

	addrs, err := r.names.ResolveIPv4(ctx, host)
	if err != nil || len(addrs) == 0 {
		zap.L().Debug("geoloc: resolve host", zap.String("host", host), zap.Error(err))
		return res
	}

	info, err := r.geo.Lookup(addrs[0])
	if err != nil || info == nil {
		zap.L().Debug("geoloc: no geo entry",
			zap.String("host", host),
			zap.String("addr", addrs[0].String()),
			zap.Error(err),
		)
		return res
	}

	res.Country = nonEmpty(info.Country)
	res.City = nonEmpty(info.City)
	res.Location = nonEmpty(info.Region)
	if p := info.Point; p != nil && !p.Empty() {
		// geom points are X=lng, Y=lat; zero means unknown, not the equator.
		if lat := p.Y(); lat != 0 {
			res.Lat = &lat
		}
		if lng := p.X(); lng != 0 {
			res.Lng = &lng
		}
	}
	return res
}

// ResolveAll resolves every URL concurrently. The result is index-aligned
// with urls.
func (r *Resolver) ResolveAll(ctx context.Context, urls []string) []model.GeoResult {
	return fanout.Join(ctx, urls, r.Resolve)
}

// Hostname extracts the lowercased hostname from an absolute URL.
func Hostname(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", eris.Wrap(err, "geoloc: parse url")
	}
	host := u.Hostname()
	if host == "" {
		return "", eris.Errorf("geoloc: url %q has no host", rawURL)
	}
	return strings.ToLower(host), nil
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geowave/internal/config"
	"github.com/sells-group/geowave/internal/db"
	"github.com/sells-group/geowave/internal/geoloc"
	"github.com/sells-group/geowave/internal/imagesearch"
	"github.com/sells-group/geowave/internal/store"
	"github.com/sells-group/geowave/pkg/google"
)

// deps bundles the long-lived collaborators of the server.
type deps struct {
	Store  store.Store
	Geo    *geoloc.Resolver
	Images *imagesearch.Aggregator

	closers []func() error
}

// Close releases everything initDeps opened, in reverse order.
func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			zap.L().Warn("close dependency", zap.Error(err))
		}
	}
}

func initDeps(ctx context.Context, c *config.Config) (*deps, error) {
	d := &deps{}

	st, err := initStore(ctx, c.Store)
	if err != nil {
		return nil, err
	}
	d.Store = st
	d.closers = append(d.closers, st.Close)

	geo, closeGeo, err := initGeo(c.Geo)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.Geo = geo
	d.closers = append(d.closers, closeGeo)

	provider, err := initSearch(ctx, c.Search)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.Images = imagesearch.New(provider, st,
		imagesearch.WithTopic(c.Search.Topic),
		imagesearch.WithNumResults(c.Search.NumResults),
	)

	return d, nil
}

func initStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	switch sc.Driver {
	case config.DriverMemory, "":
		return store.NewMemory(), nil
	case config.DriverSQLite:
		dsn := sc.DatabaseURL
		if dsn == "" {
			dsn = "geowave.db"
		}
		return store.NewSQLite(dsn)
	case config.DriverPostgres:
		return store.NewPostgres(ctx, sc.DatabaseURL, &db.PoolConfig{
			MaxConns: sc.MaxConns,
			MinConns: sc.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", sc.Driver)
	}
}

// initGeo builds a Resolver over system DNS and the configured City
// database. Without a database every lookup comes back empty.
func initGeo(gc config.GeoConfig) (*geoloc.Resolver, func() error, error) {
	names := geoloc.NewDNSResolver(nil)
	if gc.DatabasePath == "" {
		return geoloc.NewResolver(names, geoloc.NoopDB{}), func() error { return nil }, nil
	}

	mmdb, err := geoloc.OpenMaxMind(gc.DatabasePath)
	if err != nil {
		return nil, nil, err
	}
	return geoloc.NewResolver(names, mmdb), mmdb.Close, nil
}

// initSearch returns nil when credentials are missing; single-query searches
// then fail with imagesearch.ErrNoProvider.
func initSearch(ctx context.Context, sc config.SearchConfig) (imagesearch.Provider, error) {
	if !sc.Enabled() {
		return nil, nil
	}

	var opts []google.Option
	if sc.BaseURL != "" {
		opts = append(opts, google.WithBaseURL(sc.BaseURL))
	}
	client, err := google.NewClient(ctx, sc.APIKey, sc.EngineID, opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}

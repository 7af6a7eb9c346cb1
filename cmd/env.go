package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/privacy-assess/internal/assessment"
	"github.com/sells-group/privacy-assess/internal/catalog"
	"github.com/sells-group/privacy-assess/internal/resilience"
	"github.com/sells-group/privacy-assess/internal/store"
	"github.com/sells-group/privacy-assess/pkg/notion"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "privacy.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openStore opens and migrates the configured store.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func initTaxonomy() (*assessment.Taxonomy, error) {
	if cfg.Taxonomy.Path == "" {
		return assessment.DefaultTaxonomy(), nil
	}
	t, err := assessment.LoadTaxonomyFile(cfg.Taxonomy.Path)
	if err != nil {
		return nil, eris.Wrap(err, "load taxonomy")
	}
	zap.L().Info("loaded taxonomy", zap.String("path", cfg.Taxonomy.Path))
	return t, nil
}

func newNotionSource(tax *assessment.Taxonomy) *catalog.NotionSource {
	client := notion.NewClient(cfg.Notion.Token, notion.WithRateLimit(cfg.Notion.RateLimit))
	return catalog.NewNotionSource(client, cfg.Notion.CatalogDB, tax.Known)
}

// initCatalog builds the report catalog source: the configured backend,
// wrapped with retries and a circuit breaker, then optionally cached. The
// returned cache is nil when caching is disabled.
func initCatalog(st store.Store, tax *assessment.Taxonomy) (catalog.Source, *catalog.CachedSource, error) {
	var src catalog.Source
	switch cfg.Catalog.Source {
	case "store":
		src = catalog.NewStoreSource(st)
	case "notion":
		src = newNotionSource(tax)
	default:
		return nil, nil, eris.Errorf("unsupported catalog source: %s", cfg.Catalog.Source)
	}

	breaker := resilience.BreakerFromConfig("catalog."+cfg.Catalog.Source,
		cfg.Catalog.FailureThreshold, cfg.Catalog.ResetTimeoutSecs)
	src = catalog.NewRetryingSource(src, retryConfig(), breaker)

	if cfg.Catalog.CacheTTLSecs <= 0 {
		return src, nil, nil
	}
	cached := catalog.NewCachedSource(src, time.Duration(cfg.Catalog.CacheTTLSecs)*time.Second)
	return cached, cached, nil
}

func retryConfig() resilience.RetryConfig {
	return resilience.FromRetryConfig(cfg.Retry.MaxAttempts, cfg.Retry.InitialBackoffMs, cfg.Retry.MaxBackoffMs)
}

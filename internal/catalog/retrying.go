package catalog

import (
	"context"

	"github.com/sells-group/privacy-assess/internal/model"
	"github.com/sells-group/privacy-assess/internal/resilience"
)

// RetryingSource retries transient load failures and stops calling a
// failing backend once its circuit opens.
type RetryingSource struct {
	inner   Source
	retry   resilience.RetryConfig
	breaker *resilience.Breaker
}

// NewRetryingSource wraps inner. A nil breaker disables circuit breaking.
func NewRetryingSource(inner Source, retry resilience.RetryConfig, breaker *resilience.Breaker) *RetryingSource {
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("catalog", "load")
	}
	return &RetryingSource{inner: inner, retry: retry, breaker: breaker}
}

func (s *RetryingSource) Load(ctx context.Context) (model.Catalog, error) {
	return resilience.DoVal(ctx, s.retry, func(ctx context.Context) (model.Catalog, error) {
		if s.breaker == nil {
			return s.inner.Load(ctx)
		}
		return resilience.Call(ctx, s.breaker, s.inner.Load)
	})
}

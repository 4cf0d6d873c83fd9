package observability

import (
	"net/http"
	"time"

	promreg "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quicktrans/quicktransd/internal/config"
)

// Provider owns the Prometheus registry and the service's metric families.
// All record methods tolerate a nil provider so metrics stay optional.
type Provider struct {
	promHandler http.Handler

	httpRequestCounter *promreg.CounterVec
	httpRequestLatency *promreg.HistogramVec
	upstreamLatency    *promreg.HistogramVec
	cacheHitCounter    *promreg.CounterVec
	tokensCounter      *promreg.CounterVec
}

func Setup(cfg config.ObservabilityConfig) (*Provider, error) {
	if !cfg.EnableMetrics {
		return nil, nil
	}

	registry := promreg.NewRegistry()
	provider := &Provider{
		promHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{EnableOpenMetrics: true}),
	}

	latencyBuckets := []float64{0.05, 0.1, 0.2, 0.5, 1, 2, 5, 10, 30}
	httpRequests := promreg.NewCounterVec(
		promreg.CounterOpts{
			Namespace: "quicktrans",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests processed.",
		},
		[]string{"method", "route", "status"},
	)
	httpLatency := promreg.NewHistogramVec(
		promreg.HistogramOpts{
			Namespace: "quicktrans",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   latencyBuckets,
		},
		[]string{"method", "route", "status"},
	)
	upstreamLatency := promreg.NewHistogramVec(
		promreg.HistogramOpts{
			Namespace: "quicktrans",
			Name:      "upstream_request_duration_seconds",
			Help:      "Duration of upstream provider requests.",
			Buckets:   latencyBuckets,
		},
		[]string{"kind", "outcome"},
	)
	cacheHits := promreg.NewCounterVec(
		promreg.CounterOpts{
			Namespace: "quicktrans",
			Name:      "cache_hits_total",
			Help:      "Results served from cache without an upstream call.",
		},
		[]string{"kind"},
	)
	tokens := promreg.NewCounterVec(
		promreg.CounterOpts{
			Namespace: "quicktrans",
			Name:      "tokens_total",
			Help:      "Total prompt/completion tokens consumed upstream.",
		},
		[]string{"type"},
	)
	for _, c := range []promreg.Collector{httpRequests, httpLatency, upstreamLatency, cacheHits, tokens} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	provider.httpRequestCounter = httpRequests
	provider.httpRequestLatency = httpLatency
	provider.upstreamLatency = upstreamLatency
	provider.cacheHitCounter = cacheHits
	provider.tokensCounter = tokens

	return provider, nil
}

func (p *Provider) PrometheusHandler() http.Handler {
	if p == nil || p.promHandler == nil {
		return nil
	}
	return p.promHandler
}

func (p *Provider) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	if p == nil {
		return
	}
	if p.httpRequestCounter != nil {
		p.httpRequestCounter.WithLabelValues(method, route, status).Inc()
	}
	if p.httpRequestLatency != nil {
		p.httpRequestLatency.WithLabelValues(method, route, status).Observe(duration.Seconds())
	}
}

// RecordUpstream notes one provider round trip. kind is the operation
// (translate, dictionary, tts) and outcome either "ok" or the error code.
func (p *Provider) RecordUpstream(kind, outcome string, duration time.Duration) {
	if p == nil || p.upstreamLatency == nil {
		return
	}
	p.upstreamLatency.WithLabelValues(kind, outcome).Observe(duration.Seconds())
}

func (p *Provider) RecordCacheHit(kind string) {
	if p == nil || p.cacheHitCounter == nil {
		return
	}
	p.cacheHitCounter.WithLabelValues(kind).Inc()
}

func (p *Provider) RecordTokens(promptTokens, completionTokens int64) {
	if p == nil || p.tokensCounter == nil {
		return
	}
	if promptTokens > 0 {
		p.tokensCounter.WithLabelValues("prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		p.tokensCounter.WithLabelValues("completion").Add(float64(completionTokens))
	}
}

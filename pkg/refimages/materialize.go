package refimages

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lumenbrand/lumen-engine/pkg/llm"
	"github.com/lumenbrand/lumen-engine/pkg/logging"
	"github.com/lumenbrand/lumen-engine/pkg/metrics"
	"github.com/lumenbrand/lumen-engine/pkg/models"
)

// Payload is a materialized reference image.
type Payload struct {
	Role        models.ReferenceRole
	Label       string
	Description string
	URL         string
	MimeType    string
	Data        []byte
}

// Part converts the payload for an image provider.
func (p Payload) Part() llm.ReferencePart {
	return llm.ReferencePart{Role: string(p.Role), Label: p.Label, MimeType: p.MimeType, Data: p.Data}
}

// Parts converts payloads, preserving order.
func Parts(payloads []Payload) []llm.ReferencePart {
	if len(payloads) == 0 {
		return nil
	}
	parts := make([]llm.ReferencePart, len(payloads))
	for i, p := range payloads {
		parts[i] = p.Part()
	}
	return parts
}

// MaterializerConfig configures reference fetching.
type MaterializerConfig struct {
	FetchTimeout  time.Duration
	CacheTTL      time.Duration
	MaxConcurrent int
}

// Materializer fetches categorized references concurrently and returns them
// in role order.
type Materializer struct {
	fetcher Fetcher
	cache   Cache
	pool    *Pool
	config  MaterializerConfig
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewMaterializer creates a materializer. cache and m may be nil.
func NewMaterializer(cfg MaterializerConfig, fetcher Fetcher, cache Cache, m *metrics.Metrics, logger *zap.Logger) *Materializer {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 15 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	return &Materializer{
		fetcher: fetcher,
		cache:   cache,
		pool:    NewPool(PoolConfig{MaxConcurrent: cfg.MaxConcurrent}, logger),
		config:  cfg,
		metrics: m,
		logger:  logger.Named("refimages"),
	}
}

// Materialize fetches every reference. The result lists product references,
// then background, then style, each in input order, regardless of which
// fetch finishes first. A reference that cannot be fetched is skipped with a
// warning.
func (m *Materializer) Materialize(ctx context.Context, c Categorized) []Payload {
	ordered := c.ordered()
	if len(ordered) == 0 {
		return nil
	}

	tasks := make([]Task[Payload], len(ordered))
	for i, ri := range ordered {
		tasks[i] = Task[Payload]{
			ID: fmt.Sprintf("%s-%d", ri.role, i),
			Execute: func(ctx context.Context) (Payload, error) {
				return m.materializeOne(ctx, ri)
			},
		}
	}

	results := Run(ctx, m.pool, tasks)

	payloads := make([]Payload, 0, len(results))
	for i, r := range results {
		if r.Err != nil {
			m.metrics.ObserveReferenceFetch("error")
			m.logger.Warn("Skipping reference image",
				zap.String("role", string(ordered[i].role)),
				zap.String("url", referenceForLog(ordered[i].img.URL)),
				zap.String("error", logging.SanitizeError(r.Err)))
			continue
		}
		payloads = append(payloads, r.Value)
	}
	return payloads
}

func (m *Materializer) materializeOne(ctx context.Context, ri roleImage) (Payload, error) {
	p := Payload{
		Role:        ri.role,
		Label:       strings.TrimSpace(ri.img.Label),
		Description: strings.TrimSpace(ri.img.Description),
		URL:         ri.img.URL,
	}
	cacheable := m.cache != nil && !strings.HasPrefix(ri.img.URL, "data:")

	if cacheable {
		cached, ok, err := m.cache.Get(ctx, ri.img.URL)
		if err != nil {
			m.logger.Warn("Reference cache read failed", zap.String("error", logging.SanitizeError(err)))
		} else if ok {
			m.metrics.ObserveReferenceFetch("cache_hit")
			p.MimeType, p.Data = cached.MimeType, cached.Data
			return p, nil
		}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, m.config.FetchTimeout)
	defer cancel()

	data, mimeType, err := m.fetcher.Fetch(fetchCtx, ri.img.URL)
	if err != nil {
		return Payload{}, err
	}
	m.metrics.ObserveReferenceFetch("ok")
	p.MimeType, p.Data = mimeType, data

	if cacheable {
		if err := m.cache.Set(ctx, ri.img.URL, &CachedImage{MimeType: mimeType, Data: data}, m.config.CacheTTL); err != nil {
			m.logger.Warn("Reference cache write failed", zap.String("error", logging.SanitizeError(err)))
		}
	}
	return p, nil
}

// referenceForLog keeps data: URLs out of logs.
func referenceForLog(rawURL string) string {
	if strings.HasPrefix(rawURL, "data:") {
		head, _, _ := strings.Cut(rawURL, ",")
		return head + ",..."
	}
	return logging.TruncateString(rawURL, 200)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lumenbrand/lumen-engine/pkg/apperrors"
	"github.com/lumenbrand/lumen-engine/pkg/config"
	"github.com/lumenbrand/lumen-engine/pkg/llm"
	"github.com/lumenbrand/lumen-engine/pkg/metrics"
	"github.com/lumenbrand/lumen-engine/pkg/models"
	"github.com/lumenbrand/lumen-engine/pkg/retry"
)

// textChainOrder is the order providers are considered after the caller's
// choice and the configured primary.
var textChainOrder = []string{llm.ProviderAnthropic, llm.ProviderGemini, llm.ProviderOpenAI}

// maxTextChain is the number of distinct text providers tried per request.
const maxTextChain = 2

// Providers are the generation backends a Dispatcher may call. Nil entries
// are unconfigured.
type Providers struct {
	Text           map[string]llm.TextProvider
	Image          llm.ImageProvider
	AlternateImage llm.ImageProvider
	Video          llm.VideoProvider
}

// ProvidersFromRegistry collects the configured providers of r.
func ProvidersFromRegistry(r *llm.Registry) Providers {
	image, alternate := r.ImageProviders()
	return Providers{
		Text:           r.TextProviders(),
		Image:          image,
		AlternateImage: alternate,
		Video:          r.VideoProvider(),
	}
}

// DispatcherConfig bounds provider calls.
type DispatcherConfig struct {
	ProviderTimeout   time.Duration
	MaxRetries        int
	RetryInitialDelay time.Duration
	TextPrimary       string
}

// DispatcherConfigFrom reads the dispatcher settings from the generation config.
func DispatcherConfigFrom(cfg *config.GenerationConfig) DispatcherConfig {
	return DispatcherConfig{
		ProviderTimeout:   cfg.ProviderTimeout,
		MaxRetries:        cfg.MaxRetries,
		RetryInitialDelay: cfg.RetryInitialDelay,
		TextPrimary:       cfg.TextPrimary,
	}
}

// TextOutcome is a successful text dispatch.
type TextOutcome struct {
	Result *llm.TextResult
	// Provider is the serving provider, suffixed with models.FallbackMarker
	// when it was not the first choice.
	Provider string
	Fallback bool
}

// ImageDispatch is an image request together with the caller's provider
// choice and what the organization is entitled to.
type ImageDispatch struct {
	Request llm.ImageRequest
	// Provider is an explicit provider choice, "" to let entitlement decide.
	Provider    string
	Entitlement models.Entitlement
}

// ImageOutcome is a successful image dispatch.
type ImageOutcome struct {
	Result         *llm.ImageResult
	Provider       string
	Fallback       bool
	Resolution     models.Resolution
	TierRestricted bool
	Notes          []string
}

// VideoOutcome is a successful video dispatch.
type VideoOutcome struct {
	Result   *llm.VideoResult
	Provider string
}

// Dispatcher selects providers, bounds every call with a timeout, retries
// transient failures and falls back between providers.
type Dispatcher interface {
	// GenerateText tries the caller's preferred provider (if configured), then
	// the configured primary, falling back at most once.
	GenerateText(ctx context.Context, req llm.TextRequest, preferred string) (*TextOutcome, error)

	// GenerateImage applies the entitlement, downgrading gated choices instead
	// of failing. A failed alternate provider falls back to the default once.
	GenerateImage(ctx context.Context, d ImageDispatch) (*ImageOutcome, error)

	// GenerateVideo requires the video entitlement.
	GenerateVideo(ctx context.Context, req llm.VideoRequest, ent models.Entitlement) (*VideoOutcome, error)
}

type dispatcher struct {
	providers Providers
	cfg       DispatcherConfig
	retry     *retry.Config
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewDispatcher creates a Dispatcher. m may be nil.
func NewDispatcher(providers Providers, cfg DispatcherConfig, m *metrics.Metrics, logger *zap.Logger) Dispatcher {
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = 120 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &dispatcher{
		providers: providers,
		cfg:       cfg,
		retry:     retry.ProviderConfig(cfg.MaxRetries, cfg.RetryInitialDelay),
		metrics:   m,
		logger:    logger.Named("dispatcher"),
	}
}

var _ Dispatcher = (*dispatcher)(nil)

// step is what the dispatcher does after one provider attempt.
type step int

const (
	stepOK step = iota
	stepRetry
	stepFallback
	stepFail
)

func (s step) String() string {
	switch s {
	case stepOK:
		return "ok"
	case stepRetry:
		return "retry"
	case stepFallback:
		return "fallback"
	default:
		return "fail"
	}
}

// decide maps the error of attempt (0-based) to the next step. Transient
// failures are retried until maxRetries additional attempts were made, then
// fall back. Quota, auth and request errors never retry the same provider.
func decide(err error, attempt, maxRetries int) step {
	if err == nil {
		return stepOK
	}
	if errors.Is(err, context.Canceled) {
		return stepFail
	}
	switch t := llm.GetErrorType(err); {
	case t == llm.ErrorTypeConfig:
		return stepFail
	case t.Retryable():
		if attempt < maxRetries {
			return stepRetry
		}
		return stepFallback
	default:
		return stepFallback
	}
}

// attemptResult is the outcome of calling one provider until it succeeds or
// the policy gives up on it.
type attemptResult[T any] struct {
	value T
	next  step
	err   error
}

// callProvider calls fn against one provider, retrying per decide. retries
// caps the additional attempts for this provider.
func callProvider[T any](ctx context.Context, d *dispatcher, kind, provider string, retries int, fn func(ctx context.Context) (T, error)) attemptResult[T] {
	var zero T
	for attempt := 0; ; attempt++ {
		start := time.Now()
		v, err := llm.CallWithTimeout(ctx, provider, d.cfg.ProviderTimeout, fn)
		d.metrics.ObserveProviderCall(provider, kind, time.Since(start))

		if ctx.Err() != nil {
			return attemptResult[T]{value: zero, next: stepFail, err: ctx.Err()}
		}
		next := decide(err, attempt, retries)
		if next == stepOK {
			return attemptResult[T]{value: v, next: stepOK}
		}

		classified := llm.ClassifyError(provider, err)
		d.metrics.ObserveProviderError(provider, string(classified.Type))
		d.logger.Warn("Provider call failed",
			zap.String("kind", kind),
			zap.String("provider", provider),
			zap.Int("attempt", attempt+1),
			zap.String("error_type", string(classified.Type)),
			zap.Stringer("next", next),
			zap.Error(err))

		if next != stepRetry {
			return attemptResult[T]{value: zero, next: next, err: err}
		}
		if werr := d.retry.Wait(ctx, attempt); werr != nil {
			return attemptResult[T]{value: zero, next: stepFail, err: werr}
		}
	}
}

// failure wraps the error that ended a dispatch.
func failure(err error) error {
	var llmErr *llm.Error
	if errors.As(err, &llmErr) {
		if llmErr.Type == llm.ErrorTypeConfig {
			return fmt.Errorf("%w: %w", apperrors.ErrProviderNotConfigured, err)
		}
		return fmt.Errorf("%w: %w", apperrors.ErrGenerationFailed, err)
	}
	// The caller's context ended; report that as is.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", apperrors.ErrGenerationFailed, err)
}

func (d *dispatcher) textChain(preferred string) []string {
	candidates := append([]string{preferred, d.cfg.TextPrimary}, textChainOrder...)
	seen := make(map[string]bool, len(candidates))
	chain := make([]string, 0, maxTextChain)
	for _, name := range candidates {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if d.providers.Text[name] == nil {
			continue
		}
		chain = append(chain, name)
		if len(chain) == maxTextChain {
			break
		}
	}
	return chain
}

func (d *dispatcher) GenerateText(ctx context.Context, req llm.TextRequest, preferred string) (*TextOutcome, error) {
	chain := d.textChain(preferred)
	if len(chain) == 0 {
		return nil, fmt.Errorf("%w: no text provider has credentials", apperrors.ErrProviderNotConfigured)
	}

	var lastErr error
	for i, name := range chain {
		provider := d.providers.Text[name]
		res := callProvider(ctx, d, "text", name, d.cfg.MaxRetries, func(ctx context.Context) (*llm.TextResult, error) {
			return provider.GenerateText(ctx, req)
		})

		switch res.next {
		case stepOK:
			out := &TextOutcome{Result: res.value, Provider: name}
			if i > 0 {
				out.Provider += models.FallbackMarker
				out.Fallback = true
			}
			return out, nil
		case stepFail:
			return nil, failure(res.err)
		}

		lastErr = res.err
		if i+1 < len(chain) {
			d.metrics.ObserveFallback("text", name, chain[i+1])
			d.logger.Info("Falling back to secondary text provider",
				zap.String("from", name),
				zap.String("to", chain[i+1]))
		}
	}

	return nil, fmt.Errorf("%w: %w", apperrors.ErrGenerationFailed, lastErr)
}

// imagePlan is the entitlement-checked form of an image dispatch.
type imagePlan struct {
	useAlternate   bool
	resolution     models.Resolution
	model          string
	tierRestricted bool
	notes          []string
}

// planImage resolves provider and resolution against the entitlement. Gated
// choices are downgraded, never rejected.
func planImage(d ImageDispatch, alternateConfigured bool) imagePlan {
	ent := d.Entitlement
	plan := imagePlan{model: d.Request.Model}

	wantsAlternate := d.Provider == llm.ProviderFreepik || (d.Provider == "" && d.Request.Model != "")
	switch {
	case d.Provider == llm.ProviderGemini:
		plan.model = ""
	case !ent.FreepikAllowed:
		if wantsAlternate {
			plan.tierRestricted = true
			plan.notes = append(plan.notes, fmt.Sprintf("%s tier does not include Freepik; generated with Gemini", ent.Tier))
		}
		plan.model = ""
	case !alternateConfigured:
		if wantsAlternate {
			plan.notes = append(plan.notes, "Freepik is not configured; generated with Gemini")
		}
		plan.model = ""
	default:
		plan.useAlternate = true
	}

	var capped bool
	plan.resolution, capped = CappedResolution(models.Resolution(d.Request.Resolution), ent)
	if capped {
		plan.tierRestricted = true
		plan.notes = append(plan.notes, fmt.Sprintf("%s tier allows up to %s; generated at %s", ent.Tier, ent.MaxResolution, ent.MaxResolution))
	}
	return plan
}

// CappedResolution returns r limited to the entitlement, and whether it had
// to be lowered. Unknown or empty values resolve to 1k.
func CappedResolution(r models.Resolution, ent models.Entitlement) (models.Resolution, bool) {
	if !r.Valid() {
		r = models.Resolution1K
	}
	if !ent.AllowsResolution(r) {
		return ent.MaxResolution, true
	}
	return r, false
}

func (d *dispatcher) GenerateImage(ctx context.Context, in ImageDispatch) (*ImageOutcome, error) {
	plan := planImage(in, d.providers.AlternateImage != nil)
	if plan.tierRestricted {
		d.metrics.ObserveTierRestriction()
		d.logger.Info("Image request downgraded by entitlement",
			zap.String("tier", string(in.Entitlement.Tier)),
			zap.Strings("notes", plan.notes))
	}

	req := in.Request
	req.Resolution = string(plan.resolution)
	req.Model = plan.model

	out := &ImageOutcome{
		Resolution:     plan.resolution,
		TierRestricted: plan.tierRestricted,
		Notes:          plan.notes,
	}

	if plan.useAlternate {
		alt := d.providers.AlternateImage
		res := callProvider(ctx, d, "image", alt.Name(), 0, func(ctx context.Context) (*llm.ImageResult, error) {
			return alt.GenerateImage(ctx, req)
		})
		switch res.next {
		case stepOK:
			out.Result = res.value
			out.Provider = alt.Name()
			return out, nil
		case stepFail:
			return nil, failure(res.err)
		}

		if d.providers.Image == nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrGenerationFailed, res.err)
		}
		d.metrics.ObserveFallback("image", alt.Name(), d.providers.Image.Name())
		d.logger.Info("Falling back to default image provider",
			zap.String("from", alt.Name()),
			zap.String("to", d.providers.Image.Name()))
		out.Fallback = true
		req.Model = ""
	}

	def := d.providers.Image
	if def == nil {
		return nil, fmt.Errorf("%w: no image provider has credentials", apperrors.ErrProviderNotConfigured)
	}
	res := callProvider(ctx, d, "image", def.Name(), d.cfg.MaxRetries, func(ctx context.Context) (*llm.ImageResult, error) {
		return def.GenerateImage(ctx, req)
	})
	if res.next != stepOK {
		return nil, failure(res.err)
	}

	out.Result = res.value
	out.Provider = def.Name()
	if out.Fallback {
		out.Provider += models.FallbackMarker
	}
	return out, nil
}

func (d *dispatcher) GenerateVideo(ctx context.Context, req llm.VideoRequest, ent models.Entitlement) (*VideoOutcome, error) {
	if !ent.VideoAllowed {
		return nil, fmt.Errorf("%w: %s tier does not include video generation", apperrors.ErrUpgradeRequired, ent.Tier)
	}
	provider := d.providers.Video
	if provider == nil {
		return nil, fmt.Errorf("%w: no video provider has credentials", apperrors.ErrProviderNotConfigured)
	}

	res := callProvider(ctx, d, "video", provider.Name(), d.cfg.MaxRetries, func(ctx context.Context) (*llm.VideoResult, error) {
		return provider.GenerateVideo(ctx, req)
	})
	if res.next != stepOK {
		return nil, failure(res.err)
	}
	return &VideoOutcome{Result: res.value, Provider: provider.Name()}, nil
}

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lumenbrand/lumen-engine/pkg/apperrors"
	"github.com/lumenbrand/lumen-engine/pkg/llm"
	"github.com/lumenbrand/lumen-engine/pkg/models"
)

func testDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		ProviderTimeout:   time.Second,
		MaxRetries:        2,
		RetryInitialDelay: time.Millisecond,
		TextPrimary:       llm.ProviderAnthropic,
	}
}

func failingText(err error) *llm.MockTextProvider {
	return &llm.MockTextProvider{
		GenerateTextFunc: func(context.Context, llm.TextRequest) (*llm.TextResult, error) { return nil, err },
	}
}

func failingImage(name string, err error) *llm.MockImageProvider {
	return &llm.MockImageProvider{
		NameValue:         name,
		GenerateImageFunc: func(context.Context, llm.ImageRequest) (*llm.ImageResult, error) { return nil, err },
	}
}

func transient(provider string) error {
	return llm.NewError(llm.ErrorTypeTransient, provider, "upstream 503", nil)
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		attempt int
		want    step
	}{
		{"success", nil, 0, stepOK},
		{"transient with retries left", transient("a"), 0, stepRetry},
		{"transient exhausted", transient("a"), 2, stepFallback},
		{"timeout with retries left", llm.NewError(llm.ErrorTypeTimeout, "a", "slow", context.DeadlineExceeded), 1, stepRetry},
		{"quota", llm.NewError(llm.ErrorTypeQuota, "a", "credit balance too low", nil), 0, stepFallback},
		{"auth", llm.NewError(llm.ErrorTypeAuth, "a", "bad key", nil), 0, stepFallback},
		{"config", llm.NotConfigured("a"), 0, stepFail},
		{"canceled", context.Canceled, 0, stepFail},
		{"unclassified", errors.New("boom"), 0, stepFallback},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decide(tt.err, tt.attempt, 2); got != tt.want {
				t.Errorf("decide() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDispatcher_TextTransientRetriesThenFallsBack(t *testing.T) {
	primary := failingText(transient(llm.ProviderAnthropic))
	secondary := &llm.MockTextProvider{}
	d := NewDispatcher(Providers{Text: map[string]llm.TextProvider{
		llm.ProviderAnthropic: primary,
		llm.ProviderGemini:    secondary,
	}}, testDispatcherConfig(), nil, zap.NewNop())

	out, err := d.GenerateText(context.Background(), llm.TextRequest{Prompt: "p"}, "")

	require.NoError(t, err)
	assert.Equal(t, 3, primary.Calls())
	assert.Equal(t, 1, secondary.Calls())
	assert.Equal(t, "gemini (fallback)", out.Provider)
	assert.True(t, out.Fallback)
	assert.Equal(t, "mock copy", out.Result.Text)
}

func TestDispatcher_TextQuotaSkipsRetries(t *testing.T) {
	primary := failingText(llm.NewError(llm.ErrorTypeQuota, llm.ProviderAnthropic, "rate limit", nil))
	secondary := &llm.MockTextProvider{}
	d := NewDispatcher(Providers{Text: map[string]llm.TextProvider{
		llm.ProviderAnthropic: primary,
		llm.ProviderOpenAI:    secondary,
	}}, testDispatcherConfig(), nil, zap.NewNop())

	out, err := d.GenerateText(context.Background(), llm.TextRequest{}, "")

	require.NoError(t, err)
	assert.Equal(t, 1, primary.Calls())
	assert.Equal(t, "openai (fallback)", out.Provider)
}

func TestDispatcher_TextPreferredProviderFirst(t *testing.T) {
	anthropic := &llm.MockTextProvider{}
	gemini := &llm.MockTextProvider{}
	d := NewDispatcher(Providers{Text: map[string]llm.TextProvider{
		llm.ProviderAnthropic: anthropic,
		llm.ProviderGemini:    gemini,
	}}, testDispatcherConfig(), nil, zap.NewNop())

	out, err := d.GenerateText(context.Background(), llm.TextRequest{}, llm.ProviderGemini)

	require.NoError(t, err)
	assert.Equal(t, llm.ProviderGemini, out.Provider)
	assert.False(t, out.Fallback)
	assert.Equal(t, 0, anthropic.Calls())
}

func TestDispatcher_TextConfigErrorIsFatal(t *testing.T) {
	primary := failingText(llm.NotConfigured(llm.ProviderAnthropic))
	secondary := &llm.MockTextProvider{}
	d := NewDispatcher(Providers{Text: map[string]llm.TextProvider{
		llm.ProviderAnthropic: primary,
		llm.ProviderGemini:    secondary,
	}}, testDispatcherConfig(), nil, zap.NewNop())

	_, err := d.GenerateText(context.Background(), llm.TextRequest{}, "")

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrProviderNotConfigured))
	assert.Equal(t, 0, secondary.Calls())
}

func TestDispatcher_TextChainExhausted(t *testing.T) {
	d := NewDispatcher(Providers{Text: map[string]llm.TextProvider{
		llm.ProviderAnthropic: failingText(transient(llm.ProviderAnthropic)),
		llm.ProviderGemini:    failingText(llm.NewError(llm.ErrorTypeAuth, llm.ProviderGemini, "invalid key", nil)),
	}}, testDispatcherConfig(), nil, zap.NewNop())

	_, err := d.GenerateText(context.Background(), llm.TextRequest{}, "")

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrGenerationFailed))
	assert.Equal(t, llm.ErrorTypeAuth, llm.GetErrorType(err))
}

func TestDispatcher_TextNoProviders(t *testing.T) {
	d := NewDispatcher(Providers{}, testDispatcherConfig(), nil, zap.NewNop())

	_, err := d.GenerateText(context.Background(), llm.TextRequest{}, "")

	assert.True(t, errors.Is(err, apperrors.ErrProviderNotConfigured))
}

func TestDispatcher_TextTimeoutFallsBack(t *testing.T) {
	slow := &llm.MockTextProvider{
		GenerateTextFunc: func(ctx context.Context, _ llm.TextRequest) (*llm.TextResult, error) {
			<-ctx.Done()
			return &llm.TextResult{Text: "late"}, nil
		},
	}
	fast := &llm.MockTextProvider{}
	cfg := testDispatcherConfig()
	cfg.ProviderTimeout = 20 * time.Millisecond
	cfg.MaxRetries = 0
	d := NewDispatcher(Providers{Text: map[string]llm.TextProvider{
		llm.ProviderAnthropic: slow,
		llm.ProviderGemini:    fast,
	}}, cfg, nil, zap.NewNop())

	out, err := d.GenerateText(context.Background(), llm.TextRequest{}, "")

	require.NoError(t, err)
	assert.Equal(t, "mock copy", out.Result.Text)
	assert.Equal(t, "gemini (fallback)", out.Provider)
}

func TestDispatcher_ImageEssentialsDowngrade(t *testing.T) {
	gemini := &llm.MockImageProvider{NameValue: llm.ProviderGemini}
	freepik := &llm.MockImageProvider{NameValue: llm.ProviderFreepik}
	d := NewDispatcher(Providers{Image: gemini, AlternateImage: freepik}, testDispatcherConfig(), nil, zap.NewNop())

	out, err := d.GenerateImage(context.Background(), ImageDispatch{
		Request:     llm.ImageRequest{Prompt: "p", Model: "mystic", Resolution: "4k"},
		Entitlement: models.ResolveEntitlement(&models.Subscription{Tier: models.TierEssentials}, false),
	})

	require.NoError(t, err)
	assert.Equal(t, 0, freepik.Calls())
	require.Equal(t, 1, gemini.Calls())
	assert.Equal(t, "1k", gemini.Requests[0].Resolution)
	assert.Empty(t, gemini.Requests[0].Model)
	assert.Equal(t, llm.ProviderGemini, out.Provider)
	assert.Equal(t, models.Resolution1K, out.Resolution)
	assert.True(t, out.TierRestricted)
	assert.Len(t, out.Notes, 2)
}

func TestDispatcher_ImageStudioCapsResolution(t *testing.T) {
	gemini := &llm.MockImageProvider{NameValue: llm.ProviderGemini}
	freepik := &llm.MockImageProvider{NameValue: llm.ProviderFreepik}
	d := NewDispatcher(Providers{Image: gemini, AlternateImage: freepik}, testDispatcherConfig(), nil, zap.NewNop())

	out, err := d.GenerateImage(context.Background(), ImageDispatch{
		Request:     llm.ImageRequest{Model: "mystic", Resolution: "4k"},
		Entitlement: models.ResolveEntitlement(&models.Subscription{Tier: models.TierStudio}, false),
	})

	require.NoError(t, err)
	assert.Equal(t, llm.ProviderFreepik, out.Provider)
	assert.Equal(t, models.Resolution2K, out.Resolution)
	assert.True(t, out.TierRestricted)
	require.Equal(t, 1, freepik.Calls())
	assert.Equal(t, "mystic", freepik.Requests[0].Model)
	assert.Equal(t, 0, gemini.Calls())
}

func TestDispatcher_ImageAlternateFailsOnceThenDefault(t *testing.T) {
	gemini := &llm.MockImageProvider{NameValue: llm.ProviderGemini}
	freepik := failingImage(llm.ProviderFreepik, transient(llm.ProviderFreepik))
	d := NewDispatcher(Providers{Image: gemini, AlternateImage: freepik}, testDispatcherConfig(), nil, zap.NewNop())

	out, err := d.GenerateImage(context.Background(), ImageDispatch{
		Provider:    llm.ProviderFreepik,
		Entitlement: models.ResolveEntitlement(nil, true),
	})

	require.NoError(t, err)
	assert.Equal(t, 1, freepik.Calls())
	assert.Equal(t, 1, gemini.Calls())
	assert.Equal(t, "gemini (fallback)", out.Provider)
	assert.False(t, out.TierRestricted)
}

func TestDispatcher_ImageDefaultFailureSurfaces(t *testing.T) {
	gemini := failingImage(llm.ProviderGemini, llm.NewError(llm.ErrorTypeQuota, llm.ProviderGemini, "quota", nil))
	d := NewDispatcher(Providers{Image: gemini}, testDispatcherConfig(), nil, zap.NewNop())

	_, err := d.GenerateImage(context.Background(), ImageDispatch{
		Entitlement: models.ResolveEntitlement(nil, false),
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrGenerationFailed))
	assert.Equal(t, 1, gemini.Calls())
}

func TestDispatcher_ImageNoProvider(t *testing.T) {
	d := NewDispatcher(Providers{}, testDispatcherConfig(), nil, zap.NewNop())

	_, err := d.GenerateImage(context.Background(), ImageDispatch{})

	assert.True(t, errors.Is(err, apperrors.ErrProviderNotConfigured))
}

func TestDispatcher_Video(t *testing.T) {
	video := &llm.MockVideoProvider{NameValue: llm.ProviderFreepik}
	d := NewDispatcher(Providers{Video: video}, testDispatcherConfig(), nil, zap.NewNop())

	_, err := d.GenerateVideo(context.Background(), llm.VideoRequest{ImageURL: "https://x/a.png"},
		models.ResolveEntitlement(&models.Subscription{Tier: models.TierStudio}, false))
	assert.True(t, errors.Is(err, apperrors.ErrUpgradeRequired))
	assert.Equal(t, 0, video.Calls())

	out, err := d.GenerateVideo(context.Background(), llm.VideoRequest{ImageURL: "https://x/a.png"},
		models.ResolveEntitlement(&models.Subscription{Tier: models.TierSignature}, false))
	require.NoError(t, err)
	assert.Equal(t, llm.ProviderFreepik, out.Provider)

	none := NewDispatcher(Providers{}, testDispatcherConfig(), nil, zap.NewNop())
	_, err = none.GenerateVideo(context.Background(), llm.VideoRequest{}, models.ResolveEntitlement(nil, true))
	assert.True(t, errors.Is(err, apperrors.ErrProviderNotConfigured))
}

package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lumenbrand/lumen-engine/pkg/apperrors"
	"github.com/lumenbrand/lumen-engine/pkg/llm"
	"github.com/lumenbrand/lumen-engine/pkg/models"
	"github.com/lumenbrand/lumen-engine/pkg/refimages"
)

type copyFixture struct {
	svc         CopyGenerationService
	generations *fakeGenerationRepo
	primary     *llm.MockTextProvider
	secondary   *llm.MockTextProvider
}

func newCopyFixture(t *testing.T, primaryErr error) *copyFixture {
	t.Helper()
	f := &copyFixture{
		generations: &fakeGenerationRepo{},
		primary:     &llm.MockTextProvider{},
		secondary: &llm.MockTextProvider{GenerateTextFunc: func(context.Context, llm.TextRequest) (*llm.TextResult, error) {
			return &llm.TextResult{Text: "Ember burns slow. Buy it cheap."}, nil
		}},
	}
	if primaryErr != nil {
		f.primary.GenerateTextFunc = func(context.Context, llm.TextRequest) (*llm.TextResult, error) { return nil, primaryErr }
	}
	knowledge := &fakeKnowledgeRepo{byType: map[models.KnowledgeType][]*models.KnowledgeFragment{
		models.KnowledgeTypeVocabulary: {fragment(models.KnowledgeTypeVocabulary, 1, `{"forbidden":["cheap"]}`)},
	}}
	dispatcher := NewDispatcher(Providers{Text: map[string]llm.TextProvider{
		llm.ProviderAnthropic: f.primary,
		llm.ProviderGemini:    f.secondary,
	}}, testDispatcherConfig(), nil, zap.NewNop())

	f.svc = NewCopyGenerationService(
		NewKnowledgeAccessor(knowledge, &fakeProductRepo{}, nil, zap.NewNop()),
		NewMasterLoader(&fakeMasterRepo{err: errors.New("masters unavailable")}, zap.NewNop()),
		dispatcher,
		f.generations,
		nil, nil, zap.NewNop(),
	)
	return f
}

func TestCopyGeneration_FallbackIsRecorded(t *testing.T) {
	f := newCopyFixture(t, llm.NewError(llm.ErrorTypeTransient, llm.ProviderAnthropic, "overloaded", nil))
	orgID := uuid.New()

	res, err := f.svc.Generate(context.Background(), orgID, CopyRequest{
		Brief: "Write an urgent limited-time launch announcement",
	})

	require.NoError(t, err)
	require.Len(t, f.generations.generations, 1)
	g := f.generations.generations[0]
	assert.Equal(t, "gemini (fallback)", g.GenerationProvider)
	assert.Equal(t, models.MediaKindText, g.MediaKind)
	assert.True(t, g.IsChainOrigin)
	assert.Equal(t, 0, g.ChainDepth)
	require.NotNil(t, g.Squad)
	assert.Equal(t, string(models.SquadDisruptors), *g.Squad)
	require.NotNil(t, g.AwarenessStage)
	assert.Equal(t, string(models.StageSolutionAware), *g.AwarenessStage)
	assert.Equal(t, models.SquadDisruptors, res.Strategy.CopySquad)
	require.NotNil(t, g.GeneratedText)
	assert.NotContains(t, strings.ToLower(*g.GeneratedText), "cheap")
	assert.Equal(t, 3, f.primary.Calls())
}

func TestCopyGeneration_RequiresBrief(t *testing.T) {
	f := newCopyFixture(t, nil)

	_, err := f.svc.Generate(context.Background(), uuid.New(), CopyRequest{Brief: "   "})

	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	assert.Equal(t, 0, f.primary.Calls())
}

func TestCopyGeneration_ProviderFailureStoresNothing(t *testing.T) {
	f := newCopyFixture(t, llm.NewError(llm.ErrorTypeAuth, llm.ProviderAnthropic, "invalid key", nil))
	f.secondary.GenerateTextFunc = func(context.Context, llm.TextRequest) (*llm.TextResult, error) {
		return nil, llm.NewError(llm.ErrorTypeQuota, llm.ProviderGemini, "quota", nil)
	}

	_, err := f.svc.Generate(context.Background(), uuid.New(), CopyRequest{Brief: "a story about cedar"})

	assert.True(t, errors.Is(err, apperrors.ErrGenerationFailed))
	assert.Empty(t, f.generations.generations)
}

// staticFetcher serves a fixed PNG for every URL and records what it fetched.
type staticFetcher struct {
	urls chan string
}

func (f *staticFetcher) Fetch(_ context.Context, rawURL string) ([]byte, string, error) {
	f.urls <- rawURL
	return []byte{0x89, 'P', 'N', 'G'}, "image/png", nil
}

type imageFixture struct {
	svc         ImageGenerationService
	generations *fakeGenerationRepo
	media       *fakeMediaRepo
	gemini      *llm.MockImageProvider
	freepik     *llm.MockImageProvider
	fetched     chan string
}

func newImageFixture(tier models.Tier) *imageFixture {
	f := &imageFixture{
		generations: &fakeGenerationRepo{},
		media:       &fakeMediaRepo{},
		gemini:      &llm.MockImageProvider{NameValue: llm.ProviderGemini},
		freepik: &llm.MockImageProvider{
			NameValue: llm.ProviderFreepik,
			GenerateImageFunc: func(context.Context, llm.ImageRequest) (*llm.ImageResult, error) {
				return &llm.ImageResult{URL: "https://cdn.freepik.example/a.png", TaskID: "t1"}, nil
			},
		},
		fetched: make(chan string, 16),
	}
	dispatcher := NewDispatcher(Providers{Image: f.gemini, AlternateImage: f.freepik}, testDispatcherConfig(), nil, zap.NewNop())
	materializer := refimages.NewMaterializer(refimages.MaterializerConfig{FetchTimeout: time.Second}, &staticFetcher{urls: f.fetched}, nil, nil, zap.NewNop())

	f.svc = NewImageGenerationService(ImageGenerationDeps{
		Knowledge:     NewKnowledgeAccessor(&fakeKnowledgeRepo{}, &fakeProductRepo{}, nil, zap.NewNop()),
		Materializer:  materializer,
		Dispatcher:    dispatcher,
		Generations:   f.generations,
		Media:         f.media,
		Subscriptions: &fakeSubscriptionRepo{sub: &models.Subscription{Tier: tier, Status: "active"}},
		BaseURL:       "https://app.example.com/",
	}, zap.NewNop())
	return f
}

func TestImageGeneration_EssentialsDowngradeStillSucceeds(t *testing.T) {
	f := newImageFixture(models.TierEssentials)
	orgID := uuid.New()

	res, err := f.svc.Generate(context.Background(), orgID, ImageRequest{
		Intent:       "a studio shot of a candle",
		FreepikModel: "mystic",
		Resolution:   "4k",
	})

	require.NoError(t, err)
	assert.True(t, res.TierRestricted)
	assert.NotEmpty(t, res.Notes)
	assert.Equal(t, 0, f.freepik.Calls())
	require.Equal(t, 1, f.gemini.Calls())
	assert.Contains(t, f.gemini.Requests[0].Prompt, "Resolution: 1K")

	g := res.Generation
	assert.True(t, g.TierRestricted)
	assert.Equal(t, llm.ProviderGemini, g.GenerationProvider)
	require.NotNil(t, g.Resolution)
	assert.Equal(t, "1k", *g.Resolution)
	require.Len(t, f.media.assets, 1)
	assert.Equal(t, "https://app.example.com/api/media/"+f.media.assets[0].ID.String(), *g.ImageURL)
	require.NotNil(t, g.LibraryCategory)
	assert.Equal(t, models.LibraryProductShot, *g.LibraryCategory)
}

func TestImageGeneration_RefinementChain(t *testing.T) {
	f := newImageFixture(models.TierSignature)
	orgID := uuid.New()

	root, err := f.svc.Generate(context.Background(), orgID, ImageRequest{
		Intent: "a studio shot of a candle with a marble background",
	})
	require.NoError(t, err)
	assert.Equal(t, llm.ProviderFreepik, root.Generation.GenerationProvider)
	assert.Equal(t, "https://cdn.freepik.example/a.png", *root.Generation.ImageURL)

	child, err := f.svc.Generate(context.Background(), orgID, ImageRequest{
		ParentID:   &root.Generation.ID,
		Refinement: "remove the marble background",
	})
	require.NoError(t, err)

	grandchild, err := f.svc.Generate(context.Background(), orgID, ImageRequest{
		ParentID:   &child.Generation.ID,
		Refinement: "warmer light",
	})
	require.NoError(t, err)

	chain := []*models.Generation{root.Generation, child.Generation, grandchild.Generation}
	origins := 0
	for i, g := range chain {
		if g.IsChainOrigin {
			origins++
		}
		if i > 0 {
			require.NotNil(t, g.ParentID)
			assert.Equal(t, chain[i-1].ID, *g.ParentID)
			assert.Equal(t, chain[i-1].ChainDepth+1, g.ChainDepth)
		}
	}
	assert.Equal(t, 1, origins)
	assert.Equal(t, "a studio shot of a candle. Remove the marble background.", child.Generation.Prompt)

	require.Equal(t, 3, f.freepik.Calls())
	refs := f.freepik.Requests[1].References
	require.Len(t, refs, 1)
	assert.Equal(t, models.PreviousIterationLabel, refs[0].Label)
	assert.Equal(t, "https://cdn.freepik.example/a.png", <-f.fetched)
}

func TestImageGeneration_ParentMustBeImage(t *testing.T) {
	f := newImageFixture(models.TierStudio)
	orgID := uuid.New()
	text := &models.Generation{OrganizationID: orgID, MediaKind: models.MediaKindText}
	require.NoError(t, f.generations.Create(context.Background(), text))

	_, err := f.svc.Generate(context.Background(), orgID, ImageRequest{ParentID: &text.ID, Refinement: "darker"})

	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestVideoGeneration(t *testing.T) {
	generations := &fakeGenerationRepo{}
	video := &llm.MockVideoProvider{NameValue: llm.ProviderFreepik}
	dispatcher := NewDispatcher(Providers{Video: video}, testDispatcherConfig(), nil, zap.NewNop())
	orgID := uuid.New()

	parentURL := "https://cdn.example.com/still.png"
	parent := &models.Generation{OrganizationID: orgID, MediaKind: models.MediaKindImage, ImageURL: &parentURL}
	parent.SetLineage(nil)
	require.NoError(t, generations.Create(context.Background(), parent))

	studio := NewVideoGenerationService(dispatcher, generations, &fakeSubscriptionRepo{sub: &models.Subscription{Tier: models.TierStudio}}, nil, zap.NewNop())
	_, err := studio.Generate(context.Background(), orgID, VideoRequest{ParentID: &parent.ID, Prompt: "slow push in"})
	assert.True(t, errors.Is(err, apperrors.ErrUpgradeRequired))

	admin := NewVideoGenerationService(dispatcher, generations, &fakeSubscriptionRepo{}, nil, zap.NewNop())
	g, err := admin.Generate(context.Background(), orgID, VideoRequest{ParentID: &parent.ID, Prompt: "slow push in", SuperAdmin: true})
	require.NoError(t, err)
	assert.Equal(t, models.MediaKindVideo, g.MediaKind)
	assert.Equal(t, 1, g.ChainDepth)
	require.Len(t, video.Requests, 1)
	assert.Equal(t, parentURL, video.Requests[0].ImageURL)
	assert.Equal(t, defaultVideoSeconds, video.Requests[0].DurationSecs)

	_, err = admin.Generate(context.Background(), orgID, VideoRequest{Prompt: "no source", SuperAdmin: true})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

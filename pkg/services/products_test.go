package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lumenbrand/lumen-engine/pkg/apperrors"
	"github.com/lumenbrand/lumen-engine/pkg/models"
)

func TestResolveHeader(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Handle", "handle", true},
		{"\ufeffHandle", "handle", true},
		{"Handles", "handle", true},
		{"Title", "name", true},
		{"Variant Price", "price", true},
		{"Image Src", "image_url", true},
		{"In Stock", "in_stock", true},
		{"Top Note", "top_notes", true},
		{"Body (HTML)", "description", true},
		{"Colour", "", false},
		{"  ", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, ok := resolveHeader(tt.header)
			if got != tt.want || ok != tt.ok {
				t.Errorf("resolveHeader(%q) = %q, %v; want %q, %v", tt.header, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want *float64
	}{
		{"48", ptrFloat(48)},
		{"$1,048.50", ptrFloat(1048.5)},
		{"€12", ptrFloat(12)},
		{"n/a", nil},
		{"", nil},
	}
	for _, tt := range tests {
		got := parsePrice(tt.in)
		if tt.want == nil {
			assert.Nil(t, got, tt.in)
			continue
		}
		require.NotNil(t, got, tt.in)
		assert.InDelta(t, *tt.want, *got, 0.0001, tt.in)
	}
}

func ptrFloat(f float64) *float64 { return &f }

func TestProductService_ImportCSV(t *testing.T) {
	repo := &fakeProductRepo{}
	svc := NewProductService(repo, zap.NewNop())
	orgID := uuid.New()

	input := strings.Join([]string{
		"Handle,Title,Variant Price,In Stock,Colour,Top Note",
		`ember,Ember Candle,"$1,048.00",yes,red,smoke`,
		",Cedar Mist,n/a,Y,,cedar",
		",,12,yes,,",
		",,,,,",
		"ember,,50,,,",
	}, "\n")

	report, err := svc.ImportCSV(context.Background(), orgID, strings.NewReader(input))

	require.NoError(t, err)
	assert.Equal(t, 4, report.Rows)
	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, []string{"Colour"}, report.IgnoredHeaders)
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, "line 4: missing handle and name", report.Warnings[0])

	require.Len(t, repo.products, 2)
	ember := repo.products[0]
	assert.Equal(t, "ember", ember.Handle)
	assert.Equal(t, orgID, ember.OrganizationID)
	assert.Equal(t, "Ember Candle", ember.Field("name"))
	assert.Equal(t, "smoke", ember.Field("top_notes"))
	require.NotNil(t, ember.Price)
	assert.InDelta(t, 50.0, *ember.Price, 0.0001)
	require.NotNil(t, ember.InStock)
	assert.True(t, *ember.InStock)

	cedar := repo.products[1]
	assert.Equal(t, "cedar-mist", cedar.Handle)
	assert.Nil(t, cedar.Price)
	require.NotNil(t, cedar.InStock)
	assert.False(t, *cedar.InStock)
}

func TestProductService_ImportCSVRejectsUnusableInput(t *testing.T) {
	svc := NewProductService(&fakeProductRepo{}, zap.NewNop())

	for name, input := range map[string]string{
		"empty":          "",
		"no key columns": "Colour,Size\nred,large\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ImportCSV(context.Background(), uuid.New(), strings.NewReader(input))
			if !errors.Is(err, apperrors.ErrInvalidInput) {
				t.Errorf("ImportCSV() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestProductService_CreateDerivesHandle(t *testing.T) {
	repo := &fakeProductRepo{}
	svc := NewProductService(repo, zap.NewNop())
	orgID := uuid.New()

	name := "Midnight Oudh 50ml"
	p := &models.Product{Name: &name}
	require.NoError(t, svc.Create(context.Background(), orgID, p))
	assert.Equal(t, "midnight-oudh-50ml", p.Handle)
	assert.Equal(t, orgID, p.OrganizationID)

	err := svc.Create(context.Background(), orgID, &models.Product{Handle: "  "})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestProductService_MergeDuplicates(t *testing.T) {
	repo := &fakeProductRepo{}
	svc := NewProductService(repo, zap.NewNop())
	orgID := uuid.New()
	ctx := context.Background()

	name, oldDesc, newDesc := "Ember", "old description", "new description"
	price := 40.0
	oldest := &models.Product{OrganizationID: orgID, Handle: "ember", Name: &name}
	middle := &models.Product{OrganizationID: orgID, Handle: "ember", Description: &oldDesc, Price: &price}
	newest := &models.Product{OrganizationID: orgID, Handle: "ember", Description: &newDesc}
	single := &models.Product{OrganizationID: orgID, Handle: "cedar"}
	for _, p := range []*models.Product{oldest, middle, newest, single} {
		require.NoError(t, repo.Create(ctx, p))
	}

	report, err := svc.MergeDuplicates(ctx, orgID)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Handles)
	assert.Equal(t, 2, report.Removed)
	assert.Equal(t, []uuid.UUID{newest.ID, middle.ID}, repo.merged[oldest.ID])

	require.Len(t, repo.products, 2)
	kept, err := repo.Get(ctx, orgID, oldest.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ember", kept.Field("name"))
	assert.Equal(t, newDesc, kept.Field("description"))
	require.NotNil(t, kept.Price)
	assert.InDelta(t, price, *kept.Price, 0.0001)
}

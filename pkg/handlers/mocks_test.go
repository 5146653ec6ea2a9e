package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/lumenbrand/lumen-engine/pkg/apperrors"
	"github.com/lumenbrand/lumen-engine/pkg/auth"
	"github.com/lumenbrand/lumen-engine/pkg/models"
	"github.com/lumenbrand/lumen-engine/pkg/repositories"
	"github.com/lumenbrand/lumen-engine/pkg/services"
)

// ============================================================================
// Service mocks
// ============================================================================

type mockCopyService struct {
	lastOrg uuid.UUID
	lastReq services.CopyRequest
	result  *services.CopyResult
	err     error
}

func (m *mockCopyService) Generate(_ context.Context, orgID uuid.UUID, req services.CopyRequest) (*services.CopyResult, error) {
	m.lastOrg, m.lastReq = orgID, req
	return m.result, m.err
}

type mockImageService struct {
	lastReq services.ImageRequest
	result  *services.ImageResult
	err     error
}

func (m *mockImageService) Generate(_ context.Context, _ uuid.UUID, req services.ImageRequest) (*services.ImageResult, error) {
	m.lastReq = req
	return m.result, m.err
}

type mockVideoService struct {
	lastReq services.VideoRequest
	result  *models.Generation
	err     error
}

func (m *mockVideoService) Generate(_ context.Context, _ uuid.UUID, req services.VideoRequest) (*models.Generation, error) {
	m.lastReq = req
	return m.result, m.err
}

type mockGenerationService struct {
	byID       map[uuid.UUID]*models.Generation
	chain      []*models.Generation
	list       []*models.Generation
	lastFilter repositories.GenerationFilter
	err        error
}

func (m *mockGenerationService) Get(_ context.Context, _, id uuid.UUID) (*models.Generation, error) {
	if m.err != nil {
		return nil, m.err
	}
	g, ok := m.byID[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return g, nil
}

func (m *mockGenerationService) GetChain(context.Context, uuid.UUID, uuid.UUID) ([]*models.Generation, error) {
	return m.chain, m.err
}

func (m *mockGenerationService) List(_ context.Context, _ uuid.UUID, filter repositories.GenerationFilter) ([]*models.Generation, error) {
	m.lastFilter = filter
	return m.list, m.err
}

type mockProductService struct {
	products    map[uuid.UUID]*models.Product
	lastFilter  repositories.ProductFilter
	lastCSV     string
	bulkDeleted []uuid.UUID
	importRep   *services.ImportReport
	mergeRep    *services.MergeReport
	err         error
}

func newMockProductService() *mockProductService {
	return &mockProductService{products: map[uuid.UUID]*models.Product{}}
}

func (m *mockProductService) Create(_ context.Context, orgID uuid.UUID, p *models.Product) error {
	if m.err != nil {
		return m.err
	}
	p.ID = uuid.New()
	p.OrganizationID = orgID
	m.products[p.ID] = p
	return nil
}

func (m *mockProductService) Get(_ context.Context, _, id uuid.UUID) (*models.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return p, nil
}

func (m *mockProductService) List(_ context.Context, _ uuid.UUID, filter repositories.ProductFilter) ([]*models.Product, error) {
	m.lastFilter = filter
	if m.err != nil {
		return nil, m.err
	}
	var out []*models.Product
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockProductService) Update(_ context.Context, orgID, id uuid.UUID, p *models.Product) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.products[id]; !ok {
		return apperrors.ErrNotFound
	}
	p.ID = id
	p.OrganizationID = orgID
	m.products[id] = p
	return nil
}

func (m *mockProductService) Delete(_ context.Context, _, id uuid.UUID) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.products[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductService) BulkDelete(_ context.Context, _ uuid.UUID, ids []uuid.UUID) (int64, error) {
	m.bulkDeleted = ids
	return int64(len(ids)), m.err
}

func (m *mockProductService) ImportCSV(_ context.Context, _ uuid.UUID, r io.Reader) (*services.ImportReport, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	m.lastCSV = string(b)
	return m.importRep, m.err
}

func (m *mockProductService) MergeDuplicates(context.Context, uuid.UUID) (*services.MergeReport, error) {
	return m.mergeRep, m.err
}

type mockKnowledgeService struct {
	active      []*models.KnowledgeFragment
	history     []*models.KnowledgeFragment
	historyType models.KnowledgeType
	saved       *models.KnowledgeFragment
	deleted     uuid.UUID
	err         error
}

func (m *mockKnowledgeService) Save(_ context.Context, orgID uuid.UUID, kt models.KnowledgeType, content json.RawMessage, source string) (*models.KnowledgeFragment, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.saved = &models.KnowledgeFragment{
		ID:             uuid.New(),
		OrganizationID: orgID,
		KnowledgeType:  kt,
		Content:        content,
		IsActive:       true,
		Version:        1,
		Source:         source,
		CreatedAt:      time.Now(),
	}
	return m.saved, nil
}

func (m *mockKnowledgeService) ListActive(context.Context, uuid.UUID) ([]*models.KnowledgeFragment, error) {
	return m.active, m.err
}

func (m *mockKnowledgeService) History(_ context.Context, _ uuid.UUID, kt models.KnowledgeType) ([]*models.KnowledgeFragment, error) {
	m.historyType = kt
	return m.history, m.err
}

func (m *mockKnowledgeService) Delete(_ context.Context, _, id uuid.UUID) error {
	m.deleted = id
	return m.err
}

type mockMediaRepository struct {
	assets map[uuid.UUID]*models.MediaAsset
}

func (m *mockMediaRepository) Create(_ context.Context, a *models.MediaAsset) error {
	m.assets[a.ID] = a
	return nil
}

func (m *mockMediaRepository) Get(_ context.Context, id uuid.UUID) (*models.MediaAsset, error) {
	a, ok := m.assets[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return a, nil
}

// mockAuthService accepts every request with fixed claims.
type mockAuthService struct {
	claims *auth.Claims
}

func (m *mockAuthService) ValidateRequest(*http.Request) (*auth.Claims, string, error) {
	return m.claims, "token", nil
}

func (m *mockAuthService) RequireOrganizationID(*auth.Claims) error { return nil }

func (m *mockAuthService) ValidateOrganizationMatch(claims *auth.Claims, orgID string) error {
	if claims.IsSuperAdmin() || claims.OrganizationID == orgID {
		return nil
	}
	return auth.ErrOrganizationMismatch
}

func passthroughTenant(next http.HandlerFunc) http.HandlerFunc { return next }

// ============================================================================
// Request helpers
// ============================================================================

// newRequest builds a request with the given path values already set, as the
// mux would after routing.
func newRequest(t *testing.T, method, target string, body any, pathValues map[string]string) *http.Request {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	for k, v := range pathValues {
		req.SetPathValue(k, v)
	}
	return req
}

// decodeData decodes an ApiResponse envelope and unmarshals its data into v.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	require.True(t, envelope.Success, "expected success envelope")
	if v != nil {
		require.NoError(t, json.Unmarshal(envelope.Data, v))
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

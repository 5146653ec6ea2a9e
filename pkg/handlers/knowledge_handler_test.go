package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumenbrand/lumen-engine/pkg/apperrors"
	"github.com/lumenbrand/lumen-engine/pkg/models"
)

func TestKnowledgeHandler_List(t *testing.T) {
	orgID := uuid.New()
	active := []*models.KnowledgeFragment{
		{ID: uuid.New(), KnowledgeType: models.KnowledgeTypeBrandVoice, Version: 3, IsActive: true},
		{ID: uuid.New(), KnowledgeType: models.KnowledgeTypeVocabulary, Version: 1, IsActive: true},
	}
	history := []*models.KnowledgeFragment{
		{ID: uuid.New(), KnowledgeType: models.KnowledgeTypeBrandVoice, Version: 3, IsActive: true},
		{ID: uuid.New(), KnowledgeType: models.KnowledgeTypeBrandVoice, Version: 2},
		{ID: uuid.New(), KnowledgeType: models.KnowledgeTypeBrandVoice, Version: 1},
	}

	tests := []struct {
		name      string
		query     string
		wantTotal int
		wantType  models.KnowledgeType
	}{
		{"active fragments", "", 2, ""},
		{"history of one type", "?type=brand_voice", 3, models.KnowledgeTypeBrandVoice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockKnowledgeService{active: active, history: history}
			h := NewKnowledgeHandler(svc, zap.NewNop())

			rec := httptest.NewRecorder()
			h.List(rec, newRequest(t, http.MethodGet, "/x"+tt.query, nil, map[string]string{"oid": orgID.String()}))

			if rec.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
			}
			var got KnowledgeListResponse
			decodeData(t, rec, &got)
			if got.Total != tt.wantTotal {
				t.Errorf("expected %d fragments, got %d", tt.wantTotal, got.Total)
			}
			if svc.historyType != tt.wantType {
				t.Errorf("expected history type %q, got %q", tt.wantType, svc.historyType)
			}
		})
	}
}

func TestKnowledgeHandler_Save(t *testing.T) {
	orgID := uuid.New()
	path := map[string]string{"oid": orgID.String()}

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantSource string
	}{
		{
			name:       "core type defaults to manual source",
			body:       map[string]any{"knowledge_type": "brand_voice", "content": map[string]any{"tone": "warm"}},
			wantStatus: http.StatusCreated,
			wantSource: "manual",
		},
		{
			name:       "category type keeps given source",
			body:       map[string]any{"knowledge_type": "category_candles", "content": map[string]any{"notes": "wax"}, "source": "document"},
			wantStatus: http.StatusCreated,
			wantSource: "document",
		},
		{
			name:       "unknown type",
			body:       map[string]any{"knowledge_type": "palette", "content": map[string]any{}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed body",
			body:       "{",
			wantStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockKnowledgeService{}
			h := NewKnowledgeHandler(svc, zap.NewNop())

			rec := httptest.NewRecorder()
			h.Save(rec, newRequest(t, http.MethodPost, "/x", tt.body, path))

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantStatus != http.StatusCreated {
				if svc.saved != nil {
					t.Error("expected nothing to be saved")
				}
				return
			}
			if svc.saved.Source != tt.wantSource {
				t.Errorf("expected source %q, got %q", tt.wantSource, svc.saved.Source)
			}
			if svc.saved.OrganizationID != orgID {
				t.Errorf("expected organization %s, got %s", orgID, svc.saved.OrganizationID)
			}
			if !json.Valid(svc.saved.Content) {
				t.Error("expected content to be passed through as JSON")
			}
		})
	}
}

func TestKnowledgeHandler_Delete(t *testing.T) {
	path := map[string]string{"oid": uuid.NewString(), "kid": uuid.NewString()}

	svc := &mockKnowledgeService{}
	h := NewKnowledgeHandler(svc, zap.NewNop())
	rec := httptest.NewRecorder()
	h.Delete(rec, newRequest(t, http.MethodDelete, "/x", nil, path))
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if svc.deleted.String() != path["kid"] {
		t.Errorf("expected %s to be deleted, got %s", path["kid"], svc.deleted)
	}

	svc = &mockKnowledgeService{err: apperrors.ErrNotFound}
	h = NewKnowledgeHandler(svc, zap.NewNop())
	rec = httptest.NewRecorder()
	h.Delete(rec, newRequest(t, http.MethodDelete, "/x", nil, path))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
}

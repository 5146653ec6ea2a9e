package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lumenbrand/lumen-engine/pkg/apperrors"
	"github.com/lumenbrand/lumen-engine/pkg/models"
	"github.com/lumenbrand/lumen-engine/pkg/repositories"
)

// fakeKnowledgeRepo serves fragments from memory; lists are newest first.
type fakeKnowledgeRepo struct {
	repositories.KnowledgeRepository

	mu         sync.Mutex
	byType     map[models.KnowledgeType][]*models.KnowledgeFragment
	categories []*models.KnowledgeFragment
	err        error
	inserted   []*models.KnowledgeFragment
}

func (r *fakeKnowledgeRepo) ListActiveByType(_ context.Context, _ uuid.UUID, kt models.KnowledgeType) ([]*models.KnowledgeFragment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return r.byType[kt], nil
}

func (r *fakeKnowledgeRepo) ListActiveCategories(context.Context, uuid.UUID) ([]*models.KnowledgeFragment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return r.categories, nil
}

func (r *fakeKnowledgeRepo) InsertVersion(_ context.Context, f *models.KnowledgeFragment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f.ID = uuid.New()
	f.Version = len(r.inserted) + 1
	f.IsActive = true
	r.inserted = append(r.inserted, f)
	return nil
}

// fakeProductRepo keeps products in insertion order.
type fakeProductRepo struct {
	mu       sync.Mutex
	products []*models.Product
	merged   map[uuid.UUID][]uuid.UUID
}

var _ repositories.ProductRepository = (*fakeProductRepo)(nil)

func (r *fakeProductRepo) Create(_ context.Context, p *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now().Add(time.Duration(len(r.products)) * time.Second)
	r.products = append(r.products, p)
	return nil
}

func (r *fakeProductRepo) Get(_ context.Context, orgID, id uuid.UUID) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.products {
		if p.ID == id && p.OrganizationID == orgID {
			return p, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeProductRepo) List(_ context.Context, orgID uuid.UUID, _ repositories.ProductFilter) ([]*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Product
	for _, p := range r.products {
		if p.OrganizationID == orgID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeProductRepo) Update(_ context.Context, p *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.products {
		if existing.ID == p.ID {
			r.products[i] = p
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (r *fakeProductRepo) Delete(_ context.Context, _ uuid.UUID, id uuid.UUID) error {
	_, err := r.BulkDelete(context.Background(), uuid.Nil, []uuid.UUID{id})
	return err
}

func (r *fakeProductRepo) BulkDelete(_ context.Context, _ uuid.UUID, ids []uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	kept := r.products[:0]
	for _, p := range r.products {
		remove := false
		for _, id := range ids {
			if p.ID == id {
				remove = true
			}
		}
		if remove {
			n++
			continue
		}
		kept = append(kept, p)
	}
	r.products = kept
	return n, nil
}

func (r *fakeProductRepo) UpsertByHandle(ctx context.Context, p *models.Product) (bool, error) {
	existing, _ := r.ListByHandle(ctx, p.OrganizationID, p.Handle)
	if len(existing) == 0 {
		return true, r.Create(ctx, p)
	}
	keep := existing[0]
	for _, name := range models.DescriptiveFieldNames() {
		if v := p.Field(name); v != "" {
			keep.SetField(name, v)
		}
	}
	if p.Price != nil {
		keep.Price = p.Price
	}
	if p.InStock != nil {
		keep.InStock = p.InStock
	}
	p.ID = keep.ID
	return false, nil
}

func (r *fakeProductRepo) ListByHandle(_ context.Context, orgID uuid.UUID, handle string) ([]*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Product
	for _, p := range r.products {
		if p.OrganizationID == orgID && p.Handle == handle {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeProductRepo) ListDuplicateHandles(_ context.Context, orgID uuid.UUID) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int)
	for _, p := range r.products {
		if p.OrganizationID == orgID {
			counts[p.Handle]++
		}
	}
	var out []string
	for h, n := range counts {
		if n > 1 {
			out = append(out, h)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *fakeProductRepo) MergeInto(ctx context.Context, keep *models.Product, removeIDs []uuid.UUID) error {
	if r.merged == nil {
		r.merged = make(map[uuid.UUID][]uuid.UUID)
	}
	r.merged[keep.ID] = removeIDs
	if err := r.Update(ctx, keep); err != nil {
		return err
	}
	_, err := r.BulkDelete(ctx, keep.OrganizationID, removeIDs)
	return err
}

type fakeMasterRepo struct {
	masters []*models.CopywriterMaster
	err     error
}

func (r *fakeMasterRepo) GetByNames(_ context.Context, names []string) ([]*models.CopywriterMaster, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []*models.CopywriterMaster
	for _, name := range names {
		for _, m := range r.masters {
			if m.Name == name {
				out = append(out, m)
			}
		}
	}
	return out, nil
}

func (r *fakeMasterRepo) List(context.Context) ([]*models.CopywriterMaster, error) {
	return r.masters, r.err
}

type fakeGenerationRepo struct {
	mu          sync.Mutex
	generations []*models.Generation
}

var _ repositories.GenerationRepository = (*fakeGenerationRepo)(nil)

func (r *fakeGenerationRepo) Create(_ context.Context, g *models.Generation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	r.generations = append(r.generations, g)
	return nil
}

func (r *fakeGenerationRepo) GetByID(_ context.Context, orgID, id uuid.UUID) (*models.Generation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.generations {
		if g.ID == id && g.OrganizationID == orgID {
			return g, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeGenerationRepo) GetChain(context.Context, uuid.UUID, uuid.UUID) ([]*models.Generation, error) {
	return nil, apperrors.ErrNotFound
}

func (r *fakeGenerationRepo) List(context.Context, uuid.UUID, repositories.GenerationFilter) ([]*models.Generation, error) {
	return r.generations, nil
}

type fakeSubscriptionRepo struct {
	sub *models.Subscription
}

func (r *fakeSubscriptionRepo) Get(context.Context, uuid.UUID) (*models.Subscription, error) {
	return r.sub, nil
}

func (r *fakeSubscriptionRepo) Upsert(_ context.Context, sub *models.Subscription) error {
	r.sub = sub
	return nil
}

type fakeMediaRepo struct {
	assets []*models.MediaAsset
}

func (r *fakeMediaRepo) Create(_ context.Context, asset *models.MediaAsset) error {
	asset.ID = uuid.New()
	r.assets = append(r.assets, asset)
	return nil
}

func (r *fakeMediaRepo) Get(_ context.Context, id uuid.UUID) (*models.MediaAsset, error) {
	for _, a := range r.assets {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

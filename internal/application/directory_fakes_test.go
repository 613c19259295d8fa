package application

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mindsettler/service-booking/internal/domain/corporate"
	"github.com/mindsettler/service-booking/internal/domain/provider"
)

type memoryProviders struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*provider.Provider
	err  error
}

func newMemoryProviders() *memoryProviders {
	return &memoryProviders{rows: make(map[uuid.UUID]*provider.Provider)}
}

func (r *memoryProviders) Save(_ context.Context, p *provider.Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[p.ID()] = p
	return nil
}

func (r *memoryProviders) Update(_ context.Context, p *provider.Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[p.ID()]; !ok {
		return provider.ErrNotFound
	}
	r.rows[p.ID()] = p
	return nil
}

func (r *memoryProviders) FindByID(_ context.Context, id uuid.UUID) (*provider.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	p, ok := r.rows[id]
	if !ok {
		return nil, provider.ErrNotFound
	}
	return p, nil
}

func (r *memoryProviders) List(_ context.Context, activeOnly bool) ([]*provider.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*provider.Provider
	for _, p := range r.rows {
		if activeOnly && !p.IsActive() {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName() < out[j].FullName() })
	return out, nil
}

type memoryCorporates struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*corporate.Corporate
}

func newMemoryCorporates() *memoryCorporates {
	return &memoryCorporates{rows: make(map[uuid.UUID]*corporate.Corporate)}
}

func (r *memoryCorporates) Save(_ context.Context, c *corporate.Corporate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[c.ID()] = c
	return nil
}

func (r *memoryCorporates) Update(_ context.Context, c *corporate.Corporate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[c.ID()]; !ok {
		return corporate.ErrNotFound
	}
	r.rows[c.ID()] = c
	return nil
}

func (r *memoryCorporates) FindByID(_ context.Context, id uuid.UUID) (*corporate.Corporate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[id]
	if !ok {
		return nil, corporate.ErrNotFound
	}
	return c, nil
}

func (r *memoryCorporates) List(_ context.Context, activeOnly bool) ([]*corporate.Corporate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*corporate.Corporate
	for _, c := range r.rows {
		if activeOnly && !c.IsActive() {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

// activeProvider registers an active counselor and returns its ID.
func (f *serviceFixture) activeProvider(t *testing.T) uuid.UUID {
	t.Helper()
	p, err := provider.NewProvider("Dr. Meera Iyer", uuid.NewString()[:8]+"@mindsettler.in",
		provider.SpecializationGeneral, 6, "", f.clock.Now())
	require.NoError(t, err)
	require.NoError(t, f.providers.Save(context.Background(), p))
	return p.ID()
}

// activeCorporate registers an active corporate client and returns its ID.
func (f *serviceFixture) activeCorporate(t *testing.T) uuid.UUID {
	t.Helper()
	c, err := corporate.NewCorporate("Acme Labs", "Ravi", "hr@acme.example", "", f.clock.Now())
	require.NoError(t, err)
	require.NoError(t, f.corporates.Save(context.Background(), c))
	return c.ID()
}

package profiles

import (
	"context"
	"sync"
	"time"

	"github.com/jmerrifield20/linkaday/internal/profiledoc"
)

// MemoryStore is an in-memory, thread-safe Store and PlanActivator with the
// same ownership rules as the PostgreSQL store. It is used in tests and for
// local runs without a database.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]*Profile)}
}

// Get implements Store.
func (m *MemoryStore) Get(ctx context.Context, id string) (*Profile, error) {
	if err := authorize(ctx, id); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneProfile(p), nil
}

// Create implements Store.
func (m *MemoryStore) Create(ctx context.Context, p *Profile) error {
	if err := authorize(ctx, p.ID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.profiles[p.ID]; exists {
		return nil
	}
	stored := cloneProfile(p)
	now := time.Now().UTC()
	stored.CreatedAt, stored.UpdatedAt = now, now
	if stored.Plan == "" {
		stored.Plan = PlanFree
	}
	m.profiles[p.ID] = stored
	return nil
}

// FillMissingDocuments implements Store.
func (m *MemoryStore) FillMissingDocuments(ctx context.Context, id string) error {
	if err := authorize(ctx, id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return ErrNotFound
	}
	if p.DirectiveJSON == nil {
		p.DirectiveJSON = map[string]any{}
	}
	if p.OnboardingJSON == nil {
		p.OnboardingJSON = map[string]any{}
	}
	if p.ProfileJSON == nil {
		p.ProfileJSON = profiledoc.Default()
	}
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// Update implements Store.
func (m *MemoryStore) Update(ctx context.Context, id string, u *Update) error {
	if err := authorize(ctx, id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return ErrNotFound
	}
	u.Apply(p)
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// ActivatePlan implements PlanActivator.
func (m *MemoryStore) ActivatePlan(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return false, nil
	}
	p.Plan = PlanPro
	p.IsActive = true
	p.UpdatedAt = time.Now().UTC()
	return true, nil
}

// Put stores p without ownership checks. Intended for seeding.
func (m *MemoryStore) Put(p *Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.ID] = cloneProfile(p)
}

// Snapshot returns a copy of the stored record without ownership checks.
func (m *MemoryStore) Snapshot(id string) (*Profile, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, false
	}
	return cloneProfile(p), true
}

func cloneProfile(p *Profile) *Profile {
	out := *p
	out.Focus = cloneStrings(p.Focus)
	out.StackContext = cloneStrings(p.StackContext)
	out.AudienceTarget = cloneStrings(p.AudienceTarget)
	out.DirectiveJSON = cloneObject(p.DirectiveJSON)
	out.OnboardingJSON = cloneObject(p.OnboardingJSON)
	out.PersonalJSON = cloneObject(p.PersonalJSON)
	out.ProfileJSON = p.ProfileJSON.Clone()
	return &out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string{}, s...)
}

func cloneObject(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	return map[string]any(profiledoc.Section(m).Clone())
}

package visibility

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"prepmap/api/internal/catalog"
	"prepmap/api/internal/store"
)

// memStore is a map-backed SettingStore for tests. failGet / failUpsert
// force errors for the unhappy paths.
type memStore struct {
	mu         sync.Mutex
	settings   map[string]store.VisibilitySetting
	failGet    error
	failUpsert error
	seq        int
}

func newMemStore() *memStore {
	return &memStore{settings: map[string]store.VisibilitySetting{}}
}

func settingKey(entityType, entityID string) string {
	return entityType + "/" + entityID
}

func (m *memStore) put(setting store.VisibilitySetting) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[settingKey(setting.EntityType, setting.EntityID)] = setting
}

func (m *memStore) GetVisibility(_ context.Context, entityType, entityID string) (store.VisibilitySetting, bool, error) {
	if m.failGet != nil {
		return store.VisibilitySetting{}, false, m.failGet
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	setting, ok := m.settings[settingKey(entityType, entityID)]
	return setting, ok, nil
}

func (m *memStore) GetVisibilityBatch(ctx context.Context, entityType string, entityIDs []string) (map[string]store.VisibilitySetting, error) {
	found := map[string]store.VisibilitySetting{}
	for _, id := range entityIDs {
		setting, ok, err := m.GetVisibility(ctx, entityType, id)
		if err != nil {
			return nil, err
		}
		if ok {
			found[id] = setting
		}
	}
	return found, nil
}

func (m *memStore) UpsertVisibility(_ context.Context, input store.CreateVisibilitySetting) (store.VisibilitySetting, error) {
	if m.failUpsert != nil {
		return store.VisibilitySetting{}, m.failUpsert
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := settingKey(input.EntityType, input.EntityID)
	setting, ok := m.settings[key]
	if !ok {
		m.seq++
		setting = store.VisibilitySetting{
			ID:         fmt.Sprintf("vis_%d", m.seq),
			EntityType: input.EntityType,
			EntityID:   input.EntityID,
		}
	}
	setting.ParentRoadmapSlug = input.ParentRoadmapSlug
	setting.ParentMilestoneID = input.ParentMilestoneID
	setting.IsPublic = input.IsPublic
	setting.UpdatedBy = input.UpdatedBy
	m.settings[key] = setting
	return setting, nil
}

func (m *memStore) FindPublicEntities(_ context.Context, entityType string) ([]string, error) {
	if m.failGet != nil {
		return nil, m.failGet
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, setting := range m.settings {
		if setting.EntityType == entityType && setting.IsPublic {
			ids = append(ids, setting.EntityID)
		}
	}
	return ids, nil
}

func (m *memStore) FindVisibilityByParent(_ context.Context, entityType, parentID string) ([]store.VisibilitySetting, error) {
	if m.failGet != nil {
		return nil, m.failGet
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []store.VisibilitySetting
	for _, setting := range m.settings {
		if setting.EntityType != entityType {
			continue
		}
		parent := setting.ParentRoadmapSlug
		if entityType == store.EntityObjective {
			parent = setting.ParentMilestoneID
		}
		if parent == parentID {
			matched = append(matched, setting)
		}
	}
	return matched, nil
}

func (m *memStore) DeleteVisibility(_ context.Context, entityType, entityID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := settingKey(entityType, entityID)
	if _, ok := m.settings[key]; !ok {
		return false, nil
	}
	delete(m.settings, key)
	return true, nil
}

// fakeCatalog serves a fixed set of roadmaps by slug.
type fakeCatalog struct {
	roadmaps map[string]*catalog.Roadmap
	err      error
}

func (f *fakeCatalog) FindRoadmapBySlug(_ context.Context, slug string) (*catalog.Roadmap, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.roadmaps[slug], nil
}

// recordingSink captures audit events in order.
type recordingSink struct {
	events []store.AuditEvent
}

func (r *recordingSink) Record(_ context.Context, event store.AuditEvent) {
	r.events = append(r.events, event)
}

// countingCache tracks invalidations on top of a plain map cache.
type countingCache struct {
	verdicts      map[string]bool
	invalidations int
}

func newCountingCache() *countingCache {
	return &countingCache{verdicts: map[string]bool{}}
}

func (c *countingCache) GetVerdict(_ context.Context, entityType, entityID string) (bool, bool) {
	public, ok := c.verdicts[settingKey(entityType, entityID)]
	return public, ok
}

func (c *countingCache) SetVerdict(_ context.Context, entityType, entityID string, public bool) {
	c.verdicts[settingKey(entityType, entityID)] = public
}

func (c *countingCache) InvalidateAll(context.Context) error {
	c.verdicts = map[string]bool{}
	c.invalidations++
	return nil
}

var errStoreDown = errors.New("store down")

// seedChain stores a fully public roadmap -> milestone -> objective chain.
func seedChain(m *memStore, slug, milestoneID string, objectiveIndex int) {
	m.put(store.VisibilitySetting{EntityType: store.EntityRoadmap, EntityID: slug, IsPublic: true})
	m.put(store.VisibilitySetting{EntityType: store.EntityMilestone, EntityID: milestoneID, ParentRoadmapSlug: slug, IsPublic: true})
	m.put(store.VisibilitySetting{
		EntityType:        store.EntityObjective,
		EntityID:          ObjectiveEntityID(milestoneID, objectiveIndex),
		ParentRoadmapSlug: slug,
		ParentMilestoneID: milestoneID,
		IsPublic:          true,
	})
}

func testCatalog() *fakeCatalog {
	return &fakeCatalog{roadmaps: map[string]*catalog.Roadmap{
		"frontend-basics": {
			Slug:        "frontend-basics",
			Title:       "Frontend Basics",
			Description: "HTML, CSS and the DOM",
			Nodes: []catalog.Milestone{
				{ID: "m1", Title: "HTML", LearningObjectives: []string{"semantic markup", "forms", "accessibility"}},
				{ID: "m2", Title: "CSS", LearningObjectives: []string{"selectors", "flexbox"}},
			},
			Edges: []catalog.Edge{{From: "m1", To: "m2"}},
		},
	}}
}

package app

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"prepmap/api/internal/audit"
	"prepmap/api/internal/auth"
	"prepmap/api/internal/catalog"
	"prepmap/api/internal/config"
	"prepmap/api/internal/store"
	"prepmap/api/internal/visibility"
)

const (
	testAdminEmail    = "admin@prepmap.dev"
	testAdminPassword = "correct horse"
)

// fakeStore backs the whole app in tests: catalog records, visibility
// settings and audit events in maps.
type fakeStore struct {
	mu       sync.Mutex
	roadmaps map[string]store.Roadmap
	settings map[string]store.VisibilitySetting
	events   []store.AuditEvent
	seq      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		roadmaps: map[string]store.Roadmap{},
		settings: map[string]store.VisibilitySetting{},
	}
}

func settingKey(entityType, entityID string) string {
	return entityType + "/" + entityID
}

func (f *fakeStore) Ping(context.Context) error { return nil }

func (f *fakeStore) GetRoadmap(_ context.Context, slug string) (store.Roadmap, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	roadmap, ok := f.roadmaps[slug]
	if !ok {
		return store.Roadmap{}, sql.ErrNoRows
	}
	return roadmap, nil
}

func (f *fakeStore) ListRoadmaps(context.Context) ([]store.Roadmap, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]store.Roadmap, 0, len(f.roadmaps))
	for _, roadmap := range f.roadmaps {
		items = append(items, roadmap)
	}
	return items, nil
}

func (f *fakeStore) UpsertRoadmap(_ context.Context, input store.Roadmap) (store.Roadmap, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roadmaps[input.Slug] = input
	return input, nil
}

func (f *fakeStore) DeleteRoadmap(_ context.Context, slug string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.roadmaps[slug]; !ok {
		return false, nil
	}
	delete(f.roadmaps, slug)
	return true, nil
}

func (f *fakeStore) GetVisibility(_ context.Context, entityType, entityID string) (store.VisibilitySetting, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	setting, ok := f.settings[settingKey(entityType, entityID)]
	return setting, ok, nil
}

func (f *fakeStore) GetVisibilityBatch(ctx context.Context, entityType string, entityIDs []string) (map[string]store.VisibilitySetting, error) {
	found := map[string]store.VisibilitySetting{}
	for _, id := range entityIDs {
		setting, ok, err := f.GetVisibility(ctx, entityType, id)
		if err != nil {
			return nil, err
		}
		if ok {
			found[id] = setting
		}
	}
	return found, nil
}

func (f *fakeStore) UpsertVisibility(_ context.Context, input store.CreateVisibilitySetting) (store.VisibilitySetting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := settingKey(input.EntityType, input.EntityID)
	setting, ok := f.settings[key]
	if !ok {
		f.seq++
		setting = store.VisibilitySetting{
			ID:         fmt.Sprintf("vis_%d", f.seq),
			EntityType: input.EntityType,
			EntityID:   input.EntityID,
		}
	}
	setting.ParentRoadmapSlug = input.ParentRoadmapSlug
	setting.ParentMilestoneID = input.ParentMilestoneID
	setting.IsPublic = input.IsPublic
	setting.UpdatedBy = input.UpdatedBy
	f.settings[key] = setting
	return setting, nil
}

func (f *fakeStore) FindPublicEntities(_ context.Context, entityType string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, setting := range f.settings {
		if setting.EntityType == entityType && setting.IsPublic {
			ids = append(ids, setting.EntityID)
		}
	}
	return ids, nil
}

func (f *fakeStore) FindVisibilityByParent(_ context.Context, entityType, parentID string) ([]store.VisibilitySetting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []store.VisibilitySetting
	for _, setting := range f.settings {
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

func (f *fakeStore) DeleteVisibility(_ context.Context, entityType, entityID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := settingKey(entityType, entityID)
	if _, ok := f.settings[key]; !ok {
		return false, nil
	}
	delete(f.settings, key)
	return true, nil
}

func (f *fakeStore) InsertAuditEvent(_ context.Context, event store.AuditEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeStore) ListAuditEvents(_ context.Context, filter store.AuditFilter) ([]store.AuditEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	matched := make([]store.AuditEvent, 0, len(f.events))
	for _, event := range f.events {
		if filter.EntityType != "" && event.EntityType != filter.EntityType {
			continue
		}
		if filter.EntityID != "" && event.EntityID != filter.EntityID {
			continue
		}
		if filter.Actor != "" && event.Actor != filter.Actor {
			continue
		}
		matched = append(matched, event)
	}
	return matched, nil
}

func (f *fakeStore) seedRoadmap(t *testing.T, roadmap catalog.Roadmap) {
	t.Helper()
	nodes, err := json.Marshal(roadmap.Nodes)
	if err != nil {
		t.Fatalf("marshal nodes: %v", err)
	}
	edges, err := json.Marshal(roadmap.Edges)
	if err != nil {
		t.Fatalf("marshal edges: %v", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roadmaps[roadmap.Slug] = store.Roadmap{
		Slug:        roadmap.Slug,
		Title:       roadmap.Title,
		Description: roadmap.Description,
		Nodes:       string(nodes),
		Edges:       string(edges),
	}
}

func (f *fakeStore) seedSetting(setting store.VisibilitySetting) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings[settingKey(setting.EntityType, setting.EntityID)] = setting
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	hash, err := auth.HashPassword(testAdminPassword)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return config.Config{
		JWTSecret:         "test-secret",
		AccessTTL:         time.Hour,
		AdminEmail:        testAdminEmail,
		AdminPasswordHash: hash,
		CORSOrigin:        "*",
	}
}

func newTestServer(t *testing.T) (*HTTPServer, *Service, *fakeStore) {
	t.Helper()
	fake := newFakeStore()
	cfg := testConfig(t)

	contentCatalog := catalog.NewService(fake, nil)
	resolver := visibility.NewResolver(fake, nil)
	filter := visibility.NewFilter(fake, contentCatalog, resolver)
	auditTrail := audit.NewRecorder(fake)
	visibilityService := visibility.NewService(fake, contentCatalog, auditTrail, nil)

	service := New(cfg, fake, contentCatalog, visibilityService, resolver, filter, auditTrail, nil, nil)
	return NewHTTPServer(service, cfg.CORSOrigin), service, fake
}

func seedFrontendRoadmap(t *testing.T, fake *fakeStore) {
	t.Helper()
	fake.seedRoadmap(t, catalog.Roadmap{
		Slug:        "frontend-basics",
		Title:       "Frontend Basics",
		Description: "HTML, CSS and the DOM",
		Nodes: []catalog.Milestone{
			{ID: "m1", Title: "HTML", LearningObjectives: []string{"semantic markup", "forms"}},
			{ID: "m2", Title: "CSS", LearningObjectives: []string{"selectors", "flexbox"}},
		},
		Edges: []catalog.Edge{{From: "m1", To: "m2"}},
	})
}

func testHiddenRoadmap() catalog.Roadmap {
	return catalog.Roadmap{
		Slug:  "hidden-track",
		Title: "Hidden Track",
		Nodes: []catalog.Milestone{
			{ID: "h1", Title: "Internals", LearningObjectives: []string{"secrets"}},
		},
		Edges: []catalog.Edge{},
	}
}

func doRequest(t *testing.T, server *HTTPServer, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, req)
	return recorder
}

func adminToken(t *testing.T, service *Service) string {
	t.Helper()
	session, err := service.Login(context.Background(), testAdminEmail, testAdminPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return session.Token
}

func roleToken(t *testing.T, role string) string {
	t.Helper()
	token, err := auth.IssueToken([]byte("test-secret"), auth.Claims{
		Sub:   "usr_viewer",
		Email: "viewer@prepmap.dev",
		Role:  role,
		JTI:   "jti-test",
		Exp:   time.Now().Add(time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func decodeResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("decode response %q: %v", recorder.Body.String(), err)
	}
}

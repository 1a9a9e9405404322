package app

import (
	"net/http"
	"testing"

	"prepmap/api/internal/store"
)

func TestLogin(t *testing.T) {
	server, _, _ := newTestServer(t)

	good := doRequest(t, server, http.MethodPost, "/api/session/login", "", map[string]string{
		"email":    testAdminEmail,
		"password": testAdminPassword,
	})
	if good.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", good.Code, good.Body.String())
	}
	var payload struct {
		Token string `json:"token"`
		Role  string `json:"role"`
	}
	decodeResponse(t, good, &payload)
	if payload.Token == "" || payload.Role != "admin" {
		t.Fatalf("unexpected login payload: %+v", payload)
	}

	bad := doRequest(t, server, http.MethodPost, "/api/session/login", "", map[string]string{
		"email":    testAdminEmail,
		"password": "wrong",
	})
	if bad.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", bad.Code)
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	server, _, _ := newTestServer(t)

	recorder := doRequest(t, server, http.MethodPut, "/api/visibility", "", nil)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", recorder.Code)
	}

	recorder = doRequest(t, server, http.MethodPut, "/api/visibility", "garbage.token", nil)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", recorder.Code)
	}
}

func TestUpdateVisibilityEndpoint(t *testing.T) {
	server, service, fake := newTestServer(t)
	seedFrontendRoadmap(t, fake)
	token := adminToken(t, service)

	recorder := doRequest(t, server, http.MethodPut, "/api/visibility", token, map[string]any{
		"entityType": "roadmap",
		"entityId":   "frontend-basics",
		"isPublic":   true,
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", recorder.Code, recorder.Body.String())
	}

	setting, ok := fake.settings[settingKey("roadmap", "frontend-basics")]
	if !ok || !setting.IsPublic {
		t.Fatalf("setting not stored: %+v", setting)
	}
	if setting.UpdatedBy != "admin" {
		t.Errorf("UpdatedBy = %q, want admin", setting.UpdatedBy)
	}
	if len(fake.events) != 1 {
		t.Fatalf("expected one audit event, got %d", len(fake.events))
	}
}

func TestUpdateVisibilityUnknownParent(t *testing.T) {
	server, service, fake := newTestServer(t)
	seedFrontendRoadmap(t, fake)
	token := adminToken(t, service)

	recorder := doRequest(t, server, http.MethodPut, "/api/visibility", token, map[string]any{
		"entityType":        "milestone",
		"entityId":          "m9",
		"parentRoadmapSlug": "frontend-basics",
		"isPublic":          true,
	})
	if recorder.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422: %s", recorder.Code, recorder.Body.String())
	}
	var payload struct {
		Code string `json:"code"`
	}
	decodeResponse(t, recorder, &payload)
	if payload.Code != "PARENT_NOT_FOUND" {
		t.Errorf("code = %q, want PARENT_NOT_FOUND", payload.Code)
	}
	if len(fake.settings) != 0 {
		t.Error("rejected update must not write")
	}
}

func TestUpdateVisibilityBatchEndpoint(t *testing.T) {
	server, service, fake := newTestServer(t)
	seedFrontendRoadmap(t, fake)
	token := adminToken(t, service)

	recorder := doRequest(t, server, http.MethodPost, "/api/visibility/batch", token, map[string]any{
		"records": []map[string]any{
			{"entityType": "roadmap", "entityId": "frontend-basics", "isPublic": true},
			{"entityType": "milestone", "entityId": "m9", "parentRoadmapSlug": "frontend-basics", "isPublic": true},
		},
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", recorder.Code, recorder.Body.String())
	}
	var payload struct {
		Results []struct {
			OK   bool   `json:"ok"`
			Code string `json:"code"`
		} `json:"results"`
	}
	decodeResponse(t, recorder, &payload)
	if len(payload.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(payload.Results))
	}
	if !payload.Results[0].OK {
		t.Error("first record should apply")
	}
	if payload.Results[1].OK || payload.Results[1].Code != "PARENT_NOT_FOUND" {
		t.Errorf("second record should fail with PARENT_NOT_FOUND: %+v", payload.Results[1])
	}
}

func TestEffectiveVisibilityEndpoint(t *testing.T) {
	server, service, fake := newTestServer(t)
	seedFrontendRoadmap(t, fake)
	fake.seedSetting(store.VisibilitySetting{EntityType: store.EntityRoadmap, EntityID: "frontend-basics", IsPublic: false})
	fake.seedSetting(store.VisibilitySetting{EntityType: store.EntityMilestone, EntityID: "m1", ParentRoadmapSlug: "frontend-basics", IsPublic: true})
	token := adminToken(t, service)

	recorder := doRequest(t, server, http.MethodGet, "/api/visibility/milestone/m1/effective", token, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", recorder.Code, recorder.Body.String())
	}
	var payload struct {
		Public bool `json:"public"`
	}
	decodeResponse(t, recorder, &payload)
	if payload.Public {
		t.Error("milestone under a private roadmap must not be effectively public")
	}
}

func TestDeleteVisibilityEndpoint(t *testing.T) {
	server, service, fake := newTestServer(t)
	fake.seedSetting(store.VisibilitySetting{EntityType: store.EntityRoadmap, EntityID: "frontend-basics", IsPublic: true})
	token := adminToken(t, service)

	recorder := doRequest(t, server, http.MethodDelete, "/api/visibility/roadmap/frontend-basics", token, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", recorder.Code, recorder.Body.String())
	}

	recorder = doRequest(t, server, http.MethodDelete, "/api/visibility/roadmap/frontend-basics", token, nil)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", recorder.Code)
	}
}

func TestViewerCannotPublish(t *testing.T) {
	server, _, fake := newTestServer(t)
	seedFrontendRoadmap(t, fake)
	token := roleToken(t, "viewer")

	recorder := doRequest(t, server, http.MethodPut, "/api/visibility", token, map[string]any{
		"entityType": "roadmap",
		"entityId":   "frontend-basics",
		"isPublic":   true,
	})
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", recorder.Code)
	}
}

func TestEditorCanPublishButNotManage(t *testing.T) {
	server, _, fake := newTestServer(t)
	seedFrontendRoadmap(t, fake)
	token := roleToken(t, "editor")

	publish := doRequest(t, server, http.MethodPut, "/api/visibility", token, map[string]any{
		"entityType": "roadmap",
		"entityId":   "frontend-basics",
		"isPublic":   true,
	})
	if publish.Code != http.StatusOK {
		t.Fatalf("publish status = %d, want 200: %s", publish.Code, publish.Body.String())
	}

	manage := doRequest(t, server, http.MethodDelete, "/api/roadmaps/frontend-basics", token, nil)
	if manage.Code != http.StatusForbidden {
		t.Fatalf("manage status = %d, want 403", manage.Code)
	}
}

func TestSaveAndGetRoadmap(t *testing.T) {
	server, service, _ := newTestServer(t)
	token := adminToken(t, service)

	recorder := doRequest(t, server, http.MethodPut, "/api/roadmaps/backend-basics", token, map[string]any{
		"title":       "Backend Basics",
		"description": "Servers and storage",
		"nodes": []map[string]any{
			{"id": "m1", "title": "HTTP", "learningObjectives": []string{"verbs", "status codes"}},
		},
		"edges": []map[string]string{},
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("save status = %d, want 200: %s", recorder.Code, recorder.Body.String())
	}

	recorder = doRequest(t, server, http.MethodGet, "/api/roadmaps/backend-basics", token, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("get status = %d, want 200: %s", recorder.Code, recorder.Body.String())
	}
	var payload struct {
		Roadmap struct {
			Title string `json:"title"`
			Nodes []struct {
				ID string `json:"id"`
			} `json:"nodes"`
		} `json:"roadmap"`
	}
	decodeResponse(t, recorder, &payload)
	if payload.Roadmap.Title != "Backend Basics" || len(payload.Roadmap.Nodes) != 1 {
		t.Fatalf("unexpected roadmap: %+v", payload.Roadmap)
	}
}

func TestAuditEventsEndpoint(t *testing.T) {
	server, service, fake := newTestServer(t)
	seedFrontendRoadmap(t, fake)
	token := adminToken(t, service)

	doRequest(t, server, http.MethodPut, "/api/visibility", token, map[string]any{
		"entityType": "roadmap",
		"entityId":   "frontend-basics",
		"isPublic":   true,
	})
	doRequest(t, server, http.MethodPut, "/api/visibility", token, map[string]any{
		"entityType": "roadmap",
		"entityId":   "frontend-basics",
		"isPublic":   false,
	})

	recorder := doRequest(t, server, http.MethodGet, "/api/audit-events?entityId=frontend-basics", token, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", recorder.Code, recorder.Body.String())
	}
	var payload struct {
		Events []struct {
			Actor          string `json:"actor"`
			NewPublic      bool   `json:"newPublic"`
			PreviousPublic *bool  `json:"previousPublic"`
		} `json:"events"`
	}
	decodeResponse(t, recorder, &payload)
	if len(payload.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(payload.Events))
	}
}

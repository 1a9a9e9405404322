package visibility

import (
	"context"
	"log"
	"strings"

	"prepmap/api/internal/store"
)

// UpdateInput is one visibility mutation as submitted by an admin.
type UpdateInput struct {
	AdminID           string `json:"adminId"`
	EntityType        string `json:"entityType"`
	EntityID          string `json:"entityId"`
	IsPublic          bool   `json:"isPublic"`
	ParentRoadmapSlug string `json:"parentRoadmapSlug,omitempty"`
	ParentMilestoneID string `json:"parentMilestoneId,omitempty"`
}

// Service is the only mutation entry point: it validates parents against
// the catalog, upserts the setting, records the change and drops cached
// verdicts. audit and cache may be nil.
type Service struct {
	store   SettingStore
	catalog Catalog
	audit   AuditSink
	cache   VerdictCache
}

func NewService(settingStore SettingStore, contentCatalog Catalog, audit AuditSink, cache VerdictCache) *Service {
	return &Service{
		store:   settingStore,
		catalog: contentCatalog,
		audit:   audit,
		cache:   cache,
	}
}

// UpdateVisibility validates, persists and audits one toggle. Validation
// failures abort before any write; audit failures never surface.
func (s *Service) UpdateVisibility(ctx context.Context, input UpdateInput) (store.VisibilitySetting, error) {
	entityType, entityID, err := s.validate(ctx, input)
	if err != nil {
		return store.VisibilitySetting{}, err
	}

	prior, priorFound, err := s.store.GetVisibility(ctx, string(entityType), entityID)
	if err != nil {
		return store.VisibilitySetting{}, err
	}

	saved, err := s.store.UpsertVisibility(ctx, store.CreateVisibilitySetting{
		EntityType:        string(entityType),
		EntityID:          entityID,
		ParentRoadmapSlug: strings.TrimSpace(input.ParentRoadmapSlug),
		ParentMilestoneID: strings.TrimSpace(input.ParentMilestoneID),
		IsPublic:          input.IsPublic,
		UpdatedBy:         strings.TrimSpace(input.AdminID),
	})
	if err != nil {
		return store.VisibilitySetting{}, err
	}

	if s.audit != nil {
		event := store.AuditEvent{
			Actor:             saved.UpdatedBy,
			EntityType:        saved.EntityType,
			EntityID:          saved.EntityID,
			NewPublic:         saved.IsPublic,
			ParentRoadmapSlug: saved.ParentRoadmapSlug,
			ParentMilestoneID: saved.ParentMilestoneID,
		}
		if priorFound {
			previous := prior.IsPublic
			event.PreviousPublic = &previous
		}
		s.audit.Record(ctx, event)
	}

	s.dropVerdicts(ctx)
	return saved, nil
}

// BatchResult reports one record's outcome within a batch. Records are
// applied independently; one failure does not undo the others.
type BatchResult struct {
	Setting store.VisibilitySetting `json:"setting,omitempty"`
	Err     error                   `json:"-"`
}

// UpdateVisibilityBatch applies each input via UpdateVisibility,
// collecting per-record outcomes.
func (s *Service) UpdateVisibilityBatch(ctx context.Context, inputs []UpdateInput) []BatchResult {
	results := make([]BatchResult, 0, len(inputs))
	for _, input := range inputs {
		setting, err := s.UpdateVisibility(ctx, input)
		results = append(results, BatchResult{Setting: setting, Err: err})
	}
	return results
}

// GetSetting returns an entity's own (not effective) setting.
func (s *Service) GetSetting(ctx context.Context, entityType EntityType, entityID string) (store.VisibilitySetting, bool, error) {
	return s.store.GetVisibility(ctx, string(entityType), entityID)
}

// DeleteSetting removes a record entirely. Cleanup-only; the entity
// reverts to the implicit private default.
func (s *Service) DeleteSetting(ctx context.Context, entityType EntityType, entityID string) (bool, error) {
	removed, err := s.store.DeleteVisibility(ctx, string(entityType), entityID)
	if err != nil {
		return false, err
	}
	if removed {
		s.dropVerdicts(ctx)
	}
	return removed, nil
}

// validate runs the pre-write checks: well-formed input first, then
// parent existence against the catalog. Roadmaps skip parent validation.
func (s *Service) validate(ctx context.Context, input UpdateInput) (EntityType, string, error) {
	adminID := strings.TrimSpace(input.AdminID)
	entityID := strings.TrimSpace(input.EntityID)
	if adminID == "" {
		return "", "", invalidInput("adminId is required")
	}
	if entityID == "" {
		return "", "", invalidInput("entityId is required")
	}
	entityType, ok := ParseEntityType(input.EntityType)
	if !ok {
		return "", "", invalidInput("unknown entity type %q", input.EntityType)
	}

	switch entityType {
	case EntityRoadmap:
		return entityType, entityID, nil

	case EntityMilestone:
		slug := strings.TrimSpace(input.ParentRoadmapSlug)
		if slug == "" {
			return "", "", invalidInput("parentRoadmapSlug is required for milestones")
		}
		roadmap, err := s.catalog.FindRoadmapBySlug(ctx, slug)
		if err != nil {
			return "", "", err
		}
		if roadmap == nil {
			return "", "", parentNotFound("roadmap %q does not exist", slug)
		}
		if _, ok := roadmap.Node(entityID); !ok {
			return "", "", parentNotFound("milestone %q is not a node of roadmap %q", entityID, slug)
		}
		return entityType, entityID, nil

	case EntityObjective:
		slug := strings.TrimSpace(input.ParentRoadmapSlug)
		milestoneID := strings.TrimSpace(input.ParentMilestoneID)
		if slug == "" || milestoneID == "" {
			return "", "", invalidInput("parentRoadmapSlug and parentMilestoneId are required for objectives")
		}
		roadmap, err := s.catalog.FindRoadmapBySlug(ctx, slug)
		if err != nil {
			return "", "", err
		}
		if roadmap == nil {
			return "", "", parentNotFound("roadmap %q does not exist", slug)
		}
		// Only the ancestor chain is validated; the objective index is
		// not bounds-checked against the milestone's objective list.
		if _, ok := roadmap.Node(milestoneID); !ok {
			return "", "", parentNotFound("milestone %q is not a node of roadmap %q", milestoneID, slug)
		}
		return entityType, entityID, nil
	}

	return "", "", invalidInput("unknown entity type %q", input.EntityType)
}

func (s *Service) dropVerdicts(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Printf("visibility: cache invalidation: %v", err)
	}
}

// Package visibility implements the hierarchical publish model: every
// roadmap, milestone and learning objective carries its own public flag,
// and an entity is effectively visible only when its whole ancestor chain
// is public. Missing or malformed records always resolve to private.
package visibility

import (
	"context"
	"strconv"
	"strings"

	"prepmap/api/internal/catalog"
	"prepmap/api/internal/store"
)

// EntityType is the closed set of visibility-controllable kinds.
type EntityType string

const (
	EntityRoadmap   EntityType = store.EntityRoadmap
	EntityMilestone EntityType = store.EntityMilestone
	EntityObjective EntityType = store.EntityObjective
)

// ParseEntityType rejects anything outside the closed set.
func ParseEntityType(value string) (EntityType, bool) {
	switch EntityType(value) {
	case EntityRoadmap, EntityMilestone, EntityObjective:
		return EntityType(value), true
	default:
		return "", false
	}
}

// ObjectiveEntityID builds the entity id for a learning objective.
// Objectives have no standalone ids in the catalog; they are addressed as
// "<milestoneID>:<index>".
func ObjectiveEntityID(milestoneID string, index int) string {
	return milestoneID + ":" + strconv.Itoa(index)
}

// objectiveIndex extracts the 0-based objective index from an objective
// entity id. Returns false for ids that do not end in ":<number>".
func objectiveIndex(entityID string) (int, bool) {
	sep := strings.LastIndexByte(entityID, ':')
	if sep < 0 || sep == len(entityID)-1 {
		return 0, false
	}
	index, err := strconv.Atoi(entityID[sep+1:])
	if err != nil || index < 0 {
		return 0, false
	}
	return index, true
}

// SettingStore is the persistence surface the visibility core needs.
type SettingStore interface {
	GetVisibility(ctx context.Context, entityType, entityID string) (store.VisibilitySetting, bool, error)
	GetVisibilityBatch(ctx context.Context, entityType string, entityIDs []string) (map[string]store.VisibilitySetting, error)
	UpsertVisibility(ctx context.Context, input store.CreateVisibilitySetting) (store.VisibilitySetting, error)
	FindPublicEntities(ctx context.Context, entityType string) ([]string, error)
	FindVisibilityByParent(ctx context.Context, entityType, parentID string) ([]store.VisibilitySetting, error)
	DeleteVisibility(ctx context.Context, entityType, entityID string) (bool, error)
}

// Catalog is the content collaborator: roadmap structure without any
// visibility metadata. FindRoadmapBySlug returns (nil, nil) for unknown
// slugs.
type Catalog interface {
	FindRoadmapBySlug(ctx context.Context, slug string) (*catalog.Roadmap, error)
}

// AuditSink records mutations. Implementations swallow their own errors;
// audit is best-effort and never blocks a write.
type AuditSink interface {
	Record(ctx context.Context, event store.AuditEvent)
}

// VerdictCache is an optional TTL cache for resolver verdicts.
type VerdictCache interface {
	GetVerdict(ctx context.Context, entityType, entityID string) (public bool, ok bool)
	SetVerdict(ctx context.Context, entityType, entityID string, public bool)
	InvalidateAll(ctx context.Context) error
}

// PublicRoadmap is the anonymously visible projection of a roadmap:
// original ordering and content fields, pruned to public children.
type PublicRoadmap struct {
	Slug        string            `json:"slug"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Nodes       []PublicMilestone `json:"nodes"`
	Edges       []catalog.Edge    `json:"edges"`
}

// PublicMilestone is a roadmap node pruned to its public objectives.
type PublicMilestone struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title"`
	Description        string   `json:"description,omitempty"`
	LearningObjectives []string `json:"learningObjectives"`
}

package store

import "time"

// Entity type values stored in visibility_settings.entity_type. The typed
// enum lives in the visibility package; the store works with the raw
// strings it persists.
const (
	EntityRoadmap   = "roadmap"
	EntityMilestone = "milestone"
	EntityObjective = "objective"
)

// VisibilitySetting is an entity's own (not effective) visibility flag.
// Absence of a row means private.
type VisibilitySetting struct {
	ID                string    `json:"id"`
	EntityType        string    `json:"entityType"`
	EntityID          string    `json:"entityId"`
	ParentRoadmapSlug string    `json:"parentRoadmapSlug,omitempty"`
	ParentMilestoneID string    `json:"parentMilestoneId,omitempty"`
	IsPublic          bool      `json:"isPublic"`
	UpdatedBy         string    `json:"updatedBy"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// CreateVisibilitySetting is the write shape for an upsert. ID and
// CreatedAt are assigned by the store on first write.
type CreateVisibilitySetting struct {
	EntityType        string
	EntityID          string
	ParentRoadmapSlug string
	ParentMilestoneID string
	IsPublic          bool
	UpdatedBy         string
}

// Roadmap is a catalog document. Nodes and Edges hold the canonical JSON
// payloads; the catalog package parses them into typed structures.
type Roadmap struct {
	Slug        string
	Title       string
	Description string
	Nodes       string
	Edges       string
	UpdatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AuditEvent records one visibility mutation. PreviousPublic is nil when
// the entity had never been set ("implicitly private").
type AuditEvent struct {
	ID                int64     `json:"id"`
	Actor             string    `json:"actor"`
	EntityType        string    `json:"entityType"`
	EntityID          string    `json:"entityId"`
	PreviousPublic    *bool     `json:"previousPublic"`
	NewPublic         bool      `json:"newPublic"`
	ParentRoadmapSlug string    `json:"parentRoadmapSlug,omitempty"`
	ParentMilestoneID string    `json:"parentMilestoneId,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

// AuditFilter narrows ListAuditEvents. Zero values match everything.
type AuditFilter struct {
	EntityType string
	EntityID   string
	Actor      string
	Limit      int
}

type CommitInfo struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

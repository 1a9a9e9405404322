package visibility

import (
	"context"
)

// Resolver computes effective visibility: the AND of an entity's own flag
// and every ancestor's own flag, walked through the parent references on
// the stored settings. cache may be nil.
type Resolver struct {
	store SettingStore
	cache VerdictCache
}

func NewResolver(settingStore SettingStore, cache VerdictCache) *Resolver {
	return &Resolver{store: settingStore, cache: cache}
}

// IsPubliclyVisible reports whether every node on the path from the entity
// to its root roadmap is public. Missing records, unknown entity types and
// settings lacking their required parent references all resolve to false.
func (r *Resolver) IsPubliclyVisible(ctx context.Context, entityType EntityType, entityID string) (bool, error) {
	if r.cache != nil {
		if public, ok := r.cache.GetVerdict(ctx, string(entityType), entityID); ok {
			return public, nil
		}
	}

	public, err := r.resolve(ctx, entityType, entityID)
	if err != nil {
		return false, err
	}

	if r.cache != nil {
		r.cache.SetVerdict(ctx, string(entityType), entityID, public)
	}
	return public, nil
}

// resolve folds the ancestor chain. The domain fixes the depth at three
// levels (roadmap, milestone, objective) so the recursion is bounded by
// construction and needs no cycle detection.
func (r *Resolver) resolve(ctx context.Context, entityType EntityType, entityID string) (bool, error) {
	setting, found, err := r.store.GetVisibility(ctx, string(entityType), entityID)
	if err != nil {
		return false, err
	}
	if !found || !setting.IsPublic {
		return false, nil
	}

	switch entityType {
	case EntityRoadmap:
		return true, nil
	case EntityMilestone:
		if setting.ParentRoadmapSlug == "" {
			return false, nil
		}
		return r.resolve(ctx, EntityRoadmap, setting.ParentRoadmapSlug)
	case EntityObjective:
		if setting.ParentRoadmapSlug == "" || setting.ParentMilestoneID == "" {
			return false, nil
		}
		return r.resolve(ctx, EntityMilestone, setting.ParentMilestoneID)
	default:
		return false, nil
	}
}

package visibility

import (
	"context"
	"log"
	"strings"

	"prepmap/api/internal/catalog"
)

// Filter produces the anonymous read surface: full roadmaps pruned down
// to their publicly visible milestones and objectives. It never reports
// why something is missing; private and nonexistent look identical.
type Filter struct {
	store    SettingStore
	catalog  Catalog
	resolver *Resolver
}

func NewFilter(settingStore SettingStore, contentCatalog Catalog, resolver *Resolver) *Filter {
	return &Filter{store: settingStore, catalog: contentCatalog, resolver: resolver}
}

// PublicRoadmapBySlug returns the pruned roadmap, or nil when the slug is
// blank, unknown, not effectively public, or any lookup fails.
func (f *Filter) PublicRoadmapBySlug(ctx context.Context, slug string) *PublicRoadmap {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil
	}

	visible, err := f.resolver.IsPubliclyVisible(ctx, EntityRoadmap, slug)
	if err != nil {
		log.Printf("visibility: resolve roadmap %s: %v", slug, err)
		return nil
	}
	if !visible {
		return nil
	}

	roadmap, err := f.catalog.FindRoadmapBySlug(ctx, slug)
	if err != nil {
		log.Printf("visibility: load roadmap %s: %v", slug, err)
		return nil
	}
	if roadmap == nil {
		return nil
	}

	nodes, err := f.publicNodes(ctx, roadmap)
	if err != nil {
		log.Printf("visibility: filter roadmap %s: %v", slug, err)
		return nil
	}

	return &PublicRoadmap{
		Slug:        roadmap.Slug,
		Title:       roadmap.Title,
		Description: roadmap.Description,
		Nodes:       nodes,
		Edges:       publicEdges(roadmap.Edges, nodes),
	}
}

// PublicRoadmaps lists every effectively public roadmap. Errors degrade to
// an empty list; the anonymous surface never surfaces failures.
func (f *Filter) PublicRoadmaps(ctx context.Context) []PublicRoadmap {
	slugs, err := f.store.FindPublicEntities(ctx, string(EntityRoadmap))
	if err != nil {
		log.Printf("visibility: list public roadmaps: %v", err)
		return []PublicRoadmap{}
	}

	roadmaps := make([]PublicRoadmap, 0, len(slugs))
	for _, slug := range slugs {
		if roadmap := f.PublicRoadmapBySlug(ctx, slug); roadmap != nil {
			roadmaps = append(roadmaps, *roadmap)
		}
	}
	return roadmaps
}

// publicNodes keeps the roadmap's node ordering, keeping only milestones
// whose own flag is public and, within each, objectives whose own flag is
// public. Parent visibility is already established by the caller.
func (f *Filter) publicNodes(ctx context.Context, roadmap *catalog.Roadmap) ([]PublicMilestone, error) {
	milestoneSettings, err := f.store.FindVisibilityByParent(ctx, string(EntityMilestone), roadmap.Slug)
	if err != nil {
		return nil, err
	}
	publicMilestones := make(map[string]bool, len(milestoneSettings))
	for _, setting := range milestoneSettings {
		if setting.IsPublic {
			publicMilestones[setting.EntityID] = true
		}
	}

	nodes := make([]PublicMilestone, 0, len(roadmap.Nodes))
	for _, milestone := range roadmap.Nodes {
		if !publicMilestones[milestone.ID] {
			continue
		}
		objectives, err := f.publicObjectives(ctx, milestone)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, PublicMilestone{
			ID:                 milestone.ID,
			Title:              milestone.Title,
			Description:        milestone.Description,
			LearningObjectives: objectives,
		})
	}
	return nodes, nil
}

// publicObjectives prunes a milestone's objective list to entries with a
// public objective record, preserving the original ordering.
func (f *Filter) publicObjectives(ctx context.Context, milestone catalog.Milestone) ([]string, error) {
	settings, err := f.store.FindVisibilityByParent(ctx, string(EntityObjective), milestone.ID)
	if err != nil {
		return nil, err
	}
	publicIndexes := make(map[int]bool, len(settings))
	for _, setting := range settings {
		if !setting.IsPublic {
			continue
		}
		if index, ok := objectiveIndex(setting.EntityID); ok {
			publicIndexes[index] = true
		}
	}

	objectives := make([]string, 0, len(milestone.LearningObjectives))
	for index, objective := range milestone.LearningObjectives {
		if publicIndexes[index] {
			objectives = append(objectives, objective)
		}
	}
	return objectives, nil
}

// publicEdges drops edges touching a pruned milestone.
func publicEdges(edges []catalog.Edge, nodes []PublicMilestone) []catalog.Edge {
	kept := make(map[string]bool, len(nodes))
	for _, node := range nodes {
		kept[node.ID] = true
	}
	filtered := make([]catalog.Edge, 0, len(edges))
	for _, edge := range edges {
		if kept[edge.From] && kept[edge.To] {
			filtered = append(filtered, edge)
		}
	}
	return filtered
}

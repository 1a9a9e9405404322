package export

import (
	"context"
	"fmt"
	"time"

	"prepmap/api/internal/visibility"
)

// PublicContent serves the already-filtered public roadmap projections.
type PublicContent interface {
	PublicRoadmapBySlug(ctx context.Context, slug string) *visibility.PublicRoadmap
}

// Service exports the public view of a roadmap as PDF. Because it reads
// through the visibility filter, private milestones and objectives can
// never appear in the output.
type Service struct {
	content PublicContent
}

func NewService(content PublicContent) *Service {
	return &Service{content: content}
}

// ExportRoadmapPDF renders the public projection of a roadmap to PDF.
// Returns ErrContentUnavailable for private or unknown slugs.
func (s *Service) ExportRoadmapPDF(ctx context.Context, slug string) (*Result, error) {
	roadmap := s.content.PublicRoadmapBySlug(ctx, slug)
	if roadmap == nil {
		return nil, ErrContentUnavailable
	}

	html, err := RenderRoadmapHTML(templateData(roadmap))
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	return exportPDF(html, roadmap.Title)
}

func templateData(roadmap *visibility.PublicRoadmap) TemplateData {
	data := TemplateData{
		Title:       roadmap.Title,
		Description: roadmap.Description,
		ExportedAt:  time.Now().UTC(),
		Milestones:  make([]TemplateMilestone, 0, len(roadmap.Nodes)),
	}
	for _, node := range roadmap.Nodes {
		data.Milestones = append(data.Milestones, TemplateMilestone{
			Title:       node.Title,
			Description: node.Description,
			Objectives:  node.LearningObjectives,
		})
	}
	return data
}

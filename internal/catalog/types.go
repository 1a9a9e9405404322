// Package catalog owns roadmap content: the study-plan structure that
// visibility metadata points at. Titles, descriptions, milestone nodes and
// their learning objectives live here; whether any of it is publicly
// visible is the visibility package's concern.
package catalog

import "time"

type Roadmap struct {
	Slug        string      `json:"slug"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Nodes       []Milestone `json:"nodes"`
	Edges       []Edge      `json:"edges"`
	UpdatedBy   string      `json:"updatedBy,omitempty"`
	CreatedAt   time.Time   `json:"createdAt,omitempty"`
	UpdatedAt   time.Time   `json:"updatedAt,omitempty"`
}

// Milestone is one node of a roadmap. Learning objectives have no
// standalone ids; they are addressed by 0-based index within their node.
type Milestone struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title"`
	Description        string   `json:"description,omitempty"`
	LearningObjectives []string `json:"learningObjectives"`
}

type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Node returns the milestone with the given id, if present.
func (r *Roadmap) Node(milestoneID string) (Milestone, bool) {
	for _, node := range r.Nodes {
		if node.ID == milestoneID {
			return node, true
		}
	}
	return Milestone{}, false
}

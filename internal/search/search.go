// Package search provides full-text search over publicly visible
// roadmaps: Meilisearch when configured and healthy, PostgreSQL FTS
// otherwise. Only effectively public roadmaps are ever indexed or
// matched, so the anonymous search surface cannot leak private content.
package search

// Result is a single search hit returned to the caller.
type Result struct {
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Query describes a search request.
type Query struct {
	Text   string
	Limit  int
	Offset int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// RoadmapRecord is the data indexed per public roadmap.
type RoadmapRecord struct {
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Milestones  []string `json:"milestones"`
}

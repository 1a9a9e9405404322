package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"prepmap/api/internal/store"
)

// Store is the persistence surface the catalog needs from Postgres.
type Store interface {
	GetRoadmap(ctx context.Context, slug string) (store.Roadmap, error)
	ListRoadmaps(ctx context.Context) ([]store.Roadmap, error)
	UpsertRoadmap(ctx context.Context, input store.Roadmap) (store.Roadmap, error)
	DeleteRoadmap(ctx context.Context, slug string) (bool, error)
}

// Service exposes roadmap content to the rest of the app. history may be
// nil; content versioning is then disabled.
type Service struct {
	store   Store
	history *History
}

func NewService(store Store, history *History) *Service {
	return &Service{store: store, history: history}
}

// FindRoadmapBySlug returns (nil, nil) when the slug is unknown.
func (s *Service) FindRoadmapBySlug(ctx context.Context, slug string) (*Roadmap, error) {
	record, err := s.store.GetRoadmap(ctx, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find roadmap %s: %w", slug, err)
	}
	roadmap, err := fromRecord(record)
	if err != nil {
		return nil, err
	}
	return &roadmap, nil
}

func (s *Service) ListRoadmaps(ctx context.Context) ([]Roadmap, error) {
	records, err := s.store.ListRoadmaps(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]Roadmap, 0, len(records))
	for _, record := range records {
		roadmap, err := fromRecord(record)
		if err != nil {
			return nil, err
		}
		items = append(items, roadmap)
	}
	return items, nil
}

// UpsertRoadmap persists the roadmap and, best-effort, commits its
// canonical JSON to the content history. History failures are logged and
// never fail the write.
func (s *Service) UpsertRoadmap(ctx context.Context, roadmap Roadmap, author string) (Roadmap, error) {
	slug := strings.TrimSpace(roadmap.Slug)
	if slug == "" {
		return Roadmap{}, fmt.Errorf("roadmap slug is required")
	}
	if strings.TrimSpace(roadmap.Title) == "" {
		return Roadmap{}, fmt.Errorf("roadmap title is required")
	}
	record, err := toRecord(roadmap, author)
	if err != nil {
		return Roadmap{}, err
	}
	saved, err := s.store.UpsertRoadmap(ctx, record)
	if err != nil {
		return Roadmap{}, err
	}
	result, err := fromRecord(saved)
	if err != nil {
		return Roadmap{}, err
	}

	if s.history != nil {
		if _, err := s.history.Commit(slug, result, author, "Update roadmap content"); err != nil {
			log.Printf("history: commit %s: %v", slug, err)
		}
	}
	return result, nil
}

func (s *Service) DeleteRoadmap(ctx context.Context, slug string) (bool, error) {
	return s.store.DeleteRoadmap(ctx, slug)
}

// History returns the content change log for a roadmap, newest first.
func (s *Service) History(slug string, limit int) ([]store.CommitInfo, error) {
	if s.history == nil {
		return []store.CommitInfo{}, nil
	}
	return s.history.History(slug, limit)
}

// ContentAtCommit returns the roadmap as it was at the given commit.
func (s *Service) ContentAtCommit(slug, hash string) (*Roadmap, error) {
	if s.history == nil {
		return nil, fmt.Errorf("content history disabled")
	}
	roadmap, err := s.history.ContentByHash(slug, hash)
	if err != nil {
		return nil, err
	}
	return &roadmap, nil
}

func fromRecord(record store.Roadmap) (Roadmap, error) {
	roadmap := Roadmap{
		Slug:        record.Slug,
		Title:       record.Title,
		Description: record.Description,
		UpdatedBy:   record.UpdatedBy,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(record.Nodes), &roadmap.Nodes); err != nil {
		return Roadmap{}, fmt.Errorf("decode roadmap %s nodes: %w", record.Slug, err)
	}
	if err := json.Unmarshal([]byte(record.Edges), &roadmap.Edges); err != nil {
		return Roadmap{}, fmt.Errorf("decode roadmap %s edges: %w", record.Slug, err)
	}
	if roadmap.Nodes == nil {
		roadmap.Nodes = []Milestone{}
	}
	if roadmap.Edges == nil {
		roadmap.Edges = []Edge{}
	}
	return roadmap, nil
}

func toRecord(roadmap Roadmap, author string) (store.Roadmap, error) {
	nodes := roadmap.Nodes
	if nodes == nil {
		nodes = []Milestone{}
	}
	edges := roadmap.Edges
	if edges == nil {
		edges = []Edge{}
	}
	nodesJSON, err := json.Marshal(nodes)
	if err != nil {
		return store.Roadmap{}, fmt.Errorf("encode roadmap nodes: %w", err)
	}
	edgesJSON, err := json.Marshal(edges)
	if err != nil {
		return store.Roadmap{}, fmt.Errorf("encode roadmap edges: %w", err)
	}
	return store.Roadmap{
		Slug:        strings.TrimSpace(roadmap.Slug),
		Title:       strings.TrimSpace(roadmap.Title),
		Description: roadmap.Description,
		Nodes:       string(nodesJSON),
		Edges:       string(edgesJSON),
		UpdatedBy:   author,
	}, nil
}

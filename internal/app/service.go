package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"prepmap/api/internal/audit"
	"prepmap/api/internal/auth"
	"prepmap/api/internal/catalog"
	"prepmap/api/internal/config"
	"prepmap/api/internal/export"
	"prepmap/api/internal/rbac"
	"prepmap/api/internal/search"
	"prepmap/api/internal/store"
	"prepmap/api/internal/util"
	"prepmap/api/internal/visibility"
)

// adminSubject is the token subject for the single configured admin
// account.
const adminSubject = "admin"

type Session struct {
	Token     string
	AdminID   string
	Email     string
	Role      string
	JTI       string
	ExpiresAt time.Time
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Service wires the domain packages behind the HTTP surface. search and
// exporter may be nil; the corresponding endpoints then degrade.
type Service struct {
	cfg        config.Config
	db         pinger
	catalog    *catalog.Service
	visibility *visibility.Service
	resolver   *visibility.Resolver
	filter     *visibility.Filter
	audit      *audit.Recorder
	search     *search.Service
	exporter   *export.Service
}

func New(
	cfg config.Config,
	db pinger,
	contentCatalog *catalog.Service,
	visibilityService *visibility.Service,
	resolver *visibility.Resolver,
	filter *visibility.Filter,
	auditTrail *audit.Recorder,
	searchService *search.Service,
	exporter *export.Service,
) *Service {
	return &Service{
		cfg:        cfg,
		db:         db,
		catalog:    contentCatalog,
		visibility: visibilityService,
		resolver:   resolver,
		filter:     filter,
		audit:      auditTrail,
		search:     searchService,
		exporter:   exporter,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Login verifies the configured admin credentials and issues an access
// token.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	creds := auth.Credentials{Email: s.cfg.AdminEmail, PasswordHash: s.cfg.AdminPasswordHash}
	if !creds.Verify(strings.TrimSpace(email), password) {
		return Session{}, domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
	}

	expiresAt := time.Now().Add(s.cfg.AccessTTL)
	claims := auth.Claims{
		Sub:   adminSubject,
		Email: s.cfg.AdminEmail,
		Role:  string(rbac.RoleAdmin),
		JTI:   util.NewID("jti"),
		Exp:   expiresAt.Unix(),
	}
	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), claims)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		AdminID:   claims.Sub,
		Email:     claims.Email,
		Role:      claims.Role,
		JTI:       claims.JTI,
		ExpiresAt: expiresAt,
	}, nil
}

// SessionFromToken validates a bearer token. Tokens are self-contained;
// there is no server-side session state.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		AdminID:   claims.Sub,
		Email:     claims.Email,
		Role:      string(rbac.Normalize(claims.Role)),
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Can(role string, action rbac.Action) bool {
	return rbac.Can(rbac.Normalize(role), action)
}

// ── Public read surface ──

func (s *Service) PublicRoadmaps(ctx context.Context) []visibility.PublicRoadmap {
	return s.filter.PublicRoadmaps(ctx)
}

func (s *Service) PublicRoadmapBySlug(ctx context.Context, slug string) *visibility.PublicRoadmap {
	return s.filter.PublicRoadmapBySlug(ctx, slug)
}

// PublicSearch queries public roadmap content. Without a configured
// search backend it returns an empty response rather than failing.
func (s *Service) PublicSearch(q string, limit, offset int) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q}
	}
	return s.search.Search(search.Query{Text: q, Limit: limit, Offset: offset})
}

// ExportPublicRoadmapPDF renders the public view of a roadmap to PDF.
func (s *Service) ExportPublicRoadmapPDF(ctx context.Context, slug string) (*export.Result, error) {
	if s.exporter == nil {
		return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "PDF export not configured", nil)
	}
	result, err := s.exporter.ExportRoadmapPDF(ctx, slug)
	if errors.Is(err, export.ErrContentUnavailable) {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
	if errors.Is(err, export.ErrPDFDependencyMissing) {
		return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "PDF export not available", nil)
	}
	return result, err
}

// ── Admin visibility operations ──

func (s *Service) UpdateVisibility(ctx context.Context, session Session, input visibility.UpdateInput) (store.VisibilitySetting, error) {
	input.AdminID = session.AdminID
	saved, err := s.visibility.UpdateVisibility(ctx, input)
	if err != nil {
		return store.VisibilitySetting{}, err
	}
	s.syncSearchIndex(ctx, saved)
	return saved, nil
}

func (s *Service) UpdateVisibilityBatch(ctx context.Context, session Session, inputs []visibility.UpdateInput) []visibility.BatchResult {
	for i := range inputs {
		inputs[i].AdminID = session.AdminID
	}
	results := s.visibility.UpdateVisibilityBatch(ctx, inputs)
	for _, result := range results {
		if result.Err == nil {
			s.syncSearchIndex(ctx, result.Setting)
		}
	}
	return results
}

func (s *Service) GetVisibilitySetting(ctx context.Context, entityType visibility.EntityType, entityID string) (store.VisibilitySetting, bool, error) {
	return s.visibility.GetSetting(ctx, entityType, entityID)
}

func (s *Service) EffectiveVisibility(ctx context.Context, entityType visibility.EntityType, entityID string) (bool, error) {
	return s.resolver.IsPubliclyVisible(ctx, entityType, entityID)
}

func (s *Service) DeleteVisibilitySetting(ctx context.Context, entityType visibility.EntityType, entityID string) (bool, error) {
	removed, err := s.visibility.DeleteSetting(ctx, entityType, entityID)
	if err != nil {
		return false, err
	}
	if removed && entityType == visibility.EntityRoadmap && s.search != nil {
		s.search.DeleteRoadmap(entityID)
	}
	return removed, nil
}

// syncSearchIndex keeps the search index aligned with roadmap publish
// state. Milestone and objective toggles change the pruned projection,
// not whether the roadmap is listed, so only roadmap toggles matter.
func (s *Service) syncSearchIndex(ctx context.Context, setting store.VisibilitySetting) {
	if s.search == nil || setting.EntityType != store.EntityRoadmap {
		return
	}
	if !setting.IsPublic {
		s.search.DeleteRoadmap(setting.EntityID)
		return
	}
	roadmap, err := s.catalog.FindRoadmapBySlug(ctx, setting.EntityID)
	if err != nil || roadmap == nil {
		return
	}
	s.search.IndexRoadmap(roadmapRecord(roadmap))
}

func roadmapRecord(roadmap *catalog.Roadmap) search.RoadmapRecord {
	milestones := make([]string, 0, len(roadmap.Nodes))
	for _, node := range roadmap.Nodes {
		milestones = append(milestones, node.Title)
	}
	return search.RoadmapRecord{
		Slug:        roadmap.Slug,
		Title:       roadmap.Title,
		Description: roadmap.Description,
		Milestones:  milestones,
	}
}

// ── Admin catalog operations ──

func (s *Service) ListRoadmaps(ctx context.Context) ([]catalog.Roadmap, error) {
	return s.catalog.ListRoadmaps(ctx)
}

func (s *Service) GetRoadmap(ctx context.Context, slug string) (*catalog.Roadmap, error) {
	roadmap, err := s.catalog.FindRoadmapBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if roadmap == nil {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
	return roadmap, nil
}

// SaveRoadmap upserts roadmap content and refreshes the search index if
// the roadmap is currently published.
func (s *Service) SaveRoadmap(ctx context.Context, session Session, roadmap catalog.Roadmap) (catalog.Roadmap, error) {
	saved, err := s.catalog.UpsertRoadmap(ctx, roadmap, session.Email)
	if err != nil {
		return catalog.Roadmap{}, err
	}
	if s.search != nil {
		if public, err := s.resolver.IsPubliclyVisible(ctx, visibility.EntityRoadmap, saved.Slug); err == nil && public {
			s.search.IndexRoadmap(roadmapRecord(&saved))
		}
	}
	return saved, nil
}

func (s *Service) RemoveRoadmap(ctx context.Context, slug string) (bool, error) {
	removed, err := s.catalog.DeleteRoadmap(ctx, slug)
	if err != nil {
		return false, err
	}
	if removed && s.search != nil {
		s.search.DeleteRoadmap(slug)
	}
	return removed, nil
}

func (s *Service) RoadmapHistory(slug string, limit int) ([]store.CommitInfo, error) {
	return s.catalog.History(slug, limit)
}

func (s *Service) RoadmapAtCommit(slug, hash string) (*catalog.Roadmap, error) {
	return s.catalog.ContentAtCommit(slug, hash)
}

// ── Admin audit trail ──

func (s *Service) ListAuditEvents(ctx context.Context, filter store.AuditFilter) ([]store.AuditEvent, error) {
	return s.audit.List(ctx, filter)
}

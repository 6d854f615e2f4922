package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	types "github.com/yungbote/skillgraph-backend/internal/domain"
	"github.com/yungbote/skillgraph-backend/internal/extract"
	"github.com/yungbote/skillgraph-backend/internal/observability"
	"github.com/yungbote/skillgraph-backend/internal/platform/apierr"
	"github.com/yungbote/skillgraph-backend/internal/platform/ctxutil"
	"github.com/yungbote/skillgraph-backend/internal/platform/logger"
	"github.com/yungbote/skillgraph-backend/internal/sources/github"
	"github.com/yungbote/skillgraph-backend/internal/sources/notion"
)

// ErrSourceFetch marks failures of an upstream source, as opposed to the rebuild.
var ErrSourceFetch = errors.New("source fetch failed")

type RepositorySource interface {
	ListRepositories(ctx context.Context, user string) ([]github.Repository, error)
}

type PageSource interface {
	QueryDatabase(ctx context.Context, databaseID string) ([]notion.Page, error)
}

type BuildRequest struct {
	GitHubUsername   string `json:"github_username" binding:"required"`
	NotionDatabaseID string `json:"notion_database_id,omitempty"`
}

type BuildResult struct {
	Projects int                 `json:"projects"`
	Pages    int                 `json:"pages"`
	Graph    types.RebuildResult `json:"graph"`
}

func (r BuildResult) Message() string {
	return fmt.Sprintf("Graph built with %d GitHub projects and %d Notion pages", r.Projects, r.Pages)
}

// BuildService turns source data into tuples and rebuilds the graph from them.
type BuildService interface {
	Collect(ctx context.Context, req BuildRequest) ([]types.Tuple, error)
	Build(ctx context.Context, req BuildRequest) (BuildResult, error)
}

type buildService struct {
	log       *logger.Logger
	store     GraphStore
	repos     RepositorySource
	pages     PageSource
	extractor *extract.Extractor
	metrics   *observability.Metrics
	timeout   time.Duration
}

// NewBuildService accepts a nil page source; Notion input is then ignored.
func NewBuildService(log *logger.Logger, store GraphStore, repos RepositorySource, pages PageSource, extractor *extract.Extractor, metrics *observability.Metrics, fetchTimeout time.Duration) BuildService {
	if extractor == nil {
		extractor = extract.New()
	}
	return &buildService{
		log:       log.With("service", "BuildService"),
		store:     store,
		repos:     repos,
		pages:     pages,
		extractor: extractor,
		metrics:   metrics,
		timeout:   fetchTimeout,
	}
}

func (s *buildService) Collect(ctx context.Context, req BuildRequest) ([]types.Tuple, error) {
	user := strings.TrimSpace(req.GitHubUsername)
	if user == "" {
		return nil, apierr.BadRequest(errors.New("github username required"))
	}
	if s.repos == nil {
		return nil, apierr.New(http.StatusServiceUnavailable, "github_not_configured", errors.New("github source not configured"))
	}
	log := s.log.With(ctxutil.LogFields(ctx)...)
	ctx, cancel := ctxutil.Bounded(ctx, s.timeout)
	defer cancel()

	var (
		repos []github.Repository
		pages []notion.Page
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := s.repos.ListRepositories(gctx, user)
		if err != nil {
			s.metrics.ObserveSourceFetch("github", "error", 0)
			return fmt.Errorf("%w: github: %w", ErrSourceFetch, err)
		}
		s.metrics.ObserveSourceFetch("github", "ok", len(out))
		repos = out
		return nil
	})
	if dbID := strings.TrimSpace(req.NotionDatabaseID); dbID != "" {
		g.Go(func() error {
			if s.pages == nil {
				log.Warn("Notion database requested but Notion source is not configured", "database_id", dbID)
				return nil
			}
			out, err := s.pages.QueryDatabase(gctx, dbID)
			if err != nil {
				// Notion is optional input; a failure leaves the build GitHub-only.
				s.metrics.ObserveSourceFetch("notion", "error", 0)
				log.Warn("Notion query failed; building without pages", "database_id", dbID, "error", err)
				return nil
			}
			s.metrics.ObserveSourceFetch("notion", "ok", len(out))
			pages = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tuples := make([]types.Tuple, 0, len(repos)+len(pages))
	for _, r := range repos {
		tuples = append(tuples, s.repositoryTuple(r))
	}
	for _, p := range pages {
		tuples = append(tuples, s.pageTuple(p))
	}
	return tuples, nil
}

func (s *buildService) Build(ctx context.Context, req BuildRequest) (BuildResult, error) {
	tuples, err := s.Collect(ctx, req)
	if err != nil {
		return BuildResult{}, err
	}
	var out BuildResult
	for _, t := range tuples {
		switch t.Kind {
		case types.KindProject:
			out.Projects++
		case types.KindPage:
			out.Pages++
		}
	}
	res, err := s.store.Rebuild(ctx, tuples)
	if err != nil {
		return out, err
	}
	out.Graph = res
	s.log.With(ctxutil.LogFields(ctx)...).Info("Graph built from sources", "projects", out.Projects, "pages", out.Pages)
	return out, nil
}

func (s *buildService) repositoryTuple(r github.Repository) types.Tuple {
	props := types.Properties{"name": types.StringValue(r.Name)}
	setString(props, "full_name", r.FullName)
	setString(props, "url", r.HTMLURL)
	setString(props, "language", r.Language)
	setString(props, "description", r.Description)
	props["stars"] = types.IntValue(int64(r.Stars))
	return types.Tuple{
		ID:           r.Name,
		Kind:         types.KindProject,
		RelationType: types.RelUses,
		Source:       types.SourceGitHub,
		Skills:       s.extractor.Repository(r.Language, r.Topics, r.Description),
		Properties:   props,
	}
}

func (s *buildService) pageTuple(p notion.Page) types.Tuple {
	title := p.Title()
	props := types.Properties{}
	setString(props, "name", title)
	setString(props, "url", p.URL)
	return types.Tuple{
		ID:           p.ID,
		Kind:         types.KindPage,
		RelationType: types.RelRelatesTo,
		Source:       types.SourceNotion,
		Skills:       s.extractor.Text(title),
		Properties:   props,
	}
}

func setString(p types.Properties, key, val string) {
	if val = strings.TrimSpace(val); val != "" {
		p[key] = types.StringValue(val)
	}
}

// IsNotConfigured reports a missing upstream credential.
func IsNotConfigured(err error) bool {
	return errors.Is(err, notion.ErrNotConfigured)
}

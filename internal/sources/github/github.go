// Package github lists a user's repositories through the GitHub REST API.
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v58/github"
	"golang.org/x/time/rate"

	"github.com/yungbote/skillgraph-backend/internal/platform/logger"
)

type Config struct {
	Token string
	// BaseURL overrides https://api.github.com/, mainly for tests and GHE.
	BaseURL           string
	RequestsPerSecond float64
	Burst             int
	PerPage           int
	MaxPages          int
	Timeout           time.Duration
}

type Repository struct {
	Name        string    `json:"name"`
	FullName    string    `json:"full_name"`
	Description string    `json:"description,omitempty"`
	Language    string    `json:"language,omitempty"`
	Topics      []string  `json:"topics,omitempty"`
	HTMLURL     string    `json:"html_url,omitempty"`
	Stars       int       `json:"stargazers_count"`
	Fork        bool      `json:"fork"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

type Client struct {
	log      *logger.Logger
	gh       *gh.Client
	limiter  *rate.Limiter
	perPage  int
	maxPages int
}

func New(log *logger.Logger, cfg Config) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("github: logger required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := gh.NewClient(&http.Client{Timeout: timeout})
	if tok := strings.TrimSpace(cfg.Token); tok != "" {
		client = client.WithAuthToken(tok)
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("github: base url: %w", err)
		}
		client.BaseURL = u
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	perPage := cfg.PerPage
	if perPage <= 0 || perPage > 100 {
		perPage = 100
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 10
	}
	return &Client{
		log:      log.With("client", "GitHub"),
		gh:       client,
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
		perPage:  perPage,
		maxPages: maxPages,
	}, nil
}

// ListRepositories pages through the public repositories owned by user.
func (c *Client) ListRepositories(ctx context.Context, user string) ([]Repository, error) {
	user = strings.TrimSpace(user)
	if user == "" {
		return nil, fmt.Errorf("github: username required")
	}
	opts := &gh.RepositoryListByUserOptions{
		Type:        "owner",
		Sort:        "updated",
		ListOptions: gh.ListOptions{PerPage: c.perPage},
	}
	var out []Repository
	for page := 0; page < c.maxPages; page++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		repos, resp, err := c.gh.Repositories.ListByUser(ctx, user, opts)
		if err != nil {
			return nil, fmt.Errorf("github: list repositories for %s: %w", user, err)
		}
		for _, r := range repos {
			out = append(out, fromGitHub(r))
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	c.log.Debug("Listed repositories", "user", user, "count", len(out))
	return out, nil
}

// Languages sums language byte counts across repos.
func (c *Client) Languages(ctx context.Context, owner string, repos []Repository) (map[string]int, error) {
	totals := map[string]int{}
	for _, r := range repos {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		owner, name := splitFullName(owner, r)
		langs, _, err := c.gh.Repositories.ListLanguages(ctx, owner, name)
		if err != nil {
			c.log.Warn("Language lookup failed", "repo", owner+"/"+name, "error", err)
			continue
		}
		for lang, n := range langs {
			totals[lang] += n
		}
	}
	return totals, nil
}

func splitFullName(owner string, r Repository) (string, string) {
	if o, n, ok := strings.Cut(r.FullName, "/"); ok && o != "" && n != "" {
		return o, n
	}
	return owner, r.Name
}

func fromGitHub(r *gh.Repository) Repository {
	out := Repository{
		Name:        r.GetName(),
		FullName:    r.GetFullName(),
		Description: r.GetDescription(),
		Language:    r.GetLanguage(),
		Topics:      append([]string(nil), r.Topics...),
		HTMLURL:     r.GetHTMLURL(),
		Stars:       r.GetStargazersCount(),
		Fork:        r.GetFork(),
	}
	if r.UpdatedAt != nil {
		out.UpdatedAt = r.UpdatedAt.Time
	}
	return out
}

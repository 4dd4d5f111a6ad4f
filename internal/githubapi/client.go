// Package githubapi provides the read-only GitHub REST lookups used by the
// activity endpoints: recent commits, open issues and open pull requests.
// These are supplementary queries with no aggregation logic; responses are
// cached and calls are paced and wrapped in a circuit breaker.
package githubapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/AdhubOrg/rebase-bot/internal/cache"
	"github.com/AdhubOrg/rebase-bot/internal/errors"
	"github.com/AdhubOrg/rebase-bot/internal/monitoring"
	"github.com/AdhubOrg/rebase-bot/internal/resilience"
)

const apiBase = "https://api.github.com"

// CommitInfo is one commit from the commits listing
type CommitInfo struct {
	SHA     string    `json:"sha"`
	Author  string    `json:"author"`
	Message string    `json:"message"`
	URL     string    `json:"url"`
	Date    time.Time `json:"date"`
}

// IssueInfo is one open issue
type IssueInfo struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	State     string    `json:"state"`
	Author    string    `json:"author"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// PullInfo is one open pull request
type PullInfo struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	State     string    `json:"state"`
	Author    string    `json:"author"`
	URL       string    `json:"url"`
	Draft     bool      `json:"draft"`
	CreatedAt time.Time `json:"created_at"`
}

// Client fetches repository data from the GitHub API
type Client struct {
	org        string
	repo       string
	token      string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	limiter    *rate.Limiter
	cache      *cache.Cache
	logger     *monitoring.Logger
	metrics    *monitoring.Metrics
}

// NewClient creates a GitHub API client for one repository
func NewClient(org, repo, token string, cacheTTL time.Duration, logger *monitoring.Logger, metrics *monitoring.Metrics) *Client {
	if cacheTTL == 0 {
		cacheTTL = 5 * time.Minute
	}

	return &Client{
		org:   org,
		repo:  repo,
		token: token,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			FailureThreshold: 5,
			RecoveryTimeout:  30 * time.Second,
			SuccessThreshold: 3,
		}),
		limiter: rate.NewLimiter(rate.Limit(2), 5), // stay well under GitHub's quota
		cache:   cache.New(cacheTTL),
		logger:  logger,
		metrics: metrics,
	}
}

type apiCommit struct {
	SHA     string `json:"sha"`
	HTMLURL string `json:"html_url"`
	Commit  struct {
		Message string `json:"message"`
		Author  struct {
			Name string    `json:"name"`
			Date time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}

type apiIssue struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	State     string    `json:"state"`
	HTMLURL   string    `json:"html_url"`
	CreatedAt time.Time `json:"created_at"`
	User      struct {
		Login string `json:"login"`
	} `json:"user"`
	PullRequest *struct{} `json:"pull_request,omitempty"`
}

type apiPull struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	State     string    `json:"state"`
	HTMLURL   string    `json:"html_url"`
	Draft     bool      `json:"draft"`
	CreatedAt time.Time `json:"created_at"`
	User      struct {
		Login string `json:"login"`
	} `json:"user"`
}

// RecentCommits lists commits on the repository since the given time,
// optionally restricted to one branch.
func (c *Client) RecentCommits(ctx context.Context, branch string, since time.Time) ([]CommitInfo, error) {
	params := url.Values{
		"since":    []string{since.UTC().Format(time.RFC3339)},
		"per_page": []string{"100"},
	}
	if branch != "" {
		params.Set("sha", branch)
	}
	endpoint := fmt.Sprintf("%s/repos/%s/%s/commits?%s", apiBase, c.org, c.repo, params.Encode())

	var raw []apiCommit
	if err := c.getJSON(ctx, endpoint, &raw); err != nil {
		return nil, err
	}

	commits := make([]CommitInfo, 0, len(raw))
	for _, ac := range raw {
		sha := ac.SHA
		if len(sha) > 7 {
			sha = sha[:7]
		}
		commits = append(commits, CommitInfo{
			SHA:     sha,
			Author:  ac.Commit.Author.Name,
			Message: firstLine(ac.Commit.Message),
			URL:     ac.HTMLURL,
			Date:    ac.Commit.Author.Date,
		})
	}
	return commits, nil
}

// OpenIssues lists open issues, excluding pull requests (the GitHub issues
// listing includes PRs).
func (c *Client) OpenIssues(ctx context.Context) ([]IssueInfo, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/issues?state=open&per_page=%d", apiBase, c.org, c.repo, 50)

	var raw []apiIssue
	if err := c.getJSON(ctx, endpoint, &raw); err != nil {
		return nil, err
	}

	issues := make([]IssueInfo, 0, len(raw))
	for _, ai := range raw {
		if ai.PullRequest != nil {
			continue
		}
		issues = append(issues, IssueInfo{
			Number:    ai.Number,
			Title:     ai.Title,
			State:     ai.State,
			Author:    ai.User.Login,
			URL:       ai.HTMLURL,
			CreatedAt: ai.CreatedAt,
		})
	}
	return issues, nil
}

// OpenPulls lists open pull requests
func (c *Client) OpenPulls(ctx context.Context) ([]PullInfo, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/pulls?state=open&per_page=%d", apiBase, c.org, c.repo, 50)

	var raw []apiPull
	if err := c.getJSON(ctx, endpoint, &raw); err != nil {
		return nil, err
	}

	pulls := make([]PullInfo, 0, len(raw))
	for _, ap := range raw {
		pulls = append(pulls, PullInfo{
			Number:    ap.Number,
			Title:     ap.Title,
			State:     ap.State,
			Author:    ap.User.Login,
			URL:       ap.HTMLURL,
			Draft:     ap.Draft,
			CreatedAt: ap.CreatedAt,
		})
	}
	return pulls, nil
}

// getJSON fetches and decodes an endpoint, serving from cache when possible.
func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	key := cache.Key(endpoint)
	if data, hit := c.cache.Get(key); hit {
		c.metrics.IncrementCacheHit()
		return json.Unmarshal(data, out)
	}
	c.metrics.IncrementCacheMiss()

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var body []byte
	err := c.breaker.Execute(func() error {
		start := time.Now()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/vnd.github.v3+json")
		if c.token != "" {
			req.Header.Set("Authorization", "token "+c.token)
		}

		resp, err := c.httpClient.Do(req)
		c.metrics.RecordExternalAPICall("github", err == nil)
		if err != nil {
			c.logger.ExternalAPILogger("github", http.MethodGet, endpoint, 0, time.Since(start), false)
			return err
		}
		defer resp.Body.Close()

		c.logger.ExternalAPILogger("github", http.MethodGet, endpoint, resp.StatusCode, time.Since(start), resp.StatusCode == http.StatusOK)

		if resp.StatusCode != http.StatusOK {
			payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("github API returned status %s: %s", strconv.Itoa(resp.StatusCode), string(payload))
		}

		body, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return errors.NewExternalAPIError("github", err)
	}

	c.cache.Set(key, body)
	return json.Unmarshal(body, out)
}

func firstLine(message string) string {
	for i := 0; i < len(message); i++ {
		if message[i] == '\n' {
			return message[:i]
		}
	}
	return message
}

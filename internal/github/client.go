// Package github looks up GitHub accounts for profile links
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cli/go-gh/v2/pkg/api"

	"github.com/Kavirubc/cofound/internal/profile"
	"github.com/Kavirubc/cofound/pkg/models"
)

// ErrUserNotFound is returned when the account does not exist
var ErrUserNotFound = errors.New("github user not found")

// Options configures the REST client. An empty AuthToken falls back to the
// credentials of the gh CLI or GH_TOKEN.
type Options struct {
	Host      string
	AuthToken string
	Timeout   time.Duration
	Transport http.RoundTripper
}

// Client wraps GitHub API operations
type Client struct {
	rest *api.RESTClient
	host string
}

// NewClient creates a new GitHub client
func NewClient(opts Options) (*Client, error) {
	if opts.Host == "" {
		opts.Host = "github.com"
	}
	rest, err := api.NewRESTClient(api.ClientOptions{
		Host:      opts.Host,
		AuthToken: opts.AuthToken,
		Timeout:   opts.Timeout,
		Transport: opts.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create REST client: %w", err)
	}

	return &Client{rest: rest, host: opts.Host}, nil
}

// User represents a GitHub account
type User struct {
	Login       string `json:"login"`
	Name        string `json:"name"`
	HTMLURL     string `json:"html_url"`
	Bio         string `json:"bio"`
	Blog        string `json:"blog"`
	Location    string `json:"location"`
	PublicRepos int    `json:"public_repos"`
}

// Repo represents a public repository
type Repo struct {
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	HTMLURL         string    `json:"html_url"`
	Fork            bool      `json:"fork"`
	StargazersCount int       `json:"stargazers_count"`
	PushedAt        time.Time `json:"pushed_at"`
}

// GetUser fetches the account for username
func (c *Client) GetUser(ctx context.Context, username string) (*User, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if !profile.IsGitHubUsername(username) {
		return nil, fmt.Errorf("invalid GitHub username: %q", username)
	}

	var user User
	err := c.rest.DoWithContext(ctx, http.MethodGet, "users/"+url.PathEscape(username), nil, &user)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// ProfileLink verifies username and returns the link stored on a profile
func (c *Client) ProfileLink(ctx context.Context, username string) (models.Link, error) {
	user, err := c.GetUser(ctx, username)
	if err != nil {
		return models.Link{}, err
	}

	link := user.HTMLURL
	if link == "" {
		link = fmt.Sprintf("https://%s/%s", c.host, user.Login)
	}
	return models.Link{Name: "GitHub", URL: link}, nil
}

// PublicProjects returns up to limit of the user's own recently pushed
// repositories as profile projects. Forks are skipped.
func (c *Client) PublicProjects(ctx context.Context, username string, limit int) ([]models.Project, error) {
	if limit <= 0 {
		limit = 3
	}
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")

	params := url.Values{}
	params.Set("sort", "pushed")
	params.Set("direction", "desc")
	params.Set("type", "owner")
	params.Set("per_page", strconv.Itoa(min(limit*3, 100)))

	endpoint := fmt.Sprintf("users/%s/repos?%s", url.PathEscape(username), params.Encode())

	var repos []Repo
	if err := c.rest.DoWithContext(ctx, http.MethodGet, endpoint, nil, &repos); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
		}
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}

	projects := make([]models.Project, 0, limit)
	for _, r := range repos {
		if r.Fork {
			continue
		}
		projects = append(projects, models.Project{Name: r.Name, Description: r.Description})
		if len(projects) == limit {
			break
		}
	}
	return projects, nil
}

func isNotFound(err error) bool {
	var httpErr *api.HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound
}

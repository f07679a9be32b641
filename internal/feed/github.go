package feed

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v81/github"
)

// GitHubClient wraps the GitHub API client used for README detail fetches.
type GitHubClient struct {
	*github.Client
}

// NewGitHubClient creates a GitHub client with rate limiting.
// If GITHUB_TOKEN is set in the environment the client is authenticated,
// raising the rate limit from 60 to 5000 requests per hour.
func NewGitHubClient() (*GitHubClient, error) {
	rateLimiter, err := github_ratelimit.NewRateLimitWaiterClient(nil)
	if err != nil {
		return nil, err
	}

	ghClient := github.NewClient(rateLimiter)
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		ghClient = ghClient.WithAuthToken(token)
	}

	return &GitHubClient{Client: ghClient}, nil
}

// Readme fetches the decoded README text of a repository given its
// "owner/name" full name.
func (c *GitHubClient) Readme(ctx context.Context, fullName string) (string, error) {
	owner, name, ok := strings.Cut(fullName, "/")
	if !ok {
		return "", fmt.Errorf("invalid repository name %q", fullName)
	}

	readme, _, err := c.Repositories.GetReadme(ctx, owner, name, nil)
	if err != nil {
		return "", fmt.Errorf("get readme of %s: %w", fullName, err)
	}

	content, err := readme.GetContent()
	if err != nil {
		return "", fmt.Errorf("decode readme of %s: %w", fullName, err)
	}
	return content, nil
}

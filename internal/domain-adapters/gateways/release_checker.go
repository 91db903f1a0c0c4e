package gateways

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// githubRelease is the subset of the GitHub release payload we read
type githubRelease struct {
	TagName    string `json:"tag_name"`
	Prerelease bool   `json:"prerelease"`
	Draft      bool   `json:"draft"`
}

// ReleaseChecker looks up the newest upstream version of a recipe
type ReleaseChecker struct {
	httpClient *http.Client
	apiBase    string
	token      string
}

// NewReleaseChecker creates a checker; token is optional and only raises
// GitHub's rate limit
func NewReleaseChecker(token string) *ReleaseChecker {
	return &ReleaseChecker{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiBase:    "https://api.github.com",
		token:      token,
	}
}

// SetAPIBase points the checker at another GitHub API endpoint
func (c *ReleaseChecker) SetAPIBase(base string) {
	c.apiBase = strings.TrimSuffix(base, "/")
}

// LatestVersion resolves a livecheck source:
//
//	github-release:<owner>/<repo>  latest published release, "v" prefix stripped
//	static:<version>               fixed value
func (c *ReleaseChecker) LatestVersion(ctx context.Context, source string) (string, error) {
	kind, arg, ok := strings.Cut(source, ":")
	if !ok || arg == "" {
		return "", fmt.Errorf("unsupported livecheck source: %q", source)
	}

	switch kind {
	case "static":
		return arg, nil
	case "github-release":
		tag, err := c.latestRelease(ctx, arg)
		if err != nil {
			return "", err
		}
		return strings.TrimPrefix(tag, "v"), nil
	default:
		return "", fmt.Errorf("unsupported livecheck source: %q", source)
	}
}

func (c *ReleaseChecker) latestRelease(ctx context.Context, repo string) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", c.apiBase, repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("GitHub API request failed: %w", err)
	}
	//nolint:errcheck // Defer close
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("GitHub API error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var release githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return "", fmt.Errorf("failed to parse GitHub response: %w", err)
	}
	if release.Draft {
		return "", fmt.Errorf("latest release is a draft")
	}
	if release.TagName == "" {
		return "", fmt.Errorf("latest release has no tag")
	}
	return release.TagName, nil
}

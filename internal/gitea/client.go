// Package gitea is a minimal REST client for the Gitea API surface the
// review pipeline needs: pull request commits, per-commit diffs, raw
// file content, review comments, approval and merge. The generic SDK is
// not used because two of these endpoints (.diff and /raw/) return
// plain text rather than JSON envelopes.
package gitea

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"prwarden/internal/config"
	"prwarden/internal/logging"
)

// Review event values accepted by POST /pulls/{index}/reviews.
const (
	reviewEventComment  = "COMMENT"
	reviewEventApproved = "APPROVED"
)

const approveBody = "LGTM! Automated review passed."

// Client talks to one Gitea instance.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewClient builds a Client from the SCM configuration.
func NewClient(cfg config.SCMConfig, logger *logging.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &tokenTransport{token: cfg.Token},
		},
		logger: logger,
	}
}

type tokenTransport struct {
	token string
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.token != "" {
		req.Header.Set("Authorization", "token "+t.token)
	}
	return http.DefaultTransport.RoundTrip(req)
}

func (c *Client) apiURL(path string) string {
	return c.baseURL + "/api/v1/" + path
}

// doJSON performs a request with an optional JSON body and decodes the
// JSON response into out when out is non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL(path), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response of %s %s: %w", method, path, err)
		}
	}
	return nil
}

// doText performs a GET and returns the raw response body as text.
func (c *Client) doText(ctx context.Context, path string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL(path), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response of GET %s: %w", path, err)
	}
	return string(data), nil
}

type commitInfo struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message string `json:"message"`
	} `json:"commit"`
}

// GetDiff lists a pull request's commits and fetches each one's full
// diff text and changed-file list. Any failed request fails the whole
// call; partial diffs are worse than none.
func (c *Client) GetDiff(ctx context.Context, owner, repo string, number int64) ([]CommitDiff, error) {
	c.logger.Info("fetching pull request diff", "owner", owner, "repo", repo, "number", number)

	var commits []commitInfo
	path := fmt.Sprintf("repos/%s/%s/pulls/%d/commits", owner, repo, number)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &commits); err != nil {
		return nil, fmt.Errorf("list pull request commits: %w", err)
	}

	diffs := make([]CommitDiff, 0, len(commits))
	for _, commit := range commits {
		diffText, err := c.doText(ctx, fmt.Sprintf("repos/%s/%s/git/commits/%s.diff", owner, repo, commit.SHA))
		if err != nil {
			return nil, fmt.Errorf("fetch diff for commit %s: %w", shortSHA(commit.SHA), err)
		}

		var detail struct {
			Files []ChangedFile `json:"files"`
		}
		if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("repos/%s/%s/git/commits/%s", owner, repo, commit.SHA), nil, &detail); err != nil {
			return nil, fmt.Errorf("fetch files for commit %s: %w", shortSHA(commit.SHA), err)
		}

		diffs = append(diffs, CommitDiff{
			CommitID:      commit.SHA,
			CommitMessage: commit.Commit.Message,
			Files:         detail.Files,
			DiffContent:   diffText,
		})
	}

	c.logger.Info("fetched pull request commits", "owner", owner, "repo", repo, "number", number, "commits", len(diffs))
	return diffs, nil
}

// GetFileContext fetches file content at a commit and returns the lines
// around lineStart, lineCount in each direction, clamped to the file.
// Failures yield empty text rather than an error so one unreadable file
// never aborts the files around it.
func (c *Client) GetFileContext(ctx context.Context, owner, repo, filePath, commitID string, lineStart, lineCount int) (string, error) {
	path := fmt.Sprintf("repos/%s/%s/raw/%s?ref=%s", owner, repo, escapePath(filePath), url.QueryEscape(commitID))
	content, err := c.doText(ctx, path)
	if err != nil {
		c.logger.Warn("file context fetch failed", "path", filePath, "commit", shortSHA(commitID), "error", err)
		return "", nil
	}

	content = strings.TrimSuffix(content, "\n")
	lines := strings.Split(content, "\n")
	start := max(0, lineStart-lineCount)
	end := min(len(lines), lineStart+lineCount)
	if start >= end {
		return "", nil
	}
	return strings.Join(lines[start:end], "\n"), nil
}

// PostComment submits review comments as a single COMMENT review. An
// empty list sends nothing.
func (c *Client) PostComment(ctx context.Context, owner, repo string, number int64, comments []ReviewComment) error {
	if len(comments) == 0 {
		return nil
	}
	c.logger.Info("posting review comments", "owner", owner, "repo", repo, "number", number,
		"comments", len(comments), "commit", shortSHA(comments[0].CommitID))

	type wireComment struct {
		Path        string `json:"path"`
		Body        string `json:"body"`
		NewPosition int    `json:"new_position"`
	}
	payload := struct {
		CommitID string        `json:"commit_id"`
		Body     string        `json:"body"`
		Event    string        `json:"event"`
		Comments []wireComment `json:"comments"`
	}{
		CommitID: comments[0].CommitID,
		Body:     "Code Review Comments",
		Event:    reviewEventComment,
	}
	for _, comment := range comments {
		payload.Comments = append(payload.Comments, wireComment{
			Path:        comment.Path,
			Body:        comment.Body,
			NewPosition: comment.Line,
		})
	}

	path := fmt.Sprintf("repos/%s/%s/pulls/%d/reviews", owner, repo, number)
	if err := c.doJSON(ctx, http.MethodPost, path, payload, nil); err != nil {
		return fmt.Errorf("post review comments: %w", err)
	}
	return nil
}

// ApprovePR submits an approving review.
func (c *Client) ApprovePR(ctx context.Context, owner, repo string, number int64) error {
	c.logger.Info("approving pull request", "owner", owner, "repo", repo, "number", number)

	payload := struct {
		Body  string `json:"body"`
		Event string `json:"event"`
	}{
		Body:  approveBody,
		Event: reviewEventApproved,
	}
	path := fmt.Sprintf("repos/%s/%s/pulls/%d/reviews", owner, repo, number)
	if err := c.doJSON(ctx, http.MethodPost, path, payload, nil); err != nil {
		return fmt.Errorf("approve pull request: %w", err)
	}
	return nil
}

// MergePR merges the pull request with the default merge style.
func (c *Client) MergePR(ctx context.Context, owner, repo string, number int64) error {
	c.logger.Info("merging pull request", "owner", owner, "repo", repo, "number", number)

	payload := struct {
		Do string `json:"Do"`
	}{Do: "merge"}
	path := fmt.Sprintf("repos/%s/%s/pulls/%d/merge", owner, repo, number)
	if err := c.doJSON(ctx, http.MethodPost, path, payload, nil); err != nil {
		return fmt.Errorf("merge pull request: %w", err)
	}
	return nil
}

// escapePath escapes a repository file path for use in a URL while
// keeping the slashes that separate its segments.
func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}

// ParseRepoFullName splits "owner/repo" into parts.
func ParseRepoFullName(fullName string) (owner, repo string, err error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo name: %s", fullName)
	}
	return parts[0], parts[1], nil
}

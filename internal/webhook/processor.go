package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"prwarden/internal/gitea"
	"prwarden/internal/logging"
	"prwarden/internal/review"
)

// Reviewer runs the review pipeline for one pull request.
type Reviewer interface {
	ReviewPR(ctx context.Context, owner, repo string, number int64) (review.Outcome, error)
}

// Processor turns Gitea webhook deliveries into review runs.
type Processor struct {
	reviewer Reviewer
	logger   *logging.Logger
}

func NewProcessor(reviewer Reviewer, logger *logging.Logger) *Processor {
	return &Processor{reviewer: reviewer, logger: logger}
}

// reviewActions are the pull request actions that trigger a review.
// Gitea emits "synchronized" where GitHub emits "synchronize"; both
// spellings are accepted.
var reviewActions = map[string]bool{
	"opened":       true,
	"reopened":     true,
	"synchronize":  true,
	"synchronized": true,
}

type prEvent struct {
	Action      string `json:"action"`
	Number      int64  `json:"number"`
	PullRequest struct {
		Number int64 `json:"number"`
	} `json:"pull_request"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
}

// Process handles one webhook delivery. Events and actions outside the
// review triggers are ignored without error.
func (p *Processor) Process(ctx context.Context, eventType string, payload []byte, deliveryID string) error {
	if p.reviewer == nil {
		return fmt.Errorf("reviewer not configured")
	}

	if eventType != "pull_request" {
		p.logger.Debug("ignoring event", "event", eventType, "delivery", deliveryID)
		return nil
	}

	var event prEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("parse pull request event: %w", err)
	}

	action := strings.ToLower(event.Action)
	if !reviewActions[action] {
		p.logger.Debug("ignoring pull request action", "action", action, "delivery", deliveryID)
		return nil
	}

	owner, repo, err := gitea.ParseRepoFullName(event.Repository.FullName)
	if err != nil {
		return fmt.Errorf("webhook repository: %w", err)
	}
	number := event.PullRequest.Number
	if number == 0 {
		number = event.Number
	}
	if number <= 0 {
		return fmt.Errorf("webhook payload has no pull request number")
	}

	p.logger.Info("webhook accepted",
		"repo", event.Repository.FullName, "pr", number,
		"action", action, "delivery", deliveryID)

	outcome, err := p.reviewer.ReviewPR(ctx, owner, repo, number)
	if err != nil {
		return fmt.Errorf("review %s#%d: %w", event.Repository.FullName, number, err)
	}

	p.logger.Info("review finished",
		"repo", event.Repository.FullName, "pr", number, "run", outcome.RunID,
		"reviewed", outcome.Reviewed, "skipped", outcome.Skipped,
		"score", outcome.Score, "approved", outcome.Approved, "merged", outcome.Merged)
	return nil
}

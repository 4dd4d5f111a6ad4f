package webhook

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/AdhubOrg/rebase-bot/internal/errors"
	"github.com/AdhubOrg/rebase-bot/internal/events"
)

// Map converts one structured webhook payload into a normalized event.
// A nil event with a nil error means the event type is known but carries
// nothing the digest cares about (issue_comment, ping) or is unknown; the
// caller logs that at info level. An error is returned only when the payload
// cannot be decoded at all.
func Map(eventType string, payload []byte) (*events.Event, error) {
	switch eventType {
	case "push":
		return mapPush(payload)
	case "pull_request":
		return mapPullRequest(payload)
	case "issues":
		return mapIssues(payload)
	case "create":
		return mapRef(events.KindCreate, payload)
	case "delete":
		return mapRef(events.KindDelete, payload)
	case "release":
		return mapRelease(payload)
	case "issue_comment", "ping":
		return nil, nil
	default:
		return nil, nil
	}
}

func mapPush(payload []byte) (*events.Event, error) {
	var p pushPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, errors.NewValidationError("malformed push payload", err.Error())
	}

	commits := make([]events.Commit, 0, len(p.Commits))
	for _, c := range p.Commits {
		commits = append(commits, events.Commit{
			SHA:     shortSHA(c.ID),
			URL:     c.URL,
			Message: firstLine(c.Message),
		})
	}

	pusher := p.Pusher.Name
	if pusher == "" {
		pusher = p.Sender.Login
	}

	ev := &events.Event{
		Kind:        events.KindPush,
		Repo:        p.Repository.FullName,
		Sender:      p.Sender.Login,
		Timestamp:   time.Now().UTC(),
		Branch:      branchFromRef(p.Ref),
		Pusher:      pusher,
		CommitCount: len(p.Commits),
		Commits:     commits,
		CompareURL:  p.Compare,
	}
	return ev.Normalize(), nil
}

func mapPullRequest(payload []byte) (*events.Event, error) {
	var p pullRequestPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, errors.NewValidationError("malformed pull_request payload", err.Error())
	}

	ev := &events.Event{
		Kind:         events.KindPullRequest,
		Repo:         p.Repository.FullName,
		Sender:       p.Sender.Login,
		Timestamp:    time.Now().UTC(),
		Action:       p.Action,
		Number:       p.Number,
		Title:        p.PullRequest.Title,
		URL:          p.PullRequest.HTMLURL,
		HeadRef:      p.PullRequest.Head.Ref,
		BaseRef:      p.PullRequest.Base.Ref,
		Merged:       p.PullRequest.Merged,
		Additions:    p.PullRequest.Additions,
		Deletions:    p.PullRequest.Deletions,
		ChangedFiles: p.PullRequest.ChangedFiles,
	}
	return ev.Normalize(), nil
}

func mapIssues(payload []byte) (*events.Event, error) {
	var p issuesPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, errors.NewValidationError("malformed issues payload", err.Error())
	}

	ev := &events.Event{
		Kind:      events.KindIssue,
		Repo:      p.Repository.FullName,
		Sender:    p.Sender.Login,
		Timestamp: time.Now().UTC(),
		Action:    p.Action,
		Number:    p.Issue.Number,
		Title:     p.Issue.Title,
		URL:       p.Issue.HTMLURL,
	}
	return ev.Normalize(), nil
}

func mapRef(kind events.Kind, payload []byte) (*events.Event, error) {
	var p refPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, errors.NewValidationError("malformed ref payload", err.Error())
	}

	ev := &events.Event{
		Kind:      kind,
		Repo:      p.Repository.FullName,
		Sender:    p.Sender.Login,
		Timestamp: time.Now().UTC(),
		RefType:   p.RefType,
		Ref:       p.Ref,
	}
	return ev.Normalize(), nil
}

func mapRelease(payload []byte) (*events.Event, error) {
	var p releasePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, errors.NewValidationError("malformed release payload", err.Error())
	}

	ev := &events.Event{
		Kind:        events.KindRelease,
		Repo:        p.Repository.FullName,
		Sender:      p.Sender.Login,
		Timestamp:   time.Now().UTC(),
		Tag:         p.Release.TagName,
		ReleaseName: p.Release.Name,
		URL:         p.Release.HTMLURL,
		Action:      p.Action,
	}
	return ev.Normalize(), nil
}

// branchFromRef strips the refs/heads/ prefix from a push ref
func branchFromRef(ref string) string {
	return strings.TrimPrefix(ref, "refs/heads/")
}

// shortSHA truncates a full commit SHA to the 7-character display form
func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

// firstLine returns the subject line of a commit message
func firstLine(message string) string {
	if i := strings.IndexByte(message, '\n'); i >= 0 {
		return strings.TrimSpace(message[:i])
	}
	return strings.TrimSpace(message)
}

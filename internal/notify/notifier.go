// Package notify turns scheduler output into chat messages: the digest embed
// and the two pre-deadline warnings.
package notify

import (
	"context"
	"fmt"

	"github.com/AdhubOrg/rebase-bot/internal/delivery"
	"github.com/AdhubOrg/rebase-bot/internal/digest"
)

const (
	colorDigest  = 0xCF222E
	colorWarning = 0xE8A317
)

// DigestNotifier publishes digests and warnings to the team channel.
type DigestNotifier struct {
	messenger     delivery.Messenger
	channelID     string
	mention       string
	primaryBranch string
}

// NewDigestNotifier creates a notifier for the given delivery channel.
// mention is prepended to scheduled digests and warnings; manual triggers
// are sent without it.
func NewDigestNotifier(messenger delivery.Messenger, channelID, mention, primaryBranch string) *DigestNotifier {
	return &DigestNotifier{
		messenger:     messenger,
		channelID:     channelID,
		mention:       mention,
		primaryBranch: primaryBranch,
	}
}

// PublishDigest sends one rendered digest.
func (n *DigestNotifier) PublishDigest(ctx context.Context, sum digest.Summary) error {
	content := n.mention
	if sum.Manual {
		content = ""
	}

	embed := delivery.Embed{
		Title:       sum.Title,
		Description: sum.Body,
		Color:       colorDigest,
		Timestamp:   sum.GeneratedAt,
	}

	return n.messenger.Send(ctx, n.channelID, content, []delivery.Embed{embed})
}

// PublishWarning sends a pre-digest warning for the given checkpoint.
func (n *DigestNotifier) PublishWarning(ctx context.Context, checkpoint digest.Checkpoint, slot digest.Slot) error {
	var body string
	switch checkpoint {
	case digest.CheckpointSoftWarning:
		body = fmt.Sprintf(
			"**Digest at %s.** Wrap up your work and push to `%s` within the next 20 minutes.",
			slot, n.primaryBranch,
		)
	case digest.CheckpointHardWarning:
		body = fmt.Sprintf(
			"**Digest at %s — 10 minutes.** Push to `%s` NOW.",
			slot, n.primaryBranch,
		)
	default:
		return nil
	}

	embed := delivery.Embed{
		Title:       fmt.Sprintf("Rebase Warning — %s", slot),
		Description: body + fmt.Sprintf("\n```git fetch origin && git rebase origin/%s```", n.primaryBranch),
		Color:       colorWarning,
	}

	return n.messenger.Send(ctx, n.channelID, n.mention, []delivery.Embed{embed})
}

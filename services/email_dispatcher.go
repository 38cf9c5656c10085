package services

import (
	"context"
	"strings"

	"github.com/cppla/postfeed/utils"
)

// EmailDispatcher sends comment emails in the background. Failures are logged
// and never reach the caller.
type EmailDispatcher struct {
	mailer CommentMailer
	tasks  *Background
}

// NewEmailDispatcher wraps mailer. A nil mailer disables delivery.
func NewEmailDispatcher(mailer CommentMailer, tasks *Background) *EmailDispatcher {
	if tasks == nil {
		tasks = &Background{}
	}
	return &EmailDispatcher{mailer: mailer, tasks: tasks}
}

// SendCommentEmail schedules delivery and returns immediately.
func (d *EmailDispatcher) SendCommentEmail(ctx context.Context, toEmail, toName, fromName, postURL, commentBody string) {
	if d == nil || d.mailer == nil {
		return
	}
	if strings.TrimSpace(toEmail) == "" {
		utils.Sugar.Debugw("comment email skipped, recipient has no address", "post_url", postURL)
		return
	}
	d.tasks.Go(ctx, "comment-email", func(context.Context) {
		if err := d.mailer.SendCommentEmail(toEmail, toName, fromName, postURL, commentBody); err != nil {
			utils.Sugar.Warnw("comment email failed", "to", toEmail, "post_url", postURL, "err", err)
		}
	})
}

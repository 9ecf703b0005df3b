package app

import (
	"context"
	"fmt"
	"time"

	"dsa-tracker/internal/domain"
	"dsa-tracker/internal/log"
	"github.com/sirupsen/logrus"
)

// DefaultReconcileDelay is how long the handler waits after a mutation before re-reading the user.
const DefaultReconcileDelay = 500 * time.Millisecond

// CompletionAPI is the slice of the API client the toggle handler uses.
type CompletionAPI interface {
	MarkTopicAsComplete(ctx context.Context, completion domain.Completion) error
	GetUserData(ctx context.Context) (domain.User, error)
}

// ToggleHandler marks a subtopic complete or incomplete and reconciles the
// session with the server afterwards. It never edits completion state locally.
type ToggleHandler struct {
	api      CompletionAPI
	session  *Session
	delay    time.Duration
	attempts int
	after    func(time.Duration) <-chan time.Time
}

// NewToggleHandler builds a handler that waits delay after the mutation and then
// re-reads the user, up to attempts times until the server reflects the request.
func NewToggleHandler(api CompletionAPI, session *Session, delay time.Duration, attempts int) *ToggleHandler {
	return newToggleHandlerWithTimer(api, session, delay, attempts, time.After)
}

// NewToggleHandlerWithTimer is test-only for deterministic waits.
func NewToggleHandlerWithTimer(api CompletionAPI, session *Session, delay time.Duration, attempts int, after func(time.Duration) <-chan time.Time) *ToggleHandler {
	return newToggleHandlerWithTimer(api, session, delay, attempts, after)
}

func newToggleHandlerWithTimer(api CompletionAPI, session *Session, delay time.Duration, attempts int, after func(time.Duration) <-chan time.Time) *ToggleHandler {
	if delay < 0 {
		delay = DefaultReconcileDelay
	}
	if attempts < 1 {
		attempts = 1
	}
	return &ToggleHandler{
		api:      api,
		session:  session,
		delay:    delay,
		attempts: attempts,
		after:    after,
	}
}

// Toggle requests the new completion state for a subtopic. isComplete is the
// desired state, already flipped by the caller. The loading flag is held for
// the whole mutation and reconciliation window.
func (h *ToggleHandler) Toggle(ctx context.Context, topicID string, subtopicID int, isComplete bool) error {
	completion := domain.Completion{TopicID: topicID, SubtopicID: subtopicID, IsComplete: isComplete}
	logger := log.Log.WithFields(logrus.Fields{
		"topic_id":    topicID,
		"subtopic_id": subtopicID,
		"is_complete": isComplete,
	})

	h.session.SetIsLoading(true)
	defer h.session.SetIsLoading(false)

	if err := h.api.MarkTopicAsComplete(ctx, completion); err != nil {
		// no rollback: the next reconciliation redraws from server state
		logger.WithError(err).Error("mark completion failed")
		return fmt.Errorf("mark completion: %w", err)
	}

	return h.reconcile(ctx, completion, logger)
}

func (h *ToggleHandler) reconcile(ctx context.Context, completion domain.Completion, logger *logrus.Entry) error {
	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-h.after(h.delay):
		}

		user, err := h.api.GetUserData(ctx)
		if err != nil {
			logger.WithError(err).Error("reconcile user failed")
			return fmt.Errorf("reconcile user: %w", err)
		}
		if err := h.session.UpdateUser(ctx, &user); err != nil {
			return err
		}

		if user.IsCompleted(completion.TopicID, completion.SubtopicID) == completion.IsComplete {
			return nil
		}
		if attempt >= h.attempts {
			logger.WithField("attempts", attempt).Debug("server state not yet reflecting completion")
			return nil
		}
	}
}

// Package services – ViewService
//
// ViewService is the trackView pipeline: resolve the session, classify the
// user agent, pass the admission gates, append the ViewEvent and hand a
// recompute trigger to the background queue.
//
// Tracking never fails the page view. Store and database failures are logged
// and reported as a degraded result; only a malformed post id is an error.
package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-engagement-backend/internal/domain"
	"github.com/tbourn/go-engagement-backend/internal/repo"
)

// Enqueuer accepts fire-and-forget recompute triggers. Implemented by
// *RecomputeQueue.
type Enqueuer interface {
	Enqueue(postID string) bool
}

// ViewService records admitted page views.
type ViewService struct {
	DB        *gorm.DB
	Admitter  *Admitter
	Bots      *BotClassifier
	Recompute Enqueuer
	// Timeout bounds admission plus the write; 0 means the caller's deadline.
	Timeout time.Duration
}

// Track runs one page view through the pipeline.
//
// Outcomes:
//   - Admitted=true: a human view was recorded.
//   - Reason=BotDetected: the view was recorded for audit with IsBot=true and
//     does not count towards human aggregates.
//   - Reason=DuplicateView / RateLimitExceeded: nothing was recorded.
//   - Degraded=true: an infra failure swallowed the attempt.
func (s *ViewService) Track(ctx context.Context, in domain.ViewInput) (domain.ViewResult, error) {
	tr := otel.Tracer("services/ViewService")
	ctx, span := tr.Start(ctx, "Track",
		trace.WithAttributes(attribute.String("post.id", in.PostID)),
	)
	defer span.End()

	if !validPostID(in.PostID) {
		return domain.ViewResult{}, ErrInvalidPostID
	}

	sessionID, minted := ResolveSession(in.SessionToken)
	res := domain.ViewResult{
		SessionID: sessionID,
		IsBot:     s.Bots.IsBot(in.UserAgent),
	}
	span.SetAttributes(
		attribute.String("session.id", sessionID),
		attribute.Bool("session.minted", minted),
		attribute.Bool("view.bot", res.IsBot),
	)

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	adm, err := s.Admitter.Admit(ctx, in.SourceAddress, sessionID, in.PostID)
	if err != nil {
		return s.degraded(ctx, span, res, err, in.PostID), nil
	}
	if !adm.Admitted {
		res.Reason = adm.Reason
		viewAdmissions.WithLabelValues(outcomeLabel(adm.Reason)).Inc()
		return res, nil
	}

	ev := &domain.ViewEvent{
		PostID:              in.PostID,
		ViewerID:            in.ViewerID,
		SessionID:           sessionID,
		SourceAddress:       in.SourceAddress,
		UserAgent:           in.UserAgent,
		Referrer:            in.Referrer,
		Country:             in.Country,
		City:                in.City,
		ViewDurationSeconds: in.DurationSecs,
		IsBot:               res.IsBot,
	}
	if err := repo.CreateViewEvent(ctx, s.DB, ev); err != nil {
		if rerr := s.Admitter.Release(ctx, sessionID, in.PostID); rerr != nil {
			logFrom(ctx).Warn().Err(rerr).Str("post_id", in.PostID).Msg("release duplicate marker failed")
		}
		return s.degraded(ctx, span, res, err, in.PostID), nil
	}
	res.ViewID = ev.ID

	// Bot rows only move the audit counter, but the aggregate still carries it.
	s.Recompute.Enqueue(in.PostID)

	if res.IsBot {
		res.Reason = domain.ReasonBotDetected
		viewAdmissions.WithLabelValues("bot").Inc()
		return res, nil
	}
	res.Admitted = true
	viewAdmissions.WithLabelValues("admitted").Inc()
	return res, nil
}

func (s *ViewService) degraded(ctx context.Context, span trace.Span, res domain.ViewResult, err error, postID string) domain.ViewResult {
	span.RecordError(err)
	viewAdmissions.WithLabelValues("degraded").Inc()
	trackingDegraded.WithLabelValues("view").Inc()
	logFrom(ctx).Warn().Err(err).
		Str("post_id", postID).
		Str("session_id", res.SessionID).
		Msg("view tracking degraded")
	res.Degraded = true
	return res
}

func outcomeLabel(r domain.Reason) string {
	switch r {
	case domain.ReasonDuplicateView:
		return "duplicate"
	case domain.ReasonRateLimitExceeded:
		return "rate_limited"
	case domain.ReasonBotDetected:
		return "bot"
	default:
		return "admitted"
	}
}

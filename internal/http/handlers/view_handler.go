// Post engagement HTTP handlers.
//
// This file exposes the view beacon and holds the handler wiring shared by
// the other post endpoints:
//   - POST /posts/{id}/views        (track a page view)
//   - POST /posts/{id}/like         (toggle like, see like_handler.go)
//   - POST /posts/{id}/engagement   (scroll/time beacon, see engagement_handler.go)
//   - GET  /posts/{id}/stats        (aggregate, see stats_handler.go)
//   - GET  /posts/trending          (ranking, see stats_handler.go)
//
// Handlers are transport-thin: they collect request metadata, call the
// services and translate results into HTTP responses.
package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-engagement-backend/internal/domain"
	"github.com/tbourn/go-engagement-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// ViewTracker records page views.
type ViewTracker interface {
	// Track runs one page view through admission and recording.
	Track(ctx context.Context, in domain.ViewInput) (domain.ViewResult, error)
}

// LikeToggler flips a user's like on a post.
type LikeToggler interface {
	Toggle(ctx context.Context, postID, userID string) (domain.LikeResult, error)
}

// EngagementTracker merges in-page engagement beacons.
type EngagementTracker interface {
	Track(ctx context.Context, sessionID, postID string, m domain.EngagementMetrics, userID *string) error
}

// StatsReader serves and rebuilds per-post aggregates.
type StatsReader interface {
	Get(ctx context.Context, postID string) (*domain.PostStats, error)
	Recompute(ctx context.Context, postID string) (*domain.PostStats, error)
}

// TrendingReader serves the popular-posts ranking.
type TrendingReader interface {
	Get(ctx context.Context, limit int) ([]domain.TrendingPost, error)
}

//
// Handler wiring
//

// Handlers groups the post engagement endpoints. It depends on abstract
// service interfaces to keep transport concerns separate from tracking logic.
type Handlers struct {
	views      ViewTracker
	likes      LikeToggler
	engagement EngagementTracker
	stats      StatsReader
	trending   TrendingReader
}

// New constructs a Handlers instance bound to the given services.
func New(views ViewTracker, likes LikeToggler, engagement EngagementTracker, stats StatsReader, trending TrendingReader) *Handlers {
	return &Handlers{views: views, likes: likes, engagement: engagement, stats: stats, trending: trending}
}

// HeaderSessionID carries the anonymous session token when the body does not.
const HeaderSessionID = "X-Session-ID"

// userID extracts the authenticated user id from Gin context (set by upstream
// auth middleware), falling back to the "X-User-ID" header. Anonymous
// requests yield "".
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		return strings.TrimSpace(c.GetHeader("X-User-ID"))
	}
	return ""
}

// optional returns nil for blank strings.
func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// geoHints reads the edge-provided country and city. Cloudflare reports
// unknown and Tor traffic as "XX" and "T1".
func geoHints(c *gin.Context) (country, city *string) {
	cc := strings.ToUpper(strings.TrimSpace(c.GetHeader("CF-IPCountry")))
	if cc == "" {
		cc = strings.ToUpper(strings.TrimSpace(c.GetHeader("X-Geo-Country")))
	}
	if cc != "" && cc != "XX" && cc != "T1" && len(cc) <= 8 {
		country = &cc
	}
	if ct := strings.TrimSpace(c.GetHeader("X-Geo-City")); ct != "" && len(ct) <= 128 {
		city = &ct
	}
	return country, city
}

// bindOptionalJSON binds a JSON body when one is present. An empty body is
// not an error.
func bindOptionalJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

//
// DTOs
//

// TrackViewRequest is the optional JSON payload of a view beacon.
type TrackViewRequest struct {
	// SessionID is the client-held session token; X-Session-ID is used when empty.
	SessionID string `json:"session_id" example:"7d0c7f5e-6a43-4f43-9a39-3b8f0b0f7a10"`
	// DurationSeconds is the optional dwell time reported by the client.
	DurationSeconds *float64 `json:"duration_seconds,omitempty" example:"42.5"`
	// Referrer overrides the Referer header.
	Referrer string `json:"referrer,omitempty" example:"https://www.google.com/"`
}

// TrackViewResponse reports the outcome of a view beacon. The client should
// persist SessionID and send it with subsequent beacons.
type TrackViewResponse struct {
	ViewID    string `json:"view_id,omitempty"`
	SessionID string `json:"session_id"`
	Admitted  bool   `json:"admitted"`
	Reason    string `json:"reason,omitempty" enums:"RateLimitExceeded,DuplicateView,BotDetected"`
	IsBot     bool   `json:"is_bot"`
	Degraded  bool   `json:"degraded,omitempty"`
}

//
// Handlers
//

// TrackView godoc
// @ID          trackView
// @Summary     Track a post view
// @Description Records a page view after bot classification, per-address rate limiting and per-session deduplication.
// @Description Rejections are reported in the body; tracking failures never fail the page view.
// @Tags        Views
// @Accept      json
// @Produce     json
//
// @Param       id            path    string  true  "Post ID"                 example(sermon-2024-03-10)
// @Param       X-Session-ID  header  string  false "Session token"
// @Param       X-User-ID     header  string  false "Authenticated viewer"    example(user123)
// @Param       body          body    handlers.TrackViewRequest  false  "View beacon"
//
// @Success     202  {object}  handlers.TrackViewResponse  "View recorded"
// @Success     200  {object}  handlers.TrackViewResponse  "Not counted (duplicate, bot or degraded)"
// @Failure     400  {object}  handlers.ErrorResponse      "Bad request"
// @Failure     429  {object}  handlers.TrackViewResponse  "Rate limit exceeded"
// @Router      /posts/{id}/views [post]
func (h *Handlers) TrackView(c *gin.Context) {
	var req TrackViewRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if req.DurationSeconds != nil && *req.DurationSeconds < 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "duration_seconds must be >= 0")
		return
	}

	session := strings.TrimSpace(req.SessionID)
	if session == "" {
		session = strings.TrimSpace(c.GetHeader(HeaderSessionID))
	}
	referrer := req.Referrer
	if referrer == "" {
		referrer = c.Request.Referer()
	}
	country, city := geoHints(c)

	res, err := h.views.Track(c.Request.Context(), domain.ViewInput{
		PostID:        c.Param("id"),
		SessionToken:  session,
		ViewerID:      optional(userID(c)),
		SourceAddress: c.ClientIP(),
		UserAgent:     c.Request.UserAgent(),
		Referrer:      referrer,
		Country:       country,
		City:          city,
		DurationSecs:  req.DurationSeconds,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidPostID) {
			fail(c, http.StatusBadRequest, ErrCodeInvalidPostID, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	c.Header(HeaderSessionID, res.SessionID)
	body := TrackViewResponse{
		ViewID:    res.ViewID,
		SessionID: res.SessionID,
		Admitted:  res.Admitted,
		Reason:    string(res.Reason),
		IsBot:     res.IsBot,
		Degraded:  res.Degraded,
	}
	switch {
	case res.Admitted:
		ok(c, http.StatusAccepted, body)
	case res.Reason == domain.ReasonRateLimitExceeded:
		ok(c, http.StatusTooManyRequests, body)
	default:
		ok(c, http.StatusOK, body)
	}
}

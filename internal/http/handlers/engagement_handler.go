// Engagement HTTP handler.
//
//   - POST /posts/{id}/engagement   (scroll/time/click beacon)
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-engagement-backend/internal/domain"
	"github.com/tbourn/go-engagement-backend/internal/services"
)

// EngagementRequest is one engagement beacon. Clicks, shares and comments are
// deltas since the previous beacon; time on page is the running total.
type EngagementRequest struct {
	SessionID          string  `json:"session_id"           example:"7d0c7f5e-6a43-4f43-9a39-3b8f0b0f7a10"`
	ScrollDepthPercent float64 `json:"scroll_depth_percent" example:"65" minimum:"0" maximum:"100"`
	TimeOnPageSeconds  float64 `json:"time_on_page_seconds" example:"94.2" minimum:"0"`
	Clicks             int64   `json:"clicks"               example:"1" minimum:"0"`
	Shares             int64   `json:"shares"               example:"0" minimum:"0"`
	Comments           int64   `json:"comments"             example:"0" minimum:"0"`
}

// DegradedResponse acknowledges a beacon that could not be stored.
type DegradedResponse struct {
	Degraded bool `json:"degraded" example:"true"`
}

// TrackEngagement godoc
// @ID          trackEngagement
// @Summary     Track in-page engagement
// @Description Merges a beacon into the (session, post) engagement record. Scroll depth only moves forward.
// @Tags        Engagement
// @Accept      json
// @Produce     json
//
// @Param       id            path    string  true  "Post ID"         example(sermon-2024-03-10)
// @Param       X-Session-ID  header  string  false "Session token (when absent from body)"
// @Param       X-User-ID     header  string  false "Authenticated user"  example(user123)
// @Param       body          body    handlers.EngagementRequest  true  "Engagement beacon"
//
// @Success     204  {string}  string "No Content"
// @Success     202  {object}  handlers.DegradedResponse  "Accepted but not stored"
// @Failure     400  {object}  handlers.ErrorResponse     "Bad request"
// @Router      /posts/{id}/engagement [post]
func (h *Handlers) TrackEngagement(c *gin.Context) {
	var req EngagementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	session := strings.TrimSpace(req.SessionID)
	if session == "" {
		session = strings.TrimSpace(c.GetHeader(HeaderSessionID))
	}

	err := h.engagement.Track(c.Request.Context(), session, c.Param("id"), domain.EngagementMetrics{
		ScrollDepthPercent: req.ScrollDepthPercent,
		TimeOnPageSeconds:  req.TimeOnPageSeconds,
		Clicks:             req.Clicks,
		Shares:             req.Shares,
		Comments:           req.Comments,
	}, optional(userID(c)))

	switch {
	case err == nil:
		noContent(c)
	case errors.Is(err, services.ErrInvalidPostID):
		fail(c, http.StatusBadRequest, ErrCodeInvalidPostID, err.Error())
	case errors.Is(err, services.ErrInvalidSession):
		fail(c, http.StatusBadRequest, ErrCodeInvalidSession, err.Error())
	case errors.Is(err, services.ErrInvalidMetrics):
		fail(c, http.StatusBadRequest, ErrCodeInvalidMetrics, err.Error())
	case errors.Is(err, services.ErrTrackingDegraded):
		ok(c, http.StatusAccepted, DegradedResponse{Degraded: true})
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

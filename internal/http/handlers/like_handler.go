// Like HTTP handler.
//
//   - POST /posts/{id}/like   (toggle)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-engagement-backend/internal/services"
)

// LikeResponse is the like state after a toggle.
type LikeResponse struct {
	Liked     bool  `json:"liked"      example:"true"`
	LikeCount int64 `json:"like_count" example:"12"`
}

// ToggleLike godoc
// @ID          toggleLike
// @Summary     Toggle like on a post
// @Description Likes the post when the current user has not liked it yet, otherwise removes the like.
// @Description Returns the new state and the recounted total.
// @Tags        Likes
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Authenticated user"  example(user123)
// @Param       id         path    string  true  "Post ID"             example(sermon-2024-03-10)
//
// @Success     200  {object}  handlers.LikeResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Authentication required"
// @Failure     503  {object}  handlers.ErrorResponse  "Tracking degraded"
// @Router      /posts/{id}/like [post]
func (h *Handlers) ToggleLike(c *gin.Context) {
	res, err := h.likes.Toggle(c.Request.Context(), c.Param("id"), userID(c))
	switch {
	case err == nil:
		ok(c, http.StatusOK, LikeResponse{Liked: res.Liked, LikeCount: res.LikeCount})
	case errors.Is(err, services.ErrUnauthorized):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, err.Error())
	case errors.Is(err, services.ErrInvalidPostID):
		fail(c, http.StatusBadRequest, ErrCodeInvalidPostID, err.Error())
	case errors.Is(err, services.ErrTrackingDegraded):
		fail(c, http.StatusServiceUnavailable, ErrCodeTrackingDegraded, "like could not be saved, retry later")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

// Stats and trending HTTP handlers.
//
//   - GET  /posts/{id}/stats              (aggregate, weak ETag support)
//   - POST /posts/{id}/stats/recompute    (rebuild from raw rows)
//   - GET  /posts/trending                (ranking)
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-engagement-backend/internal/domain"
	"github.com/tbourn/go-engagement-backend/internal/http/middleware"
	"github.com/tbourn/go-engagement-backend/internal/services"
	"github.com/tbourn/go-engagement-backend/internal/utils"
)

// HeaderStatsDegraded marks a recompute response that carries the last-known
// aggregate because the rebuild failed.
const HeaderStatsDegraded = "X-Stats-Degraded"

// statsMaxAge is short: the aggregate lags views by one recompute.
const statsMaxAge = "public, max-age=30"

// TrendingResponse wraps the ranking.
type TrendingResponse struct {
	Items []domain.TrendingPost `json:"items"`
}

func statsETag(st *domain.PostStats) string {
	return fmt.Sprintf(`W/"stats:%s:%d"`, st.PostID, st.UpdatedAt.UnixNano())
}

// GetStats godoc
// @ID          getPostStats
// @Summary     Get post statistics
// @Description Returns the aggregate for a post. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Stats
// @Produce     json
//
// @Param       id             path    string  true  "Post ID"                     example(sermon-2024-03-10)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"stats:sermon-2024-03-10:1710000000\")
//
// @Success     200  {object} domain.PostStats
// @Header      200  {string} ETag           "Weak ETag for current aggregate"
// @Header      200  {string} Cache-Control  "Caching directives"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     503  {object} handlers.ErrorResponse "Stats unavailable"
// @Router      /posts/{id}/stats [get]
func (h *Handlers) GetStats(c *gin.Context) {
	st, err := h.stats.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.statsError(c, err)
		return
	}

	etag := statsETag(st)
	c.Header("ETag", etag)
	c.Header("Cache-Control", statsMaxAge)
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return
	}
	ok(c, http.StatusOK, st)
}

// RecomputeStats godoc
// @ID          recomputePostStats
// @Summary     Recompute post statistics
// @Description Rebuilds the aggregate from the raw view and like rows and refreshes the cache. If the rebuild fails the last-known aggregate is returned with X-Stats-Degraded: true.
// @Tags        Stats
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Authenticated user"  example(admin)
// @Param       id         path    string  true  "Post ID"             example(sermon-2024-03-10)
//
// @Success     200  {object} domain.PostStats
// @Header      200  {string} X-Stats-Degraded  "true when the body is the last-known aggregate"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     401  {object} handlers.ErrorResponse "Authentication required"
// @Failure     503  {object} handlers.ErrorResponse "Stats unavailable"
// @Router      /posts/{id}/stats/recompute [post]
func (h *Handlers) RecomputeStats(c *gin.Context) {
	if userID(c) == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, services.ErrUnauthorized.Error())
		return
	}
	ctx := c.Request.Context()
	postID := c.Param("id")
	st, err := h.stats.Recompute(ctx, postID)
	if err != nil {
		if errors.Is(err, services.ErrInvalidPostID) {
			h.statsError(c, err)
			return
		}
		middleware.LoggerFrom(c).Warn().Err(err).Str("post_id", postID).Msg("recompute failed, serving last-known stats")
		last, gerr := h.stats.Get(ctx, postID)
		if gerr != nil {
			h.statsError(c, gerr)
			return
		}
		c.Header(HeaderStatsDegraded, "true")
		st = last
	}
	c.Header("ETag", statsETag(st))
	ok(c, http.StatusOK, st)
}

func (h *Handlers) statsError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrInvalidPostID) {
		fail(c, http.StatusBadRequest, ErrCodeInvalidPostID, err.Error())
		return
	}
	fail(c, http.StatusServiceUnavailable, ErrCodeStatsUnavailable, "stats unavailable")
}

// GetTrending godoc
// @ID          getTrending
// @Summary     List trending posts
// @Description Ranks posts by distinct recent sessions, then by likes. The ranking is cached and may lag by up to an hour.
// @Tags        Stats
// @Produce     json
//
// @Param       limit  query  int  false  "Number of posts"  minimum(1) default(10)
//
// @Success     200  {object} handlers.TrendingResponse
// @Failure     503  {object} handlers.ErrorResponse "Ranking unavailable"
// @Router      /posts/trending [get]
func (h *Handlers) GetTrending(c *gin.Context) {
	limit := utils.AtoiDefault(c.Query("limit"), services.DefaultTrendingLimit)
	items, err := h.trending.Get(c.Request.Context(), limit)
	if err != nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeStatsUnavailable, "trending unavailable")
		return
	}
	if items == nil {
		items = []domain.TrendingPost{}
	}
	ok(c, http.StatusOK, TrendingResponse{Items: items})
}

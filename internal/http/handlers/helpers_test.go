package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-engagement-backend/internal/domain"
)

// ---------- flexible service stubs ----------

type stubViews struct {
	track func(context.Context, domain.ViewInput) (domain.ViewResult, error)
}

func (s stubViews) Track(ctx context.Context, in domain.ViewInput) (domain.ViewResult, error) {
	if s.track != nil {
		return s.track(ctx, in)
	}
	return domain.ViewResult{SessionID: "s", Admitted: true, ViewID: "v"}, nil
}

type stubLikes struct {
	toggle func(context.Context, string, string) (domain.LikeResult, error)
}

func (s stubLikes) Toggle(ctx context.Context, postID, userID string) (domain.LikeResult, error) {
	if s.toggle != nil {
		return s.toggle(ctx, postID, userID)
	}
	return domain.LikeResult{Liked: true, LikeCount: 1}, nil
}

type stubEngagement struct {
	track func(context.Context, string, string, domain.EngagementMetrics, *string) error
}

func (s stubEngagement) Track(ctx context.Context, sessionID, postID string, m domain.EngagementMetrics, userID *string) error {
	if s.track != nil {
		return s.track(ctx, sessionID, postID, m, userID)
	}
	return nil
}

type stubStats struct {
	get       func(context.Context, string) (*domain.PostStats, error)
	recompute func(context.Context, string) (*domain.PostStats, error)
}

func (s stubStats) Get(ctx context.Context, postID string) (*domain.PostStats, error) {
	if s.get != nil {
		return s.get(ctx, postID)
	}
	return &domain.PostStats{PostID: postID}, nil
}

func (s stubStats) Recompute(ctx context.Context, postID string) (*domain.PostStats, error) {
	if s.recompute != nil {
		return s.recompute(ctx, postID)
	}
	return &domain.PostStats{PostID: postID}, nil
}

type stubTrending struct {
	get func(context.Context, int) ([]domain.TrendingPost, error)
}

func (s stubTrending) Get(ctx context.Context, limit int) ([]domain.TrendingPost, error) {
	if s.get != nil {
		return s.get(ctx, limit)
	}
	return nil, nil
}

// ---------- router + request helpers ----------

type stubs struct {
	views      stubViews
	likes      stubLikes
	engagement stubEngagement
	stats      stubStats
	trending   stubTrending
}

func newTestRouter(s stubs) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := New(s.views, s.likes, s.engagement, s.stats, s.trending)
	r.POST("/posts/:id/views", h.TrackView)
	r.POST("/posts/:id/like", h.ToggleLike)
	r.POST("/posts/:id/engagement", h.TrackEngagement)
	r.GET("/posts/:id/stats", h.GetStats)
	r.POST("/posts/:id/stats/recompute", h.RecomputeStats)
	r.GET("/posts/trending", h.GetTrending)
	return r
}

func do(t *testing.T, r http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

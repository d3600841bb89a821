package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tbourn/go-engagement-backend/internal/domain"
	"github.com/tbourn/go-engagement-backend/internal/kv"
)

func TestTrackView_FirstViewThenDuplicate(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	res, err := p.views.Track(ctx, viewIn("p1", "s1", "203.0.113.5"))
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if !res.Admitted || res.Reason != domain.ReasonNone || res.ViewID == "" || res.SessionID != "s1" || res.Degraded {
		t.Fatalf("first view = %+v", res)
	}
	st, err := p.stats.Get(ctx, "p1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if st.TotalViews != 1 || st.UniqueViews != 1 {
		t.Fatalf("after first view stats = %+v", st)
	}

	p.mr.FastForward(30 * time.Second)
	res, err = p.views.Track(ctx, viewIn("p1", "s1", "203.0.113.5"))
	if err != nil || res.Admitted || res.Reason != domain.ReasonDuplicateView {
		t.Fatalf("repeat = %+v, %v", res, err)
	}
	if n := countViews(t, p.db, "p1"); n != 1 {
		t.Fatalf("exactly one ViewEvent expected, got %d", n)
	}
	st, _ = p.stats.Get(ctx, "p1")
	if st.TotalViews != 1 {
		t.Fatalf("totalViews must stay at 1, got %d", st.TotalViews)
	}
	if p.queue.calls() != 1 {
		t.Fatalf("only the admitted view triggers a recompute, got %d", p.queue.calls())
	}
}

func TestTrackView_MintsSessionWhenMissing(t *testing.T) {
	p := newPipeline(t)
	res, err := p.views.Track(context.Background(), viewIn("p1", "", "203.0.113.5"))
	if err != nil || !res.Admitted || res.SessionID == "" {
		t.Fatalf("minted session view = %+v, %v", res, err)
	}
	again, _ := p.views.Track(context.Background(), viewIn("p1", res.SessionID, "203.0.113.5"))
	if again.Reason != domain.ReasonDuplicateView {
		t.Fatalf("reusing the minted session must dedup, got %+v", again)
	}
}

func TestTrackView_EleventhFromSameAddressRateLimited(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	before := testutil.ToFloat64(viewAdmissions.WithLabelValues("rate_limited"))

	for i := 1; i <= 10; i++ {
		res, _ := p.views.Track(ctx, viewIn("p1", fmt.Sprintf("s%d", i), "203.0.113.5"))
		if !res.Admitted {
			t.Fatalf("view %d not admitted: %+v", i, res)
		}
	}
	res, _ := p.views.Track(ctx, viewIn("p1", "s11", "203.0.113.5"))
	if res.Admitted || res.Reason != domain.ReasonRateLimitExceeded {
		t.Fatalf("11th view = %+v", res)
	}
	if n := countViews(t, p.db, "p1"); n != 10 {
		t.Fatalf("want 10 stored views, got %d", n)
	}
	if got := testutil.ToFloat64(viewAdmissions.WithLabelValues("rate_limited")) - before; got != 1 {
		t.Fatalf("rate_limited counter delta = %v", got)
	}
}

func TestTrackView_BotRecordedButExcluded(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	if res, _ := p.views.Track(ctx, viewIn("p1", "s1", "203.0.113.5")); !res.Admitted {
		t.Fatalf("human view not admitted: %+v", res)
	}

	in := viewIn("p1", "s2", "66.249.66.1")
	in.UserAgent = "Googlebot/2.1"
	res, err := p.views.Track(ctx, in)
	if err != nil {
		t.Fatalf("Track bot: %v", err)
	}
	if !res.IsBot || res.Admitted || res.Reason != domain.ReasonBotDetected || res.ViewID == "" {
		t.Fatalf("bot view = %+v", res)
	}
	if n := countViews(t, p.db, "p1"); n != 2 {
		t.Fatalf("bot event must be recorded for audit, stored=%d", n)
	}
	st, err := p.stats.Get(ctx, "p1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if st.TotalViews != 1 || st.UniqueViews != 1 || st.BotViews != 1 {
		t.Fatalf("bot excluded from human counters, got %+v", st)
	}
}

func TestTrackView_OptionalFieldsPersisted(t *testing.T) {
	p := newPipeline(t)
	viewer, country, city, dur := "u1", "GR", "Athens", 42.5
	in := viewIn("p1", "s1", "203.0.113.5")
	in.ViewerID, in.Country, in.City, in.DurationSecs = &viewer, &country, &city, &dur
	in.Referrer = "https://example.org/"

	res, err := p.views.Track(context.Background(), in)
	if err != nil || !res.Admitted {
		t.Fatalf("Track: %+v, %v", res, err)
	}
	var ev domain.ViewEvent
	if err := p.db.First(&ev, "id = ?", res.ViewID).Error; err != nil {
		t.Fatalf("load event: %v", err)
	}
	if ev.ViewerID == nil || *ev.ViewerID != "u1" || ev.Country == nil || ev.City == nil || *ev.City != "Athens" ||
		ev.ViewDurationSeconds == nil || *ev.ViewDurationSeconds != 42.5 || ev.Referrer != in.Referrer {
		t.Fatalf("stored event = %+v", ev)
	}
	st, _ := p.stats.Get(context.Background(), "p1")
	if st.RegisteredViews != 1 || st.AnonymousViews != 0 || st.AvgViewDurationSeconds != 42.5 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestTrackView_InvalidPostID(t *testing.T) {
	p := newPipeline(t)
	if _, err := p.views.Track(context.Background(), viewIn("  ", "s1", "a")); !errors.Is(err, ErrInvalidPostID) {
		t.Fatalf("want ErrInvalidPostID, got %v", err)
	}
}

func TestTrackView_StoreFailureDegrades(t *testing.T) {
	p := newPipeline(t)
	p.views.Admitter.Store = failingStore{}
	before := testutil.ToFloat64(trackingDegraded.WithLabelValues("view"))

	res, err := p.views.Track(context.Background(), viewIn("p1", "s1", "a"))
	if err != nil {
		t.Fatalf("degraded tracking must not error: %v", err)
	}
	if !res.Degraded || res.Admitted || res.SessionID != "s1" {
		t.Fatalf("degraded result = %+v", res)
	}
	if n := countViews(t, p.db, "p1"); n != 0 {
		t.Fatalf("nothing should be recorded, got %d", n)
	}
	if got := testutil.ToFloat64(trackingDegraded.WithLabelValues("view")) - before; got != 1 {
		t.Fatalf("degraded counter delta = %v", got)
	}
}

func TestTrackView_WriteFailureReleasesMarker(t *testing.T) {
	p := newPipeline(t)
	if err := p.db.Migrator().DropTable(&domain.ViewEvent{}); err != nil {
		t.Fatalf("drop table: %v", err)
	}

	res, err := p.views.Track(context.Background(), viewIn("p1", "s1", "a"))
	if err != nil || !res.Degraded || res.Admitted {
		t.Fatalf("write failure = %+v, %v", res, err)
	}
	if p.mr.Exists(kv.DupKey("s1", "p1")) {
		t.Fatalf("dup marker must be released so the next beacon retries")
	}
	if p.queue.calls() != 0 {
		t.Fatalf("no recompute for an unrecorded view")
	}
}

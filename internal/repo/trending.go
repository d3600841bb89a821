package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-engagement-backend/internal/domain"
)

const trendingSQL = `
SELECT v.post_id                    AS post_id,
       COUNT(DISTINCT v.session_id) AS recent_unique_views,
       COALESCE(l.like_count, 0)    AS like_count
FROM view_events v
LEFT JOIN (
    SELECT post_id, COUNT(*) AS like_count
    FROM like_records
    GROUP BY post_id
) l ON l.post_id = v.post_id
WHERE v.is_bot = ? AND v.created_at >= ?
GROUP BY v.post_id, l.like_count
ORDER BY recent_unique_views DESC, like_count DESC, v.post_id ASC
LIMIT ?`

// TopTrending ranks posts by distinct human sessions seen since `since`,
// breaking ties by total like count and then post ID.
func TopTrending(ctx context.Context, db *gorm.DB, since time.Time, limit int) ([]domain.TrendingPost, error) {
	out := make([]domain.TrendingPost, 0, limit)
	err := db.WithContext(ctx).Raw(trendingSQL, false, since.UTC(), limit).Scan(&out).Error
	return out, err
}

package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jeremyjsx/postdesk/internal/posts"
)

type postgresSource struct {
	db *sql.DB
}

func NewPostgresSource(sqlDB *sql.DB) Source {
	return &postgresSource{db: sqlDB}
}

func (s *postgresSource) Statistics(ctx context.Context, now time.Time) (*Statistics, error) {
	const totals = `
		SELECT COUNT(*),
			COALESCE(SUM(payment), 0),
			COALESCE(AVG(payment), 0),
			COUNT(*) FILTER (WHERE created_at >= $1),
			COUNT(*) FILTER (WHERE created_at >= $2)
		FROM posts`
	stats := &Statistics{LastUpdated: now.UTC()}
	err := s.db.QueryRowContext(ctx, totals, now.AddDate(0, 0, -7), now.AddDate(0, 0, -30)).Scan(
		&stats.TotalPosts, &stats.TotalPayments, &stats.AveragePayment,
		&stats.PostsLastWeek, &stats.PostsLastMonth)
	if err != nil {
		return nil, fmt.Errorf("post totals: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT platform, COUNT(*), COALESCE(SUM(payment), 0)
		FROM posts GROUP BY platform ORDER BY platform`)
	if err != nil {
		return nil, fmt.Errorf("platform stats: %w", err)
	}
	stats.PlatformStats = []PlatformStats{}
	for rows.Next() {
		var ps PlatformStats
		if err := rows.Scan(&ps.Platform, &ps.Count, &ps.TotalPayment); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan platform stats: %w", err)
		}
		stats.PlatformStats = append(stats.PlatformStats, ps)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("platform stats: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM posts GROUP BY status ORDER BY status`)
	if err != nil {
		return nil, fmt.Errorf("status stats: %w", err)
	}
	defer rows.Close()
	stats.StatusStats = []StatusStats{}
	for rows.Next() {
		var ss StatusStats
		if err := rows.Scan(&ss.Status, &ss.Count); err != nil {
			return nil, fmt.Errorf("scan status stats: %w", err)
		}
		stats.StatusStats = append(stats.StatusStats, ss)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("status stats: %w", err)
	}
	return stats, nil
}

func (s *postgresSource) Trends(ctx context.Context, days int) ([]TrendPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT to_char((created_at AT TIME ZONE 'UTC')::date, 'YYYY-MM-DD') AS day,
			COUNT(*), COALESCE(SUM(payment), 0)
		FROM posts
		GROUP BY day
		ORDER BY day DESC
		LIMIT $1`, days)
	if err != nil {
		return nil, fmt.Errorf("trends: %w", err)
	}
	defer rows.Close()

	out := []TrendPoint{}
	for rows.Next() {
		var tp TrendPoint
		if err := rows.Scan(&tp.Date, &tp.Count, &tp.TotalPayment); err != nil {
			return nil, fmt.Errorf("scan trend: %w", err)
		}
		out = append(out, tp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("trends: %w", err)
	}
	return out, nil
}

func (s *postgresSource) PlatformPerformance(ctx context.Context) ([]PlatformPerformance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT platform, COUNT(*), COALESCE(AVG(payment), 0),
			COUNT(*) FILTER (WHERE status = $1)
		FROM posts GROUP BY platform ORDER BY platform`, string(posts.Published))
	if err != nil {
		return nil, fmt.Errorf("platform performance: %w", err)
	}
	defer rows.Close()

	out := []PlatformPerformance{}
	for rows.Next() {
		var pp PlatformPerformance
		if err := rows.Scan(&pp.Platform, &pp.TotalPosts, &pp.AveragePayment, &pp.PublishedPosts); err != nil {
			return nil, fmt.Errorf("scan platform performance: %w", err)
		}
		pp.PublishRate = PublishRate(pp.PublishedPosts, pp.TotalPosts)
		out = append(out, pp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("platform performance: %w", err)
	}
	return out, nil
}

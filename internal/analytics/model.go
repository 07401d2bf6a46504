package analytics

import (
	"time"

	"github.com/jeremyjsx/postdesk/internal/posts"
)

type PlatformStats struct {
	Platform     posts.Platform `json:"platform"`
	Count        int64          `json:"count"`
	TotalPayment float64        `json:"total_payment"`
}

type StatusStats struct {
	Status posts.Status `json:"status"`
	Count  int64        `json:"count"`
}

type Statistics struct {
	TotalPosts     int64           `json:"total_posts"`
	TotalPayments  float64         `json:"total_payments"`
	AveragePayment float64         `json:"average_payment"`
	PlatformStats  []PlatformStats `json:"platform_stats"`
	StatusStats    []StatusStats   `json:"status_stats"`
	PostsLastWeek  int64           `json:"posts_last_week"`
	PostsLastMonth int64           `json:"posts_last_month"`
	LastUpdated    time.Time       `json:"last_updated"`
}

// TrendPoint aggregates the posts created on one UTC day (YYYY-MM-DD).
type TrendPoint struct {
	Date         string  `json:"date"`
	Count        int64   `json:"count"`
	TotalPayment float64 `json:"total_payment"`
}

type Trends struct {
	Trends []TrendPoint `json:"trends"`
	Page   int          `json:"page"`
	Limit  int          `json:"limit"`
	Total  int          `json:"total"`
}

type PlatformPerformance struct {
	Platform       posts.Platform `json:"platform"`
	TotalPosts     int64          `json:"total_posts"`
	AveragePayment float64        `json:"average_payment"`
	PublishedPosts int64          `json:"published_posts"`
	PublishRate    float64        `json:"publish_rate"`
}

// PublishRate is the published share as a percentage, 0 for an empty platform.
func PublishRate(published, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(published) / float64(total) * 100
}

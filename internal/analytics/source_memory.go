package analytics

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/jeremyjsx/postdesk/internal/posts"
)

// PostLister yields every stored post; posts.MemoryStore satisfies it.
type PostLister interface {
	All(ctx context.Context) ([]*posts.Post, error)
}

type memorySource struct {
	posts PostLister
}

// NewMemorySource aggregates in process over a PostLister.
func NewMemorySource(l PostLister) Source {
	return &memorySource{posts: l}
}

func (s *memorySource) Statistics(ctx context.Context, now time.Time) (*Statistics, error) {
	all, err := s.posts.All(ctx)
	if err != nil {
		return nil, err
	}
	lastWeek, lastMonth := now.AddDate(0, 0, -7), now.AddDate(0, 0, -30)

	stats := &Statistics{LastUpdated: now.UTC()}
	byPlatform := map[posts.Platform]*PlatformStats{}
	byStatus := map[posts.Status]*StatusStats{}
	for _, p := range all {
		stats.TotalPosts++
		stats.TotalPayments += p.Payment
		if !p.CreatedAt.Before(lastWeek) {
			stats.PostsLastWeek++
		}
		if !p.CreatedAt.Before(lastMonth) {
			stats.PostsLastMonth++
		}
		ps, ok := byPlatform[p.Platform]
		if !ok {
			ps = &PlatformStats{Platform: p.Platform}
			byPlatform[p.Platform] = ps
		}
		ps.Count++
		ps.TotalPayment += p.Payment

		ss, ok := byStatus[p.Status]
		if !ok {
			ss = &StatusStats{Status: p.Status}
			byStatus[p.Status] = ss
		}
		ss.Count++
	}
	if stats.TotalPosts > 0 {
		stats.AveragePayment = stats.TotalPayments / float64(stats.TotalPosts)
	}

	stats.PlatformStats = make([]PlatformStats, 0, len(byPlatform))
	for _, ps := range byPlatform {
		stats.PlatformStats = append(stats.PlatformStats, *ps)
	}
	slices.SortFunc(stats.PlatformStats, func(a, b PlatformStats) int {
		return strings.Compare(string(a.Platform), string(b.Platform))
	})
	stats.StatusStats = make([]StatusStats, 0, len(byStatus))
	for _, ss := range byStatus {
		stats.StatusStats = append(stats.StatusStats, *ss)
	}
	slices.SortFunc(stats.StatusStats, func(a, b StatusStats) int {
		return strings.Compare(string(a.Status), string(b.Status))
	})
	return stats, nil
}

func (s *memorySource) Trends(ctx context.Context, days int) ([]TrendPoint, error) {
	all, err := s.posts.All(ctx)
	if err != nil {
		return nil, err
	}
	byDay := map[string]*TrendPoint{}
	for _, p := range all {
		day := p.CreatedAt.UTC().Format(dateLayout)
		tp, ok := byDay[day]
		if !ok {
			tp = &TrendPoint{Date: day}
			byDay[day] = tp
		}
		tp.Count++
		tp.TotalPayment += p.Payment
	}
	out := make([]TrendPoint, 0, len(byDay))
	for _, tp := range byDay {
		out = append(out, *tp)
	}
	slices.SortFunc(out, func(a, b TrendPoint) int { return strings.Compare(b.Date, a.Date) })
	if len(out) > days {
		out = out[:days]
	}
	return out, nil
}

func (s *memorySource) PlatformPerformance(ctx context.Context) ([]PlatformPerformance, error) {
	all, err := s.posts.All(ctx)
	if err != nil {
		return nil, err
	}
	type acc struct {
		total, published int64
		payment          float64
	}
	byPlatform := map[posts.Platform]*acc{}
	for _, p := range all {
		a, ok := byPlatform[p.Platform]
		if !ok {
			a = &acc{}
			byPlatform[p.Platform] = a
		}
		a.total++
		a.payment += p.Payment
		if p.Status == posts.Published {
			a.published++
		}
	}
	out := make([]PlatformPerformance, 0, len(byPlatform))
	for platform, a := range byPlatform {
		out = append(out, PlatformPerformance{
			Platform:       platform,
			TotalPosts:     a.total,
			AveragePayment: a.payment / float64(a.total),
			PublishedPosts: a.published,
			PublishRate:    PublishRate(a.published, a.total),
		})
	}
	slices.SortFunc(out, func(a, b PlatformPerformance) int {
		return strings.Compare(string(a.Platform), string(b.Platform))
	})
	return out, nil
}

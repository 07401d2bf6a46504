package handlers

import "net/http"

func Register(mux *http.ServeMux, p *PostsHandler, a *AnalyticsHandler, health http.HandlerFunc) {
	mux.HandleFunc("GET /health", health)

	mux.HandleFunc("POST /posts", p.Create())
	mux.HandleFunc("GET /posts", p.List())
	mux.HandleFunc("GET /v1/posts", p.ListOffset())
	mux.HandleFunc("GET /posts/{id}", p.Get())
	mux.HandleFunc("PUT /posts/{id}", p.Update())
	mux.HandleFunc("DELETE /posts/{id}", p.Delete())
	mux.HandleFunc("GET /posts/{id}/versions", p.Versions())
	mux.HandleFunc("PUT /posts/{id}/revert/{versionId}", p.Revert())

	mux.HandleFunc("GET /posts/analytics/summary", a.Summary())
	mux.HandleFunc("GET /posts/analytics/trends", a.Trends())
	mux.HandleFunc("GET /posts/analytics/platform-performance", a.PlatformPerformance())
}

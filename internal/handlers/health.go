package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/jeremyjsx/postdesk/internal/storage"
)

// HealthDeps lists what /health checks. Nil or empty entries are reported as skipped.
type HealthDeps struct {
	DB          *sql.DB
	Storage     storage.Storage
	RabbitMQURL string
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func Health(deps *HealthDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]string{}
		status := "healthy"

		switch {
		case deps.DB == nil:
			checks["db"] = "skipped"
		case deps.DB.PingContext(ctx) != nil:
			checks["db"] = "unhealthy"
			status = "unhealthy"
		default:
			checks["db"] = "ok"
		}

		if deps.Storage == nil {
			checks["s3"] = "skipped"
		} else if err := deps.Storage.Ping(ctx); err != nil {
			checks["s3"] = "unhealthy"
			if status == "healthy" {
				status = "degraded"
			}
		} else {
			checks["s3"] = "ok"
		}

		if deps.RabbitMQURL != "" {
			conn, err := amqp.Dial(deps.RabbitMQURL)
			if err != nil {
				checks["rabbitmq"] = "unhealthy"
				if status == "healthy" {
					status = "degraded"
				}
			} else {
				_ = conn.Close()
				checks["rabbitmq"] = "ok"
			}
		} else {
			checks["rabbitmq"] = "skipped"
		}

		code := http.StatusOK
		if status == "unhealthy" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, healthResponse{Status: status, Checks: checks})
	}
}

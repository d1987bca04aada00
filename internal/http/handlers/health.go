package handlers

import (
	"net/http"
	"time"

	"github.com/keffjoons/looksy-backend/internal/infra"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   infra.ServiceName,
	})
}

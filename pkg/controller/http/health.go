package http

import (
	"net/http"

	"github.com/m-mizutani/webchatter/pkg/domain/model"
	"github.com/m-mizutani/webchatter/pkg/domain/types"
)

// healthHandler reports liveness and the backend the relay talks to
func healthHandler(backend string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, &model.HealthStatus{
			Status:  "healthy",
			Service: "webchatter",
			Version: types.Version,
			Backend: backend,
		})
	}
}

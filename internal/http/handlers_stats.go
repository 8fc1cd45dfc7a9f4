package httpx

import (
	"net/http"
	"time"

	"github.com/cargosense/cargosense/internal/domain/model"
	"github.com/cargosense/cargosense/internal/service"
	"github.com/cargosense/cargosense/internal/stats"
)

const statsTopShipperCount = 5

// StatsHandlers serves the dashboard metrics bundle.
type StatsHandlers struct {
	Jobs *service.JobService
	// Now is the clock used for time-relative metrics. Defaults to time.Now.
	Now func() time.Time
}

type statsResponse struct {
	stats.Stats
	TopShippers []stats.ShipperSummary `json:"topShippers"`
}

// Get handles GET /api/stats. The bundle is computed fresh from the current
// job snapshot on every call.
func (h *StatsHandlers) Get(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.Jobs.List(r.Context())
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}

	all := make([]model.CargoJob, 0, len(jobs))
	for _, j := range jobs {
		if j != nil {
			all = append(all, *j)
		}
	}

	resp := statsResponse{
		Stats:       stats.Aggregate(all, now),
		TopShippers: stats.TopShippers(all, statsTopShipperCount),
	}
	WriteJSON(w, http.StatusOK, resp)
}

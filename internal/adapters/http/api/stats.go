// Package api declares HTTP contracts and route registration helpers.
package api

import "net/http"

// StatsProvider exposes runtime counters of the leaderboard service: pages
// computed vs served from cache, votes accepted vs rate limited, uptime and
// the effective paging limits.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves the runtime counter snapshot.
type StatsHandler struct {
	statsProvider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(statsProvider StatsProvider) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.statsProvider.GetStats())
}

package server

import (
	"net/http"
	"time"
)

const serviceVersion = "1.0.0"

type healthDatabaseInfo struct {
	OpenConnections int   `json:"openConnections"`
	InUse           int   `json:"inUse"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"waitCount"`
}

type healthDatabase struct {
	Status       string              `json:"status"`
	ConnectedAt  string              `json:"connectedAt,omitempty"`
	LastErrorAt  string              `json:"lastErrorAt,omitempty"`
	LastError    string              `json:"lastError,omitempty"`
	Info         *healthDatabaseInfo `json:"info,omitempty"`
}

type healthResponse struct {
	Ok          bool           `json:"ok"`
	Service     string         `json:"service"`
	Version     string         `json:"version"`
	Environment string         `json:"environment"`
	Database    healthDatabase `json:"database"`
	Timestamp   string         `json:"timestamp"`
}

// HandleHealth implements GET /health.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status, err := s.dbClient.Health(r.Context())
	now := isoNow()

	resp := healthResponse{
		Service:     "mesh-validator",
		Version:     serviceVersion,
		Environment: s.cfg.Environment,
		Timestamp:   now,
	}

	if err != nil {
		resp.Ok = false
		resp.Database = healthDatabase{Status: "error", LastErrorAt: now, LastError: err.Error()}
		writeJSON(w, s.logger, http.StatusOK, resp)
		return
	}

	if !status.Healthy {
		resp.Ok = false
		resp.Database = healthDatabase{Status: "unhealthy", LastErrorAt: now, LastError: status.Error}
		writeJSON(w, s.logger, http.StatusOK, resp)
		return
	}

	resp.Ok = true
	resp.Database = healthDatabase{
		Status:      "connected",
		ConnectedAt: status.CheckedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
		Info: &healthDatabaseInfo{
			OpenConnections: status.OpenConnections,
			InUse:           status.InUse,
			Idle:            status.Idle,
			WaitCount:       status.WaitCount,
		},
	}
	writeJSON(w, s.logger, http.StatusOK, resp)
}

// Package server exposes the mesh validator over HTTP: proof submission,
// read-only mesh queries, and a health probe.
package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// envelope is the response shape every /mesh/* endpoint uses.
// /proof/submit, /proof/config and /health use flat shapes of their own
// instead and bypass this type.
type envelope struct {
	Ok        bool        `json:"ok"`
	Result    interface{} `json:"result,omitempty"`
	Error     *apiError   `json:"error,omitempty"`
	Timestamp string      `json:"timestamp"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// isoNow renders the current instant as ISO-8601 with millisecond
// precision, UTC, trailing Z.
func isoNow() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}

func writeJSON(w http.ResponseWriter, logger *log.Logger, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Printf("error encoding response: %v", err)
	}
}

func writeResult(w http.ResponseWriter, logger *log.Logger, status int, result interface{}) {
	writeJSON(w, logger, status, envelope{Ok: true, Result: result, Timestamp: isoNow()})
}

func writeAPIError(w http.ResponseWriter, logger *log.Logger, status int, code, message string) {
	writeJSON(w, logger, status, envelope{Ok: false, Error: &apiError{Code: code, Message: message}, Timestamp: isoNow()})
}

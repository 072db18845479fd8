package server

import (
	"encoding/json"
	"net/http"

	"github.com/stepnetwork/mesh-validator/pkg/orchestrator"
)

// submitEnvelope is the POST /proof/submit request body. payload is kept as a raw message so it can
// be handed to canonical.Parse byte-for-byte, preserving the json.Number
// precision the signature was computed over.
type submitEnvelope struct {
	Payload   json.RawMessage `json:"payload"`
	Signature string          `json:"signature"`
}

// submitResponse is the flat success shape of POST /proof/submit
//, distinct from the {ok,result,timestamp} envelope
// every /mesh/* endpoint uses.
type submitResponse struct {
	Reward          string         `json:"reward"`
	Unit            string         `json:"unit"`
	TriangleID      string         `json:"triangleId"`
	Level           int            `json:"level"`
	Clicks          int            `json:"clicks"`
	Balance         string         `json:"balance"`
	Confidence      int            `json:"confidence"`
	ConfidenceLevel string         `json:"confidenceLevel"`
	Scores          map[string]int `json:"scores"`
	ProcessedAt     string         `json:"processedAt"`
}

// submitErrorResponse is the flat failure shape of POST /proof/submit.
type submitErrorResponse struct {
	Code       string   `json:"code"`
	Message    string   `json:"message"`
	Timestamp  string   `json:"timestamp"`
	Confidence int      `json:"confidence,omitempty"`
	Reasons    []string `json:"reasons,omitempty"`
}

// HandleSubmit implements POST /proof/submit.
func (s *Server) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeAPIError(w, s.logger, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "only POST is allowed")
		return
	}

	var env submitEnvelope
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&env); err != nil {
		s.writeSubmitError(w, http.StatusBadRequest, &orchestrator.Error{
			Kind:    orchestrator.KindInvalidPayload,
			Message: "request body must be valid JSON {payload, signature}: " + err.Error(),
		})
		return
	}

	result, subErr := s.orchestrator.Submit(r.Context(), env.Payload, env.Signature)
	if subErr != nil {
		s.writeSubmitError(w, statusForKind(subErr.Kind), subErr)
		return
	}

	writeJSON(w, s.logger, http.StatusOK, submitResponse{
		Reward:          result.Reward,
		Unit:            result.Unit,
		TriangleID:      result.TriangleID,
		Level:           result.Level,
		Clicks:          result.Clicks,
		Balance:         result.Balance,
		Confidence:      result.Confidence,
		ConfidenceLevel: result.ConfidenceLevel,
		Scores:          result.Scores,
		ProcessedAt:     result.ProcessedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
	})
}

func (s *Server) writeSubmitError(w http.ResponseWriter, status int, subErr *orchestrator.Error) {
	writeJSON(w, s.logger, status, submitErrorResponse{
		Code:       string(subErr.Kind),
		Message:    subErr.Message,
		Timestamp:  isoNow(),
		Confidence: subErr.Confidence,
		Reasons:    subErr.Reasons,
	})
}

// statusForKind maps a failure Kind to its HTTP status code.
func statusForKind(k orchestrator.Kind) int {
	switch k {
	case orchestrator.KindInvalidPayload:
		return http.StatusBadRequest
	case orchestrator.KindBadSignature:
		return http.StatusUnauthorized
	case orchestrator.KindNonceReplay:
		return http.StatusConflict
	case orchestrator.KindOutOfBounds,
		orchestrator.KindLowGpsAccuracy,
		orchestrator.KindTooFast,
		orchestrator.KindMoratorium,
		orchestrator.KindLowConfidence,
		orchestrator.KindAttestationRequired,
		orchestrator.KindAttestationFailed:
		return http.StatusUnprocessableEntity
	case orchestrator.KindTriangleNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// configResponse is the GET /proof/config echo.
type configResponse struct {
	GPSMaxAccuracyM               float64 `json:"gpsMaxAccuracyM"`
	ProofSpeedLimitMPS            float64 `json:"proofSpeedLimitMps"`
	ProofMoratoriumMS             int64   `json:"proofMoratoriumMs"`
	ConfidenceAcceptanceThreshold int     `json:"confidenceAcceptanceThreshold"`
	ConfidenceRequireAttestation  bool    `json:"confidenceRequireAttestation"`
}

// HandleConfig implements GET /proof/config.
func (s *Server) HandleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeAPIError(w, s.logger, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "only GET is allowed")
		return
	}
	writeJSON(w, s.logger, http.StatusOK, configResponse{
		GPSMaxAccuracyM:               s.cfg.GPSMaxAccuracyM,
		ProofSpeedLimitMPS:            s.cfg.ProofSpeedLimitMPS,
		ProofMoratoriumMS:             s.cfg.ProofMoratorium.Milliseconds(),
		ConfidenceAcceptanceThreshold: s.cfg.ConfidenceAcceptanceThreshold,
		ConfidenceRequireAttestation:  s.cfg.ConfidenceRequireAttestation,
	})
}

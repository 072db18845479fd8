package server

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
)

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}

func TestHandleTriangleAtReturnsContainingTriangle(t *testing.T) {
	s := &Server{logger: discardLogger()}
	req := httptest.NewRequest(http.MethodGet, "/mesh/triangleAt?lat=10&lon=20&level=3&includePolygon=true", nil)
	rr := httptest.NewRecorder()

	s.HandleTriangleAt(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	body := decodeEnvelope(t, rr)
	if ok, _ := body["ok"].(bool); !ok {
		t.Errorf("expected ok:true, got %+v", body)
	}
	result, ok := body["result"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected result object, got %+v", body)
	}
	if result["level"].(float64) != 3 {
		t.Errorf("expected level 3, got %v", result["level"])
	}
	if _, ok := result["polygon"]; !ok {
		t.Errorf("expected polygon included, got %+v", result)
	}
}

func TestHandleTriangleAtRejectsOutOfRangeLat(t *testing.T) {
	s := &Server{logger: discardLogger()}
	req := httptest.NewRequest(http.MethodGet, "/mesh/triangleAt?lat=200&lon=20&level=3", nil)
	rr := httptest.NewRecorder()

	s.HandleTriangleAt(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestHandlePolygonRoundTripsThroughChildrenAndParent(t *testing.T) {
	s := &Server{logger: discardLogger()}

	atReq := httptest.NewRequest(http.MethodGet, "/mesh/triangleAt?lat=10&lon=20&level=2", nil)
	atRR := httptest.NewRecorder()
	s.HandleTriangleAt(atRR, atReq)
	atBody := decodeEnvelope(t, atRR)
	triangleID := atBody["result"].(map[string]interface{})["triangleId"].(string)

	polyReq := httptest.NewRequest(http.MethodGet, "/mesh/polygon/"+triangleID+"?includeMetadata=true", nil)
	polyRR := httptest.NewRecorder()
	s.HandlePolygon(polyRR, polyReq, triangleID)
	if polyRR.Code != http.StatusOK {
		t.Fatalf("polygon: expected 200, got %d: %s", polyRR.Code, polyRR.Body.String())
	}
	polyBody := decodeEnvelope(t, polyRR)
	polyResult := polyBody["result"].(map[string]interface{})
	if polyResult["areaM2"].(float64) <= 0 {
		t.Errorf("expected positive area, got %v", polyResult["areaM2"])
	}

	childReq := httptest.NewRequest(http.MethodGet, "/mesh/children/"+triangleID, nil)
	childRR := httptest.NewRecorder()
	s.HandleChildren(childRR, childReq, triangleID)
	if childRR.Code != http.StatusOK {
		t.Fatalf("children: expected 200, got %d: %s", childRR.Code, childRR.Body.String())
	}
	childBody := decodeEnvelope(t, childRR)
	children := childBody["result"].(map[string]interface{})["children"].([]interface{})
	if len(children) != 4 {
		t.Fatalf("expected 4 children, got %d", len(children))
	}

	parentReq := httptest.NewRequest(http.MethodGet, "/mesh/parent/"+children[0].(string), nil)
	parentRR := httptest.NewRecorder()
	s.HandleParent(parentRR, parentReq, children[0].(string))
	if parentRR.Code != http.StatusOK {
		t.Fatalf("parent: expected 200, got %d: %s", parentRR.Code, parentRR.Body.String())
	}
	parentBody := decodeEnvelope(t, parentRR)
	gotParent := parentBody["result"].(map[string]interface{})["parent"].(string)
	if gotParent != triangleID {
		t.Errorf("expected parent %q, got %q", triangleID, gotParent)
	}
}

func TestHandleChildrenRejectsMaxLevelTriangle(t *testing.T) {
	s := &Server{logger: discardLogger()}
	atReq := httptest.NewRequest(http.MethodGet, "/mesh/triangleAt?lat=10&lon=20&level=21", nil)
	atRR := httptest.NewRecorder()
	s.HandleTriangleAt(atRR, atReq)
	triangleID := decodeEnvelope(t, atRR)["result"].(map[string]interface{})["triangleId"].(string)

	req := httptest.NewRequest(http.MethodGet, "/mesh/children/"+triangleID, nil)
	rr := httptest.NewRecorder()
	s.HandleChildren(rr, req, triangleID)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", rr.Code)
	}
}

func TestHandleInfoRejectsMalformedID(t *testing.T) {
	s := &Server{logger: discardLogger()}
	req := httptest.NewRequest(http.MethodGet, "/mesh/info/not-a-real-id", nil)
	rr := httptest.NewRecorder()
	s.HandleInfo(rr, req, "not-a-real-id")

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

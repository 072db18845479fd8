package server

import (
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	validatorpkg "github.com/go-playground/validator/v10"

	"github.com/stepnetwork/mesh-validator/pkg/database"
	"github.com/stepnetwork/mesh-validator/pkg/mesh"
)

var paramValidator = validatorpkg.New()

// geoPoint is the JSON-friendly rendering of mesh.Point, which itself
// carries no json tags to keep the geometry package free of wire concerns.
type geoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func toGeoPoint(p mesh.Point) geoPoint { return geoPoint{Lat: p.Lat, Lon: p.Lon} }

func toGeoPoints(pts []mesh.Point) []geoPoint {
	out := make([]geoPoint, len(pts))
	for i, p := range pts {
		out[i] = toGeoPoint(p)
	}
	return out
}

// triangleAtQuery binds and validates GET /mesh/triangleAt's query string
//. go-playground/validator enforces the numeric ranges a
// hand-rolled bounds check would otherwise scatter across every endpoint.
type triangleAtQuery struct {
	Lat            float64 `validate:"gte=-90,lte=90"`
	Lon            float64 `validate:"gte=-180,lte=180"`
	Level          int     `validate:"gte=1,lte=21"`
	IncludePolygon bool
}

func parseTriangleAtQuery(q url.Values) (*triangleAtQuery, error) {
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		return nil, err
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil {
		return nil, err
	}
	level, err := strconv.Atoi(q.Get("level"))
	if err != nil {
		return nil, err
	}
	out := &triangleAtQuery{Lat: lat, Lon: lon, Level: level, IncludePolygon: q.Get("includePolygon") == "true"}
	if err := paramValidator.Struct(out); err != nil {
		return nil, err
	}
	return out, nil
}

type triangleAtResponse struct {
	TriangleID          string     `json:"triangleId"`
	Face                int        `json:"face"`
	Level               int        `json:"level"`
	Path                string     `json:"path"`
	Centroid            geoPoint   `json:"centroid"`
	EstimatedSideLength float64    `json:"estimatedSideLength"`
	Polygon             []geoPoint `json:"polygon,omitempty"`
}

// HandleTriangleAt implements GET /mesh/triangleAt.
func (s *Server) HandleTriangleAt(w http.ResponseWriter, r *http.Request) {
	q, err := parseTriangleAtQuery(r.URL.Query())
	if err != nil {
		writeAPIError(w, s.logger, http.StatusBadRequest, "INVALID_QUERY", err.Error())
		return
	}

	id, err := mesh.Locate(q.Lat, q.Lon, q.Level)
	if err != nil {
		writeAPIError(w, s.logger, http.StatusBadRequest, "LOCATE_FAILED", err.Error())
		return
	}
	info, err := mesh.Describe(id, q.IncludePolygon)
	if err != nil {
		writeAPIError(w, s.logger, http.StatusInternalServerError, "DESCRIBE_FAILED", err.Error())
		return
	}

	encoded, err := mesh.Encode(id.Face, id.Path)
	if err != nil {
		writeAPIError(w, s.logger, http.StatusInternalServerError, "ENCODE_FAILED", err.Error())
		return
	}

	resp := triangleAtResponse{
		TriangleID:          encoded,
		Face:                id.Face,
		Level:               id.Level,
		Path:                pathDigits(id.Path),
		Centroid:            toGeoPoint(info.Centroid),
		EstimatedSideLength: info.EstimatedSideLength,
	}
	if q.IncludePolygon {
		resp.Polygon = toGeoPoints(info.Polygon)
	}
	writeResult(w, s.logger, http.StatusOK, resp)
}

type polygonResponse struct {
	TriangleID string    `json:"triangleId"`
	Polygon    []geoPoint `json:"polygon"`
	AreaM2     float64   `json:"areaM2,omitempty"`
	PerimeterM float64   `json:"perimeterM,omitempty"`
	Centroid   *geoPoint `json:"centroid,omitempty"`
}

// HandlePolygon implements GET /mesh/polygon/:id.
func (s *Server) HandlePolygon(w http.ResponseWriter, r *http.Request, rawID string) {
	id, err := mesh.Decode(rawID)
	if err != nil {
		writeAPIError(w, s.logger, http.StatusBadRequest, "INVALID_ID", err.Error())
		return
	}
	polygon, err := mesh.Polygon(id)
	if err != nil {
		writeAPIError(w, s.logger, http.StatusInternalServerError, "POLYGON_FAILED", err.Error())
		return
	}

	resp := polygonResponse{TriangleID: rawID, Polygon: toGeoPoints(polygon)}
	if r.URL.Query().Get("includeMetadata") == "true" {
		resp.AreaM2 = mesh.EstimatedAreaM2(id.Level)
		resp.PerimeterM = polygonPerimeterM(polygon)
		centroid, err := mesh.Centroid(id)
		if err != nil {
			writeAPIError(w, s.logger, http.StatusInternalServerError, "CENTROID_FAILED", err.Error())
			return
		}
		gp := toGeoPoint(centroid)
		resp.Centroid = &gp
	}
	writeResult(w, s.logger, http.StatusOK, resp)
}

func polygonPerimeterM(ring []mesh.Point) float64 {
	var total float64
	for i := 0; i+1 < len(ring); i++ {
		total += mesh.HaversineMeters(ring[i], ring[i+1])
	}
	return total
}

// HandleChildren implements GET /mesh/children/:id.
func (s *Server) HandleChildren(w http.ResponseWriter, r *http.Request, rawID string) {
	id, err := mesh.Decode(rawID)
	if err != nil {
		writeAPIError(w, s.logger, http.StatusBadRequest, "INVALID_ID", err.Error())
		return
	}
	children, err := mesh.Children(id)
	if err != nil {
		writeAPIError(w, s.logger, http.StatusUnprocessableEntity, "NO_CHILDREN", err.Error())
		return
	}

	ids := make([]string, 0, 4)
	for _, c := range children {
		encoded, err := mesh.Encode(c.Face, c.Path)
		if err != nil {
			writeAPIError(w, s.logger, http.StatusInternalServerError, "ENCODE_FAILED", err.Error())
			return
		}
		ids = append(ids, encoded)
	}
	writeResult(w, s.logger, http.StatusOK, map[string]interface{}{"triangleId": rawID, "children": ids})
}

// HandleParent implements GET /mesh/parent/:id.
func (s *Server) HandleParent(w http.ResponseWriter, r *http.Request, rawID string) {
	id, err := mesh.Decode(rawID)
	if err != nil {
		writeAPIError(w, s.logger, http.StatusBadRequest, "INVALID_ID", err.Error())
		return
	}
	parent, err := mesh.Parent(id)
	if err != nil {
		writeAPIError(w, s.logger, http.StatusUnprocessableEntity, "NO_PARENT", err.Error())
		return
	}
	encoded, err := mesh.Encode(parent.Face, parent.Path)
	if err != nil {
		writeAPIError(w, s.logger, http.StatusInternalServerError, "ENCODE_FAILED", err.Error())
		return
	}
	writeResult(w, s.logger, http.StatusOK, map[string]interface{}{"triangleId": rawID, "parent": encoded})
}

// searchResult is one row of GET /mesh/search's result array.
type searchResult struct {
	TriangleID string       `json:"triangleId"`
	Level      int          `json:"level"`
	Clicks     int          `json:"clicks"`
	State      string       `json:"state"`
	Centroid   database.Point `json:"centroid"`
	Polygon    []database.Point `json:"polygon,omitempty"`
}

// HandleSearch implements GET /mesh/search?bbox&level&maxResults&includePolygon
// over materialized (DB-persisted) triangles only — the mesh
// has ~2.8e12 leaves and almost none are materialized until clicked, so a
// bbox search necessarily scopes to what pkg/database actually holds.
func (s *Server) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	bbox := strings.Split(q.Get("bbox"), ",")
	if len(bbox) != 4 {
		writeAPIError(w, s.logger, http.StatusBadRequest, "INVALID_BBOX", "bbox must be \"minLat,minLon,maxLat,maxLon\"")
		return
	}
	var coords [4]float64
	for i, v := range bbox {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			writeAPIError(w, s.logger, http.StatusBadRequest, "INVALID_BBOX", "bbox components must be numeric")
			return
		}
		coords[i] = f
	}
	minLat, minLon, maxLat, maxLon := coords[0], coords[1], coords[2], coords[3]

	level, err := strconv.Atoi(q.Get("level"))
	if err != nil || level < 1 || level > mesh.MaxLevel {
		writeAPIError(w, s.logger, http.StatusBadRequest, "INVALID_LEVEL", "level must be in [1,21]")
		return
	}
	maxResults := 100
	if v := q.Get("maxResults"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxResults = n
		}
	}
	includePolygon := q.Get("includePolygon") == "true"

	triangles, err := s.triangles.ActiveAtLevel(r.Context(), level)
	if err != nil {
		writeAPIError(w, s.logger, http.StatusInternalServerError, "SEARCH_FAILED", err.Error())
		return
	}

	out := make([]searchResult, 0, len(triangles))
	for _, t := range triangles {
		if t.Centroid.Lat < minLat || t.Centroid.Lat > maxLat || t.Centroid.Lon < minLon || t.Centroid.Lon > maxLon {
			continue
		}
		sr := searchResult{TriangleID: t.ID, Level: t.Level, Clicks: t.Clicks, State: string(t.State), Centroid: t.Centroid}
		if includePolygon {
			sr.Polygon = t.Polygon
		}
		out = append(out, sr)
		if len(out) >= maxResults {
			break
		}
	}
	writeResult(w, s.logger, http.StatusOK, out)
}

// HandleNearest implements GET /mesh/nearest?lat&lon&level&count:
// the containing triangle at the given level plus its (count-1) nearest
// materialized neighbors at that level, ranked by centroid distance.
func (s *Server) HandleNearest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, lErr := strconv.ParseFloat(q.Get("lat"), 64)
	lon, oErr := strconv.ParseFloat(q.Get("lon"), 64)
	level, vErr := strconv.Atoi(q.Get("level"))
	if lErr != nil || oErr != nil || vErr != nil || level < 1 || level > mesh.MaxLevel {
		writeAPIError(w, s.logger, http.StatusBadRequest, "INVALID_QUERY", "lat, lon and level (1-21) are required")
		return
	}
	count := 1
	if v := q.Get("count"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			count = n
		}
	}

	containing, err := mesh.Locate(lat, lon, level)
	if err != nil {
		writeAPIError(w, s.logger, http.StatusBadRequest, "LOCATE_FAILED", err.Error())
		return
	}
	containingEncoded, err := mesh.Encode(containing.Face, containing.Path)
	if err != nil {
		writeAPIError(w, s.logger, http.StatusInternalServerError, "ENCODE_FAILED", err.Error())
		return
	}

	candidates, err := s.triangles.ActiveAtLevel(r.Context(), level)
	if err != nil {
		writeAPIError(w, s.logger, http.StatusInternalServerError, "SEARCH_FAILED", err.Error())
		return
	}
	origin := mesh.Point{Lat: lat, Lon: lon}
	sort.Slice(candidates, func(i, j int) bool {
		di := mesh.HaversineMeters(origin, mesh.Point{Lat: candidates[i].Centroid.Lat, Lon: candidates[i].Centroid.Lon})
		dj := mesh.HaversineMeters(origin, mesh.Point{Lat: candidates[j].Centroid.Lat, Lon: candidates[j].Centroid.Lon})
		return di < dj
	})

	type nearestEntry struct {
		TriangleID string  `json:"triangleId"`
		DistanceM  float64 `json:"distanceM"`
	}
	out := []nearestEntry{{TriangleID: containingEncoded, DistanceM: 0}}
	for _, c := range candidates {
		if c.ID == containingEncoded {
			continue
		}
		if len(out) >= count {
			break
		}
		out = append(out, nearestEntry{
			TriangleID: c.ID,
			DistanceM:  mesh.HaversineMeters(origin, mesh.Point{Lat: c.Centroid.Lat, Lon: c.Centroid.Lon}),
		})
	}
	writeResult(w, s.logger, http.StatusOK, out)
}

type infoResponse struct {
	TriangleID          string     `json:"triangleId"`
	Face                int        `json:"face"`
	Level               int        `json:"level"`
	Path                string     `json:"path"`
	Centroid            geoPoint   `json:"centroid"`
	Polygon             []geoPoint `json:"polygon"`
	EstimatedSideLength float64    `json:"estimatedSideLength"`
	EstimatedAreaM2     float64    `json:"estimatedAreaM2"`
	State               string     `json:"state,omitempty"`
	Clicks              int        `json:"clicks,omitempty"`
}

// HandleInfo implements GET /mesh/info/:id: always returns the
// pure-geometry facts, and overlays state/clicks when the triangle has
// actually been materialized by a prior subdivision.
func (s *Server) HandleInfo(w http.ResponseWriter, r *http.Request, rawID string) {
	id, err := mesh.Decode(rawID)
	if err != nil {
		writeAPIError(w, s.logger, http.StatusBadRequest, "INVALID_ID", err.Error())
		return
	}
	meshInfo, err := mesh.Describe(id, true)
	if err != nil {
		writeAPIError(w, s.logger, http.StatusInternalServerError, "DESCRIBE_FAILED", err.Error())
		return
	}

	resp := infoResponse{
		TriangleID:          rawID,
		Face:                id.Face,
		Level:               id.Level,
		Path:                pathDigits(id.Path),
		Centroid:            toGeoPoint(meshInfo.Centroid),
		Polygon:             toGeoPoints(meshInfo.Polygon),
		EstimatedSideLength: meshInfo.EstimatedSideLength,
		EstimatedAreaM2:     meshInfo.EstimatedAreaM2,
	}
	if row, err := s.triangles.Get(r.Context(), rawID); err == nil {
		resp.State = string(row.State)
		resp.Clicks = row.Clicks
	} else if err != database.ErrTriangleNotFound {
		writeAPIError(w, s.logger, http.StatusInternalServerError, "LOOKUP_FAILED", err.Error())
		return
	}
	writeResult(w, s.logger, http.StatusOK, resp)
}

// HandleStats implements GET /mesh/stats[?level], a real GROUP BY level,
// state aggregate query rather than one flat global row — the optional
// level filter narrows both the totals and the per-level breakdown to a
// single level.
func (s *Server) HandleStats(w http.ResponseWriter, r *http.Request) {
	var level *int
	if raw := r.URL.Query().Get("level"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > mesh.MaxLevel {
			writeAPIError(w, s.logger, http.StatusBadRequest, "INVALID_LEVEL", "level must be in [1,21]")
			return
		}
		level = &v
	}

	stats, err := s.triangles.Stats(r.Context(), level)
	if err != nil {
		writeAPIError(w, s.logger, http.StatusInternalServerError, "STATS_FAILED", err.Error())
		return
	}

	byLevel := make([]map[string]interface{}, len(stats.ByLevel))
	for i, ls := range stats.ByLevel {
		byLevel[i] = map[string]interface{}{
			"level":               ls.Level,
			"totalTriangles":      ls.TotalTriangles,
			"activeTriangles":     ls.ActiveTriangles,
			"subdividedTriangles": ls.SubdividedTriangles,
		}
	}
	writeResult(w, s.logger, http.StatusOK, map[string]interface{}{
		"totalTriangles":      stats.TotalTriangles,
		"activeTriangles":     stats.ActiveTriangles,
		"subdividedTriangles": stats.SubdividedTriangles,
		"maxLevelReached":     stats.MaxLevelReached,
		"byLevel":             byLevel,
	})
}

func pathDigits(path []int) string {
	b := make([]byte, len(path))
	for i, d := range path {
		b[i] = byte('0' + d)
	}
	return string(b)
}

package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"

	"github.com/cameron-ship-it/Blocks-mapbox/internal/boundary"
	"github.com/cameron-ship-it/Blocks-mapbox/internal/geo"
	"github.com/cameron-ship-it/Blocks-mapbox/internal/metrics"
	"github.com/cameron-ship-it/Blocks-mapbox/internal/selection"
	"github.com/cameron-ship-it/Blocks-mapbox/internal/session"
)

// MapConfig is the trio of strings the wizard front end needs to boot the
// map widget.
type MapConfig struct {
	Token         string
	BlockLayer    string
	BoundaryLayer string
}

type Handler struct {
	log        zerolog.Logger
	mapConfig  MapConfig
	boundaries *boundary.Catalog
	sessions   *session.Registry
	metrics    *metrics.Metrics
}

func NewHandler(log zerolog.Logger, mapConfig MapConfig, boundaries *boundary.Catalog, sessions *session.Registry, m *metrics.Metrics) *Handler {
	return &Handler{
		log:        log,
		mapConfig:  mapConfig,
		boundaries: boundaries,
		sessions:   sessions,
		metrics:    m,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Use(h.accessLog)

	// Health
	r.Get("/healthz", h.handleHealthz)
	r.Get("/readyz", h.handleReadyZ)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	// API
	r.Route("/api", func(r chi.Router) {
		r.Route("/v1", func(r chi.Router) {
			r.Get("/config", h.handleConfig)
			r.Get("/boundaries", h.handleBoundaries)

			r.Route("/sessions", func(r chi.Router) {
				r.Post("/", h.handleCreateSession)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.handleGetSession)
					r.Delete("/", h.handleDeleteSession)
					r.Post("/step", h.handleStep)
					r.Put("/mode", h.handleMode)
					r.Post("/click", h.handleClick)
					r.Post("/selection", h.handleSelection)
					r.Post("/selection/clear", h.handleClearAll)
					r.Post("/selection/all", h.handleSelectAll)
					r.Post("/selection/invert", h.handleInvert)
					r.Post("/neighborhoods", h.handleNeighborhoods)
				})
			})
		})
	})

	return r
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		routePattern := chi.RouteContext(r.Context()).RoutePattern()
		if routePattern == "" {
			routePattern = r.URL.Path
		}
		h.metrics.ObserveHTTPRequest(r.Method, routePattern, ww.Status(), time.Since(start))

		h.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("http_request")
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	resp := map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": msg,
		},
	}
	if details != nil {
		resp["error"].(map[string]any)["details"] = details
	}
	h.writeJSON(w, status, resp)
}

func decodeJSONStrict(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return errors.New("unexpected extra data after JSON body")
		}
		return err
	}
	return nil
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleReadyZ(w http.ResponseWriter, r *http.Request) {
	if h.boundaries == nil || !h.boundaries.Loaded() {
		h.writeError(w, http.StatusServiceUnavailable, "boundaries_unavailable", "boundary catalog not loaded", nil)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"ready": true, "boundaries": h.boundaries.Len()})
}

func (h *Handler) handleConfig(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"map_token":      h.mapConfig.Token,
		"block_layer":    h.mapConfig.BlockLayer,
		"boundary_layer": h.mapConfig.BoundaryLayer,
	})
}

type boundaryView struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	BBox     []float64         `json:"bbox"`
	Geometry *geojson.Geometry `json:"geometry,omitempty"`
}

func (h *Handler) handleBoundaries(w http.ResponseWriter, r *http.Request) {
	withGeometry := r.URL.Query().Get("geometry") == "true"

	all := h.boundaries.All()
	resp := make([]boundaryView, 0, len(all))
	for _, b := range all {
		v := boundaryView{
			ID:   b.ID,
			Name: b.Name,
			BBox: bboxOf(b.Bound),
		}
		if withGeometry {
			v.Geometry = geojson.NewGeometry(b.Geometry)
		}
		resp = append(resp, v)
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func bboxOf(b orb.Bound) []float64 {
	return []float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]}
}

type sessionView struct {
	ID       string              `json:"id"`
	Step     string              `json:"step"`
	Steps    []string            `json:"steps"`
	Mode     selection.Mode      `json:"mode"`
	Selected []selection.BlockID `json:"selected"`
	Count    int                 `json:"count"`
}

func viewOf(s *session.Session) sessionView {
	ids := s.Store.SortedIDs()
	return sessionView{
		ID:       s.ID,
		Step:     s.CurrentStep(),
		Steps:    s.Wizard.Steps(),
		Mode:     s.Store.Mode(),
		Selected: ids,
		Count:    len(ids),
	}
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := chi.URLParam(r, "id")
	s, ok := h.sessions.Get(id)
	if !ok {
		h.writeError(w, http.StatusNotFound, "not_found", "session not found", map[string]any{"id": id})
		return nil, false
	}
	return s, true
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Create(r.Context())
	h.writeJSON(w, http.StatusCreated, viewOf(s))
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, viewOf(s))
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.sessions.Remove(id)
	h.writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

type stepRequest struct {
	Action string `json:"action"`
	Step   string `json:"step,omitempty"`
}

func (h *Handler) handleStep(w http.ResponseWriter, r *http.Request) {
	var req stepRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid json body", map[string]any{"error": err.Error()})
		return
	}

	s, ok := h.session(w, r)
	if !ok {
		return
	}

	// Invalid targets and boundary moves are silent no-ops: the snapshot
	// tells the caller where the wizard actually is.
	s.StepAction(req.Action, req.Step)
	h.writeJSON(w, http.StatusOK, viewOf(s))
}

type modeRequest struct {
	Mode string `json:"mode"`
}

func (h *Handler) handleMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid json body", map[string]any{"error": err.Error()})
		return
	}

	s, ok := h.session(w, r)
	if !ok {
		return
	}

	s.Store.SetMode(r.Context(), selection.ParseMode(req.Mode))
	h.writeJSON(w, http.StatusOK, viewOf(s))
}

type clickRequest struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

func (h *Handler) handleClick(w http.ResponseWriter, r *http.Request) {
	var req clickRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid json body", map[string]any{"error": err.Error()})
		return
	}

	s, ok := h.session(w, r)
	if !ok {
		return
	}

	if s.Surface != nil {
		s.Surface.Click(h.mapConfig.BlockLayer, orb.Point{req.Lng, req.Lat})
	}
	h.writeJSON(w, http.StatusOK, viewOf(s))
}

type selectionRequest struct {
	Op  string   `json:"op"`
	IDs []string `json:"ids"`
}

func (h *Handler) handleSelection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid json body", map[string]any{"error": err.Error()})
		return
	}

	s, ok := h.session(w, r)
	if !ok {
		return
	}

	ids := make([]selection.BlockID, 0, len(req.IDs))
	for _, id := range req.IDs {
		if id != "" {
			ids = append(ids, selection.BlockID(id))
		}
	}

	switch req.Op {
	case "toggle":
		for _, id := range ids {
			s.Store.Toggle(id)
		}
	case "add":
		s.Store.AddMany(ids)
	case "remove":
		for _, id := range ids {
			s.Store.SetSelected(id, false)
		}
	default:
		h.writeError(w, http.StatusBadRequest, "validation_failed", "op must be toggle, add or remove", map[string]any{"op": req.Op})
		return
	}

	h.metrics.IncSelectionMutation(req.Op)
	h.writeJSON(w, http.StatusOK, viewOf(s))
}

func (h *Handler) handleClearAll(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Adapter.ClearAll()
	h.writeJSON(w, http.StatusOK, viewOf(s))
}

func (h *Handler) handleSelectAll(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Adapter.SelectAllVisible()
	h.writeJSON(w, http.StatusOK, viewOf(s))
}

func (h *Handler) handleInvert(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Adapter.InvertVisible()
	h.writeJSON(w, http.StatusOK, viewOf(s))
}

type neighborhoodsRequest struct {
	IDs []string `json:"ids"`
}

type neighborhoodsResponse struct {
	Added   int         `json:"added"`
	Skipped int         `json:"skipped"`
	BBox    []float64   `json:"bbox,omitempty"`
	Session sessionView `json:"session"`
}

// handleNeighborhoods runs the spatial auto-selection pass: blocks
// intersecting any chosen boundary are added to the selection. Additive; a
// manual selection is never replaced.
func (h *Handler) handleNeighborhoods(w http.ResponseWriter, r *http.Request) {
	var req neighborhoodsRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid json body", map[string]any{"error": err.Error()})
		return
	}

	s, ok := h.session(w, r)
	if !ok {
		return
	}

	boundaries := h.boundaries.Resolve(req.IDs)
	blocks := s.Adapter.VisibleBlocks()

	start := time.Now()
	res := geo.ComputeIntersecting(boundaries, blocks)
	h.metrics.ObserveSpatialFilter(time.Since(start))
	h.metrics.AddBadGeometry(res.Skipped)

	if res.Skipped > 0 {
		h.log.Warn().
			Str("session_id", s.ID).
			Int("skipped", res.Skipped).
			Msg("candidate blocks skipped for bad geometry")
	}

	s.Store.AddMany(res.IDs)

	resp := neighborhoodsResponse{
		Added:   len(res.IDs),
		Skipped: res.Skipped,
		Session: viewOf(s),
	}
	if b, ok := geo.CombinedBound(req.IDs, h.boundaries.Lookup()); ok {
		resp.BBox = bboxOf(b)
	}

	h.writeJSON(w, http.StatusOK, resp)
}

package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/holoray/holoray/internal/core/input"
)

// rayResponse is the wire form of a resolved ray.
type rayResponse struct {
	Origin    [3]float32 `json:"origin"`
	Direction [3]float32 `json:"direction"`
}

type sourceResponse struct {
	ID         string           `json:"id"`
	Session    string           `json:"session"`
	Kind       input.SourceKind `json:"kind"`
	Handedness input.Handedness `json:"handedness"`
	Mappings   []string         `json:"mappings"`
	LastSeen   time.Time        `json:"last_seen"`
}

type healthResponse struct {
	Status   string `json:"status"`
	Sessions int64  `json:"sessions"`
	Sources  int    `json:"sources"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) registerAPI(mux *http.ServeMux) {
	mux.HandleFunc("/ray", s.handleRay)
	mux.HandleFunc("/sources", s.handleSources)
	mux.HandleFunc("/healthz", s.handleHealth)
}

// handleRay resolves GET /ray?kind=<kind>&hand=<handedness>.
func (s *Server) handleRay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	kind, err := input.ParseSourceKind(r.URL.Query().Get("kind"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	hand, err := input.ParseHandedness(r.URL.Query().Get("hand"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	ray, ok := s.resolver.Ray(kind, hand)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "ray unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, rayResponse{
		Origin:    [3]float32{ray.Origin.X, ray.Origin.Y, ray.Origin.Z},
		Direction: [3]float32{ray.Direction.X, ray.Direction.Y, ray.Direction.Z},
	})
}

// handleSources lists the attached sources.
func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	snapshot := s.system.Registry().Snapshot()
	out := make([]sourceResponse, 0, len(snapshot))
	for _, src := range snapshot {
		mappings := make([]string, 0, len(src.Mappings))
		for usage := range src.Mappings {
			mappings = append(mappings, string(usage))
		}
		out = append(out, sourceResponse{
			ID:         src.ID,
			Session:    src.SessionID,
			Kind:       src.Kind,
			Handedness: src.Handedness,
			Mappings:   mappings,
			LastSeen:   src.LastSeen,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:   "ok",
		Sessions: s.wsIngest.SessionCount(),
		Sources:  s.system.Registry().Len(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

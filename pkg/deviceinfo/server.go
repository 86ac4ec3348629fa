package deviceinfo

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Server exposes a Provider's answers over HTTP for RemoteProvider to
// query: one handler per call, JSON in and out, no state held between
// requests.
type Server struct {
	Provider Provider
}

// Handler returns the server's routes as an http.Handler, usable
// directly in tests (httptest.NewServer) or behind a custom listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/sectorsize", s.handleSectorSize)
	mux.HandleFunc("/drivedetails", s.handleDriveDetails)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

func (s *Server) ListenAndServe(port int) error {
	return http.ListenAndServe(fmt.Sprintf(":%d", port), s.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) handleSectorSize(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		http.Error(w, "missing path query parameter", http.StatusBadRequest)
		return
	}
	logical, physical, err := s.Provider.GetSectorSize(path)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, struct {
		Logical  int64 `json:"logical"`
		Physical int64 `json:"physical"`
	}{logical, physical})
}

func (s *Server) handleDriveDetails(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		http.Error(w, "missing path query parameter", http.StatusBadRequest)
		return
	}
	details, err := s.Provider.GetDriveDetails(path)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, details)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		fmt.Printf("deviceinfo: failed to encode response: %v\n", err)
	}
}

package devserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tasteos/cookmode/internal/api"
	"github.com/tasteos/cookmode/internal/session"
	"github.com/tasteos/cookmode/internal/shared"
)

// Middleware wraps an http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Server exposes the engine over the cook API's HTTP surface.
type Server struct {
	engine *Engine
	logger *log.Logger
}

// NewServer creates a server around an engine.
func NewServer(engine *Engine, logger *log.Logger) *Server {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Server{engine: engine, logger: logger}
}

// Handler builds the full route table under /api/v1.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/cook/recipes", s.handleRecipes)
	mux.HandleFunc("POST /api/v1/cook/session/start", s.handleStart)
	mux.HandleFunc("GET /api/v1/cook/session/active", s.handleActive)
	mux.HandleFunc("PATCH /api/v1/cook/session/{id}", s.handlePatch)
	mux.HandleFunc("PATCH /api/v1/cook/session/{id}/end", s.handleEnd)
	mux.HandleFunc("GET /api/v1/cook/session/{id}/suggestions", s.handleSuggestions)
	mux.HandleFunc("GET /api/v1/cook/session/{id}/events", s.handleEvents)
	mux.HandleFunc("POST /api/v1/cook/assist", s.handleAssist)

	return Logging(s.logger)(mux)
}

// ListenAndServe serves the API on addr until the listener fails.
func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("dev server listening", "addr", addr)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}

// Logging logs one line per request in the access-log style.
func Logging(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start))
		})
	}
}

func (s *Server) handleRecipes(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"recipes": s.engine.Recipes()})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RecipeID string `json:"recipe_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RecipeID == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("%w: recipe_id required", shared.ErrInvalidInput))
		return
	}

	snap, err := s.engine.Start(body.RecipeID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleActive(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.Active(r.URL.Query().Get("recipe_id"))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handlePatch(w http.ResponseWriter, r *http.Request) {
	var patch session.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}

	snap, err := s.engine.ApplyPatch(r.PathValue("id"), &patch)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	action := session.EndAction(r.URL.Query().Get("action"))
	snap, err := s.engine.End(r.PathValue("id"), action)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	set, err := s.engine.Suggestions(r.PathValue("id"), api.SuggestionQuery{})
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, set)
}

func (s *Server) handleAssist(w http.ResponseWriter, r *http.Request) {
	var req api.AssistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}

	resp, err := s.engine.Assist(req)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleEvents streams session snapshots as server-sent events. The
// current snapshot is sent immediately so a reconnecting client converges
// without waiting for the next mutation.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}

	snap, err := s.engine.Session(sessionID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	events, cancel := s.engine.Subscribe(sessionID)
	defer cancel()

	writeEvent := func(snap *session.CookSession) bool {
		data, err := json.Marshal(snap)
		if err != nil {
			s.logger.Error("failed to encode event", "err", err)
			return false
		}
		if _, err := fmt.Fprintf(w, "event: session\ndata: %s\n\n", data); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !writeEvent(snap) {
		return
	}

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case snap := <-events:
			if !writeEvent(snap) {
				return
			}
			if snap.Terminal() {
				return
			}
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to write response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNoActiveSession),
		errors.Is(err, shared.ErrSessionNotFound),
		errors.Is(err, shared.ErrRecipeNotFound),
		errors.Is(err, shared.ErrTimerNotFound):
		s.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrInvalidTransition),
		errors.Is(err, shared.ErrSessionTerminal):
		s.writeError(w, http.StatusUnprocessableEntity, err)
	default:
		s.writeError(w, http.StatusInternalServerError, err)
	}
}

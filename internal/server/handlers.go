package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hugin-ai/hugin/internal/agent"
	"github.com/hugin-ai/hugin/internal/session"
	"github.com/hugin-ai/hugin/internal/stack"
)

type agentSummary struct {
	ID           string `json:"id"`
	Config       string `json:"config"`
	CurrentState string `json:"currentState,omitempty"`
	Interactions int    `json:"interactions"`
	Finished     bool   `json:"finished"`
}

type sessionSummary struct {
	ID       string         `json:"id"`
	Agents   []agentSummary `json:"agents"`
	Finished bool           `json:"finished"`
}

type interactionView struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Branch    string `json:"branch,omitempty"`
	CreatedAt string `json:"createdAt"`
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.store.ListSessions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
	}
	s.mu.Lock()
	for id := range s.sessions {
		if !seen[id] {
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"sessions": ids})
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
		return
	}

	out := sessionSummary{ID: sess.ID(), Finished: sess.Finished()}
	for _, a := range sess.Agents() {
		summary := agentSummary{
			ID:           a.ID(),
			CurrentState: a.CurrentState(),
			Interactions: a.Stack().Len(),
			Finished:     a.Finished(),
		}
		if a.Config() != nil {
			summary.Config = a.Config().Name
		}
		out.Agents = append(out.Agents, summary)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) stepSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := s.session(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
		return
	}
	progress, err := sess.Step(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"progress": progress, "finished": sess.Finished()})
}

func (s *Server) getAgent(w http.ResponseWriter, r *http.Request) {
	a, ok := s.lookupAgent(w, r)
	if !ok {
		return
	}

	views := make([]interactionView, 0, a.Stack().Len())
	for _, i := range a.Stack().Interactions() {
		views = append(views, interactionView{
			ID:        i.ID(),
			Kind:      i.Kind(),
			Branch:    i.Branch(),
			CreatedAt: i.CreatedAt().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":           a.ID(),
		"currentState": a.CurrentState(),
		"interactions": views,
		"branches":     a.Stack().BranchNames(),
	})
}

func (s *Server) messageAgent(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := s.session(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
		return
	}

	var body struct {
		Input string `json:"input"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Input == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "body must carry a non-empty input")
		return
	}

	id, err := sess.MessageAgent(chi.URLParam(r, "agentID"), body.Input)
	if err != nil {
		writeError(w, statusFor(err), ErrCodeNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"interactionID": id})
}

func (s *Server) respondToAgent(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := s.session(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
		return
	}

	var body struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Response == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "body must carry a non-empty response")
		return
	}

	if err := sess.SubmitHumanResponse(chi.URLParam(r, "agentID"), body.Response); err != nil {
		if errors.Is(err, session.ErrNoPendingQuestion) {
			writeError(w, http.StatusConflict, ErrCodeInvalidRequest, err.Error())
			return
		}
		writeError(w, statusFor(err), ErrCodeNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"accepted": true})
}

func (s *Server) lookupAgent(w http.ResponseWriter, r *http.Request) (*agent.Agent, bool) {
	sess, err := s.session(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
		return nil, false
	}
	a, err := sess.Agent(chi.URLParam(r, "agentID"))
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
		return nil, false
	}
	return a, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrUnknownAgent):
		return http.StatusNotFound
	case errors.Is(err, stack.ErrStackBusy):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

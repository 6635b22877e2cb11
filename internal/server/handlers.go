package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/abhisek/missionkit/internal/api"
	"github.com/abhisek/missionkit/internal/content"
	"github.com/abhisek/missionkit/internal/evaluator"
	"github.com/abhisek/missionkit/internal/mission"
	"github.com/abhisek/missionkit/internal/store"
)

const maxBodyBytes = 4 << 20

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		if err := s.pinger(r.Context()); err != nil {
			respondError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req api.CreateSessionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.StudentID == "" || req.TopicID == "" || req.GameTypeID == "" {
		respondError(w, http.StatusBadRequest, "student_id, topic_id and game_type_id are required")
		return
	}
	if _, ok := mission.LookupVariant(mission.GameType(req.GameTypeID)); !ok {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown game_type_id %q", req.GameTypeID))
		return
	}

	gs := &store.GameSession{
		ID:         s.newID(),
		StudentID:  req.StudentID,
		TopicID:    req.TopicID,
		GameTypeID: req.GameTypeID,
		Details:    json.RawMessage(`{}`),
		CreatedAt:  s.now(),
	}
	if err := s.sessions.Create(r.Context(), gs); err != nil {
		s.logger.Error("create session failed", "error", err, "student_id", req.StudentID)
		respondError(w, http.StatusInternalServerError, "could not create session")
		return
	}
	sessionsCreated.WithLabelValues(req.GameTypeID).Inc()
	s.logger.Info("session created", "session_id", gs.ID, "student_id", gs.StudentID, "game_type", gs.GameTypeID)
	respondJSON(w, http.StatusCreated, api.CreateSessionResponse{SessionID: gs.ID})
}

func (s *Server) finalizeSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	var req api.FinalizeSessionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	var details evaluator.StandardizedDetails
	if len(req.Details) > 0 {
		if err := json.Unmarshal(req.Details, &details); err != nil {
			respondError(w, http.StatusBadRequest, "details must be a JSON object")
			return
		}
	}

	gs, err := s.sessions.Finalize(r.Context(), id, store.FinalizeData{
		Score:           req.Score,
		DurationSeconds: req.DurationSeconds,
		CorrectCount:    req.CorrectCount,
		WrongCount:      req.WrongCount,
		Details:         req.Details,
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "session not found")
		return
	case errors.Is(err, store.ErrAlreadyFinalized):
		respondError(w, http.StatusConflict, "session already finalized")
		return
	case err != nil:
		s.logger.Error("finalize session failed", "session_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "could not finalize session")
		return
	}

	perf := string(details.Summary.Performance)
	sessionsFinalized.WithLabelValues(gs.GameTypeID, perfLabel(perf)).Inc()
	s.logger.Info("session finalized", "session_id", id, "score", gs.Score, "performance", perf)

	ev := SessionFinalized{
		SessionID:       gs.ID,
		StudentID:       gs.StudentID,
		TopicID:         gs.TopicID,
		GameTypeID:      gs.GameTypeID,
		Score:           gs.Score,
		DurationSeconds: gs.DurationSeconds,
		CorrectCount:    gs.CorrectCount,
		WrongCount:      gs.WrongCount,
		Performance:     perf,
		Passed:          details.Summary.Passed,
		FinalizedAt:     s.now(),
	}
	if gs.FinalizedAt != nil {
		ev.FinalizedAt = *gs.FinalizedAt
	}
	if err := s.publisher.PublishFinalized(r.Context(), ev); err != nil {
		eventPublishFailures.Inc()
		s.logger.Warn("publish session event failed", "session_id", id, "error", err)
	}

	respondJSON(w, http.StatusOK, toRecord(gs))
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	gs, err := s.sessions.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "could not load session")
		return
	}
	respondJSON(w, http.StatusOK, toRecord(gs))
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.SessionFilter{
		StudentID: q.Get("student_id"),
		TopicID:   q.Get("topic_id"),
		Limit:     50,
	}
	if v := q.Get("completed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "completed must be true or false")
			return
		}
		f.Completed = &b
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			respondError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		f.Limit = n
	}

	list, err := s.sessions.List(r.Context(), f)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "could not list sessions")
		return
	}
	out := make([]api.SessionRecord, len(list))
	for i, gs := range list {
		out[i] = toRecord(gs)
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) topicContent(w http.ResponseWriter, r *http.Request) {
	topicID := chi.URLParam(r, "topicID")
	items, err := s.reads.ListByTopic(r.Context(), topicID)
	if errors.Is(err, content.ErrTopicNotFound) {
		respondError(w, http.StatusNotFound, "topic not found")
		return
	}
	if err != nil {
		s.logger.Error("load content failed", "topic_id", topicID, "error", err)
		respondError(w, http.StatusInternalServerError, "could not load content")
		return
	}
	respondJSON(w, http.StatusOK, api.ContentResponse(items))
}

func (s *Server) replaceContent(w http.ResponseWriter, r *http.Request) {
	topicID := chi.URLParam(r, "topicID")
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "could not read body")
		return
	}
	items, err := content.ParseBank(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.bank.ReplaceTopic(r.Context(), topicID, items); err != nil {
		s.logger.Error("replace content failed", "topic_id", topicID, "error", err)
		respondError(w, http.StatusInternalServerError, "could not save content")
		return
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(r.Context(), topicID); err != nil {
			s.logger.Warn("content cache invalidation failed", "topic_id", topicID, "error", err)
		}
	}
	s.logger.Info("content replaced", "topic_id", topicID, "items", len(items))
	respondJSON(w, http.StatusOK, map[string]any{"topic_id": topicID, "items": len(items)})
}

func (s *Server) listTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := s.bank.Topics(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "could not list topics")
		return
	}
	respondJSON(w, http.StatusOK, topics)
}

func toRecord(gs *store.GameSession) api.SessionRecord {
	return api.SessionRecord{
		SessionID:       gs.ID,
		StudentID:       gs.StudentID,
		TopicID:         gs.TopicID,
		GameTypeID:      gs.GameTypeID,
		Score:           gs.Score,
		Completed:       gs.Completed,
		DurationSeconds: gs.DurationSeconds,
		CorrectCount:    gs.CorrectCount,
		WrongCount:      gs.WrongCount,
		Details:         gs.Details,
		CreatedAt:       gs.CreatedAt,
		FinalizedAt:     gs.FinalizedAt,
	}
}

func perfLabel(p string) string {
	if p == "" {
		return "unknown"
	}
	return p
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %s", strings.TrimPrefix(err.Error(), "json: "))
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, api.ErrorBody{Error: msg})
}

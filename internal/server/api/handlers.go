package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/silverkiwi/jobs-manager-sub002/internal/common"
	"github.com/silverkiwi/jobs-manager-sub002/internal/server/services"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	SessionToken string `json:"session_token"`
	CSRFToken    string `json:"csrf_token"`
}

type lineDTO struct {
	Key   string            `json:"key,omitempty"`
	ID    string            `json:"id,omitempty"`
	Cells map[string]string `json:"cells"`
}

type saveRequest struct {
	ID             string            `json:"id"`
	Key            string            `json:"key"`
	Record         map[string]string `json:"record"`
	LineItems      []lineDTO         `json:"line_items"`
	DeletedLineIDs []string          `json:"deleted_line_items"`
}

type messageDTO struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

type saveResponse struct {
	Success  bool              `json:"success"`
	ID       string            `json:"id,omitempty"`
	Number   string            `json:"number,omitempty"`
	LineIDs  map[string]string `json:"line_ids,omitempty"`
	Messages []messageDTO      `json:"messages,omitempty"`
}

type hydrationResponse struct {
	ID        string            `json:"id"`
	Number    string            `json:"number"`
	Record    map[string]string `json:"record"`
	LineItems []lineDTO         `json:"line_items"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, "username and password are required", http.StatusBadRequest)
		return
	}

	user, err := s.users.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		s.logger.Error(r.Context(), "register failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"id":       user.ID,
		"username": user.UserName,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	pair, err := s.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		s.logger.Error(r.Context(), "login failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		SessionToken: pair.SessionToken,
		CSRFToken:    pair.CSRFToken,
	})
}

func (s *Server) handleHydrate(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromCollection(r.PathValue("collection"))
	if !ok {
		http.Error(w, "unknown collection", http.StatusNotFound)
		return
	}

	doc, lines, err := s.documents.Hydrate(r.Context(), userIDFromContext(r.Context()), string(kind), r.PathValue("key"))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		s.logger.Error(r.Context(), "hydrate failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := hydrationResponse{
		ID:        doc.ID,
		Number:    doc.Number,
		Record:    doc.Fields,
		LineItems: []lineDTO{},
	}
	for _, line := range lines {
		resp.LineItems = append(resp.LineItems, lineDTO{ID: line.ID, Cells: line.Cells})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromCollection(r.PathValue("collection"))
	if !ok {
		http.Error(w, "unknown collection", http.StatusNotFound)
		return
	}

	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	svcReq := &services.SaveRequest{
		ID:             req.ID,
		Fields:         req.Record,
		DeletedLineIDs: req.DeletedLineIDs,
	}
	for _, line := range req.LineItems {
		svcReq.Lines = append(svcReq.Lines, services.SaveLine{Key: line.Key, ID: line.ID, Cells: line.Cells})
	}

	if req.Key == "" {
		http.Error(w, "missing document key", http.StatusBadRequest)
		return
	}

	out, err := s.documents.Save(r.Context(), userIDFromContext(r.Context()), string(kind), req.Key, svcReq)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorUnknownKind), errors.Is(err, common.ErrorNoDocumentKey):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			s.logger.Error(r.Context(), "save failed", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	resp := saveResponse{
		Success: out.Success,
		ID:      out.ID,
		Number:  out.Number,
		LineIDs: out.LineIDs,
	}
	for _, m := range out.Messages {
		resp.Messages = append(resp.Messages, messageDTO{Level: m.Level, Message: m.Message})
	}
	writeJSON(w, http.StatusOK, resp)
}

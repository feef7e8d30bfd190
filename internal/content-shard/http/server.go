package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/hotnot-platform-poc/internal/betting"
	"github.com/radieske/hotnot-platform-poc/internal/content-shard/dto"
	"github.com/radieske/hotnot-platform-poc/internal/content-shard/service"
	"github.com/radieske/hotnot-platform-poc/internal/content-shard/ws"
)

// Server expõe a API do content shard: posts, registro de apostas,
// status, índice reverso, sweep e o feed ao vivo.
type Server struct {
	log *zap.Logger
	svc *service.Service
	hub *ws.Hub
}

func NewServer(log *zap.Logger, svc *service.Service, hub *ws.Hub) *Server {
	return &Server{log: log, svc: svc, hub: hub}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/v1/posts", s.createPost)
	r.Patch("/v1/posts/{id}/status", s.setPostStatus)
	r.Post("/v1/posts/{id}/bets", s.registerBet)
	r.Get("/v1/posts/{id}/betting-status", s.getBettingStatus)
	r.Get("/v1/posts/{id}/bettors", s.getBettors)
	r.Post("/v1/posts/{id}/sweep", s.sweep)
	r.Get("/v1/posts/pending", s.pendingPosts)
	if s.hub != nil {
		r.Get("/ws", s.hub.HandleWS)
	}
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) createPost(w http.ResponseWriter, r *http.Request) {
	var req dto.CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.CreatorShard == "" || req.CreatorAccount == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	id, err := s.svc.CreatePost(r.Context(), req.CreatorShard, req.CreatorAccount)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, dto.CreatePostResponse{PostID: id})
}

func (s *Server) setPostStatus(w http.ResponseWriter, r *http.Request) {
	var req dto.SetPostStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	err := s.svc.SetPostStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	switch {
	case errors.Is(err, service.ErrPostNotFound):
		http.Error(w, "post not found", http.StatusNotFound)
	case err != nil:
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		w.WriteHeader(http.StatusOK)
	}
}

func (s *Server) registerBet(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	dir := betting.Direction(req.Direction)
	if req.Account == "" || req.AccountShard == "" || req.AmountCents <= 0 ||
		(dir != betting.Hot && dir != betting.Not) {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	st, err := s.svc.RegisterBet(r.Context(), service.RegisterBetInput{
		PostID:      chi.URLParam(r, "id"),
		Account:     req.Account,
		Shard:       req.AccountShard,
		AmountCents: req.AmountCents,
		Direction:   dir,
	})
	switch {
	case errors.Is(err, service.ErrPostNotFound):
		http.Error(w, "post not found", http.StatusNotFound)
		return
	case errors.Is(err, betting.ErrInvalidStake):
		http.Error(w, "invalid stake", http.StatusBadRequest)
		return
	case err != nil:
		s.log.Error("register bet", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, toStatusResponse(st))
}

func (s *Server) getBettingStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.GetBettingStatus(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, service.ErrPostNotFound) {
		http.Error(w, "post not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toStatusResponse(st))
}

func (s *Server) getBettors(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "id")
	accounts, err := s.svc.Bettors(r.Context(), postID)
	if errors.Is(err, service.ErrPostNotFound) {
		http.Error(w, "post not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, dto.BettorsResponse{PostID: postID, Accounts: accounts})
}

// sweep é o gatilho externo de liquidação (scheduler fora deste serviço).
func (s *Server) sweep(w http.ResponseWriter, r *http.Request) {
	err := s.svc.SweepPendingSlots(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, service.ErrPostNotFound) {
		http.Error(w, "post not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) pendingPosts(w http.ResponseWriter, r *http.Request) {
	ids, err := s.svc.PostsWithPendingSlots(r.Context(), 200)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, dto.PendingPostsResponse{PostIDs: ids})
}

func toStatusResponse(st service.BettingStatus) dto.BettingStatusResponse {
	resp := dto.BettingStatusResponse{Status: "CLOSED", StartedAt: st.StartedAt}
	if st.Open {
		resp.Status = "OPEN"
		resp.Slot = st.Slot
		resp.Room = st.Room
		resp.ParticipantCount = st.ParticipantCount
	}
	return resp
}

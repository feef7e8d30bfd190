package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/hotnot-platform-poc/internal/account-shard/dto"
	"github.com/radieske/hotnot-platform-poc/internal/account-shard/repo"
	"github.com/radieske/hotnot-platform-poc/internal/account-shard/service"
	"github.com/radieske/hotnot-platform-poc/internal/betting"
)

// Server expõe a API do shard de conta: o saga de aposta, o recebimento
// de resultados e as consultas de ledger.
type Server struct {
	log *zap.Logger
	svc *service.Service
}

func NewServer(log *zap.Logger, svc *service.Service) *Server {
	return &Server{log: log, svc: svc}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/v1/accounts", s.registerAccount)
	r.Post("/v1/accounts/{id}/deposit", s.deposit)
	r.Get("/v1/accounts/{id}/balance", s.getBalance)
	r.Get("/v1/accounts/{id}/ledger", s.getHistory)
	r.Get("/v1/accounts/{id}/bets", s.listPlacedBets)
	r.Get("/v1/accounts/{id}/bets/{shard}/{postId}", s.getPlacedBet)
	r.Post("/v1/bets", s.placeBet)
	r.Post("/v1/outcomes", s.receiveOutcome)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// caller resolve a identidade da sessão. Sem header é UserNotLoggedIn.
func caller(r *http.Request) string {
	return r.Header.Get("X-Account-ID")
}

func (s *Server) registerAccount(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Account == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if err := s.svc.RegisterAccount(r.Context(), req.Account); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "id")
	var req dto.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AmountCents <= 0 {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	balance, err := s.svc.Deposit(r.Context(), account, req.AmountCents, req.ExternalRef)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, dto.BalanceResponse{Account: account, BalanceCents: balance})
}

// placeBet dirige o saga de aposta. As falhas locais de pré-condição
// voltam síncronas sem mutação; BettingClosed volta 200 com status CLOSED
// porque a stake já foi devolvida.
func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	account := caller(r)
	if account == "" {
		http.Error(w, "not logged in", http.StatusUnauthorized)
		return
	}

	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	dir := betting.Direction(req.Direction)
	if req.ContentShard == "" || req.PostID == "" || req.AmountCents <= 0 ||
		(dir != betting.Hot && dir != betting.Not) {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	res, err := s.svc.PlaceBet(r.Context(), service.PlaceBetInput{
		Account:      account,
		ContentShard: req.ContentShard,
		PostID:       req.PostID,
		AmountCents:  req.AmountCents,
		Direction:    dir,
	})
	switch {
	case errors.Is(err, service.ErrAccountNotRegistered):
		http.Error(w, "account principal not set", http.StatusForbidden)
		return
	case errors.Is(err, service.ErrAlreadyParticipated):
		http.Error(w, "already participated", http.StatusConflict)
		return
	case errors.Is(err, service.ErrInsufficientBalance):
		http.Error(w, "insufficient balance", http.StatusConflict)
		return
	case errors.Is(err, betting.ErrInvalidStake):
		http.Error(w, "invalid stake", http.StatusBadRequest)
		return
	case errors.Is(err, service.ErrPostNotFound):
		http.Error(w, "post not found", http.StatusNotFound)
		return
	case errors.Is(err, service.ErrCreatorCallFailed):
		http.Error(w, "post creator call failed", http.StatusBadGateway)
		return
	case err != nil:
		s.log.Error("place bet", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := dto.PlaceBetResponse{Status: "CLOSED", StartedAt: res.StartedAt}
	if res.Open {
		resp.Status = "OPEN"
		resp.Slot = res.Slot
		resp.Room = res.Room
		resp.ParticipantCount = res.ParticipantCount
	}
	writeJSON(w, http.StatusOK, resp)
}

// receiveOutcome aplica uma entrega de liquidação (chamada interna do
// worker). Sempre idempotente; responder erro faz o worker reentregar.
func (s *Server) receiveOutcome(w http.ResponseWriter, r *http.Request) {
	var req dto.ReceiveOutcomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.DeliveryID == "" || req.Account == "" || req.PostID == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	err := s.svc.ReceiveOutcome(r.Context(), service.OutcomeDeliveryInput{
		DeliveryID:   req.DeliveryID,
		ContentShard: req.ContentShard,
		PostID:       req.PostID,
		Account:      req.Account,
		Type:         req.Type,
		AmountCents:  req.AmountCents,
		SettledAt:    req.SettledAt,
	})
	switch {
	case errors.Is(err, repo.ErrNotFound):
		// sem PlacedBetRecord não há o que resolver; 404 manda pra DLQ
		http.Error(w, "placed bet not found", http.StatusNotFound)
	case err != nil:
		s.log.Error("receive outcome", zap.String("deliveryId", req.DeliveryID), zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusOK)
	}
}

func (s *Server) getBalance(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "id")
	balance, err := s.svc.Balance(r.Context(), account)
	if errors.Is(err, service.ErrAccountNotRegistered) {
		http.Error(w, "account not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, dto.BalanceResponse{Account: account, BalanceCents: balance})
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "id")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	page, err := s.svc.History(r.Context(), account, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, dto.HistoryResponse{Account: account, Page: page})
}

func (s *Server) listPlacedBets(w http.ResponseWriter, r *http.Request) {
	bets, err := s.svc.PlacedBets(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := make([]dto.PlacedBetResponse, 0, len(bets))
	for _, b := range bets {
		out = append(out, toPlacedBetResponse(b))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getPlacedBet(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.PlacedBet(r.Context(),
		chi.URLParam(r, "shard"), chi.URLParam(r, "postId"), chi.URLParam(r, "id"))
	if errors.Is(err, repo.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toPlacedBetResponse(*b))
}

func toPlacedBetResponse(b repo.PlacedBet) dto.PlacedBetResponse {
	return dto.PlacedBetResponse{
		ContentShard: b.ContentShard,
		PostID:       b.PostID,
		Slot:         b.Slot,
		Room:         b.RoomNo,
		Direction:    b.Direction,
		StakeCents:   b.StakeCents,
		PlacedAt:     b.PlacedAt,
		Outcome:      b.Outcome,
		PayoutCents:  b.PayoutCents,
	}
}

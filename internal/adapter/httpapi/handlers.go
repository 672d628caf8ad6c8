package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kmehta/nivesh-backend/internal/adapter/auth"
	"github.com/kmehta/nivesh-backend/internal/domain"
	"github.com/kmehta/nivesh-backend/internal/usecase/dashboard"
	"github.com/kmehta/nivesh-backend/internal/usecase/portfolio"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// authMiddleware resolves the bearer token to a user and stamps it on the
// request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		userID, err := s.auth.Resolve(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
	})
}

func (s *Server) handleOTPRequest(w http.ResponseWriter, r *http.Request) {
	var body otpRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	requestID, err := s.auth.RequestOTP(body.Phone)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidPhone) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.log.Error().Err(err).Msg("otp request failed")
		writeError(w, http.StatusInternalServerError, "failed to issue otp")
		return
	}

	writeJSON(w, http.StatusOK, otpRequestResponse{RequestID: requestID})
}

func (s *Server) handleOTPVerify(w http.ResponseWriter, r *http.Request) {
	var body otpVerifyBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, userID, err := s.auth.VerifyOTP(body.RequestID, body.Code)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, otpVerifyResponse{Token: token, UserID: userID})
}

// session resolves the caller's portfolio orchestrator, writing the error
// response itself when it cannot.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*portfolio.Service, bool) {
	userID := s.auth.CurrentUserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "no authenticated user")
		return nil, false
	}

	svc, err := s.sessions.Get(r.Context(), userID)
	if err != nil {
		s.log.Error().Err(err).Str("user", userID).Msg("failed to load portfolio session")
		writeError(w, http.StatusInternalServerError, "failed to load portfolio")
		return nil, false
	}
	return svc, true
}

func (s *Server) handleListTrades(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.session(w, r)
	if !ok {
		return
	}

	trades := svc.Trades()
	out := make([]tradeResponse, 0, len(trades))
	for _, t := range trades {
		out = append(out, toTradeResponse(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddTrade(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.session(w, r)
	if !ok {
		return
	}

	var body tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	trade, err := body.toDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := svc.AddTrade(r.Context(), trade); err != nil {
		s.writeTradeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTradeResponse(trade))
}

func (s *Server) handleUpdateTrade(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.session(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid trade id")
		return
	}

	var body tradeUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	upd, err := body.toUpdate()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	trade, err := svc.UpdateTrade(r.Context(), id, upd)
	if err != nil {
		s.writeTradeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTradeResponse(trade))
}

func (s *Server) handleDeleteTrade(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.session(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid trade id")
		return
	}

	if err := svc.DeleteTrade(r.Context(), id); err != nil {
		s.writeTradeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListHoldings(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.session(w, r)
	if !ok {
		return
	}

	snap := svc.Snapshot()
	out := make([]holdingResponse, 0, len(snap.Holdings))
	for _, h := range snap.Holdings {
		out = append(out, toHoldingResponse(h))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListBuckets(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.session(w, r)
	if !ok {
		return
	}

	snap := svc.Snapshot()
	out := make([]bucketSummaryResponse, 0, len(snap.Buckets))
	for _, b := range snap.Buckets {
		out = append(out, toBucketSummaryResponse(b))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpsertBucket(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.session(w, r)
	if !ok {
		return
	}

	var body bucketUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	target, err := decimal.NewFromString(body.TargetAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid targetAmount")
		return
	}

	bucket := &domain.Bucket{
		Name:         chi.URLParam(r, "name"),
		TargetAmount: target,
		Purpose:      body.Purpose,
	}

	if err := svc.UpsertBucket(r.Context(), bucket); err != nil {
		if errors.Is(err, domain.ErrBucketNotFound) {
			writeError(w, http.StatusNotFound, "unknown bucket")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRefreshPrices(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.session(w, r)
	if !ok {
		return
	}

	refreshed := svc.RefreshPrices(r.Context())
	writeJSON(w, http.StatusOK, refreshResponse{Refreshed: refreshed})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.session(w, r)
	if !ok {
		return
	}

	snap := svc.Snapshot()
	summary := dashboard.Summarize(snap.Holdings, snap.Buckets)
	writeJSON(w, http.StatusOK, toDashboardResponse(summary))
}

// writeTradeError maps orchestrator errors onto HTTP statuses. Validation
// failures surface as 400; persistence failures as 502 since the local state
// has already been rolled back.
func (s *Server) writeTradeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrTradeNotFound):
		writeError(w, http.StatusNotFound, "trade not found")
	case strings.Contains(err.Error(), "failed to persist"):
		s.log.Error().Err(err).Msg("trade persistence failed")
		writeError(w, http.StatusBadGateway, "failed to persist change")
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// Package auth implements phone-number OTP authentication and the session
// registry that backs request identity.
package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrInvalidPhone   = errors.New("invalid phone number")
	ErrUnknownRequest = errors.New("unknown or expired otp request")
	ErrInvalidCode    = errors.New("invalid otp code")
	ErrInvalidToken   = errors.New("invalid session token")
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

type contextKey struct{}

var userIDKey contextKey

// Service issues OTP challenges and exchanges verified codes for session
// tokens. State is in-memory; sessions do not survive a restart and users
// simply re-verify.
type Service struct {
	log    zerolog.Logger
	otpTTL time.Duration
	now    func() time.Time

	mu       sync.Mutex
	pending  map[string]challenge // requestID -> challenge
	sessions map[string]string    // token -> userID
}

type challenge struct {
	phone   string
	code    string
	expires time.Time
}

// NewService creates the auth service.
func NewService(otpTTL time.Duration, log zerolog.Logger) *Service {
	if otpTTL <= 0 {
		otpTTL = 5 * time.Minute
	}
	return &Service{
		log:      log.With().Str("component", "auth").Logger(),
		otpTTL:   otpTTL,
		now:      time.Now,
		pending:  make(map[string]challenge),
		sessions: make(map[string]string),
	}
}

// RequestOTP starts a login for the given phone number and returns the
// request ID the client must echo back on verify. Without an SMS gateway
// wired in, the code is written to the log for local use.
func (s *Service) RequestOTP(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if !phonePattern.MatchString(phone) {
		return "", ErrInvalidPhone
	}

	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}

	requestID := uuid.NewString()

	s.mu.Lock()
	s.pending[requestID] = challenge{
		phone:   phone,
		code:    code,
		expires: s.now().Add(s.otpTTL),
	}
	s.pruneExpiredLocked()
	s.mu.Unlock()

	// TODO: plug in an SMS gateway; until then the code only reaches the log
	s.log.Info().Str("phone", maskPhone(phone)).Str("code", code).Msg("otp issued")

	return requestID, nil
}

// VerifyOTP exchanges a correct code for a session token. The user ID is
// derived deterministically from the phone number so a returning user keeps
// the same portfolio across sessions and restarts.
func (s *Service) VerifyOTP(requestID, code string) (token, userID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.pending[requestID]
	if !ok || s.now().After(ch.expires) {
		delete(s.pending, requestID)
		return "", "", ErrUnknownRequest
	}
	if ch.code != strings.TrimSpace(code) {
		return "", "", ErrInvalidCode
	}
	delete(s.pending, requestID)

	userID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("phone:"+ch.phone)).String()
	token = uuid.NewString()
	s.sessions[token] = userID

	s.log.Info().Str("user_id", userID).Msg("session established")
	return token, userID, nil
}

// PendingCode returns the code of an open challenge. It exists for local
// development and tests; an SMS gateway delivery path would replace it.
func (s *Service) PendingCode(requestID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.pending[requestID]
	if !ok {
		return "", false
	}
	return ch.code, true
}

// Resolve maps a bearer token to a user ID.
func (s *Service) Resolve(token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userID, ok := s.sessions[token]
	if !ok {
		return "", ErrInvalidToken
	}
	return userID, nil
}

// CurrentUserID implements domain.Identity against the request context.
func (s *Service) CurrentUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(userIDKey).(string); ok {
		return userID
	}
	return ""
}

// WithUserID stamps the authenticated user onto a context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func (s *Service) pruneExpiredLocked() {
	now := s.now()
	for id, ch := range s.pending {
		if now.After(ch.expires) {
			delete(s.pending, id)
		}
	}
}

// generateCode produces a 6-digit numeric OTP.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}

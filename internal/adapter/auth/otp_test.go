package auth

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// issuedCode digs the pending code out for test verification.
func issuedCode(s *Service, requestID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending[requestID].code
}

func TestService_RequestAndVerify(t *testing.T) {
	svc := NewService(5*time.Minute, zerolog.Nop())

	requestID, err := svc.RequestOTP("+919876543210")
	require.NoError(t, err)
	require.NotEmpty(t, requestID)

	code := issuedCode(svc, requestID)
	require.Len(t, code, 6)

	token, userID, err := svc.VerifyOTP(requestID, code)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.NotEmpty(t, userID)

	resolved, err := svc.Resolve(token)
	require.NoError(t, err)
	assert.Equal(t, userID, resolved)
}

func TestService_SamePhoneSameUser(t *testing.T) {
	svc := NewService(5*time.Minute, zerolog.Nop())

	r1, err := svc.RequestOTP("+919876543210")
	require.NoError(t, err)
	_, u1, err := svc.VerifyOTP(r1, issuedCode(svc, r1))
	require.NoError(t, err)

	r2, err := svc.RequestOTP("+919876543210")
	require.NoError(t, err)
	_, u2, err := svc.VerifyOTP(r2, issuedCode(svc, r2))
	require.NoError(t, err)

	assert.Equal(t, u1, u2)
}

func TestService_InvalidPhone(t *testing.T) {
	svc := NewService(5*time.Minute, zerolog.Nop())

	tests := []struct {
		name  string
		phone string
	}{
		{"empty", ""},
		{"letters", "not-a-phone"},
		{"too short", "12345"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RequestOTP(tt.phone)
			assert.ErrorIs(t, err, ErrInvalidPhone)
		})
	}
}

func TestService_WrongCode(t *testing.T) {
	svc := NewService(5*time.Minute, zerolog.Nop())

	requestID, err := svc.RequestOTP("+919876543210")
	require.NoError(t, err)

	_, _, err = svc.VerifyOTP(requestID, "000000x")
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestService_ExpiredChallenge(t *testing.T) {
	svc := NewService(5*time.Minute, zerolog.Nop())

	requestID, err := svc.RequestOTP("+919876543210")
	require.NoError(t, err)
	code := issuedCode(svc, requestID)

	svc.now = func() time.Time { return time.Now().Add(10 * time.Minute) }

	_, _, err = svc.VerifyOTP(requestID, code)
	assert.ErrorIs(t, err, ErrUnknownRequest)
}

func TestService_ChallengeSingleUse(t *testing.T) {
	svc := NewService(5*time.Minute, zerolog.Nop())

	requestID, err := svc.RequestOTP("+919876543210")
	require.NoError(t, err)
	code := issuedCode(svc, requestID)

	_, _, err = svc.VerifyOTP(requestID, code)
	require.NoError(t, err)

	_, _, err = svc.VerifyOTP(requestID, code)
	assert.ErrorIs(t, err, ErrUnknownRequest)
}

func TestService_ResolveUnknownToken(t *testing.T) {
	svc := NewService(5*time.Minute, zerolog.Nop())

	_, err := svc.Resolve("nope")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_CurrentUserID(t *testing.T) {
	svc := NewService(5*time.Minute, zerolog.Nop())

	assert.Empty(t, svc.CurrentUserID(context.Background()))

	ctx := WithUserID(context.Background(), "user-1")
	assert.Equal(t, "user-1", svc.CurrentUserID(ctx))
}

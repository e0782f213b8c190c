package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadewadee/safety-observer/internal/domain"
)

func TestSessionContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	s := &Session{Token: uuid.New(), Profile: &domain.Profile{ID: uuid.New(), Role: domain.RoleLeader}}
	ctx := WithSession(context.Background(), s)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, s.Token.String(), got.ViewerKey())
	assert.True(t, got.HasRole(domain.RoleAdmin, domain.RoleLeader))
	assert.False(t, got.HasRole(domain.RoleAdmin))
}

func TestPasswordHashing(t *testing.T) {
	_, err := HashPassword("12345")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	hash, err := HashPassword("secreto")
	require.NoError(t, err)

	assert.True(t, CheckPassword(hash, "secreto"))
	assert.False(t, CheckPassword(hash, "otro"))
}

func TestValidateNewPassword(t *testing.T) {
	assert.ErrorIs(t, ValidateNewPassword("abc", "abc"), ErrPasswordTooShort)
	assert.ErrorIs(t, ValidateNewPassword("abcdef", "abcdeg"), ErrPasswordMismatch)
	assert.NoError(t, ValidateNewPassword("abcdef", "abcdef"))
}

func TestLoginEmail(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "1045", want: "1045@sistema.com"},
		{in: " JPerez ", want: "jperez@sistema.com"},
		{in: "admin@sistema.com", want: "admin@sistema.com"},
		{in: "", wantErr: true},
		{in: "two words", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := LoginEmail(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidLogin)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

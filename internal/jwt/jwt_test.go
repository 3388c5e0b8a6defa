package jwt

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndGetUserID(t *testing.T) {
	j := New("secret", time.Minute)
	userID := uuid.New()

	token, err := j.Generate(context.Background(), userID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := j.GetUserID(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestGetUserID_WrongKey(t *testing.T) {
	j := New("secret", time.Minute)
	other := New("other-secret", time.Minute)

	token, err := j.Generate(context.Background(), uuid.New())
	require.NoError(t, err)

	_, err = other.GetUserID(context.Background(), token)
	assert.Error(t, err)
}

func TestValidate_ExpiredToken(t *testing.T) {
	j := New("secret", -time.Minute)

	token, err := j.Generate(context.Background(), uuid.New())
	require.NoError(t, err)

	err = j.Validate(context.Background(), token)
	assert.Error(t, err)
}

func TestGetTokenFromRequest(t *testing.T) {
	j := New("secret", time.Minute)

	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{name: "valid bearer", header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "lowercase scheme", header: "bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "missing header", header: "", wantErr: true},
		{name: "wrong scheme", header: "Basic abc", wantErr: true},
		{name: "no token", header: "Bearer", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := http.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			token, err := j.GetTokenFromRequest(context.Background(), r)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, token)
		})
	}
}

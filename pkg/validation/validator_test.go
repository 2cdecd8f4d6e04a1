package validation

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Username string  `json:"username" validate:"required,uname"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,pwd"`
	Role     *string `json:"role" validate:"omitnil,role"`
}

func TestStruct_ReportsEveryField(t *testing.T) {
	err := Struct(signup{})
	require.Error(t, err)

	details := ToDetails(err)
	assert.Equal(t, map[string]string{
		"username": "is required",
		"email":    "is required",
		"password": "is required",
	}, details)
}

func TestStruct_Aliases(t *testing.T) {
	bad := "ROOT"
	err := Struct(signup{Username: "alice", Email: "not-an-email", Password: "short", Role: &bad})
	require.Error(t, err)

	details := ToDetails(err)
	assert.Equal(t, "must be a valid email", details["email"])
	assert.Equal(t, "must be between 8 and 72 bytes long", details["password"])
	assert.Equal(t, "must be one of: USER, ADMIN", details["role"])
	assert.NotContains(t, details, "username")
}

func TestStruct_Valid(t *testing.T) {
	admin := "ADMIN"
	assert.NoError(t, Struct(signup{Username: "alice", Email: "a@x.com", Password: "Abc12345!", Role: &admin}))
	assert.NoError(t, Struct(signup{Username: "alice", Email: "a@x.com", Password: "Abc12345!"}))
}

func TestStruct_PasswordCountsBytes(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{name: "8 bytes", password: "abcdefgh"},
		{name: "72 ascii bytes", password: strings.Repeat("a", 72)},
		{name: "73 ascii bytes", password: strings.Repeat("a", 73), wantErr: true},
		{name: "72 bytes of two-byte runes", password: strings.Repeat("é", 36)},
		{name: "74 bytes in 37 runes", password: strings.Repeat("é", 37), wantErr: true},
		{name: "73 bytes mixed", password: "a" + strings.Repeat("é", 36), wantErr: true},
		{name: "4 runes in 8 bytes", password: "éééé"},
		{name: "7 bytes", password: "abcdefg", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(signup{Username: "alice", Email: "a@x.com", Password: tt.password})
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, "must be between 8 and 72 bytes long", ToDetails(err)["password"])
		})
	}
}

func TestToDetails_Payload(t *testing.T) {
	assert.Nil(t, ToDetails(nil))
	assert.Equal(t, map[string]string{"payload": "empty body"}, ToDetails(io.EOF))

	var v map[string]any
	synErr := json.Unmarshal([]byte("{bad"), &v)
	assert.Equal(t, map[string]string{"payload": "invalid json"}, ToDetails(synErr))

	var s struct{ N int }
	typeErr := json.Unmarshal([]byte(`{"N":"x"}`), &s)
	assert.Equal(t, map[string]string{"payload": "invalid json"}, ToDetails(typeErr))

	assert.Equal(t, map[string]string{"payload": "invalid payload"}, ToDetails(errors.New("other")))
}

func TestInit_DoesNotPanic(t *testing.T) {
	assert.NotPanics(t, Init)
}

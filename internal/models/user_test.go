package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndCheckPassword(t *testing.T) {
	u := &User{Email: "doc@example.com", Role: RoleDoctor}

	require.NoError(t, u.SetPassword("s3cret"))
	assert.NotEqual(t, "s3cret", u.Password)
	assert.True(t, u.CheckPassword("s3cret"))
	assert.False(t, u.CheckPassword("wrong"))
}

func TestCheckPasswordOAuthAccount(t *testing.T) {
	u := &User{Email: "oauth@example.com", GoogleID: "google-123"}
	assert.False(t, u.CheckPassword(""))
	assert.False(t, u.CheckPassword("anything"))
}

func TestSanitizeOmitsSensitiveFields(t *testing.T) {
	u := &User{
		BaseModel: BaseModel{ID: "user-1"},
		Email:     "doc@example.com",
		Name:      "Dr. Grey",
		Role:      RoleDoctor,
	}
	require.NoError(t, u.SetPassword("s3cret"))

	s := u.Sanitize()
	assert.Equal(t, "user-1", s.ID)
	assert.Equal(t, "doc@example.com", s.Email)
	assert.Equal(t, RoleDoctor, s.Role)
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole("Doctor"))
	assert.True(t, ValidRole("Patient"))
	assert.True(t, ValidRole("Admin"))
	assert.False(t, ValidRole("doctor"))
	assert.False(t, ValidRole(""))
}

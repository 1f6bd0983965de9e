package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taufik7000/efarina-finance-flow/internal/config"
	"github.com/taufik7000/efarina-finance-flow/internal/database"
	"github.com/taufik7000/efarina-finance-flow/internal/models"
)

func TestRun_Success(t *testing.T) {
	t.Setenv("EFT_SECURITY_BCRYPT_COST", "4")
	dbPath := filepath.Join(t.TempDir(), "efarina.db")

	stdout := new(bytes.Buffer)
	args := []string{"-email", "Boss@Efarina.tv", "-password", "rahasia1", "-role", "admin", "-department", "Keuangan", "-db", dbPath}
	require.NoError(t, run(args, new(bytes.Buffer), stdout, new(bytes.Buffer)))
	assert.Contains(t, stdout.String(), "User boss@efarina.tv created successfully")

	db, err := database.Init(config.DatabaseConfig{Path: dbPath})
	require.NoError(t, err)
	defer database.Close(db)

	var u models.User
	require.NoError(t, db.First(&u, "email = ?", "boss@efarina.tv").Error)
	assert.Equal(t, models.RoleAdmin, u.Role)
	assert.Equal(t, "Keuangan", u.Department)
	assert.Equal(t, "Boss", u.Name)
}

func TestRun_DuplicateUser(t *testing.T) {
	t.Setenv("EFT_SECURITY_BCRYPT_COST", "4")
	dbPath := filepath.Join(t.TempDir(), "efarina.db")
	args := []string{"-email", "ann@efarina.tv", "-password", "rahasia1", "-db", dbPath}

	require.NoError(t, run(args, new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer)))

	err := run(args, new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestRun_MissingEmailFlag(t *testing.T) {
	stdout := new(bytes.Buffer)
	err := run([]string{"-password", "rahasia1"}, new(bytes.Buffer), stdout, new(bytes.Buffer))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required flags: email")
	assert.Contains(t, stdout.String(), "Usage:")
}

func TestRun_InvalidRole(t *testing.T) {
	t.Setenv("EFT_SECURITY_BCRYPT_COST", "4")
	dbPath := filepath.Join(t.TempDir(), "efarina.db")
	args := []string{"-email", "ann@efarina.tv", "-password", "rahasia1", "-role", "root", "-db", dbPath}

	err := run(args, new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Role tidak valid")
}

func TestRun_InteractivePassword(t *testing.T) {
	t.Setenv("EFT_SECURITY_BCRYPT_COST", "4")
	dbPath := filepath.Join(t.TempDir(), "efarina.db")
	stdout := new(bytes.Buffer)

	args := []string{"-email", "ann@efarina.tv", "-db", dbPath}
	require.NoError(t, run(args, bytes.NewBufferString("rahasia1\n"), stdout, new(bytes.Buffer)))
	assert.Contains(t, stdout.String(), "Password: ")
	assert.Contains(t, stdout.String(), "User ann@efarina.tv created successfully")
}

func TestRun_InteractivePassword_Empty(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "efarina.db")
	args := []string{"-email", "ann@efarina.tv", "-db", dbPath}

	err := run(args, bytes.NewBufferString("\n"), new(bytes.Buffer), new(bytes.Buffer))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password cannot be empty")
}

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMigrateDSN(t *testing.T) {
	dsn, err := buildMigrateDSN("postgres://u:p@localhost:5432/auth?sslmode=disable", "migrations")
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@localhost:5432/auth?sslmode=disable&x-migrations-table=migrations", dsn)
}

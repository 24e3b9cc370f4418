package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPgx5URL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@localhost:5432/shop?sslmode=disable", pgx5URL("postgres://u:p@localhost:5432/shop?sslmode=disable"))
	assert.Equal(t, "pgx5://localhost/shop", pgx5URL("postgresql://localhost/shop"))
	assert.Equal(t, "pgx5://already", pgx5URL("pgx5://already"))
}

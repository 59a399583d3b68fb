package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grn-sheet-sync-go/internal/config"
)

func TestDialectorByDriver(t *testing.T) {
	for _, driver := range []string{"mysql", "postgres", "sqlite"} {
		d, err := Dialector(config.DatabaseConfig{Driver: driver, Path: "runs.db"})
		require.NoError(t, err, driver)
		assert.Equal(t, driver, d.Name())
	}

	_, err := Dialector(config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}

func TestInitDisabledWithoutDriver(t *testing.T) {
	db, err := Init(config.DatabaseConfig{})
	require.NoError(t, err)
	assert.Nil(t, db)
}

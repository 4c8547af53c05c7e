// internal/storage/storage_test.go
package storage_test

import (
	"testing"

	"github.com/broadside/server/internal/config"
	"github.com/broadside/server/internal/storage"
	gormstorage "github.com/broadside/server/internal/storage/gorm"
	"github.com/broadside/server/internal/storage/memory"
	"github.com/broadside/server/internal/storage/postgres"
	sqlitestorage "github.com/broadside/server/internal/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface checks
var (
	_ storage.Backend    = (*memory.Backend)(nil)
	_ storage.Backend    = (*gormstorage.Backend)(nil)
	_ storage.Backend    = (*sqlitestorage.Backend)(nil)
	_ storage.Backend    = (*postgres.Backend)(nil)
	_ storage.Exportable = (*memory.Backend)(nil)
)

func TestNewBackend(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.StorageConfig
		want    any
		wantErr bool
	}{
		{name: "memory", cfg: config.StorageConfig{Type: "memory"}, want: &memory.Backend{}},
		{name: "default", cfg: config.StorageConfig{}, want: &memory.Backend{}},
		{name: "sqlite", cfg: config.StorageConfig{Type: "sqlite"}, want: &sqlitestorage.Backend{}},
		{name: "postgres", cfg: config.StorageConfig{Type: "postgres"}, want: &postgres.Backend{}},
		{name: "unknown", cfg: config.StorageConfig{Type: "redis"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := storage.NewBackend(tt.cfg, storage.Dependencies{})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, b)
		})
	}
}

package migration

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"spratt/internal/app/server/config"
)

// MockMigrator мок для интерфейса Migrator
type MockMigrator struct {
	mock.Mock
}

func (m *MockMigrator) Up() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockMigrator) Close() (error, error) {
	args := m.Called()
	return args.Error(0), args.Error(1)
}

func testConfig(migrations string) *config.Config {
	cfg := &config.Config{}
	cfg.DB.DatabaseURI = "postgres://localhost/spratt"
	cfg.DB.Migrations = migrations
	return cfg
}

func TestMigration_Up(t *testing.T) {
	tests := []struct {
		name     string
		upErr    error
		closeErr error
		wantErr  string
	}{
		{name: "success"},
		{name: "no change is not an error", upErr: migrate.ErrNoChange},
		{name: "up fails", upErr: errors.New("dirty database"), wantErr: "dirty database"},
		{name: "close fails", closeErr: errors.New("source closed"), wantErr: "source closed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			mockM := new(MockMigrator)
			mockM.On("Up").Return(tt.upErr)
			mockM.On("Close").Return(tt.closeErr, nil)

			var gotSource, gotDB string
			engine := func(source, db string) (Migrator, error) {
				gotSource, gotDB = source, db
				return mockM, nil
			}

			// Act
			err := NewMigration(testConfig(""), engine).Up()

			// Assert
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, EmbeddedSource, gotSource)
			assert.Equal(t, "postgres://localhost/spratt", gotDB)
			mockM.AssertExpectations(t)
		})
	}
}

func TestMigration_Up_EngineError(t *testing.T) {
	engine := func(source, db string) (Migrator, error) {
		return nil, errors.New("engine crash")
	}

	err := NewMigration(testConfig(""), engine).Up()

	assert.EqualError(t, err, "engine crash")
}

func TestMigration_SourceURL(t *testing.T) {
	assert.Equal(t, EmbeddedSource, NewMigration(testConfig(""), nil).SourceURL())
	assert.Equal(t, "file://./migrations", NewMigration(testConfig("./migrations"), nil).SourceURL())
}

func TestEmbeddedMigrations(t *testing.T) {
	ups, err := fs.Glob(migrationsFS, "sql/*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(migrationsFS, "sql/*.down.sql")
	require.NoError(t, err)

	assert.Len(t, ups, 3)
	assert.Len(t, downs, len(ups))
}

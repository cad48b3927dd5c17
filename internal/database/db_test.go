package database

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/EvoluTechs/riftcollect/internal/models"
)

func TestOpenSQLiteInMemory(t *testing.T) {
	db, err := Open(Config{Driver: "sqlite", DSN: "file:db_test_open?mode=memory&cache=shared"})
	require.NoError(t, err)

	require.NoError(t, AutoMigrate(db))

	var count int64
	require.NoError(t, db.Model(&models.CardRecord{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "mongodb"})
	require.Error(t, err)
}

func TestBuildMySQLDSN(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{
		Driver:   "mysql",
		User:     "catalog",
		Password: "secret",
		Name:     "riftcollect",
		Host:     "db.internal",
	})
	require.NoError(t, err)
	require.Equal(t, "catalog:secret@tcp(db.internal:3306)/riftcollect?charset=utf8mb4&loc=Local&parseTime=True", dsn)

	_, err = buildMySQLDSN(Config{Driver: "mysql"})
	require.Error(t, err)
}

func TestBuildPostgresDSN(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{
		Driver: "postgres",
		User:   "catalog",
		Name:   "riftcollect",
	})
	require.NoError(t, err)
	require.Equal(t, "host=localhost port=5432 user=catalog dbname=riftcollect sslmode=disable", dsn)
}

type stubConnector struct {
	name  string
	db    *gorm.DB
	err   error
	calls int
}

func (s *stubConnector) Name() string { return s.name }

func (s *stubConnector) Connect() (*gorm.DB, error) {
	s.calls++
	return s.db, s.err
}

func TestFallbackPolicyUsesPrimary(t *testing.T) {
	db, err := Open(Config{Driver: "sqlite", DSN: "file:db_test_primary?mode=memory&cache=shared"})
	require.NoError(t, err)

	primary := &stubConnector{name: "mysql", db: db}
	secondary := &stubConnector{name: "sqlite"}

	got, err := (&FallbackPolicy{Primary: primary, Secondary: secondary}).Connect()
	require.NoError(t, err)
	require.Same(t, db, got)
	require.Equal(t, 1, primary.calls)
	require.Zero(t, secondary.calls)
}

func TestFallbackPolicySwitchesOnce(t *testing.T) {
	db, err := Open(Config{Driver: "sqlite", DSN: "file:db_test_fallback?mode=memory&cache=shared"})
	require.NoError(t, err)

	primary := &stubConnector{name: "mysql", err: errors.New("connection refused")}
	secondary := &stubConnector{name: "sqlite", db: db}

	got, err := (&FallbackPolicy{Primary: primary, Secondary: secondary}).Connect()
	require.NoError(t, err)
	require.Same(t, db, got)
	require.Equal(t, 1, secondary.calls)
}

func TestFallbackPolicyFatalAfterSecondFailure(t *testing.T) {
	primary := &stubConnector{name: "mysql", err: errors.New("connection refused")}
	secondary := &stubConnector{name: "sqlite", err: errors.New("disk full")}

	_, err := (&FallbackPolicy{Primary: primary, Secondary: secondary}).Connect()
	require.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestFallbackPolicyWithoutSecondaryIsFatal(t *testing.T) {
	primary := &stubConnector{name: "mysql", err: errors.New("connection refused")}

	_, err := (&FallbackPolicy{Primary: primary}).Connect()
	require.ErrorIs(t, err, ErrStorageUnavailable)
}

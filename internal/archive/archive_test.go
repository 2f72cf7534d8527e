package archive

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/muniheat/dhcore/internal/contract"
)

func TestDefaultConfigIsDisabled(t *testing.T) {
	cfg := DefaultConfig()
	require.False(t, cfg.Enabled)
	require.Equal(t, 10, cfg.MaxOpenConns)
}

func TestOpenDisabledReturnsNoOpStore(t *testing.T) {
	s, err := Open(Config{Enabled: false})
	require.NoError(t, err)
	require.False(t, s.Enabled())

	require.NoError(t, s.Save(context.Background(), &contract.Contract{}))
	require.NoError(t, s.Close())
}

func TestOpenEnabledWithoutDSNFails(t *testing.T) {
	_, err := Open(Config{Enabled: true})
	require.Error(t, err)
}

func TestSaveUpsertsContract(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	s := &Store{db: sqlx.NewDb(mockDB, "postgres"), timeout: time.Second}
	c := &contract.Contract{
		ClusterID: "cluster-1",
		Version:   contract.SchemaVersion,
		Metadata:  contract.Metadata{InputDigest: "deadbeef"},
	}

	mock.ExpectExec("INSERT INTO contracts").
		WithArgs(c.ClusterID, c.Version, c.Metadata.InputDigest, c.Metadata.CreatedUTC, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, s.Save(context.Background(), c))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestReturnsNilWhenNoRows(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	s := &Store{db: sqlx.NewDb(mockDB, "postgres"), timeout: time.Second}
	mock.ExpectQuery("SELECT body FROM contracts").
		WithArgs("cluster-1").
		WillReturnRows(sqlmock.NewRows([]string{"body"}))

	got, err := s.Latest(context.Background(), "cluster-1")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestCountByClusterAggregates(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	s := &Store{db: sqlx.NewDb(mockDB, "postgres"), timeout: time.Second}
	rows := sqlmock.NewRows([]string{"cluster_id", "count"}).
		AddRow("cluster-1", 3).
		AddRow("cluster-2", 1)
	mock.ExpectQuery("SELECT cluster_id, COUNT").WillReturnRows(rows)

	counts, err := s.CountByCluster(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(3), counts["cluster-1"])
	require.Equal(t, int64(1), counts["cluster-2"])
}

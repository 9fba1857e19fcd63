package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/amirasaad/studentaid/pkg/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDb, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDb.Close() })

	dialector := postgres.New(postgres.Config{
		Conn:       mockDb,
		DriverName: "postgres",
	})
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return db, mock
}

func TestPostgresPersister_Load(t *testing.T) {
	db, mock := newMockDB(t)
	p := NewPostgresPersister(db, "studentaid_ledger_v2")

	rows := sqlmock.NewRows([]string{"key", "version", "document", "updated_at"}).
		AddRow("studentaid_ledger_v2", 4, []byte(`{"version":4}`), time.Now())
	mock.ExpectQuery(`SELECT \* FROM "ledger_snapshots" WHERE key = (.+)`).WillReturnRows(rows)

	data, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":4}`, string(data))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPersister_LoadMissing(t *testing.T) {
	db, mock := newMockDB(t)
	p := NewPostgresPersister(db, "studentaid_ledger_v2")

	mock.ExpectQuery(`SELECT \* FROM "ledger_snapshots"`).
		WillReturnRows(sqlmock.NewRows([]string{"key", "version", "document", "updated_at"}))

	_, err := p.Load(context.Background())
	assert.ErrorIs(t, err, ledger.ErrNoSnapshot)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPersister_Save(t *testing.T) {
	db, mock := newMockDB(t)
	p := NewPostgresPersister(db, "studentaid_ledger_v2")

	mock.ExpectExec(`INSERT INTO "ledger_snapshots" (.+) VALUES (.+) ON CONFLICT (.+) DO UPDATE SET (.+)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, p.Save(context.Background(), []byte(`{"version":9}`)))

	mock.ExpectExec(`INSERT INTO "ledger_snapshots" (.+)`).
		WillReturnError(errors.New("disk full"))
	assert.Error(t, p.Save(context.Background(), []byte(`{"version":10}`)))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentVersion(t *testing.T) {
	t.Parallel()
	assert.Equal(t, uint64(12), documentVersion([]byte(`{"version":12,"users":[]}`)))
	assert.Equal(t, uint64(0), documentVersion([]byte(`not json`)))
}

package history

import (
	"context"
	"os"
	"testing"
	"time"

	"rafts/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Record(ctx, &models.StatusChange{RaftID: "RAFTS-a", ToStatus: "in review", CreatedAt: t0.Add(time.Minute)}))
	require.NoError(t, s.Record(ctx, &models.StatusChange{RaftID: "RAFTS-b", ToStatus: "approved"}))
	require.NoError(t, s.Record(ctx, &models.StatusChange{RaftID: "RAFTS-a", ToStatus: "review ready", CreatedAt: t0}))

	changes, err := s.List(ctx, "RAFTS-a")
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, "review ready", changes[0].ToStatus)
	assert.Equal(t, "in review", changes[1].ToStatus)
	assert.NotEmpty(t, changes[0].ID)
	assert.NotEqual(t, changes[0].ID, changes[1].ID)

	changes, err = s.List(ctx, "RAFTS-none")
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestPrepareKeepsExplicitValues(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := &models.StatusChange{ID: "fixed", CreatedAt: at}
	prepare(c)
	assert.Equal(t, "fixed", c.ID)
	assert.Equal(t, at, c.CreatedAt)

	c = &models.StatusChange{}
	prepare(c)
	assert.Len(t, c.ID, 36)
	assert.False(t, c.CreatedAt.IsZero())
}

func TestStatusChangeTable(t *testing.T) {
	assert.Equal(t, "raft_status_history", models.StatusChange{}.TableName())
}

// dryRunStore baut SQL nur auf und merkt sich die letzte Anweisung samt Parametern.
func dryRunStore(t *testing.T) (*GormStore, *string, *[]any) {
	t.Helper()
	db, err := gorm.Open(postgres.Open("host=localhost user=rafts dbname=rafts sslmode=disable"), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	var sql string
	var vars []any
	capture := func(tx *gorm.DB) {
		sql = tx.Statement.SQL.String()
		vars = tx.Statement.Vars
	}
	require.NoError(t, db.Callback().Create().After("gorm:create").Register("test:capture_create", capture))
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:capture_query", capture))
	return &GormStore{DB: db}, &sql, &vars
}

func TestGormStoreRecordPrepares(t *testing.T) {
	s, sql, vars := dryRunStore(t)

	change := &models.StatusChange{RaftID: "RAFTS-a", FromStatus: "review ready", ToStatus: "in review", ChangedBy: "bob"}
	require.NoError(t, s.Record(context.Background(), change))

	assert.Len(t, change.ID, 36)
	assert.False(t, change.CreatedAt.IsZero())
	assert.Contains(t, *sql, `INSERT INTO "raft_status_history"`)
	assert.Contains(t, *vars, change.ID)
	assert.Contains(t, *vars, "RAFTS-a")
}

func TestGormStoreListQuery(t *testing.T) {
	s, sql, vars := dryRunStore(t)

	_, err := s.List(context.Background(), "RAFTS-a")
	require.NoError(t, err)
	assert.Contains(t, *sql, `FROM "raft_status_history"`)
	assert.Contains(t, *sql, "WHERE raft_id = $1")
	assert.Contains(t, *sql, "ORDER BY created_at ASC")
	assert.Equal(t, []any{"RAFTS-a"}, *vars)
}

// Gegen eine echte Datenbank nur mit RAFTS_TEST_DATABASE_DSN.
func TestGormStorePostgres(t *testing.T) {
	dsn := os.Getenv("RAFTS_TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("RAFTS_TEST_DATABASE_DSN not set")
	}
	s, err := Open(dsn)
	require.NoError(t, err)
	ctx := testContext(t)

	raft := "RAFTS-" + uuid.NewString()
	t0 := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, s.Record(ctx, &models.StatusChange{RaftID: raft, ToStatus: "in review", CreatedAt: t0.Add(time.Minute)}))
	require.NoError(t, s.Record(ctx, &models.StatusChange{RaftID: raft, ToStatus: "review ready", CreatedAt: t0}))
	t.Cleanup(func() {
		s.DB.Where("raft_id = ?", raft).Delete(&models.StatusChange{})
	})

	changes, err := s.List(ctx, raft)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, "review ready", changes[0].ToStatus)
	assert.Equal(t, "in review", changes[1].ToStatus)
	assert.NotEqual(t, changes[0].ID, changes[1].ID)
}

// testContext stands in for testing.T.Context (Go 1.24+): a context that is
// cancelled when the test finishes.
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

// Package history speichert die Statuswechsel der RAFTs.
package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"rafts/models"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store nimmt Statuswechsel auf und listet sie chronologisch.
type Store interface {
	Record(ctx context.Context, change *models.StatusChange) error
	List(ctx context.Context, raftID string) ([]models.StatusChange, error)
}

func prepare(change *models.StatusChange) {
	if change.ID == "" {
		change.ID = uuid.NewString()
	}
	if change.CreatedAt.IsZero() {
		change.CreatedAt = time.Now().UTC()
	}
}

// GormStore legt die Historie in PostgreSQL ab (Tabelle raft_status_history).
type GormStore struct {
	DB *gorm.DB
}

// Open verbindet sich mit PostgreSQL und migriert die Tabelle.
func Open(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return NewGormStore(db)
}

func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&models.StatusChange{}); err != nil {
		return nil, err
	}
	return &GormStore{DB: db}, nil
}

func (s *GormStore) Record(ctx context.Context, change *models.StatusChange) error {
	prepare(change)
	return s.DB.WithContext(ctx).Create(change).Error
}

func (s *GormStore) List(ctx context.Context, raftID string) ([]models.StatusChange, error) {
	var changes []models.StatusChange
	err := s.DB.WithContext(ctx).
		Where("raft_id = ?", raftID).
		Order("created_at ASC").
		Find(&changes).Error
	return changes, err
}

// MemoryStore hält die Historie im Prozess, wenn keine Datenbank konfiguriert ist.
type MemoryStore struct {
	mu      sync.Mutex
	changes []models.StatusChange
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Record(ctx context.Context, change *models.StatusChange) error {
	prepare(change)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changes = append(s.changes, *change)
	return nil
}

func (s *MemoryStore) List(ctx context.Context, raftID string) ([]models.StatusChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.StatusChange{}
	for _, c := range s.changes {
		if c.RaftID == raftID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

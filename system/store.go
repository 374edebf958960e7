package system

import (
	"sync"

	"gorm.io/gorm"
)

// Store persists the single settings row.
type Store interface {
	GetSettings() (*Settings, error)
	SaveSettings(*Settings) error
}

// GormStore keeps settings in the system_settings table, creating the row on
// first read.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) Store {
	return &GormStore{db}
}

func (s *GormStore) GetSettings() (*Settings, error) {
	settings := &Settings{}
	if err := s.db.FirstOrCreate(settings).Error; err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *GormStore) SaveSettings(settings *Settings) error {
	return s.db.Save(settings).Error
}

// MemoryStore keeps settings in process, for deployments without a database.
type MemoryStore struct {
	mu       sync.Mutex
	settings Settings
}

func NewMemoryStore() Store {
	s := &MemoryStore{}
	s.settings.ID = 1
	return s
}

func (s *MemoryStore) GetSettings() (*Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings := s.settings
	return &settings, nil
}

func (s *MemoryStore) SaveSettings(settings *Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = *settings
	return nil
}

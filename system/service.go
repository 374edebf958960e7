package system

import (
	"database/sql"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

type Service interface {
	GetSettings() (*Settings, error)
	SaveSettings(settings *Settings) error
	Pause() error
	IsMaintenanceMode() bool
	IsPaused() bool
}

type ServiceImpl struct {
	store         Store
	pauseDuration time.Duration
}

type ServiceOption func(*ServiceImpl)

// WithPauseDuration sets how long IsPaused reports true after Pause.
func WithPauseDuration(duration time.Duration) ServiceOption {
	return func(svc *ServiceImpl) {
		svc.pauseDuration = duration
	}
}

func NewService(store Store, opts ...ServiceOption) Service {
	svc := &ServiceImpl{
		store:         store,
		pauseDuration: time.Minute,
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc
}

func (svc *ServiceImpl) GetSettings() (*Settings, error) {
	return svc.store.GetSettings()
}

func (svc *ServiceImpl) SaveSettings(settings *Settings) error {
	if settings.ID == 0 {
		return fmt.Errorf("settings object has no ID, get an existing settings first and alter it")
	}
	log.WithFields(log.Fields{"settings": settings}).Trace("Save system settings")
	return svc.store.SaveSettings(settings)
}

// Pause halts reconciliation for the configured pause duration.
func (svc *ServiceImpl) Pause() error {
	log.WithFields(log.Fields{"duration": svc.pauseDuration}).Warn("Pausing reconciliation")
	settings, err := svc.GetSettings()
	if err != nil {
		return err
	}
	settings.PausedSince = sql.NullTime{Time: time.Now(), Valid: true}
	return svc.SaveSettings(settings)
}

func (svc *ServiceImpl) IsMaintenanceMode() bool {
	s, err := svc.GetSettings()
	if err != nil {
		log.WithFields(log.Fields{"error": err}).Warn("Unable to read system settings")
		return false
	}
	return s.IsMaintenanceMode()
}

func (svc *ServiceImpl) IsPaused() bool {
	s, err := svc.GetSettings()
	if err != nil {
		log.WithFields(log.Fields{"error": err}).Warn("Unable to read system settings")
		return false
	}
	return s.IsPaused(svc.pauseDuration)
}

package handlers

import (
	"net/http"

	"github.com/flow-hydraulics/token-wallet-ledger/system"
	log "github.com/sirupsen/logrus"
)

// System is a HTTP server for system settings management.
type System struct {
	service system.Service
}

func NewSystem(service system.Service) *System {
	return &System{service}
}

func (s *System) GetSettings() http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		settings, err := s.service.GetSettings()
		if err != nil {
			handleError(rw, r, err)
			return
		}

		handleJsonResponse(rw, http.StatusOK, settings.ToJSON())
	})
}

// SetSettings updates the settings with the fields present in the body.
// Posting {"pausedSince": null} resumes a paused reconciliation.
func (s *System) SetSettings() http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		settings, err := s.service.GetSettings()
		if err != nil {
			handleError(rw, r, err)
			return
		}

		update := settings.ToJSON()
		if err := decodeBody(r, &update); err != nil {
			handleError(rw, r, err)
			return
		}

		wasPaused := settings.PausedSince.Valid
		settings.FromJSON(update)

		if err := s.service.SaveSettings(settings); err != nil {
			handleError(rw, r, err)
			return
		}

		log.WithFields(log.Fields{
			"maintenanceMode": settings.MaintenanceMode,
			"resumed":         wasPaused && !settings.PausedSince.Valid,
		}).Info("System settings updated")

		handleJsonResponse(rw, http.StatusOK, settings.ToJSON())
	})
}

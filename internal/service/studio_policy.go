package service

import "github.com/noah-isme/radio-schedule-api/internal/models"

// determineStudio books the cheaper Studio1 only for a single host without guests.
func determineStudio(hosts, guests []string) models.Studio {
	if len(hosts) == 1 && len(guests) == 0 {
		return models.Studio1
	}
	return models.Studio2
}

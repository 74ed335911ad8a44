package service

import "github.com/relaypost/relaypost/internal/models"

// AggregateStatus derives the post status from its publish results.
// Zero results (no channel resolved or attempted) counts as failed.
func AggregateStatus(results []*models.PublishResult) string {
	var success, failed int
	for _, result := range results {
		switch result.Status {
		case models.ResultStatusSuccess:
			success++
		case models.ResultStatusFailed:
			failed++
		}
	}

	if success == 0 {
		return models.PostStatusFailed
	}
	if failed == 0 {
		return models.PostStatusPublished
	}
	return models.PostStatusPartial
}

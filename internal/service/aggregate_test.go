package service

import (
	"testing"

	"github.com/relaypost/relaypost/internal/models"
)

func TestAggregateStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []string
		want     string
	}{
		{"all success", []string{models.ResultStatusSuccess, models.ResultStatusSuccess}, models.PostStatusPublished},
		{"single success", []string{models.ResultStatusSuccess}, models.PostStatusPublished},
		{"mixed", []string{models.ResultStatusSuccess, models.ResultStatusFailed}, models.PostStatusPartial},
		{"mixed reversed", []string{models.ResultStatusFailed, models.ResultStatusSuccess}, models.PostStatusPartial},
		{"all failed", []string{models.ResultStatusFailed, models.ResultStatusFailed}, models.PostStatusFailed},
		{"single failure", []string{models.ResultStatusFailed}, models.PostStatusFailed},
		{"zero channels resolved", nil, models.PostStatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := make([]*models.PublishResult, 0, len(tt.statuses))
			for _, status := range tt.statuses {
				results = append(results, &models.PublishResult{Status: status})
			}
			if got := AggregateStatus(results); got != tt.want {
				t.Errorf("AggregateStatus(%v) = %q, want %q", tt.statuses, got, tt.want)
			}
		})
	}
}

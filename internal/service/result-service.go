package service

import (
	"context"

	"learnhub-server/internal/apperror"
	"learnhub-server/internal/models"
)

type ResultService struct {
	results ResultStore
}

func NewResultService(results ResultStore) *ResultService {
	return &ResultService{results: results}
}

// Save stores a quiz result for the given user. The user id always comes
// from the authenticated request, never from the payload.
func (rs *ResultService) Save(ctx context.Context, userID string, result *models.QuizResult) error {
	if result.QuizID == "" {
		return apperror.New(apperror.ValidationError, "quiz_id is required")
	}
	result.UserID = userID
	if result.CompletionType == "" {
		result.CompletionType = "completed"
	}
	return rs.results.Create(ctx, result)
}

func (rs *ResultService) ListByUser(ctx context.Context, userID string) ([]models.QuizResult, error) {
	return rs.results.FindByUser(ctx, userID)
}

package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/desert-discs/internal/apperror"
	"github.com/sakif/desert-discs/internal/model"
	"github.com/sakif/desert-discs/internal/repository"
)

// ConsentService records cookie-consent decisions. It is a thin sink — the
// session flow calls into it and nothing ever reads back out.
type ConsentService struct {
	consents repository.ConsentRepository
	logger   *slog.Logger
}

// NewConsentService creates a ConsentService.
func NewConsentService(consents repository.ConsentRepository, logger *slog.Logger) *ConsentService {
	return &ConsentService{
		consents: consents,
		logger:   logger,
	}
}

// Record upserts the owner's latest consent decision.
func (s *ConsentService) Record(ctx context.Context, ownerID, status string) (*model.Consent, error) {
	if ownerID == "" {
		return nil, apperror.Unauthenticated("no session")
	}
	if status != model.ConsentAccepted && status != model.ConsentDeclined {
		return nil, apperror.ValidationFailed("status",
			fmt.Sprintf("consent status must be %q or %q", model.ConsentAccepted, model.ConsentDeclined))
	}

	consent := &model.Consent{
		ProfileID: ownerID,
		Status:    status,
	}
	if err := s.consents.Upsert(ctx, consent); err != nil {
		s.logger.Error("failed to record consent",
			slog.String("userID", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("recording consent: %w", err)
	}

	return consent, nil
}

package service

import (
	"context"

	"github.com/worktrack/timesheet-backend/internal/timesheet/repository"
	"github.com/worktrack/timesheet-backend/pkg/logger"
	"github.com/worktrack/timesheet-backend/pkg/messaging"
)

// PolicyService exposes the submission blocking policy. Reads fall open to
// the default on storage errors; writes are durable and take effect on the
// next gate evaluation because nothing caches the value.
type PolicyService struct {
	settings    PolicyStore
	broadcaster Broadcaster
	logger      *logger.Logger
}

// NewPolicyService creates a new policy service
func NewPolicyService(settings PolicyStore, broadcaster Broadcaster, log *logger.Logger) *PolicyService {
	return &PolicyService{
		settings:    settings,
		broadcaster: broadcaster,
		logger:      log,
	}
}

// GetPolicy returns the current policy, or the default when storage is
// unreadable.
func (s *PolicyService) GetPolicy(ctx context.Context) repository.Policy {
	policy, err := s.settings.GetPolicy(ctx)
	if err != nil {
		s.logger.Warn().Err(err).
			Bool("default", repository.DefaultBlockUnassignedProjectTasks).
			Msg("policy read failed, using default")
	}
	return policy
}

// SetPolicy durably updates the policy and broadcasts the change.
func (s *PolicyService) SetPolicy(ctx context.Context, block bool, updatedBy string) (repository.Policy, error) {
	policy, err := s.settings.SetPolicy(ctx, block)
	if err != nil {
		return repository.Policy{}, err
	}

	s.broadcaster.PolicyUpdated(ctx, messaging.PolicyUpdatedEvent{
		BlockUnassignedProjectTasks: policy.BlockUnassignedProjectTasks,
		UpdatedBy:                   updatedBy,
	})

	s.logger.Info().
		Bool("block_unassigned_project_tasks", policy.BlockUnassignedProjectTasks).
		Str("updated_by", updatedBy).
		Msg("submission blocking policy updated")

	return policy, nil
}

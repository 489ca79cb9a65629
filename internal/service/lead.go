package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/capitalize-ai/omnilead/internal/model"
	"github.com/capitalize-ai/omnilead/internal/store"
	"github.com/capitalize-ai/omnilead/pkg/logger"
)

// LeadStore is the persistence used by LeadService.
type LeadStore interface {
	GetLead(ctx context.Context, id string) (*model.Lead, error)
	ListLeads(ctx context.Context, f model.LeadFilter) ([]model.Lead, error)
	UpdateLead(ctx context.Context, id string, req model.UpdateLeadRequest) (*model.Lead, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
}

// LeadService handles lead follow-up.
type LeadService struct {
	store  LeadStore
	logger *logger.Logger
}

// NewLeadService creates a new lead service.
func NewLeadService(st LeadStore, log *logger.Logger) *LeadService {
	return &LeadService{store: st, logger: log.Named("leads")}
}

// List returns leads, newest first.
func (s *LeadService) List(ctx context.Context, f model.LeadFilter) (*model.ListLeadsResponse, error) {
	if f.Limit <= 0 {
		f.Limit = defaultPageSize
	}
	leads, err := s.store.ListLeads(ctx, f)
	if err != nil {
		return nil, err
	}
	return &model.ListLeadsResponse{Leads: leads, Skip: f.Skip, Limit: f.Limit}, nil
}

// Get returns one lead.
func (s *LeadService) Get(ctx context.Context, id string) (*model.Lead, error) {
	return s.store.GetLead(ctx, id)
}

// Update changes a lead's status, priority, notes or assignee.
func (s *LeadService) Update(ctx context.Context, actor Actor, id string, req model.UpdateLeadRequest) (*model.Lead, error) {
	if req.AssignedTo != nil {
		if _, err := s.store.GetUser(ctx, *req.AssignedTo); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("%w: unknown user", ErrInvalidInput)
			}
			return nil, err
		}
	}

	lead, err := s.store.UpdateLead(ctx, id, req)
	if err != nil {
		return nil, err
	}

	s.logger.Info("lead updated",
		zap.String("lead_id", id),
		zap.String("status", string(lead.Status)),
		zap.String("updated_by", actor.UserID),
	)
	return lead, nil
}

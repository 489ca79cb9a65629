package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/capitalize-ai/omnilead/internal/model"
)

const leadColumns = `id, conversation_id, name, phone, email, program_interest, score,
	status, priority, notes, assigned_to, created_at, updated_at`

// CreateLead inserts a lead with default status and priority.
func (s *Store) CreateLead(ctx context.Context, conversationID string, info model.LeadInfo, score float64) (*model.Lead, error) {
	ts := now()
	lead := &model.Lead{
		ID:              uuid.Must(uuid.NewV7()).String(),
		ConversationID:  conversationID,
		Name:            info.Name,
		Phone:           info.Phone,
		Email:           info.Email,
		ProgramInterest: info.ProgramInterest,
		Score:           score,
		Status:          model.LeadStatusNew,
		Priority:        model.PriorityMedium,
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}

	_, err := s.db.NamedExecContext(ctx, `INSERT INTO leads (`+leadColumns+`)
		VALUES (:id, :conversation_id, :name, :phone, :email, :program_interest, :score,
		:status, :priority, :notes, :assigned_to, :created_at, :updated_at)`, lead)
	if err != nil {
		return nil, fmt.Errorf("failed to insert lead: %w", err)
	}
	return lead, nil
}

// GetLead returns a lead by id.
func (s *Store) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	var lead model.Lead
	query := s.db.Rebind(`SELECT ` + leadColumns + ` FROM leads WHERE id = ?`)
	if err := s.db.GetContext(ctx, &lead, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return &lead, nil
}

// ListLeads returns leads newest first.
func (s *Store) ListLeads(ctx context.Context, f model.LeadFilter) ([]model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads`
	var args []any
	if f.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, f.Status)
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, pageLimit(f.Limit), max(f.Skip, 0))

	leads := []model.Lead{}
	if err := s.db.SelectContext(ctx, &leads, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	return leads, nil
}

// ListLeadsByConversation returns the leads extracted from a conversation.
func (s *Store) ListLeadsByConversation(ctx context.Context, conversationID string) ([]model.Lead, error) {
	leads := []model.Lead{}
	query := s.db.Rebind(`SELECT ` + leadColumns + ` FROM leads WHERE conversation_id = ? ORDER BY created_at ASC`)
	if err := s.db.SelectContext(ctx, &leads, query, conversationID); err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	return leads, nil
}

// UpdateLead applies the non-nil fields of req.
func (s *Store) UpdateLead(ctx context.Context, id string, req model.UpdateLeadRequest) (*model.Lead, error) {
	lead, err := s.GetLead(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Status != nil {
		lead.Status = *req.Status
	}
	if req.Priority != nil {
		lead.Priority = *req.Priority
	}
	if req.Notes != nil {
		lead.Notes = *req.Notes
	}
	if req.AssignedTo != nil {
		lead.AssignedTo = req.AssignedTo
	}
	lead.UpdatedAt = now()

	res, err := s.db.NamedExecContext(ctx, `UPDATE leads SET
		status = :status, priority = :priority, notes = :notes, assigned_to = :assigned_to, updated_at = :updated_at
		WHERE id = :id`, lead)
	if err != nil {
		return nil, fmt.Errorf("failed to update lead: %w", err)
	}
	if err := requireRow(res); err != nil {
		return nil, err
	}
	return lead, nil
}

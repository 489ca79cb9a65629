package model

import (
	"time"
)

// LeadStatus tracks a lead through the sales funnel.
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusQualified LeadStatus = "qualified"
	LeadStatusConverted LeadStatus = "converted"
	LeadStatusLost      LeadStatus = "lost"
)

// Priority of a lead.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Lead is a prospective customer extracted from a conversation.
type Lead struct {
	ID              string     `json:"id" db:"id"`
	ConversationID  string     `json:"conversation_id" db:"conversation_id"`
	Name            string     `json:"name" db:"name"`
	Phone           string     `json:"phone" db:"phone"`
	Email           string     `json:"email" db:"email"`
	ProgramInterest string     `json:"program_interest" db:"program_interest"`
	Score           float64    `json:"score" db:"score"`
	Status          LeadStatus `json:"status" db:"status"`
	Priority        Priority   `json:"priority" db:"priority"`
	Notes           string     `json:"notes" db:"notes"`
	AssignedTo      *string    `json:"assigned_to,omitempty" db:"assigned_to"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// LeadInfo is contact data extracted from message text.
type LeadInfo struct {
	Name            string `json:"name"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	ProgramInterest string `json:"program_interest"`
}

// Empty reports whether neither a name nor a phone was found.
func (l LeadInfo) Empty() bool {
	return l.Name == "" && l.Phone == ""
}

// LeadFilter narrows a lead listing.
type LeadFilter struct {
	Status LeadStatus
	Skip   int
	Limit  int
}

// UpdateLeadRequest is the request to update a lead. Nil fields are left unchanged.
type UpdateLeadRequest struct {
	Status     *LeadStatus `json:"status,omitempty" validate:"omitempty,oneof=new contacted qualified converted lost"`
	Priority   *Priority   `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	Notes      *string     `json:"notes,omitempty" validate:"omitempty,max=4096"`
	AssignedTo *string     `json:"assigned_to,omitempty" validate:"omitempty,uuid"`
}

// ListLeadsResponse is the response for listing leads.
type ListLeadsResponse struct {
	Leads []Lead `json:"leads"`
	Skip  int    `json:"skip"`
	Limit int    `json:"limit"`
}

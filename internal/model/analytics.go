package model

import "time"

// DashboardStats summarises activity over a trailing window.
type DashboardStats struct {
	PeriodDays           int              `json:"period_days"`
	TotalConversations   int              `json:"total_conversations"`
	TotalLeads           int              `json:"total_leads"`
	ByChannel            map[string]int   `json:"conversations_by_channel"`
	ByStatus             map[string]int   `json:"conversations_by_status"`
	LeadsByStatus        map[string]int   `json:"leads_by_status"`
	AvgResponseTimeHours float64          `json:"avg_response_time_hours"`
	Funnel               ConversionFunnel `json:"conversion_funnel"`
}

// ConversionFunnel counts leads at each funnel stage.
type ConversionFunnel struct {
	Conversations  int     `json:"conversations"`
	Leads          int     `json:"leads"`
	Qualified      int     `json:"qualified_leads"`
	Converted      int     `json:"converted"`
	ConversionRate float64 `json:"conversion_rate"`
}

// AgentPerformance summarises one staff member's assigned conversations.
type AgentPerformance struct {
	UserID               string  `json:"user_id" db:"user_id"`
	Agent                string  `json:"agent" db:"full_name"`
	ConversationsHandled int     `json:"conversations_handled" db:"conversations_handled"`
	AvgLeadScore         float64 `json:"avg_lead_score" db:"avg_lead_score"`
}

// ConversationExportRow is one row of an analytics export.
type ConversationExportRow struct {
	ID         string    `db:"id"`
	Channel    string    `db:"channel"`
	SenderName string    `db:"sender_name"`
	LeadScore  float64   `db:"lead_score"`
	Sentiment  float64   `db:"sentiment"`
	Intent     string    `db:"intent"`
	Status     string    `db:"status"`
	CreatedAt  time.Time `db:"created_at"`
	AssignedTo *string   `db:"assigned_to"`
}

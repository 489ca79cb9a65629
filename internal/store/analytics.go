package store

import (
	"context"
	"fmt"
	"time"

	"github.com/capitalize-ai/omnilead/internal/model"
)

type groupCount struct {
	Key   string `db:"k"`
	Count int    `db:"n"`
}

// Dashboard aggregates conversations and leads created since since.
func (s *Store) Dashboard(ctx context.Context, since time.Time) (*model.DashboardStats, error) {
	since = since.UTC()
	stats := &model.DashboardStats{}

	var err error
	if stats.ByChannel, stats.TotalConversations, err = s.countBy(ctx, "conversations", "channel", since); err != nil {
		return nil, err
	}
	if stats.ByStatus, _, err = s.countBy(ctx, "conversations", "status", since); err != nil {
		return nil, err
	}
	if stats.LeadsByStatus, stats.TotalLeads, err = s.countBy(ctx, "leads", "status", since); err != nil {
		return nil, err
	}

	if stats.AvgResponseTimeHours, err = s.avgResponseHours(ctx, since); err != nil {
		return nil, err
	}

	stats.Funnel = model.ConversionFunnel{
		Conversations: stats.TotalConversations,
		Leads:         stats.TotalLeads,
		Qualified:     stats.LeadsByStatus[string(model.LeadStatusQualified)],
		Converted:     stats.LeadsByStatus[string(model.LeadStatusConverted)],
	}
	if stats.TotalLeads > 0 {
		stats.Funnel.ConversionRate = float64(stats.Funnel.Converted) / float64(stats.TotalLeads)
	}

	return stats, nil
}

// countBy groups rows of table created since since by column. Both names are
// compile-time constants from this package.
func (s *Store) countBy(ctx context.Context, table, column string, since time.Time) (map[string]int, int, error) {
	var rows []groupCount
	query := s.db.Rebind(fmt.Sprintf(`SELECT %s AS k, COUNT(*) AS n FROM %s WHERE created_at >= ? GROUP BY %s`, column, table, column))
	if err := s.db.SelectContext(ctx, &rows, query, since); err != nil {
		return nil, 0, fmt.Errorf("failed to count %s by %s: %w", table, column, err)
	}

	out := make(map[string]int, len(rows))
	total := 0
	for _, r := range rows {
		out[r.Key] = r.Count
		total += r.Count
	}
	return out, total, nil
}

// avgResponseHours averages the delay between a conversation's latest inbound
// timestamp and each outbound message. Computed in Go to stay portable across
// SQLite and PostgreSQL date arithmetic.
func (s *Store) avgResponseHours(ctx context.Context, since time.Time) (float64, error) {
	var pairs []struct {
		Received time.Time `db:"received"`
		Sent     time.Time `db:"sent"`
	}
	query := s.db.Rebind(`SELECT c.timestamp AS received, m.sent_at AS sent
		FROM messages m JOIN conversations c ON c.id = m.conversation_id
		WHERE c.created_at >= ? AND m.direction = ?`)
	if err := s.db.SelectContext(ctx, &pairs, query, since, model.DirectionOutbound); err != nil {
		return 0, fmt.Errorf("failed to load response times: %w", err)
	}
	if len(pairs) == 0 {
		return 0, nil
	}

	var total time.Duration
	for _, p := range pairs {
		total += p.Sent.Sub(p.Received)
	}
	return (total / time.Duration(len(pairs))).Hours(), nil
}

// AgentPerformance reports per-assignee conversation counts and average lead score.
func (s *Store) AgentPerformance(ctx context.Context) ([]model.AgentPerformance, error) {
	perf := []model.AgentPerformance{}
	query := `SELECT u.id AS user_id, u.full_name AS full_name,
		COUNT(c.id) AS conversations_handled, COALESCE(AVG(c.lead_score), 0) AS avg_lead_score
		FROM users u JOIN conversations c ON c.assigned_to = u.id
		GROUP BY u.id, u.full_name
		ORDER BY conversations_handled DESC`
	if err := s.db.SelectContext(ctx, &perf, query); err != nil {
		return nil, fmt.Errorf("failed to load agent performance: %w", err)
	}
	return perf, nil
}

// ExportConversations returns conversations created since since for export.
func (s *Store) ExportConversations(ctx context.Context, since time.Time) ([]model.ConversationExportRow, error) {
	since = since.UTC()
	rows := []model.ConversationExportRow{}
	query := s.db.Rebind(`SELECT id, channel, sender_name, lead_score, sentiment, intent, status, created_at, assigned_to
		FROM conversations WHERE created_at >= ? ORDER BY created_at ASC`)
	if err := s.db.SelectContext(ctx, &rows, query, since); err != nil {
		return nil, fmt.Errorf("failed to export conversations: %w", err)
	}
	return rows, nil
}

package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/capitalize-ai/omnilead/internal/model"
)

// ErrUnsupportedFormat is returned for unknown export formats.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Export formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

var exportHeader = []string{"id", "channel", "sender_name", "lead_score", "sentiment", "intent", "status", "created_at", "assigned_to"}

// AnalyticsStore is the persistence used by AnalyticsService.
type AnalyticsStore interface {
	Dashboard(ctx context.Context, since time.Time) (*model.DashboardStats, error)
	AgentPerformance(ctx context.Context) ([]model.AgentPerformance, error)
	ExportConversations(ctx context.Context, since time.Time) ([]model.ConversationExportRow, error)
}

// Export is a rendered report file.
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

// AnalyticsService builds reports.
type AnalyticsService struct {
	store AnalyticsStore
	now   func() time.Time
}

// NewAnalyticsService creates a new analytics service.
func NewAnalyticsService(st AnalyticsStore) *AnalyticsService {
	return &AnalyticsService{store: st, now: time.Now}
}

func (s *AnalyticsService) since(days int) time.Time {
	return s.now().UTC().AddDate(0, 0, -days)
}

// Dashboard summarises the trailing days.
func (s *AnalyticsService) Dashboard(ctx context.Context, days int) (*model.DashboardStats, error) {
	stats, err := s.store.Dashboard(ctx, s.since(days))
	if err != nil {
		return nil, err
	}
	stats.PeriodDays = days
	return stats, nil
}

// Performance reports per-agent workload.
func (s *AnalyticsService) Performance(ctx context.Context) ([]model.AgentPerformance, error) {
	return s.store.AgentPerformance(ctx)
}

// Export renders conversations from the trailing days as csv or xlsx.
func (s *AnalyticsService) Export(ctx context.Context, format string, days int) (*Export, error) {
	if format != FormatCSV && format != FormatXLSX {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	rows, err := s.store.ExportConversations(ctx, s.since(days))
	if err != nil {
		return nil, err
	}

	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		assigned := ""
		if r.AssignedTo != nil {
			assigned = *r.AssignedTo
		}
		records = append(records, []string{
			r.ID,
			r.Channel,
			r.SenderName,
			strconv.FormatFloat(r.LeadScore, 'f', -1, 64),
			strconv.FormatFloat(r.Sentiment, 'f', -1, 64),
			r.Intent,
			r.Status,
			r.CreatedAt.UTC().Format(time.RFC3339),
			assigned,
		})
	}

	filename := fmt.Sprintf("analytics_%ddays.%s", days, format)
	if format == FormatCSV {
		data, err := renderCSV(records)
		if err != nil {
			return nil, err
		}
		return &Export{Filename: filename, ContentType: "text/csv", Data: data}, nil
	}

	data, err := renderXLSX(records)
	if err != nil {
		return nil, err
	}
	return &Export{
		Filename:    filename,
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Data:        data,
	}, nil
}

func renderCSV(records [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return nil, err
	}
	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("failed to write csv: %w", err)
	}
	return buf.Bytes(), nil
}

func renderXLSX(records [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Conversations"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	if err := setRow(f, sheet, 1, exportHeader); err != nil {
		return nil, err
	}
	for i, rec := range records {
		if err := setRow(f, sheet, i+2, rec); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	vals := make([]any, len(values))
	for i, v := range values {
		vals[i] = v
	}
	return f.SetSheetRow(sheet, cell, &vals)
}

// Package notify fans staff alerts out over push, email, SMS and chat.
package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/capitalize-ai/omnilead/internal/model"
	"github.com/capitalize-ai/omnilead/pkg/logger"
	"github.com/capitalize-ai/omnilead/pkg/metrics"
)

// Kind identifies why staff are being alerted.
type Kind string

const (
	KindEscalation    Kind = "escalation"
	KindHighValueLead Kind = "high_value_lead"
)

// Notification is a single alert, rendered once and sent over every channel.
type Notification struct {
	Kind        Kind   `json:"kind"`
	Subject     string `json:"subject"`
	Message     string `json:"message"`
	ReferenceID string `json:"reference_id"`
}

// Sender delivers a notification to one staff member.
type Sender interface {
	Name() string
	Send(ctx context.Context, user model.User, n Notification) error
}

// Broadcaster delivers a notification to a shared destination such as a team chat.
type Broadcaster interface {
	Name() string
	Broadcast(ctx context.Context, n Notification) error
}

// UserDirectory finds the staff to alert.
type UserDirectory interface {
	ListActiveUsersByRoles(ctx context.Context, roles ...model.Role) ([]model.User, error)
}

var (
	escalationRoles = []model.Role{model.RoleAdmin, model.RoleSales, model.RoleCounselor}
	leadRoles       = []model.Role{model.RoleAdmin, model.RoleSales}
)

type route struct {
	sender Sender
	kinds  map[Kind]bool
}

func (r route) accepts(k Kind) bool {
	return len(r.kinds) == 0 || r.kinds[k]
}

// Dispatcher resolves recipients and sends over every registered channel.
// Channel failures are logged and counted; they never fail the caller.
type Dispatcher struct {
	users        UserDirectory
	routes       []route
	broadcasters []Broadcaster
	highValueMin float64
	log          *logger.Logger
}

// NewDispatcher creates a dispatcher. Leads scoring at or above highValueMin
// trigger a lead alert.
func NewDispatcher(users UserDirectory, highValueMin float64, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		users:        users,
		highValueMin: highValueMin,
		log:          log.Named("notify"),
	}
}

// AddSender registers a per-user channel. With no kinds it receives every notification.
func (d *Dispatcher) AddSender(s Sender, kinds ...Kind) {
	r := route{sender: s}
	if len(kinds) > 0 {
		r.kinds = make(map[Kind]bool, len(kinds))
		for _, k := range kinds {
			r.kinds[k] = true
		}
	}
	d.routes = append(d.routes, r)
}

// AddBroadcaster registers a shared channel.
func (d *Dispatcher) AddBroadcaster(b Broadcaster) {
	d.broadcasters = append(d.broadcasters, b)
}

// Channels lists the registered channel names.
func (d *Dispatcher) Channels() []string {
	names := make([]string, 0, len(d.routes)+len(d.broadcasters))
	for _, r := range d.routes {
		names = append(names, r.sender.Name())
	}
	for _, b := range d.broadcasters {
		names = append(names, b.Name())
	}
	return names
}

// NotifyEscalation alerts admin, sales and counselor staff about an escalated conversation.
func (d *Dispatcher) NotifyEscalation(ctx context.Context, conv *model.Conversation) error {
	n := Notification{
		Kind:        KindEscalation,
		Subject:     "Escalated Conversation",
		Message:     fmt.Sprintf("New escalated conversation from %s (%s)", conv.SenderName, conv.Channel),
		ReferenceID: conv.ID,
	}
	return d.dispatch(ctx, n, escalationRoles)
}

// NotifyLead alerts admin and sales staff when lead is high value. It reports
// whether the lead qualified.
func (d *Dispatcher) NotifyLead(ctx context.Context, lead *model.Lead) (bool, error) {
	if lead.Score < d.highValueMin {
		return false, nil
	}
	n := Notification{
		Kind:        KindHighValueLead,
		Subject:     "New High-Value Lead",
		Message:     fmt.Sprintf("High-value lead: %s - Score: %.2f", lead.Name, lead.Score),
		ReferenceID: lead.ID,
	}
	return true, d.dispatch(ctx, n, leadRoles)
}

func (d *Dispatcher) dispatch(ctx context.Context, n Notification, roles []model.Role) error {
	users, err := d.users.ListActiveUsersByRoles(ctx, roles...)
	if err != nil {
		return fmt.Errorf("failed to resolve notification recipients: %w", err)
	}

	for _, u := range users {
		for _, r := range d.routes {
			if !r.accepts(n.Kind) {
				continue
			}
			err := r.sender.Send(ctx, u, n)
			metrics.RecordNotification(r.sender.Name(), err)
			if err != nil {
				d.log.Warn("notification failed",
					zap.String("channel", r.sender.Name()),
					zap.String("kind", string(n.Kind)),
					zap.String("user_id", u.ID),
					zap.Error(err),
				)
			}
		}
	}

	for _, b := range d.broadcasters {
		err := b.Broadcast(ctx, n)
		metrics.RecordNotification(b.Name(), err)
		if err != nil {
			d.log.Warn("broadcast failed",
				zap.String("channel", b.Name()),
				zap.String("kind", string(n.Kind)),
				zap.Error(err),
			)
		}
	}

	d.log.Debug("notification dispatched",
		zap.String("kind", string(n.Kind)),
		zap.String("reference_id", n.ReferenceID),
		zap.Int("recipients", len(users)),
	)
	return nil
}

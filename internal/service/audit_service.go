package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/account-portal/internal/events"
	"github.com/spec-kit/account-portal/internal/observability"
)

// AuditService records account events in the log and the event counters.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
		metrics:    metrics,
	}
}

// RegisterHandlers subscribes the audit handler to every account event.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	for _, eventType := range events.AllEventTypes {
		a.dispatcher.Subscribe(eventType, a.handle)
	}
}

func (a *AuditService) handle(_ context.Context, event events.Event) error {
	a.metrics.RecordEvent(string(event.Type))
	fields := a.baseFields(event)

	var msg string
	switch event.Type {
	case events.EventUserRegistered:
		msg = "UserRegistered"
		if p, ok := event.Payload.(events.UserRegisteredPayload); ok {
			fields = append(fields, zap.String("email", p.Email))
		}
	case events.EventUserLoggedIn:
		msg = "UserLoggedIn"
	case events.EventUserLoggedOut:
		msg = "UserLoggedOut"
	case events.EventLoginFailed:
		msg = "LoginFailed"
		if p, ok := event.Payload.(events.LoginFailedPayload); ok {
			fields = append(fields, zap.String("email", p.Email), zap.String("reason", string(p.Reason)))
		}
	default:
		msg = string(event.Type)
	}
	a.logger.Info(msg, fields...)
	return nil
}

func (a *AuditService) baseFields(event events.Event) []zap.Field {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.Time("at", event.Timestamp),
	}
	if event.UserID != 0 {
		fields = append(fields, zap.Int64("user_id", event.UserID))
	}
	return fields
}

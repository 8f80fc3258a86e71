package refunds

import (
	"context"
	"fmt"
	"time"

	"machshop/internal/core/apperror"
	"machshop/internal/core/id"
	"machshop/internal/core/tx"
	"machshop/internal/domain"
	"machshop/internal/domain/audit"
	"machshop/pkg/logger"
	"machshop/pkg/numerator"
)

// transitions lists the allowed status changes. Anything absent is rejected;
// completed, rejected and refunded are terminal.
var transitions = map[RefundStatus][]RefundStatus{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusCompleted, StatusRefunded, StatusRejected},
}

func canTransition(from, to RefundStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AuditLog persists mutation history entries. Satisfied by
// postgres.AuditService. Optional; write failures never surface to callers.
type AuditLog interface {
	LogChange(ctx context.Context, entityType string, entityID id.ID, action string, changes map[string]any) error
}

// Service provides business logic for refund documents.
type Service struct {
	repo      Repository
	txManager tx.Manager
	numerator numerator.Generator
	audit     AuditLog
}

// NewService creates a new refund service.
func NewService(repo Repository, txManager tx.Manager, numerator numerator.Generator) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		numerator: numerator,
	}
}

// SetAuditLog attaches the mutation history sink.
func (s *Service) SetAuditLog(l AuditLog) {
	s.audit = l
}

func (s *Service) auditChange(ctx context.Context, refundID id.ID, action string, changes map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogChange(ctx, "refund", refundID, action, changes); err != nil {
		logger.Warn(ctx, "audit write failed", "refund_id", refundID, "error", err)
	}
}

// RecordReturn accumulates one event onto the order's refund, creating the
// refund document on first use. Recording is idempotent per event ID, so a
// retried return request does not double the amount. The refund always stays
// pending here; paying out requires an explicit status change.
func (s *Service) RecordReturn(ctx context.Context, ref OrderRef, ev ReturnEvent) (*Refund, error) {
	if id.IsNil(ev.EventID) {
		return nil, apperror.NewValidation("event id is required").
			WithDetail("field", "eventId")
	}

	var result *Refund

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		r, err := s.repo.GetByOrder(ctx, ref.OrderID)
		switch {
		case apperror.IsNotFound(err):
			return s.createForOrder(ctx, ref, ev, &result)
		case err != nil:
			return fmt.Errorf("load refund for order %s: %w", ref.OrderID, err)
		}

		r.Events, err = s.repo.GetEvents(ctx, r.ID)
		if err != nil {
			return fmt.Errorf("load refund events: %w", err)
		}

		if !r.AppendEvent(ev) {
			logger.Debug(ctx, "refund event already recorded",
				"refund_id", r.ID, "event_id", ev.EventID)
			result = r
			return nil
		}

		audit.EnrichUpdatedBy(ctx, r)

		if err := r.Validate(ctx); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, r); err != nil {
			return fmt.Errorf("update refund: %w", err)
		}
		if err := s.repo.SaveEvents(ctx, r.ID, r.Events); err != nil {
			return fmt.Errorf("save refund events: %w", err)
		}

		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "refund event recorded",
		"refund_id", result.ID, "order_id", ref.OrderID,
		"kind", ev.Kind, "amount", ev.Amount, "total", result.RefundAmount)
	return result, nil
}

func (s *Service) createForOrder(ctx context.Context, ref OrderRef, ev ReturnEvent, out **Refund) error {
	r := NewRefund(ref)
	r.AppendEvent(ev)
	audit.EnrichCreatedBy(ctx, r)

	number, err := s.numerator.GetNextNumber(ctx, numerator.RefundConfig(), nil, r.Date)
	if err != nil {
		return fmt.Errorf("generate refund number: %w", err)
	}
	r.Number = number

	if err := r.Validate(ctx); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return fmt.Errorf("create refund: %w", err)
	}
	if err := s.repo.SaveEvents(ctx, r.ID, r.Events); err != nil {
		return fmt.Errorf("save refund events: %w", err)
	}

	*out = r
	return nil
}

// GetByID retrieves a refund with its events.
func (s *Service) GetByID(ctx context.Context, refundID id.ID) (*Refund, error) {
	r, err := s.repo.GetByID(ctx, refundID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("refund", refundID.String())
		}
		return nil, err
	}

	r.Events, err = s.repo.GetEvents(ctx, r.ID)
	if err != nil {
		return nil, fmt.Errorf("load refund events: %w", err)
	}
	return r, nil
}

// GetByOrder retrieves the refund attached to an order, with its events.
func (s *Service) GetByOrder(ctx context.Context, orderID id.ID) (*Refund, error) {
	r, err := s.repo.GetByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	r.Events, err = s.repo.GetEvents(ctx, r.ID)
	if err != nil {
		return nil, fmt.Errorf("load refund events: %w", err)
	}
	return r, nil
}

// List retrieves refunds matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Refund], error) {
	if filter.Limit <= 0 {
		filter.Limit = domain.DefaultListFilter().Limit
	}
	return s.repo.List(ctx, filter)
}

// UpdateStatus moves a refund through the approval workflow.
func (s *Service) UpdateStatus(ctx context.Context, refundID id.ID, status RefundStatus, actor string) (*Refund, error) {
	if !IsValidStatus(status) {
		return nil, apperror.NewValidation("unknown refund status").
			WithDetail("field", "refundStatus").
			WithDetail("value", string(status))
	}

	var result *Refund

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		r, err := s.repo.GetByID(ctx, refundID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewNotFound("refund", refundID.String())
			}
			return err
		}

		if r.Status == status {
			result = r
			return nil
		}
		if !canTransition(r.Status, status) {
			return apperror.NewBusinessRule("INVALID_STATUS_TRANSITION",
				fmt.Sprintf("cannot change refund status from %s to %s", r.Status, status))
		}

		if status.CountsAsPaidOut() && r.RefundAmount.GreaterThan(r.OriginalAmount) {
			return apperror.NewBusinessRule("REFUND_EXCEEDS_ORIGINAL",
				"refund amount exceeds the original order total")
		}

		r.Status = status
		r.ProcessedBy = actor
		audit.EnrichUpdatedBy(ctx, r)
		if err := s.repo.Update(ctx, r); err != nil {
			return fmt.Errorf("update refund: %w", err)
		}

		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "refund status changed",
		"refund_id", refundID, "status", status, "actor", actor)
	s.auditChange(ctx, refundID, "update", map[string]any{
		"refund_status": string(status),
		"processed_by":  actor,
		"refund_amount": result.RefundAmount,
	})
	return result, nil
}

// GetStats returns refund aggregates for a period.
func (s *Service) GetStats(ctx context.Context, from, to time.Time) (Stats, error) {
	return s.repo.GetStats(ctx, from, to)
}

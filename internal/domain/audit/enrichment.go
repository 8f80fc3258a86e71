// Package audit fills operator audit fields on documents from the request context.
package audit

import (
	"context"

	corecontext "machshop/internal/core/context"
)

// EnrichCreatedBy sets CreatedBy and UpdatedBy from the context user.
// No-op when no user is attached or the entity lacks the setters.
func EnrichCreatedBy(ctx context.Context, entity any) {
	userID := corecontext.GetUserID(ctx)
	if userID == "" {
		return
	}

	if e, ok := entity.(interface {
		SetCreatedBy(string)
		SetUpdatedBy(string)
	}); ok {
		e.SetCreatedBy(userID)
		e.SetUpdatedBy(userID)
	}
}

// EnrichUpdatedBy sets only UpdatedBy from the context user.
func EnrichUpdatedBy(ctx context.Context, entity any) {
	userID := corecontext.GetUserID(ctx)
	if userID == "" {
		return
	}

	if e, ok := entity.(interface{ SetUpdatedBy(string) }); ok {
		e.SetUpdatedBy(userID)
	}
}

// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/mbelgrano/deudores-bcra-go/internal/domain"
)

// DebtorFetcher retrieves flattened credit records from the debtors
// registry, one method per record category.
//
// Contract shared by all three methods: a nil slice with a nil error means
// the registry answered but carried zero detail rows ("sin datos"); a
// *domain.ErrNotFound means the registry has no entry at all for the CUIT;
// any other error is a classified fetch failure. Callers must treat the
// first two as absence, never as failure.
type DebtorFetcher interface {
	GetCurrentDebts(ctx context.Context, cuit string) ([]domain.DebtRecord, error)
	GetHistoricalDebts(ctx context.Context, cuit string) ([]domain.DebtRecord, error)
	GetRejectedChecks(ctx context.Context, cuit string) ([]domain.RejectedCheckRecord, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

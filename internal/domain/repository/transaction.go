// File: backend/services/audit-service/internal/domain/repository/transaction.go
package repository

import "context"

// Transactor runs fn inside one storage transaction. Repositories called with
// the ctx handed to fn take part in that transaction. If fn returns an error
// the transaction is rolled back and the error is returned unchanged.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle passed through repository calls. The
// concrete type is infra-defined (pgx.Tx for Postgres). Repositories MUST
// gracefully accept nil (non-transactional path).
type Tx interface{}

// NoTX marks an explicitly non-transactional call.
var NoTX Tx

// TransactionManager executes a function within a database transaction,
// passing the underlying handle via tx. Keeping the interface this small is
// what keeps transaction types out of the use-case layer: the callback
// pipeline composes order transition, ledger append, VIP update and dedup
// insert into one all-or-nothing unit without knowing the storage engine.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}

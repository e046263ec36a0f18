// Package uow guards bun transactions: exactly one of Commit or Rollback takes
// effect, and a transaction that is neither committed nor rolled back is
// rolled back when it is closed.
package uow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/repokit/observability/logger"
	"github.com/uptrace/bun"
)

const (
	// CodeTxAlreadyDone is returned when a finished transaction is committed or rolled back again.
	CodeTxAlreadyDone = "TX_ALREADY_DONE"
	// CodeTxAlreadyActive is returned when a second transaction is started on a
	// repository that is already bound to one.
	CodeTxAlreadyActive = "TX_ALREADY_ACTIVE"
)

// Beginner starts bun transactions. *bun.DB and bun.Tx (savepoints) implement it.
type Beginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (bun.Tx, error)
}

type state int

const (
	active state = iota
	committed
	rolledBack
)

func (s state) String() string {
	switch s {
	case committed:
		return "committed"
	case rolledBack:
		return "rolled back"
	default:
		return "active"
	}
}

// Tx is a single transaction. It must not be shared across requests.
type Tx struct {
	tx bun.Tx

	mu     sync.Mutex
	state  state
	onDone []func()
}

// Begin starts a transaction.
func Begin(ctx context.Context, db Beginner, opts *sql.TxOptions) (*Tx, error) {
	if db == nil {
		return nil, errx.New(
			"[uow]: db is required",
			errx.WithCode("INVALID_ARGUMENT"),
			errx.WithType(errx.T_Validation),
		)
	}

	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return nil, errx.Wrap(err)
	}

	return &Tx{tx: tx}, nil
}

// IDB returns the connection bound to the transaction.
func (t *Tx) IDB() bun.IDB {
	return t.tx
}

// Done reports whether the transaction was committed or rolled back.
func (t *Tx) Done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state != active
}

// OnDone registers fn to run once the transaction finishes, whatever the outcome.
// If it is already finished fn runs immediately.
func (t *Tx) OnDone(fn func()) {
	t.mu.Lock()
	if t.state == active {
		t.onDone = append(t.onDone, fn)
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()
	fn()
}

// Commit commits the transaction. It fails with CodeTxAlreadyDone if the
// transaction has already finished.
func (t *Tx) Commit(ctx context.Context) error {
	return t.finish(ctx, committed)
}

// Rollback rolls the transaction back. It fails with CodeTxAlreadyDone if the
// transaction has already finished.
func (t *Tx) Rollback(ctx context.Context) error {
	return t.finish(ctx, rolledBack)
}

// Close rolls the transaction back unless it already finished. Meant for defer.
func (t *Tx) Close(ctx context.Context) error {
	if t.Done() {
		return nil
	}
	err := t.finish(ctx, rolledBack)
	if errx.IsCodeIn(err, CodeTxAlreadyDone) {
		return nil
	}
	return err
}

func (t *Tx) finish(ctx context.Context, to state) error {
	t.mu.Lock()
	if t.state != active {
		current := t.state
		t.mu.Unlock()
		return errx.New(
			fmt.Sprintf("[uow]: transaction is already %s", current),
			errx.WithCode(CodeTxAlreadyDone),
			errx.WithDetails(errx.D{"state": current.String(), "requested": to.String()}),
		)
	}
	t.state = to
	callbacks := t.onDone
	t.onDone = nil
	t.mu.Unlock()

	defer func() {
		for _, fn := range callbacks {
			fn()
		}
	}()

	var err error
	if to == committed {
		err = t.tx.Commit()
	} else {
		err = t.tx.Rollback()
	}
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		logger.Named("uow").WithContext(ctx).With("operation", to.String()).Errorx(err)
		return errx.Wrap(err, errx.WithDetails(errx.D{"operation": to.String()}))
	}
	if err != nil && to == committed {
		// The driver already ended the transaction, so the commit did not take effect.
		return errx.Wrap(err, errx.WithDetails(errx.D{"operation": to.String()}))
	}

	return nil
}

// Run executes fn inside a new transaction. The transaction is committed when fn
// returns nil and rolled back when fn returns an error or panics; panics are
// re-raised after the rollback. fn may finish the transaction itself.
func Run(ctx context.Context, db Beginner, fn func(ctx context.Context, tx *Tx) error) (err error) {
	tx, err := Begin(ctx, db, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Close(ctx)
			panic(p)
		}
	}()

	if err = fn(ctx, tx); err != nil {
		if closeErr := tx.Close(ctx); closeErr != nil {
			logger.Named("uow").WithContext(ctx).Warnx(closeErr)
		}
		return err
	}

	if tx.Done() {
		return nil
	}
	return tx.Commit(ctx)
}

package repogen

import (
	"context"
	"sync"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/repokit/uow"
	"github.com/uptrace/bun"
)

// change is one staged write. exec runs it against idb and returns the number of rows it affected.
type change struct {
	operation string
	exec      func(ctx context.Context, idb bun.IDB) (int64, error)
}

type unitOfWork struct {
	mu      sync.Mutex
	pending []change
	tx      *uow.Tx

	// flushMu serializes SaveChanges and Discard.
	flushMu sync.Mutex
}

func (w *unitOfWork) stage(c change) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = append(w.pending, c)
}

func (w *unitOfWork) snapshot() []change {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]change(nil), w.pending...)
}

// drop removes the first n changes, keeping those staged while they were flushed.
func (w *unitOfWork) drop(n int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = append([]change(nil), w.pending[min(n, len(w.pending)):]...)
}

func (w *unitOfWork) len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

func (w *unitOfWork) clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = nil
}

func (w *unitOfWork) activeTx() *uow.Tx {
	w.mu.Lock()
	tx := w.tx
	w.mu.Unlock()

	if tx == nil || tx.Done() {
		return nil
	}
	return tx
}

func (w *unitOfWork) bind(tx *uow.Tx) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.tx != nil && !w.tx.Done() {
		return false
	}
	w.tx = tx
	return true
}

func (w *unitOfWork) unbind(tx *uow.Tx) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.tx == tx {
		w.tx = nil
	}
}

// Pending returns the number of staged changes.
func (r *PgRepo[E, K]) Pending() int {
	return r.work.len()
}

// Discard drops the staged changes. It waits for a SaveChanges in progress.
func (r *PgRepo[E, K]) Discard() {
	r.work.flushMu.Lock()
	defer r.work.flushMu.Unlock()
	r.work.clear()
}

// SaveChanges flushes the staged changes in the order they were staged.
//
// Inside a transaction started with BeginTransaction, or on a repository bound
// with WithTx, the changes join that transaction. Otherwise they run in a new
// transaction that is rolled back if any of them fails. Changes stay staged
// when the flush fails.
func (r *PgRepo[E, K]) SaveChanges(ctx context.Context) (_ int64, err error) {
	const op = "save_changes"
	ctx, span := r.startSpan(ctx, op)
	defer func() { endSpan(span, err) }()

	r.work.flushMu.Lock()
	defer r.work.flushMu.Unlock()

	changes := r.work.snapshot()
	if len(changes) == 0 {
		return 0, nil
	}

	var total int64
	flush := func(ctx context.Context, idb bun.IDB) error {
		total = 0
		for _, c := range changes {
			n, err := c.exec(ctx, idb)
			if err != nil {
				return err
			}
			total += n
		}
		return nil
	}

	tx := r.work.activeTx()
	switch {
	case tx != nil:
		err = flush(ctx, tx.IDB())
	case r.external:
		err = flush(ctx, r.db)
	default:
		err = uow.Run(ctx, r.db, func(ctx context.Context, tx *uow.Tx) error {
			return flush(ctx, tx.IDB())
		})
	}
	if err != nil {
		return 0, err
	}

	r.work.drop(len(changes))
	return total, nil
}

// BeginTransaction starts a transaction and binds the repository (and its
// WithDeleted views) to it until it is committed or rolled back.
func (r *PgRepo[E, K]) BeginTransaction(ctx context.Context) (*uow.Tx, error) {
	if r.external || r.work.activeTx() != nil {
		return nil, errx.New(
			"[repogen]: repository is already bound to a transaction",
			errx.WithCode(uow.CodeTxAlreadyActive),
			errx.WithDetails(errx.D{"entity": r.desc.EntityName}),
		)
	}

	tx, err := uow.Begin(ctx, r.db, nil)
	if err != nil {
		return nil, r.storeError(ctx, "begin_transaction", err, nil)
	}

	if !r.work.bind(tx) {
		_ = tx.Close(ctx)
		return nil, errx.New(
			"[repogen]: repository is already bound to a transaction",
			errx.WithCode(uow.CodeTxAlreadyActive),
			errx.WithDetails(errx.D{"entity": r.desc.EntityName}),
		)
	}
	tx.OnDone(func() { r.work.unbind(tx) })

	return tx, nil
}

// WithTx returns a copy of the repository bound to a transaction managed by the
// caller. The copy has its own unit of work; its SaveChanges runs inside idb
// without committing.
func (r *PgRepo[E, K]) WithTx(idb bun.IDB) *PgRepo[E, K] {
	c := *r
	c.db = idb
	c.external = true
	c.work = &unitOfWork{}
	return &c
}

package repogen

import (
	"context"
	"fmt"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/repokit/entitykey"
	"github.com/rise-and-shine/repokit/softdel"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace"
)

// PgRepo is the bun implementation of Repo.
//
// Copies returned by WithDeleted share the unit of work of the original;
// copies returned by WithTx start a new one.
type PgRepo[E any, K comparable] struct {
	db            bun.IDB
	external      bool
	desc          entitykey.Descriptor
	strategy      softdel.Strategy[E]
	schemaName    string
	notFoundCode  string
	conflictCodes map[string]string
	withDeleted   bool
	tracer        trace.Tracer

	work *unitOfWork
}

// Descriptor returns the key descriptor of E.
func (r *PgRepo[E, K]) Descriptor() entitykey.Descriptor {
	return r.desc
}

// WithDeleted returns a view of the repository whose reads include soft deleted rows.
func (r *PgRepo[E, K]) WithDeleted() *PgRepo[E, K] {
	c := *r
	c.withDeleted = true
	return &c
}

// conn returns the transaction the repository is bound to, or its database.
func (r *PgRepo[E, K]) conn() bun.IDB {
	if tx := r.work.activeTx(); tx != nil {
		return tx.IDB()
	}
	return r.db
}

// BaseQuery returns a SELECT over E with schema qualification and the
// soft delete scope applied.
func (r *PgRepo[E, K]) BaseQuery() *bun.SelectQuery {
	return r.selectQuery((*E)(nil))
}

func (r *PgRepo[E, K]) selectQuery(model any) *bun.SelectQuery {
	q := r.conn().NewSelect().Model(model)
	if r.schemaName != "" {
		q = q.ModelTableExpr("?.? AS ?", bun.Ident(r.schemaName), bun.Ident(r.desc.Table), bun.Ident(r.desc.TableAlias))
	}
	if !r.withDeleted {
		q = q.ApplyQueryBuilder(r.strategy.Scope)
	}
	return q
}

func (r *PgRepo[E, K]) orderByKey(q *bun.SelectQuery) *bun.SelectQuery {
	return q.OrderExpr("?TableAlias.? ASC", bun.Ident(r.desc.KeyColumn))
}

func (r *PgRepo[E, K]) GetByID(ctx context.Context, id K) (_ *E, err error) {
	const op = "get_by_id"
	ctx, span := r.startSpan(ctx, op)
	defer func() { endSpan(span, err) }()

	if err = r.validateKey(op, id); err != nil {
		return nil, err
	}

	e, err := r.loadByID(ctx, op, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, r.notFound(op, id)
	}
	return e, nil
}

// loadByID returns nil without error when the row does not exist.
func (r *PgRepo[E, K]) loadByID(ctx context.Context, op string, id K) (*E, error) {
	entities := make([]E, 0, 1)
	q := r.selectQuery(&entities).
		ApplyQueryBuilder(entitykey.MatchKey(r.desc, id)).
		Limit(1)

	if err := q.Scan(ctx); err != nil {
		return nil, r.storeError(ctx, op, err, q)
	}
	if len(entities) == 0 {
		return nil, nil //nolint:nilnil // absence is not an error here
	}
	return &entities[0], nil
}

func (r *PgRepo[E, K]) GetAll(ctx context.Context) (_ []E, err error) {
	const op = "get_all"
	ctx, span := r.startSpan(ctx, op)
	defer func() { endSpan(span, err) }()

	entities := make([]E, 0)
	q := r.orderByKey(r.selectQuery(&entities))

	if err = q.Scan(ctx); err != nil {
		return nil, r.storeError(ctx, op, err, q)
	}
	return entities, nil
}

func (r *PgRepo[E, K]) Exists(ctx context.Context, id K) (_ bool, err error) {
	const op = "exists"
	ctx, span := r.startSpan(ctx, op)
	defer func() { endSpan(span, err) }()

	if err = r.validateKey(op, id); err != nil {
		return false, err
	}

	q := r.BaseQuery().ApplyQueryBuilder(entitykey.MatchKey(r.desc, id))
	exists, err := q.Exists(ctx)
	if err != nil {
		return false, r.storeError(ctx, op, err, q)
	}
	return exists, nil
}

func (r *PgRepo[E, K]) GetWhere(ctx context.Context, pred entitykey.Predicate) (_ []E, err error) {
	const op = "get_where"
	ctx, span := r.startSpan(ctx, op)
	defer func() { endSpan(span, err) }()

	if pred == nil {
		return nil, r.invalidArgument(op, "predicate is nil")
	}

	entities := make([]E, 0)
	q := r.orderByKey(r.selectQuery(&entities).ApplyQueryBuilder(pred))

	if err = q.Scan(ctx); err != nil {
		return nil, r.storeError(ctx, op, err, q)
	}
	return entities, nil
}

func (r *PgRepo[E, K]) GetSingleWhere(ctx context.Context, pred entitykey.Predicate) (_ *E, err error) {
	const op = "get_single_where"
	ctx, span := r.startSpan(ctx, op)
	defer func() { endSpan(span, err) }()

	if pred == nil {
		return nil, r.invalidArgument(op, "predicate is nil")
	}

	entities := make([]E, 0, 2) //nolint:mnd // two rows are enough to detect ambiguity
	q := r.selectQuery(&entities).ApplyQueryBuilder(pred).Limit(2) //nolint:mnd // see above

	if err = q.Scan(ctx); err != nil {
		return nil, r.storeError(ctx, op, err, q)
	}

	switch len(entities) {
	case 0:
		return nil, nil //nolint:nilnil // none is a valid answer
	case 1:
		return &entities[0], nil
	default:
		return nil, errx.New(
			fmt.Sprintf("multiple %s found", r.desc.EntityName),
			errx.WithCode(CodeMultipleRowsFound),
			errx.WithType(errx.T_Conflict),
			errx.WithDetails(errx.D{"entity": r.desc.EntityName, "operation": op, "query": q.String()}),
		)
	}
}

func (r *PgRepo[E, K]) GetFirstWhere(ctx context.Context, pred entitykey.Predicate) (_ *E, err error) {
	const op = "get_first_where"
	ctx, span := r.startSpan(ctx, op)
	defer func() { endSpan(span, err) }()

	if pred == nil {
		return nil, r.invalidArgument(op, "predicate is nil")
	}

	entities := make([]E, 0, 1)
	q := r.orderByKey(r.selectQuery(&entities).ApplyQueryBuilder(pred)).Limit(1)

	if err = q.Scan(ctx); err != nil {
		return nil, r.storeError(ctx, op, err, q)
	}
	if len(entities) == 0 {
		return nil, nil //nolint:nilnil // none is a valid answer
	}
	return &entities[0], nil
}

func (r *PgRepo[E, K]) Count(ctx context.Context, preds ...entitykey.Predicate) (_ int64, err error) {
	const op = "count"
	ctx, span := r.startSpan(ctx, op)
	defer func() { endSpan(span, err) }()

	q := r.BaseQuery()
	for _, p := range preds {
		q = q.ApplyQueryBuilder(p.Apply)
	}

	n, err := q.Count(ctx)
	if err != nil {
		return 0, r.storeError(ctx, op, err, q)
	}
	return int64(n), nil
}

func (r *PgRepo[E, K]) Any(ctx context.Context, pred entitykey.Predicate) (_ bool, err error) {
	const op = "any"
	ctx, span := r.startSpan(ctx, op)
	defer func() { endSpan(span, err) }()

	if pred == nil {
		return false, r.invalidArgument(op, "predicate is nil")
	}

	q := r.BaseQuery().ApplyQueryBuilder(pred)
	exists, err := q.Exists(ctx)
	if err != nil {
		return false, r.storeError(ctx, op, err, q)
	}
	return exists, nil
}

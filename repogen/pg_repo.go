package repogen

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/repokit/entitykey"
	"github.com/samber/lo"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

func (r *PgRepo[E, K]) Add(ctx context.Context, entity *E) (err error) {
	const op = "add"
	_, span := r.startSpan(ctx, op)
	defer func() { endSpan(span, err) }()

	if entity == nil {
		return r.invalidArgument(op, "entity is nil")
	}

	r.work.stage(change{operation: op, exec: func(ctx context.Context, idb bun.IDB) (int64, error) {
		q := r.insertQuery(idb, entity).Returning("*")
		return r.execAffected(ctx, op, q, 1)
	}})
	return nil
}

func (r *PgRepo[E, K]) AddRange(ctx context.Context, entities []E) (err error) {
	const op = "add_range"
	_, span := r.startSpan(ctx, op)
	defer func() { endSpan(span, err) }()

	if len(entities) == 0 {
		return r.invalidArgument(op, "no entities given")
	}

	r.work.stage(change{operation: op, exec: func(ctx context.Context, idb bun.IDB) (int64, error) {
		q := r.insertQuery(idb, &entities).Returning("*")
		return r.execAffected(ctx, op, q, len(entities))
	}})
	return nil
}

func (r *PgRepo[E, K]) Update(ctx context.Context, entity *E) (err error) {
	const op = "update"
	_, span := r.startSpan(ctx, op)
	defer func() { endSpan(span, err) }()

	if entity == nil {
		return r.invalidArgument(op, "entity is nil")
	}
	if err = r.validateKey(op, entitykey.KeyOf[K](r.desc, entity)); err != nil {
		return err
	}

	r.work.stage(change{operation: op, exec: func(ctx context.Context, idb bun.IDB) (int64, error) {
		return r.execUpdate(ctx, op, idb, entity)
	}})
	return nil
}

func (r *PgRepo[E, K]) UpdateRange(ctx context.Context, entities []E) (err error) {
	const op = "update_range"
	_, span := r.startSpan(ctx, op)
	defer func() { endSpan(span, err) }()

	if len(entities) == 0 {
		return r.invalidArgument(op, "no entities given")
	}
	for i := range entities {
		if err = r.validateKey(op, entitykey.KeyOf[K](r.desc, &entities[i])); err != nil {
			return errx.Wrap(err, errx.WithDetails(errx.D{"position": i}))
		}
	}

	r.work.stage(change{operation: op, exec: func(ctx context.Context, idb bun.IDB) (int64, error) {
		var total int64
		for i := range entities {
			n, err := r.execUpdate(ctx, op, idb, &entities[i])
			if err != nil {
				return total, err
			}
			total += n
		}
		return total, nil
	}})
	return nil
}

// Delete loads the entity and stages its deletion: an UPDATE of the soft delete
// columns for soft deletable entities, a DELETE otherwise.
func (r *PgRepo[E, K]) Delete(ctx context.Context, id K) (err error) {
	const op = "delete"
	ctx, span := r.startSpan(ctx, op)
	defer func() { endSpan(span, err) }()

	if err = r.validateKey(op, id); err != nil {
		return err
	}

	e, err := r.loadByID(ctx, op, id)
	if err != nil {
		return err
	}
	if e == nil {
		return r.notFound(op, id)
	}

	r.stageDeletion(op, []E{*e})
	return nil
}

// DeleteRange stages the deletion of the rows with the given keys. Keys without
// a row are ignored; the returned count is the number of rows found.
func (r *PgRepo[E, K]) DeleteRange(ctx context.Context, ids []K) (_ int64, err error) {
	const op = "delete_range"
	ctx, span := r.startSpan(ctx, op)
	defer func() { endSpan(span, err) }()

	if len(ids) == 0 {
		return 0, r.invalidArgument(op, "no keys given")
	}
	for i, id := range ids {
		if err = r.validateKey(op, id); err != nil {
			return 0, errx.Wrap(err, errx.WithDetails(errx.D{"position": i}))
		}
	}

	return r.deleteMatching(ctx, op, entitykey.MatchKeys(r.desc, ids))
}

// DeleteWhere stages the deletion of the rows matching pred and returns their number.
func (r *PgRepo[E, K]) DeleteWhere(ctx context.Context, pred entitykey.Predicate) (_ int64, err error) {
	const op = "delete_where"
	ctx, span := r.startSpan(ctx, op)
	defer func() { endSpan(span, err) }()

	if pred == nil {
		return 0, r.invalidArgument(op, "predicate is nil")
	}

	return r.deleteMatching(ctx, op, pred)
}

// Restore stages clearing the soft delete mark of the entity with the given key.
// Restoring an entity that is not deleted is a no-op.
func (r *PgRepo[E, K]) Restore(ctx context.Context, id K) (err error) {
	const op = "restore"
	ctx, span := r.startSpan(ctx, op)
	defer func() { endSpan(span, err) }()

	if err = r.validateKey(op, id); err != nil {
		return err
	}
	if !r.strategy.IsSoft() {
		return r.invalidArgument(op, r.desc.EntityName+" is not soft deletable")
	}

	e, err := r.WithDeleted().loadByID(ctx, op, id)
	if err != nil {
		return err
	}
	if e == nil {
		return r.notFound(op, id)
	}
	if !r.strategy.IsDeleted(e) {
		return nil
	}
	if !r.strategy.TryRestore(e) {
		return r.invalidArgument(op, r.desc.EntityName+" cannot be restored")
	}

	r.stageSoftUpdate(op, []E{*e})
	return nil
}

// deleteMatching reads the rows matching pred and stages their deletion.
// The read and the staged write are not atomic with respect to other writers
// unless the repository is bound to a transaction.
func (r *PgRepo[E, K]) deleteMatching(ctx context.Context, op string, pred entitykey.Predicate) (int64, error) {
	rows := make([]E, 0)
	q := r.selectQuery(&rows).ApplyQueryBuilder(pred)
	if err := q.Scan(ctx); err != nil {
		return 0, r.storeError(ctx, op, err, q)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	r.stageDeletion(op, rows)
	return int64(len(rows)), nil
}

// stageDeletion marks rows through the strategy and stages one bulk UPDATE for
// the soft deleted ones and one bulk DELETE for the rest.
func (r *PgRepo[E, K]) stageDeletion(op string, rows []E) {
	marked := lo.Map(rows, func(_ E, i int) bool { return r.strategy.TryMarkDeleted(&rows[i]) })
	soft := lo.Filter(rows, func(_ E, i int) bool { return marked[i] })
	hard := lo.FilterMap(rows, func(_ E, i int) (K, bool) {
		return entitykey.KeyOf[K](r.desc, &rows[i]), !marked[i]
	})

	if len(soft) > 0 {
		r.stageSoftUpdate(op, soft)
	}
	if len(hard) > 0 {
		r.work.stage(change{operation: op, exec: func(ctx context.Context, idb bun.IDB) (int64, error) {
			q := idb.NewDelete().Model((*E)(nil)).ApplyQueryBuilder(entitykey.MatchKeys(r.desc, hard))
			if r.schemaName != "" {
				q = q.ModelTableExpr("?.? AS ?", bun.Ident(r.schemaName), bun.Ident(r.desc.Table), bun.Ident(r.desc.TableAlias))
			}
			return r.execAffected(ctx, op, q, len(hard))
		}})
	}
}

// stageSoftUpdate writes the soft delete columns of rows. PostgreSQL gets a
// single bulk UPDATE; other dialects get one UPDATE per row in the same change.
func (r *PgRepo[E, K]) stageSoftUpdate(op string, rows []E) {
	columns := r.strategy.Columns()

	r.work.stage(change{operation: op, exec: func(ctx context.Context, idb bun.IDB) (int64, error) {
		if idb.Dialect().Name() == dialect.PG {
			q := r.updateQuery(idb, &rows).Column(columns...).Bulk()
			return r.execAffected(ctx, op, q, len(rows))
		}

		var total int64
		for i := range rows {
			q := r.updateQuery(idb, &rows[i]).Column(columns...).WherePK()
			n, err := r.execAffected(ctx, op, q, 1)
			if err != nil {
				return total, err
			}
			total += n
		}
		return total, nil
	}})
}

func (r *PgRepo[E, K]) execUpdate(ctx context.Context, op string, idb bun.IDB, entity *E) (int64, error) {
	q := r.updateQuery(idb, entity).WherePK()
	if !r.withDeleted {
		q = q.ApplyQueryBuilder(r.strategy.Scope)
	}

	n, err := r.execAffected(ctx, op, q, 1)
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, errx.New(
			fmt.Sprintf("no %s found to update", r.desc.EntityName),
			errx.WithCode(CodeIncorrectRowsAffection),
			errx.WithType(errx.T_NotFound),
			errx.WithDetails(errx.D{
				"entity":    r.desc.EntityName,
				"operation": op,
				"id":        fmt.Sprintf("%v", entitykey.KeyOf[K](r.desc, entity)),
			}),
		)
	}
	return n, nil
}

func (r *PgRepo[E, K]) insertQuery(idb bun.IDB, model any) *bun.InsertQuery {
	q := idb.NewInsert().Model(model)
	if r.schemaName != "" {
		q = q.ModelTableExpr("?.? AS ?", bun.Ident(r.schemaName), bun.Ident(r.desc.Table), bun.Ident(r.desc.TableAlias))
	}
	return q
}

func (r *PgRepo[E, K]) updateQuery(idb bun.IDB, model any) *bun.UpdateQuery {
	q := idb.NewUpdate().Model(model)
	if r.schemaName != "" {
		q = q.ModelTableExpr("?.? AS ?", bun.Ident(r.schemaName), bun.Ident(r.desc.Table), bun.Ident(r.desc.TableAlias))
	}
	return q
}

type execQuery interface {
	fmt.Stringer
	Exec(ctx context.Context, dest ...any) (sql.Result, error)
}

// execAffected runs q and returns the number of rows it affected. batchSize only
// decides whether the query text is kept in error details.
func (r *PgRepo[E, K]) execAffected(ctx context.Context, op string, q execQuery, batchSize int) (int64, error) {
	res, err := q.Exec(ctx)
	if err != nil {
		if batchSize > largeBulkSize {
			return 0, r.storeError(ctx, op, err, nil)
		}
		return 0, r.storeError(ctx, op, err, q)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, r.storeError(ctx, op, err, q)
	}
	return n, nil
}

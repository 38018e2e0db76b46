package engine

import (
	"context"
	"fmt"

	"github.com/resultdb/resultdb/internal/model"
	"github.com/resultdb/resultdb/internal/store"
)

// Strategy selects the concurrency guard of a get-or-create call.
// The resolver threads the strategy through nested resolution, so a
// noisy call resolves its references noisily too.
type Strategy int

const (
	// Quiet performs lookup-then-insert with no race guard. Correct
	// only when the caller guarantees no concurrent writer races on
	// the same natural key; otherwise the constraint violation
	// propagates for the caller to retry at a higher level.
	Quiet Strategy = iota

	// Noisy guards the insert with a savepoint: a unique-constraint
	// conflict rolls back only the savepoint and re-runs the lookup,
	// which finds the concurrently committed row.
	Noisy
)

func (s Strategy) String() string {
	switch s {
	case Noisy:
		return "noisy"
	default:
		return "quiet"
	}
}

// Session is the transactional surface the engine requires. Satisfied
// by *store.Session; tests substitute wrappers to interleave
// concurrent writers deterministically.
type Session interface {
	FindIDs(ctx context.Context, table string, filters []store.Match) ([]int64, error)
	Insert(ctx context.Context, table string, columns []string, values []any) (int64, error)
	Savepoint(ctx context.Context) (*store.Savepoint, error)
}

// Item is one entry of a bulk get-or-create request.
type Item struct {
	Kind   model.Kind
	Fields model.Fields
}

// Engine resolves field mappings into canonical persisted rows.
type Engine struct {
	reg *model.Registry
}

// New creates an engine over an explicit schema registry.
func New(reg *model.Registry) *Engine {
	return &Engine{reg: reg}
}

// GetOrCreate returns the row of kind matching every field exactly,
// creating it first if absent. Nested entity values in fields are
// resolved recursively with the same strategy before the parent is
// looked up, so foreign keys always point at canonical rows.
//
// The session must hold an open transaction owned by the caller; the
// engine never commits it.
func (e *Engine) GetOrCreate(ctx context.Context, sess Session, kind model.Kind, fields model.Fields, strategy Strategy) (model.Entity, error) {
	return e.getOrCreate(ctx, sess, kind, fields, strategy, make(resolving))
}

// BulkGetOrCreate performs quiet per-item resolution for an ordered
// sequence of items inside one shared savepoint, returning the
// resolved instance for every item in input order. An error rolls the
// whole scope back.
func (e *Engine) BulkGetOrCreate(ctx context.Context, sess Session, items []Item) ([]model.Entity, error) {
	sp, err := sess.Savepoint(ctx)
	if err != nil {
		return nil, err
	}
	defer sp.Release()

	instances := make([]model.Entity, 0, len(items))
	for i, item := range items {
		instance, err := e.getOrCreate(ctx, sess, item.Kind, item.Fields, Quiet, make(resolving))
		if err != nil {
			if rbErr := sp.Rollback(); rbErr != nil {
				return nil, fmt.Errorf("rollback after item %d: %w", i, rbErr)
			}
			return nil, fmt.Errorf("bulk item %d: %w", i, err)
		}
		instances = append(instances, instance)
	}
	return instances, nil
}

func (e *Engine) getOrCreate(ctx context.Context, sess Session, kind model.Kind, fields model.Fields, strategy Strategy, seen resolving) (model.Entity, error) {
	desc, err := e.reg.Descriptor(kind)
	if err != nil {
		return nil, invalidFieldsError(kind, err)
	}
	if err := desc.ValidateFields(fields); err != nil {
		return nil, invalidFieldsError(kind, err)
	}

	resolved, err := e.resolveFields(ctx, sess, desc, fields, strategy, seen)
	if err != nil {
		return nil, err
	}

	if strategy == Noisy {
		return e.noisyGetOrCreate(ctx, sess, desc, resolved)
	}
	return e.quietGetOrCreate(ctx, sess, desc, resolved)
}

// quietGetOrCreate fetches or inserts with no race guard. A duplicate
// insert racing on the same natural key surfaces as the store's
// constraint-violation error, propagated unchanged for the caller's
// transaction to handle.
func (e *Engine) quietGetOrCreate(ctx context.Context, sess Session, desc *model.Descriptor, resolved model.Fields) (model.Entity, error) {
	id, err := e.lookup(ctx, sess, desc, resolved)
	if err == nil {
		return desc.New(id, resolved), nil
	}
	if !IsNotFound(err) {
		return nil, err
	}

	id, err = e.insert(ctx, sess, desc, resolved)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", desc.Kind, err)
	}
	return desc.New(id, resolved), nil
}

// noisyGetOrCreate guards the insert against a concurrent duplicate:
//
//	LOOKUP -> found -> DONE
//	       -> not found -> INSERT in savepoint -> DONE
//	                    -> unique conflict -> ROLLBACK -> RELOOKUP -> DONE
//
// Every exit path discharges the savepoint.
func (e *Engine) noisyGetOrCreate(ctx context.Context, sess Session, desc *model.Descriptor, resolved model.Fields) (model.Entity, error) {
	id, err := e.lookup(ctx, sess, desc, resolved)
	if err == nil {
		return desc.New(id, resolved), nil
	}
	if !IsNotFound(err) {
		return nil, err
	}

	sp, err := sess.Savepoint(ctx)
	if err != nil {
		return nil, err
	}
	defer sp.Release()

	id, insErr := e.insert(ctx, sess, desc, resolved)
	if insErr == nil {
		return desc.New(id, resolved), nil
	}
	if !store.IsUniqueViolation(insErr) {
		if rbErr := sp.Rollback(); rbErr != nil {
			return nil, fmt.Errorf("rollback after failed insert: %w", rbErr)
		}
		return nil, fmt.Errorf("insert %s: %w", desc.Kind, insErr)
	}

	// A concurrent caller committed the same natural key between the
	// lookup and the insert. Roll back only this scope and fetch the
	// now-existing row.
	if err := sp.Rollback(); err != nil {
		return nil, err
	}
	id, err = e.lookup(ctx, sess, desc, resolved)
	if err != nil {
		return nil, fmt.Errorf("re-lookup %s after insert conflict: %w", desc.Kind, err)
	}
	return desc.New(id, resolved), nil
}

// lookup finds the single row matching every resolved field exactly.
// Zero rows yields a NotFound error; more than one row means the
// natural key is not actually unique and is surfaced fatally.
func (e *Engine) lookup(ctx context.Context, sess Session, desc *model.Descriptor, resolved model.Fields) (int64, error) {
	columns, values, err := columnValues(desc, resolved)
	if err != nil {
		return 0, invalidFieldsError(desc.Kind, err)
	}
	filters := make([]store.Match, len(columns))
	for i, col := range columns {
		filters[i] = store.Match{Column: col, Value: values[i]}
	}

	ids, err := sess.FindIDs(ctx, desc.Table, filters)
	if err != nil {
		return 0, fmt.Errorf("lookup %s: %w", desc.Kind, err)
	}
	switch len(ids) {
	case 0:
		return 0, notFoundError(desc.Kind)
	case 1:
		return ids[0], nil
	default:
		return 0, multipleMatchesError(desc.Kind, len(ids))
	}
}

func (e *Engine) insert(ctx context.Context, sess Session, desc *model.Descriptor, resolved model.Fields) (int64, error) {
	columns, values, err := columnValues(desc, resolved)
	if err != nil {
		return 0, invalidFieldsError(desc.Kind, err)
	}
	return sess.Insert(ctx, desc.Table, columns, values)
}

// columnValues maps a resolved field mapping onto encoded column
// values in the descriptor's declared column order. Reference fields
// contribute their row id under the foreign-key column. Absent
// nullable columns are skipped entirely.
func columnValues(desc *model.Descriptor, resolved model.Fields) ([]string, []any, error) {
	columns := make([]string, 0, len(desc.Columns))
	values := make([]any, 0, len(desc.Columns))
	for _, col := range desc.Columns {
		v, ok := resolved[col]
		if !ok {
			if refName, isRef := desc.RefField(col); isRef {
				v, ok = resolved[refName]
			}
		}
		if !ok {
			continue
		}
		encoded, err := model.EncodeValue(v)
		if err != nil {
			return nil, nil, fmt.Errorf("field %q: %w", col, err)
		}
		columns = append(columns, col)
		values = append(values, encoded)
	}
	return columns, values, nil
}

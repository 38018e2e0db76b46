package engine

import (
	"context"
	"fmt"

	"github.com/resultdb/resultdb/internal/model"
)

// resolving tracks entity instances currently being resolved on this
// call stack, keyed by identity. Re-entering an in-flight instance
// means the reference graph loops and is rejected instead of recursing
// forever.
type resolving map[model.Entity]struct{}

// resolveFields returns a copy of fields in which every value that is
// itself an entity instance has been replaced by its persisted
// counterpart, resolved recursively with the same strategy as the
// enclosing call. Scalar and mapping values pass through unchanged.
//
// Depth is unbounded; only cycles are rejected.
func (e *Engine) resolveFields(ctx context.Context, sess Session, desc *model.Descriptor, fields model.Fields, strategy Strategy, seen resolving) (model.Fields, error) {
	resolved := make(model.Fields, len(fields))
	for name, value := range fields {
		nested, ok := value.(model.Entity)
		if !ok {
			resolved[name] = value
			continue
		}

		if _, inFlight := seen[nested]; inFlight {
			return nil, cycleError(nested.EntityKind())
		}
		seen[nested] = struct{}{}
		instance, err := e.getOrCreate(ctx, sess, nested.EntityKind(), nested.FieldValues(), strategy, seen)
		delete(seen, nested)
		if err != nil {
			return nil, fmt.Errorf("resolve %s.%s: %w", desc.Kind, name, err)
		}
		resolved[name] = instance
	}
	return resolved, nil
}

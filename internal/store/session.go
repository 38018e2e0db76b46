package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// StatementHook observes SQL statements issued through a Session. The
// hook fires for exact-match lookups, inserts, and savepoint
// rollbacks; savepoint acquisition and release are scope bookkeeping
// and are not reported. Test-only instrumentation.
type StatementHook func(query string)

// Session wraps one caller-owned transaction. The engine issues its
// lookups and inserts through the session and nests savepoints for
// independently rollback-able scopes; committing or rolling back the
// enclosing transaction is the caller's responsibility.
type Session struct {
	tx    *sql.Tx
	hook  StatementHook
	spSeq int
}

// Match is one exact-match filter over a column. A nil Value matches
// SQL NULL.
type Match struct {
	Column string
	Value  any
}

// SetStatementHook installs a statement observer. Pass nil to remove.
func (s *Session) SetStatementHook(h StatementHook) {
	s.hook = h
}

func (s *Session) observe(query string) {
	if s.hook != nil {
		s.hook(query)
	}
}

// FindIDs returns the row ids matching every filter exactly, in id
// order. Zero rows is not an error; discriminating not-found from
// multiple matches belongs to the caller.
func (s *Session) FindIDs(ctx context.Context, table string, filters []Match) ([]int64, error) {
	var b strings.Builder
	b.WriteString("SELECT id FROM ")
	b.WriteString(table)
	args := make([]any, 0, len(filters))
	for i, f := range filters {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		if f.Value == nil {
			b.WriteString(f.Column + " IS NULL")
			continue
		}
		b.WriteString(f.Column + " = ?")
		args = append(args, f.Value)
	}
	b.WriteString(" ORDER BY id")

	query := b.String()
	s.observe(query)
	rows, err := s.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan %s id: %w", table, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s ids: %w", table, err)
	}
	return ids, nil
}

// Insert stages a new row and returns its id. A violated UNIQUE
// constraint surfaces as an error classified by IsUniqueViolation.
func (s *Session) Insert(ctx context.Context, table string, columns []string, values []any) (int64, error) {
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(columns, ", "),
		placeholders(len(columns)),
	)

	s.observe(query)
	res, err := s.tx.ExecContext(ctx, query, values...)
	if err != nil {
		// Not wrapped with extra context here: callers classify the
		// driver error (unique violation vs everything else).
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert %s: last insert id: %w", table, err)
	}
	return id, nil
}

// Savepoint opens a nested transaction scope that can be rolled back
// without aborting the enclosing transaction.
func (s *Session) Savepoint(ctx context.Context) (*Savepoint, error) {
	s.spSeq++
	name := fmt.Sprintf("resultdb_sp_%d", s.spSeq)
	if _, err := s.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return nil, fmt.Errorf("savepoint %s: %w", name, err)
	}
	return &Savepoint{sess: s, ctx: ctx, name: name}, nil
}

// Commit commits the enclosing transaction.
func (s *Session) Commit() error {
	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("commit session: %w", err)
	}
	return nil
}

// Rollback aborts the enclosing transaction. No-op after Commit.
func (s *Session) Rollback() error {
	if err := s.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return fmt.Errorf("rollback session: %w", err)
	}
	return nil
}

// Savepoint is an open nested scope. Exactly one of Release or
// Rollback discharges it; calling either after the scope is closed is
// a no-op, so a deferred Release is always safe.
type Savepoint struct {
	sess *Session
	ctx  context.Context
	name string
	done bool
}

// Release merges the scope into the enclosing transaction.
func (sp *Savepoint) Release() error {
	if sp.done {
		return nil
	}
	sp.done = true
	if _, err := sp.sess.tx.ExecContext(sp.ctx, "RELEASE SAVEPOINT "+sp.name); err != nil {
		return fmt.Errorf("release savepoint %s: %w", sp.name, err)
	}
	return nil
}

// Rollback undoes everything executed inside the scope, leaving the
// enclosing transaction usable.
func (sp *Savepoint) Rollback() error {
	if sp.done {
		return nil
	}
	sp.done = true
	sp.sess.observe("ROLLBACK TO SAVEPOINT " + sp.name)
	if _, err := sp.sess.tx.ExecContext(sp.ctx, "ROLLBACK TO SAVEPOINT "+sp.name); err != nil {
		return fmt.Errorf("rollback savepoint %s: %w", sp.name, err)
	}
	// ROLLBACK TO leaves the savepoint on the stack; release it so
	// the scope is fully discharged.
	if _, err := sp.sess.tx.ExecContext(sp.ctx, "RELEASE SAVEPOINT "+sp.name); err != nil {
		return fmt.Errorf("release savepoint %s after rollback: %w", sp.name, err)
	}
	return nil
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

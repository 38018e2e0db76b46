package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resultdb/resultdb/internal/model"
)

// loopEntity claims to be an operating system whose name field refers
// back to itself, forming a reference cycle.
type loopEntity struct {
	fields model.Fields
}

func (l *loopEntity) EntityKind() model.Kind    { return model.KindOperatingSystem }
func (l *loopEntity) RowID() int64              { return 0 }
func (l *loopEntity) FieldValues() model.Fields { return l.fields }

func TestResolve_CycleIsRejected(t *testing.T) {
	ctx := context.Background()
	sess := beginSession(t, newTestStore(t))
	eng := newEngine()

	loop := &loopEntity{}
	loop.fields = model.Fields{"name": loop, "type": "Linux", "version": "1"}

	_, err := eng.GetOrCreate(ctx, sess, model.KindOperatingSystem, loop.FieldValues(), Quiet)
	require.Error(t, err)
	assert.True(t, IsCycle(err))
	assert.Equal(t, 0, countRows(t, sess, "operating_system"))
}

func TestResolve_NestedFailureNamesTheField(t *testing.T) {
	ctx := context.Background()
	sess := beginSession(t, newTestStore(t))
	eng := newEngine()

	fields := specFields()
	fields["os"] = &loopEntity{fields: model.Fields{"name": "ubuntu"}} // type and version missing

	_, err := eng.GetOrCreate(ctx, sess, model.KindTestSpec, fields, Quiet)
	require.Error(t, err)
	assert.True(t, IsInvalidFields(err))
	assert.Contains(t, err.Error(), "test_spec.os")
}

func TestResolve_SiblingReferencesAreNotACycle(t *testing.T) {
	ctx := context.Background()
	sess := beginSession(t, newTestStore(t))
	eng := newEngine()

	// The same OS instance appearing under two results is ordinary
	// sharing, not a loop: each resolution finishes before the next
	// starts.
	os := &model.OperatingSystem{Name: "ubuntu", Type: "Linux", Version: "20.04"}
	hw := &model.Hardware{Architecture: "x86", Microarchitecture: "skylake", Size: "large"}

	for _, name := range []string{"smoke-001", "smoke-002"} {
		_, err := eng.GetOrCreate(ctx, sess, model.KindTestSpec, model.Fields{
			"name":       name,
			"vut":        "1.2.1",
			"parameters": model.Params{},
			"os":         os,
			"hardware":   hw,
		}, Quiet)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, countRows(t, sess, "operating_system"))
	assert.Equal(t, 2, countRows(t, sess, "test_spec"))
}

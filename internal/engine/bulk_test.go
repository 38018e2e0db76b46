package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resultdb/resultdb/internal/model"
)

func TestBulk_ReturnsEveryInstanceInOrder(t *testing.T) {
	ctx := context.Background()
	sess := beginSession(t, newTestStore(t))
	eng := newEngine()

	items := []Item{
		{Kind: model.KindOperatingSystem, Fields: model.Fields{"name": "ubuntu", "type": "Linux", "version": "20.04"}},
		{Kind: model.KindHardware, Fields: hardwareFields()},
		{Kind: model.KindOperatingSystem, Fields: model.Fields{"name": "ubuntu", "type": "Linux", "version": "18.04"}},
	}

	instances, err := eng.BulkGetOrCreate(ctx, sess, items)
	require.NoError(t, err)
	require.Len(t, instances, len(items))

	for i, instance := range instances {
		assert.Equal(t, items[i].Kind, instance.EntityKind(), "item %d", i)
		assert.NotZero(t, instance.RowID(), "item %d", i)
	}
	assert.Equal(t, "20.04", instances[0].(*model.OperatingSystem).Version)
	assert.Equal(t, "18.04", instances[2].(*model.OperatingSystem).Version)
	assert.Equal(t, 2, countRows(t, sess, "operating_system"))
	assert.Equal(t, 1, countRows(t, sess, "hardware"))
}

func TestBulk_DeduplicatesWithinBatch(t *testing.T) {
	ctx := context.Background()
	sess := beginSession(t, newTestStore(t))
	eng := newEngine()

	items := []Item{
		{Kind: model.KindOperatingSystem, Fields: osFields()},
		{Kind: model.KindOperatingSystem, Fields: osFields()},
		{Kind: model.KindOperatingSystem, Fields: osFields()},
	}

	instances, err := eng.BulkGetOrCreate(ctx, sess, items)
	require.NoError(t, err)
	require.Len(t, instances, 3)
	assert.Equal(t, instances[0].RowID(), instances[1].RowID())
	assert.Equal(t, instances[0].RowID(), instances[2].RowID())
	assert.Equal(t, 1, countRows(t, sess, "operating_system"))
}

func TestBulk_RollsBackOnItemError(t *testing.T) {
	ctx := context.Background()
	sess := beginSession(t, newTestStore(t))
	eng := newEngine()

	items := []Item{
		{Kind: model.KindOperatingSystem, Fields: osFields()},
		{Kind: model.KindHardware, Fields: model.Fields{"architecture": "x86"}}, // missing required fields
	}

	_, err := eng.BulkGetOrCreate(ctx, sess, items)
	require.Error(t, err)
	assert.True(t, IsInvalidFields(err))

	// The first item's row was undone along with the batch scope, and
	// the enclosing transaction is still usable.
	assert.Equal(t, 0, countRows(t, sess, "operating_system"))

	instances, err := eng.BulkGetOrCreate(ctx, sess, []Item{
		{Kind: model.KindOperatingSystem, Fields: osFields()},
	})
	require.NoError(t, err)
	require.Len(t, instances, 1)
	assert.Equal(t, 1, countRows(t, sess, "operating_system"))
}

func TestBulk_ResolvesNestedEntities(t *testing.T) {
	ctx := context.Background()
	sess := beginSession(t, newTestStore(t))
	eng := newEngine()

	instances, err := eng.BulkGetOrCreate(ctx, sess, []Item{
		{Kind: model.KindTestSpec, Fields: specFields()},
		{Kind: model.KindTestSpec, Fields: specFields()},
	})
	require.NoError(t, err)
	require.Len(t, instances, 2)
	assert.Equal(t, instances[0].RowID(), instances[1].RowID())
	assert.Equal(t, 1, countRows(t, sess, "operating_system"))
	assert.Equal(t, 1, countRows(t, sess, "hardware"))
	assert.Equal(t, 1, countRows(t, sess, "test_spec"))
}

func TestBulk_EmptyBatch(t *testing.T) {
	ctx := context.Background()
	sess := beginSession(t, newTestStore(t))

	instances, err := newEngine().BulkGetOrCreate(ctx, sess, nil)
	require.NoError(t, err)
	assert.Empty(t, instances)
}

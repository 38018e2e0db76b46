package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_AllKindsRegistered(t *testing.T) {
	reg := NewRegistry()

	for _, kind := range reg.Kinds() {
		desc, err := reg.Descriptor(kind)
		require.NoError(t, err, "kind %s", kind)
		assert.Equal(t, kind, desc.Kind)
		assert.Equal(t, string(kind), desc.Table)
		assert.NotEmpty(t, desc.Key)
		assert.NotNil(t, desc.New)
		assert.Subset(t, desc.Columns, desc.Key, "natural key must be persisted columns")
	}
}

func TestRegistry_UnknownKind(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Descriptor("no_such_table")
	require.Error(t, err)
}

func TestRegistry_KindsDependencyOrder(t *testing.T) {
	reg := NewRegistry()
	position := make(map[Kind]int)
	for i, k := range reg.Kinds() {
		position[k] = i
	}

	for _, kind := range reg.Kinds() {
		desc, err := reg.Descriptor(kind)
		require.NoError(t, err)
		for name, ref := range desc.Refs {
			assert.Less(t, position[ref.Kind], position[kind],
				"%s.%s references %s which must come first", kind, name, ref.Kind)
		}
	}
}

func TestDescriptor_RefField(t *testing.T) {
	reg := NewRegistry()
	desc, err := reg.Descriptor(KindTestSpec)
	require.NoError(t, err)

	name, ok := desc.RefField("os_id")
	require.True(t, ok)
	assert.Equal(t, "os", name)

	_, ok = desc.RefField("name")
	assert.False(t, ok)
}

func TestValidateFields_UnknownField(t *testing.T) {
	reg := NewRegistry()
	desc, err := reg.Descriptor(KindOperatingSystem)
	require.NoError(t, err)

	err = desc.ValidateFields(Fields{"name": "ubuntu", "type": "Linux", "version": "20.04", "flavour": "server"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flavour")
}

func TestValidateFields_MissingRequired(t *testing.T) {
	reg := NewRegistry()
	desc, err := reg.Descriptor(KindOperatingSystem)
	require.NoError(t, err)

	err = desc.ValidateFields(Fields{"name": "ubuntu", "type": "Linux"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version")
}

func TestValidateFields_RefSatisfiesColumn(t *testing.T) {
	reg := NewRegistry()
	desc, err := reg.Descriptor(KindTestSpec)
	require.NoError(t, err)

	fields := Fields{
		"name":       "smoke",
		"vut":        "1.2.1",
		"parameters": Params{},
		"os":         &OperatingSystem{Name: "ubuntu", Type: "Linux", Version: "20.04"},
		"hardware":   &Hardware{Architecture: "x86", Microarchitecture: "skylake", Size: "large"},
	}
	require.NoError(t, desc.ValidateFields(fields))
}

func TestValidateFields_NullableMayBeAbsent(t *testing.T) {
	reg := NewRegistry()
	desc, err := reg.Descriptor(KindTestResult)
	require.NoError(t, err)

	fields := Fields{
		"outcome":               OutcomePass,
		"start_datetime":        time.Now(),
		"milliseconds_duration": int64(12),
		"run_id":                int64(1),
		"test_spec_id":          int64(1),
	}
	require.NoError(t, desc.ValidateFields(fields), "exception_id is nullable and may be omitted")
}

func TestDescriptor_NewTestSpec(t *testing.T) {
	reg := NewRegistry()
	desc, err := reg.Descriptor(KindTestSpec)
	require.NoError(t, err)

	os := &OperatingSystem{ID: 3, Name: "ubuntu", Type: "Linux", Version: "20.04"}
	hw := &Hardware{ID: 4, Architecture: "x86", Microarchitecture: "skylake", Size: "large"}
	entity := desc.New(9, Fields{
		"name":       "smoke",
		"vut":        "1.2.1",
		"parameters": Params{"a": "b"},
		"os":         os,
		"hardware":   hw,
	})

	spec, ok := entity.(*TestSpec)
	require.True(t, ok)
	assert.Equal(t, int64(9), spec.ID)
	assert.Equal(t, "smoke", spec.Name)
	assert.Same(t, os, spec.OS)
	assert.Equal(t, int64(3), spec.OSID)
	assert.Equal(t, int64(4), spec.HardwareID)
}

func TestDescriptor_NewTestResultFromRawIDs(t *testing.T) {
	reg := NewRegistry()
	desc, err := reg.Descriptor(KindTestResult)
	require.NoError(t, err)

	started := time.Date(2026, 8, 29, 3, 0, 0, 0, time.UTC)
	entity := desc.New(5, Fields{
		"outcome":               OutcomeXFail,
		"start_datetime":        started,
		"milliseconds_duration": int64(42),
		"exception_id":          nil,
		"run_id":                int64(7),
		"test_spec_id":          int64(8),
	})

	res, ok := entity.(*TestResult)
	require.True(t, ok)
	assert.Equal(t, int64(5), res.ID)
	assert.Equal(t, OutcomeXFail, res.Outcome)
	assert.Equal(t, started, res.StartedAt)
	assert.Zero(t, res.ExceptionID)
	assert.Equal(t, int64(7), res.RunID)
	assert.Equal(t, int64(8), res.SpecID)
}

func TestFieldValues_TestResultNilException(t *testing.T) {
	res := &TestResult{
		Outcome:   OutcomePass,
		StartedAt: time.Now(),
		RunID:     1,
		SpecID:    2,
	}

	f := res.FieldValues()
	v, present := f["exception_id"]
	require.True(t, present, "absent exception must still filter as NULL")
	assert.Nil(t, v)
}

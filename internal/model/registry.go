package model

import (
	"fmt"
	"time"
)

// Ref declares a reference field: a field that accepts an Entity
// instance and is persisted through a foreign-key column.
type Ref struct {
	Column string // foreign-key column, e.g. "os_id"
	Kind   Kind   // referenced entity type
}

// Descriptor describes one entity type to the engine: its table, its
// columns, the natural-key subset, and its reference fields.
type Descriptor struct {
	Kind    Kind
	Table   string
	Columns []string // persisted columns except the surrogate id, insert order
	Key     []string // natural-key columns covered by the UNIQUE constraint
	Refs    map[string]Ref
	// Nullable marks columns that may be absent or nil in a field
	// mapping. Everything else is required.
	Nullable map[string]bool

	// New constructs the typed entity from a resolved field mapping
	// and its row id. Reference values may appear either as resolved
	// entities under the field name or as raw ids under the column.
	New func(id int64, f Fields) Entity

	refByColumn map[string]string // column -> reference field name
}

// Registry is the explicit schema registry handed to the engine at
// construction. It is immutable after NewRegistry.
type Registry struct {
	descriptors map[Kind]*Descriptor
}

// Descriptor returns the descriptor for a kind.
func (r *Registry) Descriptor(k Kind) (*Descriptor, error) {
	d, ok := r.descriptors[k]
	if !ok {
		return nil, fmt.Errorf("unknown entity kind %q", k)
	}
	return d, nil
}

// Kinds lists the registered entity kinds in dependency order:
// referenced kinds precede the kinds that reference them.
func (r *Registry) Kinds() []Kind {
	return []Kind{
		KindOperatingSystem,
		KindHardware,
		KindTestException,
		KindTestRun,
		KindTestSpec,
		KindTestResult,
	}
}

// RefField returns the reference field name persisted through the
// given column, if the column is a foreign key.
func (d *Descriptor) RefField(column string) (string, bool) {
	name, ok := d.refByColumn[column]
	return name, ok
}

// ValidateFields checks a caller-supplied field mapping against the
// descriptor: every key must name a known column or reference field,
// and every non-nullable column must be supplied either directly or
// through its reference field.
func (d *Descriptor) ValidateFields(f Fields) error {
	known := make(map[string]bool, len(d.Columns)+len(d.Refs))
	for _, c := range d.Columns {
		known[c] = true
	}
	for name := range d.Refs {
		known[name] = true
	}
	for key := range f {
		if !known[key] {
			return fmt.Errorf("%s has no field %q", d.Kind, key)
		}
	}
	for _, col := range d.Columns {
		if d.Nullable[col] {
			continue
		}
		if _, ok := f[col]; ok {
			continue
		}
		if name, isRef := d.RefField(col); isRef {
			if _, ok := f[name]; ok {
				continue
			}
		}
		return fmt.Errorf("%s is missing required field %q", d.Kind, col)
	}
	return nil
}

// NewRegistry builds the registry covering all six entity types.
func NewRegistry() *Registry {
	r := &Registry{descriptors: make(map[Kind]*Descriptor)}

	r.register(&Descriptor{
		Kind:    KindOperatingSystem,
		Table:   "operating_system",
		Columns: []string{"name", "type", "version"},
		Key:     []string{"name", "type", "version"},
		New: func(id int64, f Fields) Entity {
			return &OperatingSystem{
				ID:      id,
				Name:    asString(f["name"]),
				Type:    asString(f["type"]),
				Version: asString(f["version"]),
			}
		},
	})

	r.register(&Descriptor{
		Kind:    KindHardware,
		Table:   "hardware",
		Columns: []string{"architecture", "microarchitecture", "size"},
		Key:     []string{"architecture", "microarchitecture", "size"},
		New: func(id int64, f Fields) Entity {
			return &Hardware{
				ID:                id,
				Architecture:      asString(f["architecture"]),
				Microarchitecture: asString(f["microarchitecture"]),
				Size:              asString(f["size"]),
			}
		},
	})

	r.register(&Descriptor{
		Kind:    KindTestException,
		Table:   "test_exception",
		Columns: []string{"message", "class_name", "filename", "line_no"},
		Key:     []string{"message", "class_name", "filename", "line_no"},
		New: func(id int64, f Fields) Entity {
			return &TestException{
				ID:        id,
				Message:   asString(f["message"]),
				ClassName: asString(f["class_name"]),
				Filename:  asString(f["filename"]),
				LineNo:    asInt64(f["line_no"]),
			}
		},
	})

	r.register(&Descriptor{
		Kind:    KindTestRun,
		Table:   "test_run",
		Columns: []string{"runner", "branch", "start_datetime", "milliseconds_duration"},
		Key:     []string{"runner", "branch", "start_datetime", "milliseconds_duration"},
		New: func(id int64, f Fields) Entity {
			return &TestRun{
				ID:         id,
				Runner:     asString(f["runner"]),
				Branch:     asString(f["branch"]),
				StartedAt:  asTime(f["start_datetime"]),
				DurationMS: asInt64(f["milliseconds_duration"]),
			}
		},
	})

	r.register(&Descriptor{
		Kind:    KindTestSpec,
		Table:   "test_spec",
		Columns: []string{"name", "vut", "parameters", "os_id", "hardware_id"},
		Key:     []string{"name", "vut", "parameters", "os_id", "hardware_id"},
		Refs: map[string]Ref{
			"os":       {Column: "os_id", Kind: KindOperatingSystem},
			"hardware": {Column: "hardware_id", Kind: KindHardware},
		},
		New: func(id int64, f Fields) Entity {
			s := &TestSpec{
				ID:   id,
				Name: asString(f["name"]),
				VUT:  asString(f["vut"]),
			}
			if p, ok := f["parameters"].(Params); ok {
				s.Parameters = p
			}
			if os, ok := f["os"].(*OperatingSystem); ok {
				s.OS, s.OSID = os, os.ID
			} else {
				s.OSID = asInt64(f["os_id"])
			}
			if hw, ok := f["hardware"].(*Hardware); ok {
				s.Hardware, s.HardwareID = hw, hw.ID
			} else {
				s.HardwareID = asInt64(f["hardware_id"])
			}
			return s
		},
	})

	r.register(&Descriptor{
		Kind:  KindTestResult,
		Table: "test_result",
		Columns: []string{
			"outcome", "start_datetime", "milliseconds_duration",
			"exception_id", "run_id", "test_spec_id",
		},
		Key: []string{"outcome", "start_datetime", "run_id", "test_spec_id"},
		Refs: map[string]Ref{
			"exception": {Column: "exception_id", Kind: KindTestException},
			"run":       {Column: "run_id", Kind: KindTestRun},
			"test_spec": {Column: "test_spec_id", Kind: KindTestSpec},
		},
		Nullable: map[string]bool{"exception_id": true},
		New: func(id int64, f Fields) Entity {
			res := &TestResult{
				ID:         id,
				StartedAt:  asTime(f["start_datetime"]),
				DurationMS: asInt64(f["milliseconds_duration"]),
			}
			if o, ok := f["outcome"].(Outcome); ok {
				res.Outcome = o
			} else {
				res.Outcome = Outcome(asInt64(f["outcome"]))
			}
			if exc, ok := f["exception"].(*TestException); ok {
				res.Exception, res.ExceptionID = exc, exc.ID
			} else {
				res.ExceptionID = asInt64(f["exception_id"])
			}
			if run, ok := f["run"].(*TestRun); ok {
				res.Run, res.RunID = run, run.ID
			} else {
				res.RunID = asInt64(f["run_id"])
			}
			if spec, ok := f["test_spec"].(*TestSpec); ok {
				res.Spec, res.SpecID = spec, spec.ID
			} else {
				res.SpecID = asInt64(f["test_spec_id"])
			}
			return res
		},
	})

	return r
}

func (r *Registry) register(d *Descriptor) {
	d.refByColumn = make(map[string]string, len(d.Refs))
	for name, ref := range d.Refs {
		d.refByColumn[ref.Column] = name
	}
	if d.Nullable == nil {
		d.Nullable = map[string]bool{}
	}
	r.descriptors[d.Kind] = d
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}

func asTime(v any) time.Time {
	t, _ := v.(time.Time)
	return t
}

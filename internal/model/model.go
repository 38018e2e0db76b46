// Package model defines the dimension and fact entities recorded by
// resultdb, together with the schema registry the engine operates
// against.
//
// Every entity has a surrogate integer identity and a uniqueness
// constraint over its natural key. Rows are created lazily on first
// resolution and never updated or deleted.
package model

import "time"

// Kind identifies an entity type. Kind values double as table names.
type Kind string

const (
	KindOperatingSystem Kind = "operating_system"
	KindHardware        Kind = "hardware"
	KindTestSpec        Kind = "test_spec"
	KindTestRun         Kind = "test_run"
	KindTestException   Kind = "test_exception"
	KindTestResult      Kind = "test_result"
)

// Fields maps column or reference-field names to values for lookup and
// insert. Values may be strings, integers, time.Time, Outcome, Params,
// nil (for nullable columns), or Entity instances for reference fields.
type Fields map[string]any

// Entity is implemented by every persisted row type.
type Entity interface {
	// EntityKind identifies the entity's table.
	EntityKind() Kind

	// RowID returns the surrogate primary key, or 0 before persistence.
	RowID() int64

	// FieldValues returns the entity's persisted field values, with
	// reference fields carrying the referenced Entity when one is
	// attached and the raw foreign-key id otherwise. The surrogate id
	// is excluded.
	FieldValues() Fields
}

// OperatingSystem is the OS a test executed on.
// Natural key: (name, type, version).
type OperatingSystem struct {
	ID      int64
	Name    string // e.g. "ubuntu"
	Type    string // higher-level categorisation, e.g. "Linux"
	Version string // e.g. "20.04"
}

func (o *OperatingSystem) EntityKind() Kind { return KindOperatingSystem }
func (o *OperatingSystem) RowID() int64     { return o.ID }

func (o *OperatingSystem) FieldValues() Fields {
	return Fields{"name": o.Name, "type": o.Type, "version": o.Version}
}

// Hardware is the machine class a test executed on.
// Natural key: (architecture, microarchitecture, size).
type Hardware struct {
	ID                int64
	Architecture      string // e.g. "x86", "arm"
	Microarchitecture string // e.g. "haswell", "skylake"
	Size              string // e.g. "large"
}

func (h *Hardware) EntityKind() Kind { return KindHardware }
func (h *Hardware) RowID() int64     { return h.ID }

func (h *Hardware) FieldValues() Fields {
	return Fields{
		"architecture":      h.Architecture,
		"microarchitecture": h.Microarchitecture,
		"size":              h.Size,
	}
}

// TestSpec identifies a test definition: what ran, at which version,
// with which parameters, on which OS and hardware.
// Natural key: (name, vut, parameters, os_id, hardware_id).
type TestSpec struct {
	ID         int64
	Name       string
	VUT        string // version of the software under test
	Parameters Params

	OS   *OperatingSystem // attached when resolved through the engine
	OSID int64

	Hardware   *Hardware
	HardwareID int64
}

func (s *TestSpec) EntityKind() Kind { return KindTestSpec }
func (s *TestSpec) RowID() int64     { return s.ID }

func (s *TestSpec) FieldValues() Fields {
	f := Fields{"name": s.Name, "vut": s.VUT, "parameters": s.Parameters}
	if s.OS != nil {
		f["os"] = s.OS
	} else {
		f["os_id"] = s.OSID
	}
	if s.Hardware != nil {
		f["hardware"] = s.Hardware
	} else {
		f["hardware_id"] = s.HardwareID
	}
	return f
}

// TestRun is one invocation of a test harness.
// Natural key: all four fields.
type TestRun struct {
	ID         int64
	Runner     string // what was responsible for running, e.g. "overnight"
	Branch     string
	StartedAt  time.Time
	DurationMS int64
}

func (r *TestRun) EntityKind() Kind { return KindTestRun }
func (r *TestRun) RowID() int64     { return r.ID }

func (r *TestRun) FieldValues() Fields {
	return Fields{
		"runner":                r.Runner,
		"branch":                r.Branch,
		"start_datetime":        r.StartedAt,
		"milliseconds_duration": r.DurationMS,
	}
}

// TestException records an exception raised by a failing test.
// Natural key: all four fields.
type TestException struct {
	ID        int64
	Message   string
	ClassName string
	Filename  string
	LineNo    int64
}

func (e *TestException) EntityKind() Kind { return KindTestException }
func (e *TestException) RowID() int64     { return e.ID }

func (e *TestException) FieldValues() Fields {
	return Fields{
		"message":    e.Message,
		"class_name": e.ClassName,
		"filename":   e.Filename,
		"line_no":    e.LineNo,
	}
}

// TestResult is the fact row: one outcome of one spec within one run.
// Natural key: (outcome, start_datetime, run_id, test_spec_id).
// The exception reference is optional and NULL for passing results.
type TestResult struct {
	ID         int64
	Outcome    Outcome
	StartedAt  time.Time
	DurationMS int64

	Exception   *TestException
	ExceptionID int64 // 0 when no exception is attached

	Run   *TestRun
	RunID int64

	Spec   *TestSpec
	SpecID int64
}

func (r *TestResult) EntityKind() Kind { return KindTestResult }
func (r *TestResult) RowID() int64     { return r.ID }

func (r *TestResult) FieldValues() Fields {
	f := Fields{
		"outcome":               r.Outcome,
		"start_datetime":        r.StartedAt,
		"milliseconds_duration": r.DurationMS,
	}
	switch {
	case r.Exception != nil:
		f["exception"] = r.Exception
	case r.ExceptionID != 0:
		f["exception_id"] = r.ExceptionID
	default:
		f["exception_id"] = nil
	}
	if r.Run != nil {
		f["run"] = r.Run
	} else {
		f["run_id"] = r.RunID
	}
	if r.Spec != nil {
		f["test_spec"] = r.Spec
	} else {
		f["test_spec_id"] = r.SpecID
	}
	return f
}

// Package report parses test-harness report documents and converts
// them into the entity graphs the get-or-create engine records.
//
// A report is a YAML document with one run header and any number of
// result items; each item carries its test spec, OS, hardware, and
// optional exception inline. Documents are validated against an
// embedded CUE schema before ingest.
package report

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/resultdb/resultdb/internal/engine"
	"github.com/resultdb/resultdb/internal/model"
)

// Document is one test report: a run header plus its results.
type Document struct {
	Run     Run      `yaml:"run"`
	Results []Result `yaml:"results"`
}

// Run describes the harness invocation that produced the results.
type Run struct {
	Runner     string    `yaml:"runner"`
	Branch     string    `yaml:"branch"`
	Started    time.Time `yaml:"started"`
	DurationMS int64     `yaml:"duration_ms"`
}

// Result is one test execution.
type Result struct {
	Test       Test       `yaml:"test"`
	Outcome    string     `yaml:"outcome"`
	Started    time.Time  `yaml:"started"`
	DurationMS int64      `yaml:"duration_ms"`
	Exception  *Exception `yaml:"exception,omitempty"`
}

// Test identifies the test spec a result belongs to.
type Test struct {
	Name       string            `yaml:"name"`
	VUT        string            `yaml:"vut"`
	Parameters map[string]string `yaml:"parameters"`
	OS         OS                `yaml:"os"`
	Hardware   Hardware          `yaml:"hardware"`
}

// OS names the operating system a test executed on.
type OS struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Version string `yaml:"version"`
}

// Hardware names the machine class a test executed on.
type Hardware struct {
	Architecture      string `yaml:"architecture"`
	Microarchitecture string `yaml:"microarchitecture"`
	Size              string `yaml:"size"`
}

// Exception describes the exception attached to a failing result.
type Exception struct {
	Message string `yaml:"message"`
	Class   string `yaml:"class"`
	File    string `yaml:"file"`
	Line    int64  `yaml:"line"`
}

// Load reads, validates, and parses a report file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	if errs := Validate(data); len(errs) > 0 {
		return nil, fmt.Errorf("invalid report %s: %w", path, errs[0])
	}
	return Parse(data)
}

// Parse decodes a report document without schema validation.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	for i, res := range doc.Results {
		if _, err := model.ParseOutcome(res.Outcome); err != nil {
			return nil, fmt.Errorf("result %d: %w", i, err)
		}
	}
	return &doc, nil
}

// Items converts the document into ordered get-or-create items, one
// per result. Each item is a test_result field mapping whose run,
// spec, and exception references are entity instances the engine
// resolves before the result row is persisted.
func (d *Document) Items() ([]engine.Item, error) {
	run := &model.TestRun{
		Runner:     d.Run.Runner,
		Branch:     d.Run.Branch,
		StartedAt:  d.Run.Started,
		DurationMS: d.Run.DurationMS,
	}

	items := make([]engine.Item, 0, len(d.Results))
	for i, res := range d.Results {
		outcome, err := model.ParseOutcome(res.Outcome)
		if err != nil {
			return nil, fmt.Errorf("result %d: %w", i, err)
		}

		spec := &model.TestSpec{
			Name:       res.Test.Name,
			VUT:        res.Test.VUT,
			Parameters: model.Params(res.Test.Parameters),
			OS: &model.OperatingSystem{
				Name:    res.Test.OS.Name,
				Type:    res.Test.OS.Type,
				Version: res.Test.OS.Version,
			},
			Hardware: &model.Hardware{
				Architecture:      res.Test.Hardware.Architecture,
				Microarchitecture: res.Test.Hardware.Microarchitecture,
				Size:              res.Test.Hardware.Size,
			},
		}
		if spec.Parameters == nil {
			spec.Parameters = model.Params{}
		}

		fields := model.Fields{
			"outcome":               outcome,
			"start_datetime":        res.Started,
			"milliseconds_duration": res.DurationMS,
			"run":                   run,
			"test_spec":             spec,
		}
		if res.Exception != nil {
			fields["exception"] = &model.TestException{
				Message:   res.Exception.Message,
				ClassName: res.Exception.Class,
				Filename:  res.Exception.File,
				LineNo:    res.Exception.Line,
			}
		} else {
			fields["exception_id"] = nil
		}

		items = append(items, engine.Item{Kind: model.KindTestResult, Fields: fields})
	}
	return items, nil
}

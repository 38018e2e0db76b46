package report

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	cueyaml "cuelang.org/go/encoding/yaml"
)

//go:embed schema.cue
var schemaCUE string

// ValidationError is one schema violation found in a report document.
type ValidationError struct {
	Message string
	Pos     token.Pos
}

func (e *ValidationError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// Validate checks a YAML report document against the embedded schema.
// Returns nil for a valid document, otherwise every violation found.
func Validate(data []byte) []error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE)
	if err := schema.Err(); err != nil {
		return []error{fmt.Errorf("compile report schema: %w", err)}
	}
	doc := schema.LookupPath(cue.ParsePath("#Document"))
	if err := doc.Err(); err != nil {
		return []error{fmt.Errorf("report schema has no #Document: %w", err)}
	}

	file, err := cueyaml.Extract("report.yaml", data)
	if err != nil {
		return cueErrorList(err)
	}
	value := ctx.BuildFile(file)
	if err := value.Err(); err != nil {
		return cueErrorList(err)
	}

	unified := doc.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return cueErrorList(err)
	}
	return nil
}

// cueErrorList flattens a CUE error into positioned validation errors.
func cueErrorList(err error) []error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return []error{err}
	}
	out := make([]error, 0, len(errs))
	for _, e := range errs {
		ve := &ValidationError{Message: e.Error()}
		if positions := cueerrors.Positions(e); len(positions) > 0 {
			ve.Pos = positions[0]
		}
		out = append(out, ve)
	}
	return out
}

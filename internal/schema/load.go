package schema

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"
)

// graphSchema constrains schema graph documents before decoding.
// Validation happens against this CUE definition so malformed files fail
// with positioned diagnostics instead of half-decoded structs.
const graphSchema = `
#Column: {
	name:      string & !=""
	type:      "INTEGER" | "DECIMAL" | "VARCHAR" | "DATE" | "BOOLEAN"
	nullable?: bool
}

#ForeignKey: {
	column:            string & !=""
	referenced_table:  string & !=""
	referenced_column: string & !=""
}

#Table: {
	name:          string & !=""
	columns:       [...#Column]
	primary_key?:  [...string]
	foreign_keys?: [...#ForeignKey]
}

name?:  string
tables: [...#Table]
`

// LoadError reports a schema file that failed CUE validation or decoding.
type LoadError struct {
	File    string
	Message string
	Line    int
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

// Load reads a YAML schema graph from disk, validates it against the CUE
// schema, decodes it, and runs Verify. The returned graph is ready for
// the gauntlet.
func Load(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	return Parse(path, data)
}

// Parse validates and decodes a YAML schema graph document.
// The filename is used only for diagnostics.
func Parse(filename string, data []byte) (*Graph, error) {
	file, err := cueyaml.Extract(filename, data)
	if err != nil {
		return nil, cueLoadError(filename, err)
	}

	ctx := cuecontext.New()
	doc := ctx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return nil, cueLoadError(filename, err)
	}

	constraint := ctx.CompileString(graphSchema)
	if err := constraint.Err(); err != nil {
		// The embedded schema is a compile-time constant; failing to
		// compile it is a programming error.
		panic(fmt.Sprintf("schema: invalid embedded CUE schema: %v", err))
	}

	unified := constraint.Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, cueLoadError(filename, err)
	}

	var g Graph
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, &LoadError{File: filename, Message: fmt.Sprintf("decode schema: %v", err)}
	}

	if err := Verify(&g); err != nil {
		return nil, err
	}
	return &g, nil
}

// cueLoadError converts a CUE error into a LoadError with position info
// where available.
func cueLoadError(filename string, err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{File: filename, Message: err.Error()}
	}
	first := errs[0]
	le := &LoadError{File: filename, Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 && positions[0].IsValid() {
		le.Line = positions[0].Line()
	}
	return le
}

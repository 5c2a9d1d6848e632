// Package tools defines the fixed catalog of database operations the
// planner may propose, validates proposed calls against their JSON
// schemas, and executes validated calls as parameterized SQL.
package tools

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/dbwizard/dbwizard/internal/models"
)

//go:embed tools.json
var toolsJSON []byte

// toolDef is one entry of the embedded catalog.
type toolDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// Registry holds the operation catalog with each parameter schema compiled
// once. It is immutable after construction and safe for concurrent use.
type Registry struct {
	order   []string
	byName  map[string]toolDef
	schemas map[string]*jsonschema.Schema
}

// NewRegistry parses and compiles the embedded catalog. The catalog is part
// of the build, so failures here are programmer errors and panic.
func NewRegistry() *Registry {
	var defs []toolDef
	if err := json.Unmarshal(toolsJSON, &defs); err != nil {
		panic(fmt.Sprintf("failed to parse embedded tools.json: %v", err))
	}

	r := &Registry{
		byName:  make(map[string]toolDef, len(defs)),
		schemas: make(map[string]*jsonschema.Schema, len(defs)),
	}
	for _, def := range defs {
		if _, dup := r.byName[def.Name]; dup {
			panic(fmt.Sprintf("duplicate tool %q in tools.json", def.Name))
		}
		r.order = append(r.order, def.Name)
		r.byName[def.Name] = def
		r.schemas[def.Name] = mustCompileSchema(def.Parameters, def.Name+".schema.json")
	}
	return r
}

func mustCompileSchema(raw json.RawMessage, name string) *jsonschema.Schema {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		panic(fmt.Sprintf("failed to parse %s: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, doc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}

	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}

// Names returns the operation names in catalog order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Specs returns the catalog as planner-facing tool specs, in stable order.
func (r *Registry) Specs() []models.ToolSpec {
	specs := make([]models.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		def := r.byName[name]
		specs = append(specs, models.ToolSpec{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  def.Parameters,
		})
	}
	return specs
}

func (r *Registry) lookup(name string) (toolDef, *jsonschema.Schema, bool) {
	def, ok := r.byName[name]
	if !ok {
		return toolDef{}, nil, false
	}
	return def, r.schemas[name], true
}

package config

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// SchemaRegistry manages CUE schemas for validation.
type SchemaRegistry struct {
	ctx     *cue.Context
	schemas map[string]cue.Value
	mu      sync.RWMutex
}

// NewSchemaRegistry creates a new schema registry with built-in schemas.
func NewSchemaRegistry() *SchemaRegistry {
	sr := &SchemaRegistry{
		ctx:     cuecontext.New(),
		schemas: make(map[string]cue.Value),
	}

	// built-ins are constants; a compile failure is a programming error
	if err := sr.RegisterSchema(SettingsSchema, "#Settings", builtinSettingsSchema); err != nil {
		panic(err)
	}

	return sr
}

// SettingsSchema is the name of the built-in tool settings schema.
const SettingsSchema = "settings"

// RegisterSchema compiles a CUE source and registers the definition it
// declares under name. An empty definition registers the whole file.
func (sr *SchemaRegistry) RegisterSchema(name, definition, schema string) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	val := sr.ctx.CompileString(schema, cue.Filename(name+".cue"))
	if err := val.Err(); err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	if definition != "" {
		val = val.LookupPath(cue.ParsePath(definition))
		if !val.Exists() {
			return fmt.Errorf("schema %s does not declare %s", name, definition)
		}
		if err := val.Err(); err != nil {
			return fmt.Errorf("failed to compile schema %s: %w", name, err)
		}
	}

	sr.schemas[name] = val
	return nil
}

// GetSchema retrieves a schema by name.
func (sr *SchemaRegistry) GetSchema(name string) (cue.Value, bool) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	val, ok := sr.schemas[name]
	return val, ok
}

// ValidateAgainstSchema validates data against a named schema.
func (sr *SchemaRegistry) ValidateAgainstSchema(ctx context.Context, schemaName string, data interface{}) error {
	schema, ok := sr.GetSchema(schemaName)
	if !ok {
		return fmt.Errorf("schema %s not found", schemaName)
	}

	sr.mu.Lock()
	dataVal := sr.ctx.Encode(data)
	sr.mu.Unlock()
	if err := dataVal.Err(); err != nil {
		return fmt.Errorf("failed to encode data: %w", err)
	}

	unified := schema.Unify(dataVal)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	return nil
}

// ListSchemas returns all registered schema names, sorted.
func (sr *SchemaRegistry) ListSchemas() []string {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	names := make([]string, 0, len(sr.schemas))
	for name := range sr.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateSettings validates tool settings against the settings schema.
func (sr *SchemaRegistry) ValidateSettings(ctx context.Context, s *Settings) error {
	return sr.ValidateAgainstSchema(ctx, SettingsSchema, encodable(s))
}

// encodable returns a copy of s with nil lists and maps made empty. The CUE
// encoder leaves nil slices incomplete, which fails concrete validation.
func encodable(s *Settings) *Settings {
	c := *s
	c.Sources = nonNil(c.Sources)
	c.APIs = nonNil(c.APIs)
	c.Lint.Policies = nonNil(c.Lint.Policies)
	c.Lint.Enable = nonNil(c.Lint.Enable)
	c.Lint.Disable = nonNil(c.Lint.Disable)
	if c.Telemetry.Tracing.Headers == nil {
		c.Telemetry.Tracing.Headers = map[string]string{}
	}
	if c.Telemetry.Metrics.DefaultHistogramBuckets == nil {
		c.Telemetry.Metrics.DefaultHistogramBuckets = []float64{}
	}
	return &c
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

const builtinSettingsSchema = `
#Settings: {
	api:     string & =~"^[A-Za-z0-9_]*$"
	product: string
	sources: *[] | [...string]
	apis:    *[] | [...(string & =~"^[A-Za-z0-9_]+$")]

	store: {
		path: string & !=""
	}

	lint: {
		policies: *[] | [...string]
		enable:   *[] | [...string]
		disable:  *[] | [...string]
		fail_on:  "error" | "warning" | "info"
	}

	device: {
		host:                     string
		port:                     int & >=0 & <=65535
		user:                     string
		key_file:                 string
		known_hosts_file:         string
		insecure_ignore_host_key: bool
		timeout:                  int & >=0
	}

	telemetry: _
}
`

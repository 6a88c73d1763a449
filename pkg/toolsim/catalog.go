package toolsim

import (
	_ "embed"
	"encoding/json"
	"os"
	"sort"

	"github.com/iancoleman/strcase"
	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// ParamType enumerates the value types a simulated tool parameter can take.
type ParamType string

const (
	ParamString ParamType = "string"
	ParamInt    ParamType = "int"
	ParamFloat  ParamType = "float"
	ParamBool   ParamType = "bool"
)

// ParamDef describes one parameter of a catalog tool. Enum wins over
// Min/Max/Samples when present.
type ParamDef struct {
	Type        ParamType `yaml:"type"`
	Description string    `yaml:"description,omitempty"`
	Enum        []string  `yaml:"enum,omitempty"`
	Min         int       `yaml:"min,omitempty"`
	Max         int       `yaml:"max,omitempty"`
	Samples     []string  `yaml:"samples,omitempty"`
}

// Definition is one entry in the tool catalog: a tool the assistant can
// pretend to invoke, with typed parameters and a template that renders the
// synthetic result text.
type Definition struct {
	Name           string              `yaml:"-"`
	Description    string              `yaml:"description"`
	Params         map[string]ParamDef `yaml:"params"`
	ResultTemplate string              `yaml:"result_template"`
}

// ParamNames returns the parameter names in sorted order. Argument synthesis
// iterates in this order so a fixed seed yields identical arguments.
func (d Definition) ParamNames() []string {
	names := make([]string, 0, len(d.Params))
	for name := range d.Params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Schema builds the JSON schema for the tool's argument object.
func (d Definition) Schema() *jsonschema.Schema {
	props := jsonschema.NewProperties()
	required := []string{}
	for _, name := range d.ParamNames() {
		p := d.Params[name]
		ps := &jsonschema.Schema{
			Type:        jsonType(p.Type),
			Description: p.Description,
		}
		if len(p.Enum) > 0 {
			for _, v := range p.Enum {
				ps.Enum = append(ps.Enum, v)
			}
		}
		props.Set(name, ps)
		required = append(required, name)
	}
	return &jsonschema.Schema{
		Type:                 "object",
		Properties:           props,
		Required:             required,
		AdditionalProperties: jsonschema.FalseSchema,
	}
}

// SchemaJSON returns the argument schema serialized as a JSON document.
func (d Definition) SchemaJSON() (string, error) {
	buf, err := json.Marshal(d.Schema())
	if err != nil {
		return "", errors.Wrapf(err, "marshal schema for tool %s", d.Name)
	}
	return string(buf), nil
}

func jsonType(t ParamType) string {
	switch t {
	case ParamInt:
		return "integer"
	case ParamFloat:
		return "number"
	case ParamBool:
		return "boolean"
	default:
		return "string"
	}
}

// Catalog is the registry of simulated tools plus the keyword mapping that
// biases tool selection toward the conversation topic.
type Catalog struct {
	Tools        map[string]Definition `yaml:"tools"`
	TopicTools   map[string][]string   `yaml:"topic_tools"`
	FallbackTool string                `yaml:"fallback_tool"`
}

// DefaultCatalog parses the embedded stock catalog.
func DefaultCatalog() (*Catalog, error) {
	return parseCatalog(defaultCatalogYAML)
}

// LoadCatalog reads a catalog from a YAML file.
func LoadCatalog(path string) (*Catalog, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read catalog %s", path)
	}
	c, err := parseCatalog(buf)
	if err != nil {
		return nil, errors.Wrapf(err, "parse catalog %s", path)
	}
	return c, nil
}

func parseCatalog(buf []byte) (*Catalog, error) {
	c := &Catalog{}
	if err := yaml.Unmarshal(buf, c); err != nil {
		return nil, errors.Wrap(err, "unmarshal catalog")
	}
	if len(c.Tools) == 0 {
		return nil, errors.New("catalog defines no tools")
	}

	// Normalize tool names to snake_case so catalog authors can use any
	// casing and the generated records stay uniform.
	normalized := make(map[string]Definition, len(c.Tools))
	for name, def := range c.Tools {
		canonical := strcase.ToSnake(name)
		def.Name = canonical
		if def.ResultTemplate == "" {
			return nil, errors.Errorf("tool %s has no result_template", canonical)
		}
		normalized[canonical] = def
	}
	c.Tools = normalized

	for keyword, tools := range c.TopicTools {
		for i, name := range tools {
			c.TopicTools[keyword][i] = strcase.ToSnake(name)
			if _, ok := c.Tools[c.TopicTools[keyword][i]]; !ok {
				return nil, errors.Errorf("keyword %q maps to unknown tool %q", keyword, name)
			}
		}
	}

	if c.FallbackTool == "" {
		return nil, errors.New("catalog defines no fallback_tool")
	}
	c.FallbackTool = strcase.ToSnake(c.FallbackTool)
	if _, ok := c.Tools[c.FallbackTool]; !ok {
		return nil, errors.Errorf("fallback_tool %q not in catalog", c.FallbackTool)
	}

	return c, nil
}

// ToolNames returns all catalog tool names in sorted order.
func (c *Catalog) ToolNames() []string {
	names := make([]string, 0, len(c.Tools))
	for name := range c.Tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package promptctx

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/amberloop/orca/pkg/tools"
)

// toolArgumentsSchema renders a tool's declared parameters as a JSON
// Schema document: build a throwaway struct type carrying one field per
// parameter, tagged the way jsonschema.Reflector expects, then reflect
// and marshal it. The struct has to be built at runtime via
// reflect.StructOf rather than written out as a fixed Go type, because a
// tool's parameter list is data (ToolInfo.Parameters), not known at
// compile time.
func toolArgumentsSchema(params []tools.ToolParameter) (map[string]any, error) {
	fields := make([]reflect.StructField, 0, len(params))
	for i, p := range params {
		fields = append(fields, reflect.StructField{
			Name: toolFieldName(p.Name, i),
			Type: toolFieldType(p.Type),
			Tag:  toolFieldTag(p),
		})
	}

	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
	}
	schema := reflector.Reflect(reflect.New(reflect.StructOf(fields)).Interface())

	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("promptctx: marshal tool schema: %w", err)
	}
	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("promptctx: decode tool schema: %w", err)
	}
	// Not useful to an LLM reading one tool's argument shape inline.
	delete(result, "$schema")
	delete(result, "$id")
	return result, nil
}

// toolFieldType maps a ToolParameter.Type (string, int, bool, list,
// dict) onto the Go type reflect.StructOf needs to build the field.
func toolFieldType(paramType string) reflect.Type {
	switch paramType {
	case "int":
		return reflect.TypeOf(0)
	case "bool":
		return reflect.TypeOf(false)
	case "list":
		return reflect.TypeOf([]string{})
	case "dict", "object":
		return reflect.TypeOf(map[string]interface{}{})
	default:
		return reflect.TypeOf("")
	}
}

// toolFieldName turns a snake_case or kebab-case parameter name into an
// exported Go identifier reflect.StructOf accepts, falling back to a
// positional name for the degenerate case of an all-punctuation name.
func toolFieldName(paramName string, index int) string {
	var b strings.Builder
	for _, part := range strings.FieldsFunc(paramName, func(r rune) bool { return r == '_' || r == '-' }) {
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	if b.Len() == 0 {
		return fmt.Sprintf("Param%d", index)
	}
	return b.String()
}

// toolFieldTag renders the json/jsonschema struct tag pair
// jsonschema.Reflector reads to fill in a property's name,
// required-ness, description, default, and enum.
func toolFieldTag(p tools.ToolParameter) reflect.StructTag {
	jsonTag := p.Name
	if !p.Required {
		jsonTag += ",omitempty"
	}

	var parts []string
	if p.Required {
		parts = append(parts, "required")
	}
	if p.Description != "" {
		parts = append(parts, "description="+p.Description)
	}
	if p.Default != nil {
		parts = append(parts, fmt.Sprintf("default=%v", p.Default))
	}
	if len(p.Enum) > 0 {
		parts = append(parts, "enum="+strings.Join(p.Enum, "|"))
	}

	tag := fmt.Sprintf(`json:%q`, jsonTag)
	if len(parts) > 0 {
		tag += fmt.Sprintf(` jsonschema:%q`, strings.Join(parts, ","))
	}
	return reflect.StructTag(tag)
}

package reportcard

import "github.com/compozy/tally/engine/schema"

// InputSchema describes the structure of a student record: a non-empty name
// and a non-empty object of numeric marks. Score bounds are enforced
// separately because they depend on configuration.
func InputSchema() *schema.Schema {
	return &schema.Schema{
		"$schema":  "https://json-schema.org/draft/2020-12/schema",
		"type":     "object",
		"required": []any{"name", "marks"},
		"properties": map[string]any{
			"name": map[string]any{
				"type":      "string",
				"minLength": 1,
			},
			"marks": map[string]any{
				"type":          "object",
				"minProperties": 1,
				"additionalProperties": map[string]any{
					"type": "number",
				},
			},
		},
	}
}

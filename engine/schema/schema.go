package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/compozy/tally/engine/core"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/kaptinlin/jsonschema"
)

// -----------------------------------------------------------------------------
// Schema
// -----------------------------------------------------------------------------

// Schema is a JSON Schema document.
type Schema map[string]any
type Result = jsonschema.EvaluationResult

const compiledCacheSize = 64

var compiledSchemaCache = mustCache[string, *jsonschema.Schema](compiledCacheSize)

func mustCache[K comparable, V any](size int) *lru.Cache[K, V] {
	cache, err := lru.New[K, V](size)
	if err != nil {
		panic(fmt.Sprintf("schema: init cache: %v", err))
	}
	return cache
}

func (s *Schema) String() string {
	bytes, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	return string(bytes)
}

// Compile compiles the document once per distinct content.
func (s *Schema) Compile(ctx context.Context) (*jsonschema.Schema, error) {
	if s == nil {
		return nil, nil
	}
	bytes, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	key := string(bytes)
	if compiled, ok := compiledSchemaCache.Get(key); ok {
		recordCompile(ctx, kindSchema, true)
		return compiled, nil
	}
	compiler := jsonschema.NewCompiler()
	compiled, err := compiler.Compile(bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	compiledSchemaCache.Add(key, compiled)
	recordCompile(ctx, kindSchema, false)
	return compiled, nil
}

// Validate checks value against the document. A failed evaluation is reported
// as a wrong_type input rejection.
func (s *Schema) Validate(ctx context.Context, value any) (*Result, error) {
	compiled, err := s.Compile(ctx)
	if err != nil {
		return nil, err
	}
	if compiled == nil {
		return nil, nil
	}
	start := time.Now()
	result := compiled.Validate(core.Plain(value))
	recordValidation(ctx, kindSchema, time.Since(start), result.Valid)
	if result.Valid {
		return result, nil
	}
	return nil, core.Invalid("", core.ReasonWrongType, fmt.Sprintf("schema validation failed: %v", result.Errors))
}

// Matches turns the document into a Predicate. Compilation errors surface on
// first use.
func Matches(s *Schema) Predicate {
	return func(value any) error {
		_, err := s.Validate(context.Background(), value)
		return err
	}
}

package schema

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/compozy/tally/engine/core"
	"github.com/google/cel-go/cel"
)

const programCacheSize = 128

var (
	exprEnvOnce  sync.Once
	exprEnv      *cel.Env
	exprEnvErr   error
	programCache = mustCache[string, cel.Program](programCacheSize)
)

// environment declares `value` and its alias `record`, both dynamically typed.
func environment() (*cel.Env, error) {
	exprEnvOnce.Do(func() {
		exprEnv, exprEnvErr = cel.NewEnv(
			cel.Variable("value", cel.DynType),
			cel.Variable("record", cel.DynType),
			cel.CrossTypeNumericComparisons(true),
		)
	})
	return exprEnv, exprEnvErr
}

// CompileExpr compiles a boolean CEL expression, reusing cached programs.
func CompileExpr(source string) (cel.Program, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, fmt.Errorf("empty expression")
	}
	if prg, ok := programCache.Get(source); ok {
		recordCompile(context.Background(), kindExpr, true)
		return prg, nil
	}
	env, err := environment()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression environment: %w", err)
	}
	ast, iss := env.Compile(source)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("failed to compile expression %q: %w", source, iss.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to plan expression %q: %w", source, err)
	}
	programCache.Add(source, prg)
	recordCompile(context.Background(), kindExpr, false)
	return prg, nil
}

// Expr builds a predicate that accepts values for which source evaluates to
// true. Evaluation errors, such as a missing key, reject the value.
func Expr(source string) (Predicate, error) {
	prg, err := CompileExpr(source)
	if err != nil {
		return nil, err
	}
	return func(value any) error {
		start := time.Now()
		plain := core.Plain(value)
		out, _, err := prg.Eval(map[string]any{"value": plain, "record": plain})
		if err != nil {
			recordValidation(context.Background(), kindExpr, time.Since(start), false)
			return core.Invalid("", core.ReasonOutOfRange, err.Error())
		}
		ok, isBool := out.Value().(bool)
		recordValidation(context.Background(), kindExpr, time.Since(start), ok && isBool)
		if !isBool {
			return core.Invalid("", core.ReasonWrongType, "expression did not yield a bool")
		}
		if !ok {
			return core.Invalid("", core.ReasonOutOfRange, fmt.Sprintf("expression %q not satisfied", source))
		}
		return nil
	}, nil
}

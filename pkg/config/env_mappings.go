package config

import (
	"reflect"
	"slices"
	"strings"
	"sync"
)

// EnvBinding ties an environment variable to a dotted configuration path.
type EnvBinding struct {
	Name string
	Path string
}

var envBindings = sync.OnceValue(func() []EnvBinding {
	bindings := collectEnvBindings(reflect.TypeFor[Config](), "")
	slices.SortFunc(bindings, func(a, b EnvBinding) int { return strings.Compare(a.Name, b.Name) })
	return bindings
})

// EnvBindings lists every variable the loader reads, sorted by name. Paths
// without an `env` tag, such as tax.rates, have no variable.
func EnvBindings() []EnvBinding {
	return slices.Clone(envBindings())
}

// EnvVarFor returns the variable bound to path, or "".
func EnvVarFor(path string) string {
	for _, b := range envBindings() {
		if b.Path == path {
			return b.Name
		}
	}
	return ""
}

func envPaths() map[string]string {
	bindings := envBindings()
	paths := make(map[string]string, len(bindings))
	for _, b := range bindings {
		paths[b.Name] = b.Path
	}
	return paths
}

func collectEnvBindings(t reflect.Type, prefix string) []EnvBinding {
	var out []EnvBinding
	for field := range fieldsOf(t) {
		key := field.Tag.Get("koanf")
		if key == "" || key == "-" {
			continue
		}
		if prefix != "" {
			key = prefix + "." + key
		}
		if field.Type.Kind() == reflect.Struct {
			out = append(out, collectEnvBindings(field.Type, key)...)
			continue
		}
		if name := field.Tag.Get("env"); strings.HasPrefix(name, EnvPrefix) {
			out = append(out, EnvBinding{Name: name, Path: key})
		}
	}
	return out
}

func fieldsOf(t reflect.Type) func(func(reflect.StructField) bool) {
	return func(yield func(reflect.StructField) bool) {
		for i := range t.NumField() {
			if f := t.Field(i); f.IsExported() && !yield(f) {
				return
			}
		}
	}
}

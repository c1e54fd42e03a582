// Package hclenv builds the evaluation context shared by the HCL plan and config files.
package hclenv

import (
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// EvalContext exposes the process environment as `env.NAME`.
func EvalContext() *hcl.EvalContext {
	return EvalContextWithEnv(os.Environ())
}

// EvalContextWithEnv exposes the given `KEY=value` pairs as `env.KEY`.
func EvalContextWithEnv(environ []string) *hcl.EvalContext {
	vars := make(map[string]cty.Value, len(environ))

	for _, pair := range environ {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			continue
		}

		vars[key] = cty.StringVal(value)
	}

	env := cty.MapValEmpty(cty.String)
	if len(vars) > 0 {
		env = cty.MapVal(vars)
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": env},
	}
}

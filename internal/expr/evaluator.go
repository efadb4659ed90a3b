// Package expr is the narrow boundary between the workflow engine and the
// expression language used by transition conditions and action field values.
// The engine never depends on the grammar, only on Evaluator.
package expr

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

type Evaluator interface {
	Render(tmpl string, ctx map[string]any) (string, error)
}

// TemplateEvaluator renders Go text templates with missingkey=zero, so
// references to absent context keys come out empty instead of erroring.
type TemplateEvaluator struct {
	funcs template.FuncMap
}

func NewTemplateEvaluator() *TemplateEvaluator {
	return &TemplateEvaluator{
		funcs: template.FuncMap{
			"lower": strings.ToLower,
			"upper": strings.ToUpper,
			"trim":  strings.TrimSpace,
		},
	}
}

func (e *TemplateEvaluator) Render(tmpl string, ctx map[string]any) (string, error) {
	t, err := template.New("expr").Option("missingkey=zero").Funcs(e.funcs).Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("expression parse: %w", err)
	}
	var b bytes.Buffer
	if err := t.Execute(&b, ctx); err != nil {
		return "", fmt.Errorf("expression execute: %w", err)
	}
	return strings.TrimSpace(b.String()), nil
}

// Truthy reports whether a rendered expression result counts as true.
// Empty string and the usual spellings of "no" are false; anything else
// is true.
func Truthy(rendered string) bool {
	switch strings.ToLower(strings.TrimSpace(rendered)) {
	case "", "false", "0", "none", "no", "<no value>":
		return false
	default:
		return true
	}
}

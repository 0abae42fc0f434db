package graph

import (
	"regexp"
	"strings"

	"github.com/alexisbeaulieu97/cph/internal/ports"
)

// resultPattern matches {{step_<id>.<field>}} and {{step_<id>.result.<field>}}.
var resultPattern = regexp.MustCompile(`\{\{step_(\w+)\.(?:result\.)?(\w+)\}\}`)

// ResultLookup resolves a step reference to its recorded result.
type ResultLookup func(id string) (ports.OperationResult, bool)

// MapLookup resolves references against a plain map.
func MapLookup(results map[string]ports.OperationResult) ResultLookup {
	return func(id string) (ports.OperationResult, bool) {
		res, ok := results[id]
		return res, ok
	}
}

// SubstituteResults replaces result placeholders in text. The reference
// {{step_X.field}} is looked up as "X" first and then as "step_X", so it works
// both for bare keys and for graph node ids. Unknown ids and unknown fields
// leave the placeholder untouched.
func SubstituteResults(text string, lookup ResultLookup) string {
	if lookup == nil || !strings.Contains(text, "{{") {
		return text
	}

	return resultPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := resultPattern.FindStringSubmatch(match)
		if len(groups) != 3 {
			return match
		}
		id, field := groups[1], groups[2]

		res, ok := lookup(id)
		if !ok {
			res, ok = lookup("step_" + id)
		}
		if !ok {
			return match
		}

		value, known := res.Field(field)
		if !known {
			return match
		}
		return value
	})
}

// substituteFunc binds SubstituteResults to the graph's live results. It is
// evaluated anew for every node so it always sees the latest entries.
func (g *Graph) substituteFunc() func(string) string {
	lookup := func(id string) (ports.OperationResult, bool) {
		return g.results.Load(id)
	}
	return func(text string) string {
		return SubstituteResults(text, lookup)
	}
}

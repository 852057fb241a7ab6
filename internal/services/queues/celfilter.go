package queuesvc

import (
	"strings"

	"github.com/google/cel-go/cel"

	"github.com/CryLyo/EduBot/internal/queue"
)

// entryFilter wraps a compiled CEL program evaluated per queue entry. When
// disabled, Eval always returns true.
type entryFilter struct {
	prog    cel.Program
	enabled bool
}

func newEntryFilter(expr string) (entryFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return entryFilter{enabled: false}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("participant", cel.IntType),
		cel.Variable("topic", cel.StringType),
		cel.Variable("position", cel.IntType),
		// Total participants in the queue, for expressions like
		// position <= size / 2.
		cel.Variable("size", cel.IntType),
	)
	if err != nil {
		return entryFilter{}, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return entryFilter{}, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return entryFilter{}, iss2.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return entryFilter{}, err
	}
	return entryFilter{prog: prog, enabled: true}, nil
}

// Eval evaluates the expression against one entry. Evaluation errors mean
// the entry is filtered out.
func (f entryFilter) Eval(e queue.Entry, size int) bool {
	if !f.enabled {
		return true
	}
	out, _, err := f.prog.Eval(map[string]any{
		"participant": e.Participant,
		"topic":       e.Topic,
		"position":    int64(e.Position),
		"size":        int64(size),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}

package filter

import (
	"context"

	"github.com/s0up4200/spamwatch/spamwatch"
)

// defaultCompiler backs the package-level helpers
var defaultCompiler = NewExprCompiler(WithCache(100))

// CompileFilter compiles an expression with the shared, cached compiler
func CompileFilter(expression string) (CompiledFilter, error) {
	return defaultCompiler.Compile(expression)
}

// ParseAndCreateFilter returns a predicate for the expression. An empty
// expression matches every ban.
func ParseAndCreateFilter(expression string) (func(spamwatch.Ban) bool, error) {
	if expression == "" {
		return func(spamwatch.Ban) bool { return true }, nil
	}

	filter, err := CompileFilter(expression)
	if err != nil {
		return nil, err
	}
	return filter.Evaluate, nil
}

// EvaluateFilters compiles and evaluates several named expressions
func EvaluateFilters(ctx context.Context, filters map[string]string, bans []spamwatch.Ban) (map[string][]spamwatch.Ban, error) {
	manager := NewManager()
	defer func() {
		//nolint:errcheck
		manager.Close(ctx)
	}()

	if err := manager.RegisterFilters(filters); err != nil {
		return nil, err
	}
	return manager.EvaluateAll(ctx, bans)
}

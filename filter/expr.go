package filter

import (
	"maps"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/s0up4200/spamwatch/spamwatch"
)

// exprFilter implements CompiledFilter using the expr language
type exprFilter struct {
	expression string
	program    *vm.Program
	funcs      map[string]any
	envPool    *sync.Pool
}

// ExprCompilerOption configures an expr compiler
type ExprCompilerOption func(*exprCompiler)

// WithCache enables filter caching with the specified size
func WithCache(size int) ExprCompilerOption {
	return func(c *exprCompiler) {
		if size > 0 {
			c.cache = newLRUCache(size)
		}
	}
}

// WithCustomFunctions adds custom helper functions
func WithCustomFunctions(funcs map[string]any) ExprCompilerOption {
	return func(c *exprCompiler) {
		maps.Copy(c.customFuncs, funcs)
	}
}

// NewExprCompiler creates a new expr-based filter compiler
func NewExprCompiler(opts ...ExprCompilerOption) Compiler {
	c := &exprCompiler{
		customFuncs: make(map[string]any),
		envPool:     &sync.Pool{},
	}

	for _, opt := range opts {
		opt(c)
	}

	c.envPool.New = func() any {
		return make(map[string]any, 32)
	}

	// Typed environment for the checker: a zero ban gives every field and
	// ban helper its type.
	c.compileEnv = createRuntimeEnvironment(make(map[string]any, 32), spamwatch.Ban{}, c.customFuncs)

	return c
}

// exprCompiler implements Compiler for expr-based filters
type exprCompiler struct {
	customFuncs map[string]any
	compileEnv  map[string]any
	cache       *lruCache
	envPool     *sync.Pool
}

// Compile compiles an expression into an executable filter
func (c *exprCompiler) Compile(expression string) (CompiledFilter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "empty expression",
			Position:   -1,
		}
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(expression); ok {
			return cached, nil
		}
	}

	program, err := expr.Compile(expression,
		expr.Env(c.compileEnv),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "failed to compile expression",
			Position:   -1,
			Err:        err,
		}
	}

	filter := &exprFilter{
		expression: expression,
		program:    program,
		funcs:      c.customFuncs,
		envPool:    c.envPool,
	}

	if c.cache != nil {
		c.cache.Put(expression, filter)
	}

	return filter, nil
}

// Clear removes all cached filters
func (c *exprCompiler) Clear() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

// Size returns the number of cached filters
func (c *exprCompiler) Size() int {
	if c.cache != nil {
		return c.cache.Size()
	}
	return 0
}

// Evaluate evaluates the filter against a ban. Runtime errors count as no match.
func (f *exprFilter) Evaluate(ban spamwatch.Ban) bool {
	ok, err := f.EvaluateErr(ban)
	return err == nil && ok
}

// EvaluateErr evaluates the filter against a ban and reports runtime errors
func (f *exprFilter) EvaluateErr(ban spamwatch.Ban) (bool, error) {
	env := f.envPool.Get().(map[string]any)
	defer func() {
		clear(env)
		f.envPool.Put(env)
	}()

	result, err := expr.Run(f.program, createRuntimeEnvironment(env, ban, f.funcs))
	if err != nil {
		return false, &EvaluationError{
			Expression: f.expression,
			UserID:     ban.UserID,
			Reason:     "failed to run expression",
			Err:        err,
		}
	}

	// AsBool guarantees the type
	return result.(bool), nil
}

// Expression returns the original expression
func (f *exprFilter) Expression() string {
	return f.expression
}

// IsThreadSafe indicates that expr filters are thread-safe
func (f *exprFilter) IsThreadSafe() bool {
	return true
}

// addHelperFunctions adds all helper functions to the provided map
func addHelperFunctions(env map[string]any) {
	// Date helpers
	env["daysSince"] = func(t time.Time) int {
		return int(time.Since(t).Hours() / 24)
	}
	env["daysAgo"] = func(days int) time.Time {
		return time.Now().AddDate(0, 0, -days)
	}
	env["monthsAgo"] = func(months int) time.Time {
		return time.Now().AddDate(0, -months, 0)
	}
	env["yearsAgo"] = func(years int) time.Time {
		return time.Now().AddDate(-years, 0, 0)
	}
	env["parseDate"] = func(dateStr string) time.Time {
		t, _ := time.Parse("2006-01-02", dateStr)
		return t
	}
	// String helpers
	env["contains"] = func(str, substr string) bool {
		return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
	}
	env["startsWith"] = func(str, prefix string) bool {
		return strings.HasPrefix(strings.ToLower(str), strings.ToLower(prefix))
	}
	env["endsWith"] = func(str, suffix string) bool {
		return strings.HasSuffix(strings.ToLower(str), strings.ToLower(suffix))
	}
	env["lower"] = strings.ToLower
	env["upper"] = strings.ToUpper
	env["now"] = time.Now
}

// createRuntimeEnvironment fills env with the ban, its fields and all helpers
func createRuntimeEnvironment(env map[string]any, ban spamwatch.Ban, custom map[string]any) map[string]any {
	addHelperFunctions(env)
	maps.Copy(env, custom)

	env["Ban"] = ban

	env["hasMessage"] = createHasMessageFunc(ban.Message)
	env["reasonMatches"] = createReasonMatchesFunc(ban.Reason)
	env["bannedBy"] = createBannedByFunc(ban.Admin)

	// Direct ban properties for convenience
	env["UserID"] = ban.UserID
	env["Reason"] = ban.Reason
	env["Message"] = ban.Message
	env["Admin"] = ban.Admin
	env["Date"] = ban.Date

	return env
}

func createHasMessageFunc(message string) func() bool {
	return func() bool {
		return strings.TrimSpace(message) != ""
	}
}

// patternCache holds compiled reasonMatches patterns
var patternCache sync.Map

func createReasonMatchesFunc(reason string) func(string) bool {
	return func(pattern string) bool {
		re, ok := patternCache.Load(pattern)
		if !ok {
			compiled, err := regexp.Compile("(?i)" + pattern)
			if err != nil {
				return false
			}
			re, _ = patternCache.LoadOrStore(pattern, compiled)
		}
		return re.(*regexp.Regexp).MatchString(reason)
	}
}

func createBannedByFunc(admin int) func(int) bool {
	return func(id int) bool {
		return admin == id
	}
}

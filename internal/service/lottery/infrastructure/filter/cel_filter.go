// internal/service/lottery/infrastructure/filter/cel_filter.go
package filter

import (
	"fmt"

	"promo-lottery/internal/service/lottery/application"

	"github.com/google/cel-go/cel"
)

// CELFilterCompiler 是 application.FilterCompiler 的 CEL 实现。
// 表达式里通过 entry 访问一条历史记录，例如:
//
//	entry.tier > 0 && entry.memberName.startsWith("a")
type CELFilterCompiler struct {
	env *cel.Env
}

func NewCELFilterCompiler() (*CELFilterCompiler, error) {
	env, err := cel.NewEnv(
		cel.Variable("entry", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel environment: %w", err)
	}
	return &CELFilterCompiler{env: env}, nil
}

// Compile 编译并做类型检查，表达式必须返回 bool。
func (c *CELFilterCompiler) Compile(expr string) (application.HistoryFilter, error) {
	ast, issues := c.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("filter must evaluate to bool, got %s", out)
	}
	prg, err := c.env.Program(ast)
	if err != nil {
		return nil, err
	}
	return &celFilter{prg: prg}, nil
}

type celFilter struct {
	prg cel.Program
}

func (f *celFilter) Match(entry application.HistoryEntry) (bool, error) {
	out, _, err := f.prg.Eval(map[string]any{
		"entry": map[string]any{
			"memberId":   entry.MemberID,
			"memberName": entry.MemberName,
			"draw":       entry.IsWinAttempt,
			"tier":       int64(entry.Tier.Rank()),
			"rank":       int64(entry.Tier.Rank()),
			"createDt":   entry.CreatedAt,
		},
	})
	if err != nil {
		return false, err
	}
	keep, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("filter returned %T, want bool", out.Value())
	}
	return keep, nil
}

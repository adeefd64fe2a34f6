package flowdsl

import (
	"fmt"

	"github.com/zflow-run/zflow/pkg/value"
)

// Eval runs the minimal reference evaluator over f and returns the
// resulting poll outcome. This stands in for the real flow interpreter,
// which spec.md §1 names as an external collaborator — it exists only so
// the reference executor (pkg/executor) has something to run end to end.
// It supports exactly the node set this package defines: Succeed, Fail,
// Input, Provide, Map.
func Eval(f *Flow) value.PollOutcome {
	result, failed, died := eval(f, nil)
	switch {
	case died != nil:
		return value.Died(died)
	case failed:
		return value.Failed(result)
	default:
		return value.Succeeded(result)
	}
}

func eval(f *Flow, env *value.DynamicValue) (result value.DynamicValue, failed bool, died *value.ExecutorError) {
	if f == nil {
		return value.DynamicValue{}, false, value.InvalidOperationArguments("nil flow")
	}

	switch f.Kind {
	case KindSucceed:
		return f.Value, false, nil

	case KindFail:
		return f.Value, true, nil

	case KindInput:
		if env == nil {
			return value.DynamicValue{}, false, value.MissingVariable("input", "Input node evaluated without a Provide binding")
		}
		return *env, false, nil

	case KindProvide:
		param := f.Param
		return eval(f.Base, &param)

	case KindMap:
		base, baseFailed, baseDied := eval(f.Base, env)
		if baseDied != nil || baseFailed {
			return base, baseFailed, baseDied
		}
		switch f.FuncTag {
		case "", "Identity":
			return base, false, nil
		default:
			return value.DynamicValue{}, false, value.InvalidOperationArguments(fmt.Sprintf("unknown map function %q", f.FuncTag))
		}

	default:
		return value.DynamicValue{}, false, value.InvalidOperationArguments(fmt.Sprintf("unsupported flow node kind %q", f.Kind))
	}
}

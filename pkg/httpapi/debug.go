package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/m1gwings/treedrawer/tree"
	"github.com/zflow-run/zflow/pkg/flowdsl"
)

// flowInspector is implemented by executors that can hand back a flow's
// persisted definition for debugging. Not every Executor backend can (the
// Mock test double has no durable flow store worth inspecting), so
// handleDebug type-asserts rather than widening the Executor contract.
type flowInspector interface {
	InspectFlow(ctx context.Context, id string) (*flowdsl.Flow, bool, error)
}

// handleDebug renders a flow's operation tree with treedrawer. This is a
// supplemental, non-authoritative operator endpoint: spec.md names no
// such route, and no client needs it to drive the lifecycle contract.
func (s *Server) handleDebug(c echo.Context) error {
	inspector, ok := s.exec.(flowInspector)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "executor does not support flow inspection")
	}

	id := c.Param("id")
	flow, found, err := inspector.InspectFlow(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !found {
		return echo.NewHTTPError(http.StatusNotFound, "unknown flow")
	}

	root := buildFlowTree(flow)
	return c.String(http.StatusOK, root.String())
}

// buildFlowTree renders a flow node and its Base chain as a treedrawer
// tree, in the shape of extensions/graph_debug.go's buildTree +
// addTreeAsChild pair: treedrawer's AddChild only attaches one level, so
// nested Base chains are grafted on recursively.
func buildFlowTree(f *flowdsl.Flow) *tree.Tree {
	if f == nil {
		return tree.NewTree(tree.NodeString("(nil)"))
	}

	node := tree.NewTree(tree.NodeString(describeFlowNode(f)))
	if f.Base != nil {
		addTreeAsChild(node, buildFlowTree(f.Base))
	}
	return node
}

// addTreeAsChild grafts child (and everything beneath it) onto parent.
func addTreeAsChild(parent *tree.Tree, child *tree.Tree) {
	newChild := parent.AddChild(child.Val())
	for _, grandchild := range child.Children() {
		addTreeAsChild(newChild, grandchild)
	}
}

func describeFlowNode(f *flowdsl.Flow) string {
	label := describeFlowKind(f)
	if name, ok := f.Tag("name"); ok {
		label = fmt.Sprintf("%s [%s]", label, name)
	}
	return label
}

func describeFlowKind(f *flowdsl.Flow) string {
	switch f.Kind {
	case flowdsl.KindSucceed:
		return fmt.Sprintf("Succeed(%s)", f.Value.Tag)
	case flowdsl.KindFail:
		return fmt.Sprintf("Fail(%s)", f.Value.Tag)
	case flowdsl.KindInput:
		return "Input"
	case flowdsl.KindProvide:
		return fmt.Sprintf("Provide(%s)", f.Param.Tag)
	case flowdsl.KindMap:
		return fmt.Sprintf("Map(%s)", f.FuncTag)
	default:
		return string(f.Kind)
	}
}

package httpapi

import (
	"encoding/json"
	"fmt"

	"github.com/zflow-run/zflow/pkg/flowdsl"
	"github.com/zflow-run/zflow/pkg/schema"
)

// startRequestKind tags the four StartRequest variants (spec §4.5).
type startRequestKind string

const (
	kindFlow                  startRequestKind = "Flow"
	kindFlowWithParameter     startRequestKind = "FlowWithParameter"
	kindTemplate              startRequestKind = "Template"
	kindTemplateWithParameter startRequestKind = "TemplateWithParameter"
)

// startRequest is the parsed form of the POST /flows body.
type startRequest struct {
	kind          startRequestKind
	flow          *flowdsl.Flow
	inputSchema   schema.Schema
	parameterJSON json.RawMessage
	templateID    string
}

type wireFlowBody struct {
	Flow          *flowdsl.Flow   `json:"flow,omitempty"`
	InputSchema   json.RawMessage `json:"inputSchema,omitempty"`
	ParameterJSON json.RawMessage `json:"parameter,omitempty"`
	TemplateID    string          `json:"templateId,omitempty"`
}

// parseStartRequest decodes the single-key tagged envelope
// {"<Kind>": {...}} into a startRequest.
func parseStartRequest(body []byte) (startRequest, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return startRequest{}, fmt.Errorf("parse start request: %w", err)
	}
	if len(envelope) != 1 {
		return startRequest{}, fmt.Errorf("parse start request: expected exactly one variant, got %d", len(envelope))
	}

	for kind, raw := range envelope {
		var body wireFlowBody
		if err := json.Unmarshal(raw, &body); err != nil {
			return startRequest{}, fmt.Errorf("parse start request %s: %w", kind, err)
		}

		switch startRequestKind(kind) {
		case kindFlow:
			if body.Flow == nil {
				return startRequest{}, fmt.Errorf("parse start request: Flow variant missing flow")
			}
			return startRequest{kind: kindFlow, flow: body.Flow}, nil

		case kindFlowWithParameter:
			if body.Flow == nil {
				return startRequest{}, fmt.Errorf("parse start request: FlowWithParameter variant missing flow")
			}
			s, err := schema.Decode(body.InputSchema)
			if err != nil {
				return startRequest{}, fmt.Errorf("parse start request: decode inputSchema: %w", err)
			}
			return startRequest{
				kind:          kindFlowWithParameter,
				flow:          body.Flow,
				inputSchema:   s,
				parameterJSON: body.ParameterJSON,
			}, nil

		case kindTemplate:
			if body.TemplateID == "" {
				return startRequest{}, fmt.Errorf("parse start request: Template variant missing templateId")
			}
			return startRequest{kind: kindTemplate, templateID: body.TemplateID}, nil

		case kindTemplateWithParameter:
			if body.TemplateID == "" {
				return startRequest{}, fmt.Errorf("parse start request: TemplateWithParameter variant missing templateId")
			}
			return startRequest{
				kind:          kindTemplateWithParameter,
				templateID:    body.TemplateID,
				parameterJSON: body.ParameterJSON,
			}, nil

		default:
			return startRequest{}, fmt.Errorf("parse start request: unknown variant %q", kind)
		}
	}

	return startRequest{}, fmt.Errorf("parse start request: empty envelope")
}

// startResponse is the POST /flows 200 body.
type startResponse struct {
	FlowID string `json:"flowId"`
}

// getAllResponse is the GET /flows 200 body.
type getAllResponse struct {
	Flows map[string]string `json:"flows"`
}

// errorResponse is an {"error": ...} body shape. The handlers report
// errors as echo.HTTPError values, which Echo's default error handler
// renders as {"message": ...}; no handler writes errorResponse.
type errorResponse struct {
	Error string `json:"error"`
}

package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// tool binds one operation to both the MCP server and JSON-RPC dispatch.
type tool struct {
	name     string
	call     func(ctx context.Context, params json.RawMessage) (any, error)
	register func(server *sdkmcp.Server)
}

func newTool[In any](name, description string, fn func(context.Context, In) (any, error)) tool {
	return tool{
		name: name,
		call: func(ctx context.Context, params json.RawMessage) (any, error) {
			var in In
			if err := decodeParams(params, &in); err != nil {
				return nil, err
			}
			return fn(ctx, in)
		},
		register: func(server *sdkmcp.Server) {
			sdkmcp.AddTool(server, &sdkmcp.Tool{Name: name, Description: description},
				func(ctx context.Context, _ *sdkmcp.CallToolRequest, in In) (*sdkmcp.CallToolResult, any, error) {
					out, err := fn(ctx, in)
					if err != nil {
						return nil, nil, mapError(err)
					}
					result, err := jsonResult(out)
					return result, nil, err
				})
		},
	}
}

func (h *Handler) buildTools() []tool {
	return []tool{
		// Workflow
		newTool("create_case",
			"Start a new First Call case and make it the active case. Other open cases are kept.",
			h.createCase),
		newTool("complete_intake",
			"Submit intake for a case. Verbal releases move to summary, otherwise to signatures. signatures_total sets how many documents the family signs.",
			h.completeIntake),
		newTool("send_release_form",
			"Record that the release form was sent on a verbal release case. Does not change the stage.",
			h.sendReleaseForm),
		newTool("complete_summary",
			"Finish the summary of a verbal release case, completing it.",
			h.completeSummary),
		newTool("record_signature",
			"Record one signed document. After the last signature the case moves to faxing. Extra calls are ignored.",
			h.recordSignature),
		newTool("record_document_sent",
			"Record one document delivered by fax or email. After the last document the case completes and a case record is created.",
			h.recordDocumentSent),
		newTool("update_case",
			"Change case details or document totals. Pass expected_version to reject the update if someone else changed the case.",
			h.updateCase),
		newTool("delete_case",
			"Delete a case. If it was the active case, no case is active afterwards.",
			h.deleteCase),

		// Switchboard
		newTool("switch_case",
			"Make a case the active case. Unknown ids leave no active case.",
			h.switchCase),
		newTool("get_case",
			"Get a case with its derived status and visible stages.",
			h.getCase),
		newTool("get_active_case",
			"Get the active case, or null when none is active.",
			h.getActiveCase),
		newTool("list_open_cases",
			"List every case that is not complete, most recently updated first.",
			h.listOpenCases),
		newTool("list_attention_cases",
			"List cases whose status is action-needed, most recently updated first.",
			h.listAttentionCases),

		// History
		newTool("get_case_record",
			"Get the numbered case record created when a First Call case completed.",
			h.getCaseRecord),
		newTool("get_case_activity",
			"Get the activity log of a case, newest first.",
			h.getCaseActivity),
	}
}

func (h *Handler) sendReleaseForm(ctx context.Context, req CaseIDParams) (any, error) {
	return h.caseOp(ctx, req.ID, h.cases.SendReleaseForm)
}

func (h *Handler) completeSummary(ctx context.Context, req CaseIDParams) (any, error) {
	return h.caseOp(ctx, req.ID, h.cases.CompleteSummary)
}

func (h *Handler) recordSignature(ctx context.Context, req CaseIDParams) (any, error) {
	return h.caseOp(ctx, req.ID, h.cases.RecordSignature)
}

func (h *Handler) recordDocumentSent(ctx context.Context, req CaseIDParams) (any, error) {
	return h.caseOp(ctx, req.ID, h.cases.RecordDocumentSent)
}

// registerTools adds every handler tool to server.
func registerTools(server *sdkmcp.Server, h *Handler) {
	for _, t := range h.tools {
		t.register(server)
	}
}

func jsonResult(v any) (*sdkmcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}, nil
}

package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rpggio/firstcall/internal/domain/activity"
	"github.com/rpggio/firstcall/internal/domain/firstcall"
)

// Handler dispatches operator commands. The same tool table backs the MCP
// server and the plain JSON-RPC endpoint.
type Handler struct {
	cases    CaseService
	board    SwitchboardService
	records  RecordService
	activity ActivityService
	tools    []tool
	byName   map[string]tool
}

// NewHandler creates a new MCP handler.
func NewHandler(services Services) *Handler {
	h := &Handler{
		cases:    services.Cases,
		board:    services.Switchboard,
		records:  services.Records,
		activity: services.Activity,
	}
	h.tools = h.buildTools()
	h.byName = make(map[string]tool, len(h.tools))
	for _, t := range h.tools {
		h.byName[t.name] = t
	}
	return h
}

// Handle dispatches a JSON-RPC method to the tool of the same name.
func (h *Handler) Handle(ctx context.Context, method string, params json.RawMessage) (any, error) {
	t, ok := h.byName[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
	result, err := t.call(ctx, params)
	if err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

// Methods lists the dispatchable method names in registration order.
func (h *Handler) Methods() []string {
	names := make([]string, 0, len(h.tools))
	for _, t := range h.tools {
		names = append(names, t.name)
	}
	return names
}

func (h *Handler) createCase(ctx context.Context, _ NoParams) (any, error) {
	c, err := h.cases.CreateCase(ctx)
	if err != nil {
		return nil, err
	}
	return caseResponse(c), nil
}

func (h *Handler) getCase(ctx context.Context, req CaseIDParams) (any, error) {
	return h.caseOp(ctx, req.ID, h.cases.GetCase)
}

func (h *Handler) completeIntake(ctx context.Context, req CompleteIntakeParams) (any, error) {
	return h.caseOp(ctx, req.ID, func(ctx context.Context, id string) (*firstcall.Case, error) {
		return h.cases.CompleteIntake(ctx, id, firstcall.IntakeData{
			Details:         req.Details,
			IsVerbalRelease: req.IsVerbalRelease,
			SignaturesTotal: req.SignaturesTotal,
		})
	})
}

func (h *Handler) updateCase(ctx context.Context, req UpdateCaseParams) (any, error) {
	if req.ID == "" {
		return nil, fmt.Errorf("%w: id is required", firstcall.ErrInvalidInput)
	}
	c, conflict, err := h.cases.UpdateCase(ctx, firstcall.UpdateRequest{
		ID:              req.ID,
		Details:         req.Details,
		SignaturesTotal: req.SignaturesTotal,
		FaxesTotal:      req.FaxesTotal,
		IsVerbalRelease: req.IsVerbalRelease,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		return nil, err
	}
	if c == nil && conflict == nil {
		return nil, firstcall.ErrCaseNotFound
	}
	return UpdateCaseResponse{Case: c, Conflict: conflict}, nil
}

func (h *Handler) deleteCase(ctx context.Context, req CaseIDParams) (any, error) {
	if req.ID == "" {
		return nil, fmt.Errorf("%w: id is required", firstcall.ErrInvalidInput)
	}
	if err := h.cases.DeleteCase(ctx, req.ID); err != nil {
		return nil, err
	}
	return StatusResponse{Status: "deleted"}, nil
}

func (h *Handler) switchCase(ctx context.Context, req CaseIDParams) (any, error) {
	if err := h.board.SwitchCase(ctx, req.ID); err != nil {
		return nil, err
	}
	return h.getActiveCase(ctx, NoParams{})
}

func (h *Handler) getActiveCase(ctx context.Context, _ NoParams) (any, error) {
	c, err := h.board.GetActiveCase(ctx)
	if err != nil {
		return nil, err
	}
	return caseResponse(c), nil
}

func (h *Handler) listOpenCases(ctx context.Context, _ NoParams) (any, error) {
	return h.listCases(ctx, h.board.GetAllActiveCases)
}

func (h *Handler) listAttentionCases(ctx context.Context, _ NoParams) (any, error) {
	return h.listCases(ctx, h.board.GetCasesNeedingAttention)
}

func (h *Handler) getCaseRecord(ctx context.Context, req CaseIDParams) (any, error) {
	if req.ID == "" {
		return nil, fmt.Errorf("%w: id is required", firstcall.ErrInvalidInput)
	}
	return h.records.GetByFirstCall(ctx, req.ID)
}

func (h *Handler) getCaseActivity(ctx context.Context, req GetCaseActivityParams) (any, error) {
	if req.ID == "" {
		return nil, fmt.Errorf("%w: id is required", firstcall.ErrInvalidInput)
	}
	entries, err := h.activity.GetRecentActivity(ctx, activity.ListActivityOptions{
		CaseID: req.ID,
		Limit:  req.Limit,
	})
	if err != nil {
		return nil, err
	}
	resp := make([]ActivityEntryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, ActivityEntryResponse{
			Timestamp: entry.CreatedAt,
			Type:      entry.ActivityType,
			Operator:  entry.Operator,
			Stage:     entry.Stage,
			Version:   entry.Version,
			Summary:   entry.Summary,
			Details:   entry.Details,
		})
	}
	return resp, nil
}

// caseOp runs a single-case operation. The engine treats unknown ids as a
// silent no-op; callers of the API get CASE_NOT_FOUND instead.
func (h *Handler) caseOp(ctx context.Context, id string, op func(context.Context, string) (*firstcall.Case, error)) (any, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", firstcall.ErrInvalidInput)
	}
	c, err := op(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, firstcall.ErrCaseNotFound
	}
	return caseResponse(c), nil
}

func (h *Handler) listCases(ctx context.Context, list func(context.Context) ([]firstcall.Case, error)) (any, error) {
	cases, err := list(ctx)
	if err != nil {
		return nil, err
	}
	active, err := h.board.GetActiveCase(ctx)
	if err != nil {
		return nil, err
	}
	activeID := ""
	if active != nil {
		activeID = active.ID
	}
	resp := CaseListResponse{Cases: make([]CaseSummary, 0, len(cases)), Count: len(cases)}
	for _, c := range cases {
		resp.Cases = append(resp.Cases, summarize(c, activeID))
	}
	return resp, nil
}

func caseResponse(c *firstcall.Case) CaseResponse {
	if c == nil {
		return CaseResponse{}
	}
	return CaseResponse{Case: c, VisibleStages: firstcall.VisibleStages(c.IsVerbalRelease)}
}

func decodeParams(params json.RawMessage, out any) error {
	if len(params) == 0 || string(params) == "null" {
		return nil
	}
	if err := json.Unmarshal(params, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}

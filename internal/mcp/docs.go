package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `firstcall tracks First Call cases: the intake call reporting a death, through release paperwork, to a numbered case record.

Core concepts:
- Case: one First Call. It moves forward through stages and never backwards.
- Stages: verbal release path is intake -> summary -> complete; the standard path is intake -> signatures -> faxing -> complete. The path is fixed when intake completes.
- Status: derived from the stage and signature counts, never set directly (intake-in-progress, waiting-on-family, action-needed, faxing, complete).
- Active case: the one case the operator is working on; others stay open.

Default workflow:
1) create_case for each new call (it becomes active).
2) update_case while collecting details; complete_intake when the form is done.
3) Verbal release: send_release_form, then complete_summary.
   Standard: record_signature per signed document, then record_document_sent per delivered document.
4) Use list_open_cases and list_attention_cases to juggle calls; switch_case to change the active case.
5) When a case completes, get_case_record returns its case number.

Counters clamp: repeating record_signature or record_document_sent is safe.
Pass expected_version to update_case to detect edits by another operator.
Identify yourself with the X-Operator header (HTTP) or _meta.operator (stdio).

Docs:
- firstcall://docs/index
- firstcall://docs/stages
- firstcall://docs/statuses
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "firstcall://docs/index",
		Name:        "docs_index",
		Title:       "firstcall docs index",
		Description: "Entry point: which doc to read for which question.",
		Content: `# firstcall docs

- firstcall://docs/stages: the two stage paths and what moves a case along them.
- firstcall://docs/statuses: how status is derived and what action-needed means.

Every tool that targets a case takes its id. Unknown ids return CASE_NOT_FOUND.
Operations that don't apply to the case's current stage return the case unchanged.
`,
	},
	{
		URI:         "firstcall://docs/stages",
		Name:        "docs_stages",
		Title:       "Stage paths",
		Description: "Verbal release and standard paths, with the tool that advances each stage.",
		Content: `# Stage paths

## Verbal release

| Stage | Advanced by |
|---|---|
| intake | complete_intake with is_verbal_release=true |
| summary | complete_summary (send_release_form records the form, no stage change) |
| complete | terminal |

## Standard

| Stage | Advanced by |
|---|---|
| intake | complete_intake with is_verbal_release=false |
| signatures | record_signature, once per signed document; the last one moves to faxing |
| faxing | record_document_sent, once per delivered document; the last one completes the case |
| complete | terminal |

The number of documents to sign and to send is set by signatures_total at intake
(minimum 1). update_case can change the totals but never below what has already
been counted.

When a case reaches complete, a case record with a number like FH-202604-0001 is
created exactly once.
`,
	},
	{
		URI:         "firstcall://docs/statuses",
		Name:        "docs_statuses",
		Title:       "Statuses",
		Description: "Status derivation table and the action-needed alert.",
		Content: `# Statuses

| Stage | Condition | Status |
|---|---|---|
| intake, summary | | intake-in-progress |
| signatures | received < total | waiting-on-family |
| signatures | received >= total | action-needed |
| faxing | | faxing |
| complete | | complete |

action-needed means every signature is in but the case hasn't moved to faxing,
for example after signatures_total was lowered. Calling record_signature moves it on.
list_attention_cases returns exactly these cases.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}

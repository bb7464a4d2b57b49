package mcp

import (
	"context"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/firstcall/internal/domain/activity"
)

// OperatorHeader carries the operator name on HTTP requests.
const OperatorHeader = "X-Operator"

// operatorMiddleware extracts the operator from the X-Operator header (HTTP)
// or _meta.operator (stdio) so activity entries name who acted.
func operatorMiddleware() sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			var operator string

			extra := req.GetExtra()
			if extra != nil && extra.Header != nil {
				operator = extra.Header.Get(OperatorHeader)
			}

			// Some notifications (like "initialized") have nil params.
			if operator == "" {
				if params := req.GetParams(); params != nil {
					// GetMeta can panic on a nil underlying value.
					func() {
						defer func() { recover() }()
						if meta := params.GetMeta(); meta != nil {
							if op, ok := meta["operator"].(string); ok {
								operator = op
							}
						}
					}()
				}
			}

			if operator = strings.TrimSpace(operator); operator != "" {
				ctx = activity.WithOperator(ctx, operator)
			}

			return next(ctx, method, req)
		}
	}
}

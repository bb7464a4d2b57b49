package transport

import (
	"net/http"
	"strings"

	"github.com/rpggio/firstcall/internal/domain/activity"
	"github.com/rpggio/firstcall/internal/mcp"
)

// OperatorMiddleware stores the X-Operator header in the request context so
// the activity log names who acted.
func OperatorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		operator := strings.TrimSpace(r.Header.Get(mcp.OperatorHeader))
		if operator != "" {
			ctx := activity.WithOperator(r.Context(), operator)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}
		next.ServeHTTP(w, r)
	})
}

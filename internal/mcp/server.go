package mcp

import (
	"context"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/firstcall/internal/domain/activity"
	"github.com/rpggio/firstcall/internal/domain/caserecord"
	"github.com/rpggio/firstcall/internal/domain/firstcall"
)

// CaseService defines workflow operations needed by MCP.
type CaseService interface {
	CreateCase(ctx context.Context) (*firstcall.Case, error)
	GetCase(ctx context.Context, id string) (*firstcall.Case, error)
	CompleteIntake(ctx context.Context, id string, data firstcall.IntakeData) (*firstcall.Case, error)
	SendReleaseForm(ctx context.Context, id string) (*firstcall.Case, error)
	CompleteSummary(ctx context.Context, id string) (*firstcall.Case, error)
	RecordSignature(ctx context.Context, id string) (*firstcall.Case, error)
	RecordDocumentSent(ctx context.Context, id string) (*firstcall.Case, error)
	UpdateCase(ctx context.Context, req firstcall.UpdateRequest) (*firstcall.Case, *firstcall.ConflictInfo, error)
	DeleteCase(ctx context.Context, id string) error
}

// SwitchboardService defines active-case operations needed by MCP.
type SwitchboardService interface {
	SwitchCase(ctx context.Context, id string) error
	GetActiveCase(ctx context.Context) (*firstcall.Case, error)
	GetAllActiveCases(ctx context.Context) ([]firstcall.Case, error)
	GetCasesNeedingAttention(ctx context.Context) ([]firstcall.Case, error)
}

// RecordService defines case record lookups needed by MCP.
type RecordService interface {
	GetByFirstCall(ctx context.Context, firstCallID string) (*caserecord.CaseRecord, error)
}

// ActivityService defines activity operations needed by MCP.
type ActivityService interface {
	GetRecentActivity(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// Services contains all domain services needed by MCP.
type Services struct {
	Cases       CaseService
	Switchboard SwitchboardService
	Records     RecordService
	Activity    ActivityService
}

// Config contains server configuration.
type Config struct {
	Services      Services
	TransportMode string // "stdio" or "http"
	Logger        *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	return NewServerWithHandler(NewHandler(cfg.Services), cfg)
}

// NewServerWithHandler builds the MCP server around an existing handler so
// the JSON-RPC endpoint and MCP share one tool table.
func NewServerWithHandler(h *Handler, cfg Config) *sdkmcp.Server {
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "firstcall",
		Version: "0.1.0",
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	server.AddReceivingMiddleware(operatorMiddleware())
	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, h)

	return server
}

// Package testserver runs the full First Call HTTP stack over an in-memory
// SQLite database for end-to-end tests.
package testserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/firstcall/internal/domain/activity"
	"github.com/rpggio/firstcall/internal/domain/caserecord"
	"github.com/rpggio/firstcall/internal/domain/firstcall"
	"github.com/rpggio/firstcall/internal/mcp"
	"github.com/rpggio/firstcall/internal/metrics"
	"github.com/rpggio/firstcall/internal/outbox"
	"github.com/rpggio/firstcall/internal/sqlite"
	"github.com/rpggio/firstcall/internal/transport"
	"github.com/stretchr/testify/require"
)

type TestServer struct {
	Server     *httptest.Server
	DB         *sqlite.DB
	Dispatcher *outbox.Dispatcher
	Metrics    *metrics.Metrics
}

// New starts a server whose outbox is not drained automatically; tests call
// Dispatcher.DispatchPending to deliver finalized cases.
func New(t *testing.T) *TestServer {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	m := metrics.New()
	activitySvc := activity.NewService(sqlite.NewActivityRepository(db), nil)
	records, err := caserecord.NewService(sqlite.NewCaseRecordRepository(db), "FH", nil)
	require.NoError(t, err)

	dispatcher := outbox.NewDispatcher(sqlite.NewOutboxRepository(db), nil)
	dispatcher.SetObserver(m)
	dispatcher.Subscribe(records.HandleCaseFinalized)

	cases := sqlite.NewCaseRepository(db)
	engine := firstcall.NewService(cases, dispatcher, activitySvc, nil, firstcall.WithObserver(m))
	board := firstcall.NewSwitchboard(cases, engine, activitySvc, nil)
	dispatcher.SetReconciler(engine.ReconcileFinalized)

	services := mcp.Services{
		Cases:       engine,
		Switchboard: board,
		Records:     records,
		Activity:    activitySvc,
	}
	handler := mcp.NewHandler(services)
	mcpServer := mcp.NewServerWithHandler(handler, mcp.Config{Services: services, TransportMode: "http"})
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return mcpServer },
		nil,
	)

	server := httptest.NewServer(transport.NewServer(handler, transport.Options{
		MCP:     mcpHandler,
		Metrics: m.Handler(),
	}))

	t.Cleanup(func() {
		server.Close()
		_ = db.Close()
	})

	return &TestServer{Server: server, DB: db, Dispatcher: dispatcher, Metrics: m}
}

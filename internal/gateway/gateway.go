package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/knowdhq/knowd/internal/core"
	"github.com/knowdhq/knowd/internal/events"
	"github.com/knowdhq/knowd/internal/knowledge"
	"github.com/knowdhq/knowd/internal/tokencount"
)

func init() {
	core.RegisterModule(&Gateway{})
}

// Gateway is the HTTP gateway module. It exposes the knowledge store over
// REST plus health, status, metrics, and event-stream endpoints. It is a
// leaf module — nothing imports it.
type Gateway struct {
	config    Config
	appCtx    *core.AppContext
	logger    *slog.Logger
	server    *http.Server
	metrics   *Metrics
	estimator tokencount.Estimator
	startedAt time.Time

	// Resolved lazily at Start() via service registry.
	store  knowledge.Store
	broker *events.Broker
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "gateway.http",
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return err
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.appCtx = ctx
	g.logger = ctx.Logger
	g.metrics = NewMetrics()
	g.estimator = tokencount.NewCharEstimator(g.config.CharsPerToken)

	// Register for cross-module discovery.
	ctx.RegisterService("gateway.metrics", g.metrics)

	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	if _, err := net.ResolveTCPAddr("tcp", g.config.Bind); err != nil {
		return errors.New("gateway: invalid bind address: " + g.config.Bind)
	}
	return nil
}

// Start implements core.Starter. It resolves dependencies from the service
// registry (lazy binding) and starts the HTTP server.
func (g *Gateway) Start() error {
	svc, ok := g.appCtx.Service("memory.store")
	if !ok {
		return errors.New("gateway: memory.store service not available; is the memory module loaded?")
	}
	store, ok := svc.(knowledge.Store)
	if !ok {
		return errors.New("gateway: memory.store service has unexpected type")
	}
	g.store = store

	// Optional services — graceful degradation if missing.
	if svc, ok := g.appCtx.Service("memory.events"); ok {
		if broker, ok := svc.(*events.Broker); ok {
			g.broker = broker
		}
	}

	g.startedAt = time.Now()

	mux := g.buildRouter()

	g.server = &http.Server{
		Addr:         g.config.Bind,
		Handler:      mux,
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}

	go func() {
		g.logger.Info("gateway listening", "addr", g.config.Bind)
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}

// publish emits a mutation event when a broker is wired.
func (g *Gateway) publish(op events.Op, kind, id string) {
	if g.broker == nil {
		return
	}
	g.broker.Publish(events.Event{Op: op, Kind: kind, ID: id})
}

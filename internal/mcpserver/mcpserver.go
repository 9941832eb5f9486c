// Package mcpserver exposes the knowledge store to MCP clients. Every store
// operation is one tool; handlers bind arguments into typed structs, call
// the store, and return JSON text results.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"
	"gopkg.in/yaml.v3"

	"github.com/knowdhq/knowd/internal/core"
	"github.com/knowdhq/knowd/internal/events"
	"github.com/knowdhq/knowd/internal/knowledge"
)

func init() {
	core.RegisterModule(&Server{})
}

// Config holds MCP server configuration. Transport is "stdio" (default) or
// "http"; Bind is required for the http transport.
type Config struct {
	Transport string `yaml:"transport"`
	Bind      string `yaml:"bind"`
}

// defaults fills zero values with sensible defaults.
func (c *Config) defaults() {
	if c.Transport == "" {
		c.Transport = "stdio"
	}
	if c.Transport == "http" && c.Bind == "" {
		c.Bind = "127.0.0.1:8081"
	}
}

// Server is the MCP dispatcher module.
type Server struct {
	config Config
	appCtx *core.AppContext
	logger *slog.Logger

	mcp  *server.MCPServer
	http *server.StreamableHTTPServer

	// Resolved lazily at Start() via service registry.
	store  knowledge.Store
	broker *events.Broker
}

// ModuleInfo implements core.Module.
func (s *Server) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "rpc.mcp",
		New: func() core.Module { return &Server{} },
	}
}

// Configure implements core.Configurable.
func (s *Server) Configure(node *yaml.Node) error {
	if err := node.Decode(&s.config); err != nil {
		return err
	}
	s.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (s *Server) Provision(ctx *core.AppContext) error {
	s.appCtx = ctx
	s.logger = ctx.Logger
	return nil
}

// Validate implements core.Validator.
func (s *Server) Validate() error {
	switch s.config.Transport {
	case "stdio", "http":
		return nil
	default:
		return fmt.Errorf("mcpserver: unsupported transport %q", s.config.Transport)
	}
}

// Start implements core.Starter. It resolves the store from the service
// registry, registers the tools, and launches the transport.
func (s *Server) Start() error {
	svc, ok := s.appCtx.Service("memory.store")
	if !ok {
		return errors.New("mcpserver: memory.store service not available; is the memory module loaded?")
	}
	store, ok := svc.(knowledge.Store)
	if !ok {
		return errors.New("mcpserver: memory.store service has unexpected type")
	}
	s.store = store

	if svc, ok := s.appCtx.Service("memory.events"); ok {
		if broker, ok := svc.(*events.Broker); ok {
			s.broker = broker
		}
	}

	s.mcp = server.NewMCPServer("knowd", "1.0.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	s.registerTools()

	switch s.config.Transport {
	case "http":
		s.http = server.NewStreamableHTTPServer(s.mcp)
		go func() {
			s.logger.Info("mcp server listening", "addr", s.config.Bind)
			if err := s.http.Start(s.config.Bind); err != nil {
				s.logger.Error("mcp http serve error", "error", err)
			}
		}()
	default:
		go func() {
			s.logger.Info("mcp server on stdio")
			if err := server.ServeStdio(s.mcp); err != nil {
				s.logger.Error("mcp stdio serve error", "error", err)
			}
		}()
	}

	return nil
}

// Stop implements core.Stopper.
func (s *Server) Stop(ctx context.Context) error {
	if s.http != nil {
		s.logger.Info("mcp server shutting down")
		return s.http.Shutdown(ctx)
	}
	return nil
}

// publish emits a mutation event when a broker is wired.
func (s *Server) publish(op events.Op, kind, id string) {
	if s.broker == nil {
		return
	}
	s.broker.Publish(events.Event{Op: op, Kind: kind, ID: id})
}

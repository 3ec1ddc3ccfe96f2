// Package mcp exposes convoscan analyses as Model Context Protocol tools.
//
// The server speaks MCP over stdio (github.com/modelcontextprotocol/go-sdk/mcp)
// and calls the analysis orchestrator directly.
package mcp

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/convoscan/internal/analysis"
	"github.com/fyrsmithlabs/convoscan/internal/logging"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Analyzer runs analyses. Implemented by *analysis.Orchestrator.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (*analysis.Outcome, error)
	SenderNames(text string) ([]string, error)
}

// Server is an MCP server backed by an Analyzer.
type Server struct {
	mcp      *mcp.Server
	analyzer Analyzer
	metrics  *Metrics
	logger   *logging.Logger
}

// Config configures the MCP server.
type Config struct {
	// Name is the server implementation name (default: "convoscan")
	Name string

	// Version is the server version (default: "dev")
	Version string

	Logger *logging.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "convoscan",
		Version: "dev",
		Logger:  logging.NewNop(),
	}
}

// NewServer creates a new MCP server and registers its tools.
func NewServer(cfg *Config, analyzer Analyzer) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	if analyzer == nil {
		return nil, fmt.Errorf("analyzer is required")
	}

	s := &Server{
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		analyzer: analyzer,
		metrics:  NewMetrics(cfg.Logger),
		logger:   cfg.Logger.Named("mcp"),
	}
	s.registerTools()
	return s, nil
}

// Run serves MCP on the stdio transport until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info(ctx, "starting MCP server on stdio transport")
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}

// Package mcp exposes the recommendation engine as Model Context Protocol
// tools.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/drug-reco-engine/internal/domain"
	"github.com/drug-reco-engine/internal/feedback"
)

// ServerName identifies this server to MCP clients.
const ServerName = "drug-reco-engine"

// Engine is the part of the recommendation service the tools call.
type Engine interface {
	Recommend(ctx context.Context, req domain.RecommendationRequest) (*domain.Recommendation, error)
	PatientHistory(ctx context.Context, patientID string) (*domain.PatientHistory, error)
	DiagnosisDrugStats(ctx context.Context, diagnosis string) ([]domain.DiagnosisDrugStat, error)
	DoseReference(ctx context.Context) ([]domain.DoseStat, error)
}

// Server wraps an MCP SDK server with the engine's tools registered.
type Server struct {
	mcpServer *mcp.Server
	engine    Engine
	feedback  feedback.Store
	logger    *logrus.Logger
}

// ServerOption is a functional option for Server.
type ServerOption func(*Server)

// WithFeedbackStore enables the submit_feedback tool.
func WithFeedbackStore(store feedback.Store) ServerOption {
	return func(s *Server) {
		s.feedback = store
	}
}

// NewServer creates an MCP server and registers its tools.
func NewServer(engine Engine, logger *logrus.Logger, version string, opts ...ServerOption) (*Server, error) {
	if engine == nil {
		return nil, domain.MissingCapability("engine")
	}

	s := &Server{
		engine: engine,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: version,
	}, nil)

	s.registerTools()
	return s, nil
}

// Start runs the server over stdio until ctx is cancelled or the client
// disconnects.
func (s *Server) Start(ctx context.Context) error {
	return s.Run(ctx, &mcp.StdioTransport{})
}

// Run serves one session over the given transport.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	s.logger.WithField("server", ServerName).Info("Starting MCP server")
	if err := s.mcpServer.Run(ctx, transport); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// Connect starts a session on transport without blocking.
func (s *Server) Connect(ctx context.Context, transport mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcpServer.Connect(ctx, transport, nil)
}

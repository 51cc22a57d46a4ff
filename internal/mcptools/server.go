package mcptools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewESSEMCPServer creates an MCP server with the run_ensemble and
// inspect_buffers tools registered.
func NewESSEMCPServer(svc *EnsembleService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "esse",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "run_ensemble",
		Description: "Run one error subspace estimation batch with the reference oracles. Returns the outcome (converged, size_capped or deadline_exceeded), the final ensemble size and the last (E, II) rank pair.",
	}, svc.RunEnsemble)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "inspect_buffers",
		Description: "Report the persisted covariance slots: which exist, their size, trace and symmetry, and which write buffer is newest.",
	}, svc.InspectBuffers)

	return server
}

// RunStdio runs the MCP server on stdio transport, blocking until stdin is
// closed or the context is cancelled.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

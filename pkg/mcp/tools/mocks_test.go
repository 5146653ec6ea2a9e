package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"

	"github.com/lumenbrand/lumen-engine/pkg/services"
)

// mockCopyService implements services.CopyGenerationService for testing.
type mockCopyService struct {
	calls   int
	lastOrg uuid.UUID
	lastReq services.CopyRequest
	result  *services.CopyResult
	err     error
}

func (m *mockCopyService) Generate(_ context.Context, orgID uuid.UUID, req services.CopyRequest) (*services.CopyResult, error) {
	m.calls++
	m.lastOrg, m.lastReq = orgID, req
	return m.result, m.err
}

// toolResponse is the decoded outcome of a tools/call.
type toolResponse struct {
	Text     string
	IsError  bool
	RPCError string
}

func newTestServer() *server.MCPServer {
	return server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(true))
}

// callTool runs a tools/call through the server's JSON-RPC entry point.
func callTool(t *testing.T, ctx context.Context, s *server.MCPServer, name string, args map[string]any) toolResponse {
	t.Helper()
	argBytes, err := json.Marshal(args)
	require.NoError(t, err)

	request := fmt.Sprintf(`{"jsonrpc":"2.0","method":"tools/call","params":{"name":%q,"arguments":%s},"id":1}`, name, argBytes)
	resultBytes, err := json.Marshal(s.HandleMessage(ctx, []byte(request)))
	require.NoError(t, err)

	var response struct {
		Result struct {
			IsError bool `json:"isError"`
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resultBytes, &response))

	out := toolResponse{IsError: response.Result.IsError}
	if response.Error != nil {
		out.RPCError = response.Error.Message
	}
	if len(response.Result.Content) > 0 {
		out.Text = response.Result.Content[0].Text
	}
	return out
}

// listTools returns the names of every registered tool.
func listTools(t *testing.T, s *server.MCPServer) []string {
	t.Helper()
	resultBytes, err := json.Marshal(s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","method":"tools/list","id":1}`)))
	require.NoError(t, err)

	var response struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(resultBytes, &response))

	names := make([]string, 0, len(response.Result.Tools))
	for _, tool := range response.Result.Tools {
		names = append(names, tool.Name)
	}
	return names
}

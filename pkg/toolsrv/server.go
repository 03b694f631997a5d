package toolsrv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/pco-tools/pco-mcp-server/pkg/autherr"
	"github.com/pco-tools/pco-mcp-server/pkg/gateway"
	"github.com/pco-tools/pco-mcp-server/pkg/pco"
	"github.com/pco-tools/pco-mcp-server/pkg/session"
)

// Server exposes Planning Center Services operations as MCP tools. Every
// tool call runs with the invoking session's own PCO access token, obtained
// through the gateway.
type Server struct {
	gateway  *gateway.Gateway
	loginURL string
	mcp      *server.MCPServer
}

// New creates the tool server and registers the full tool set. loginURL is
// where users are sent to authorize when a session has no credential.
func New(gw *gateway.Gateway, loginURL string) *Server {
	s := &Server{
		gateway:  gw,
		loginURL: loginURL,
		mcp: server.NewMCPServer(
			"pco-services",
			"1.0.0",
			server.WithToolCapabilities(false),
		),
	}
	s.registerServiceTools()
	s.registerTeamTools()
	s.registerSongTools()
	return s
}

// Handler returns the streamable HTTP transport for the tool server.
// contextFunc runs per request and is where the broker injects the
// resolved session ID.
func (s *Server) Handler(contextFunc server.HTTPContextFunc) http.Handler {
	return server.NewStreamableHTTPServer(s.mcp,
		server.WithHTTPContextFunc(contextFunc),
	)
}

// requireSession pulls the session ID out of the request context. A nil
// result means proceed; otherwise the caller returns the result as is.
func (s *Server) requireSession(ctx context.Context) (string, *mcp.CallToolResult) {
	sessionID, ok := session.IDFromContext(ctx)
	if !ok {
		return "", s.authRequiredResult()
	}
	return sessionID, nil
}

// authRequiredResult tells the client the user has to authorize first. The
// payload is structured so agents can surface the URL instead of guessing
// at error text.
func (s *Server) authRequiredResult() *mcp.CallToolResult {
	payload, _ := json.Marshal(map[string]string{
		"error":     "authentication_required",
		"message":   "No Planning Center authorization for this session. Open the login URL in a browser to authorize.",
		"login_url": s.loginURL,
	})
	result := mcp.NewToolResultText(string(payload))
	result.IsError = true
	return result
}

// errorResult maps gateway errors to tool results. Authentication failures
// become the structured authorize prompt; upstream API failures pass
// through with their status and body; nothing here ever includes a token.
func (s *Server) errorResult(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, autherr.ErrNoSession),
		errors.Is(err, autherr.ErrReauthRequired),
		errors.Is(err, autherr.ErrUnauthorized):
		return s.authRequiredResult()
	}

	var ue *autherr.UpstreamError
	if errors.As(err, &ue) {
		return mcp.NewToolResultError(fmt.Sprintf("Planning Center API error (status %d): %s", ue.Status, ue.Body))
	}
	return mcp.NewToolResultError(err.Error())
}

// dataResult passes the JSON:API data member through unmodified.
func dataResult(doc *pco.Document) *mcp.CallToolResult {
	if len(doc.Data) == 0 {
		return mcp.NewToolResultText("null")
	}
	return mcp.NewToolResultText(string(doc.Data))
}

func successResult(message string) *mcp.CallToolResult {
	payload, _ := json.Marshal(map[string]any{
		"success": true,
		"message": message,
	})
	return mcp.NewToolResultText(string(payload))
}

func optString(request mcp.CallToolRequest, key string) (string, bool) {
	value, ok := request.GetArguments()[key].(string)
	return value, ok && value != ""
}

func optInt(request mcp.CallToolRequest, key string) (int, bool) {
	value, ok := request.GetArguments()[key].(float64)
	return int(value), ok
}

func optBool(request mcp.CallToolRequest, key string) (bool, bool) {
	value, ok := request.GetArguments()[key].(bool)
	return value, ok
}

func stringList(request mcp.CallToolRequest, key string) ([]string, error) {
	raw, ok := request.GetArguments()[key].([]any)
	if !ok {
		return nil, fmt.Errorf("%s argument must be a list of strings", key)
	}
	list := make([]string, 0, len(raw))
	for _, item := range raw {
		value, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%s argument must be a list of strings", key)
		}
		list = append(list, value)
	}
	return list, nil
}

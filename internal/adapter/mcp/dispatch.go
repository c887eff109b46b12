package mcp

import (
	"context"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

var storeKeywords = []string{"remember", "save", "store", "note that", "keep in mind"}

var retrieveKeywords = []string{"what do", "recall", "find", "search", "do you know", "have we", "did we"}

const disambiguationMessage = "I'm not sure whether to store or recall that. Try rephrasing with a word like " +
	`"remember" to save something, or "recall"/"what do you know" to look something up.`

// classifyMemoryRequest applies the §4.8 keyword heuristic: a request
// matching a store keyword and no retrieve keyword routes to store, the
// mirror image routes to retrieve, and anything matching both or
// neither is ambiguous.
func classifyMemoryRequest(request string) string {
	lower := strings.ToLower(request)
	hasStore := containsAny(lower, storeKeywords)
	hasRetrieve := containsAny(lower, retrieveKeywords)
	switch {
	case hasStore && !hasRetrieve:
		return "store"
	case hasRetrieve && !hasStore:
		return "retrieve"
	default:
		return "ambiguous"
	}
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// handleMemory is the unified natural-language tool of §4.9: it infers
// store vs. retrieve intent from the request text and delegates to the
// corresponding handler, or returns a disambiguation prompt.
func (s *Server) handleMemory(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic
	args := req.GetArguments()
	request, ok := stringArg(args, "request")
	if !ok {
		return mcplib.NewToolResultError("request is required"), nil
	}

	switch classifyMemoryRequest(request) {
	case "store":
		agentID, _ := stringArg(args, "agent_id")
		if agentID == "" {
			agentID = "unknown-agent"
		}
		storeArgs := map[string]any{
			"agent_id": agentID,
			"content":  request,
		}
		if witnesses := stringSliceArg(args, "witnessed_by"); len(witnesses) > 0 {
			storeArgs["witnessed_by"] = witnesses
		}
		return s.handleStoreMemory(ctx, mcplib.CallToolRequest{
			Params: mcplib.CallToolParams{Name: "store_memory", Arguments: storeArgs},
		})
	case "retrieve":
		requester, _ := stringArg(args, "requesting_entity")
		if requester == "" {
			requester = "unknown-entity"
		}
		return s.handleRetrieveMemories(ctx, mcplib.CallToolRequest{
			Params: mcplib.CallToolParams{Name: "retrieve_memories", Arguments: map[string]any{
				"requesting_entity": requester,
				"query":             request,
			}},
		})
	default:
		return mcplib.NewToolResultText(disambiguationMessage), nil
	}
}

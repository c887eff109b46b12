package mcp

import (
	"context"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/engram-ai/engram/internal/domain/engram"
	"github.com/engram-ai/engram/internal/engine"
)

func (s *Server) registerTools() {
	s.mcpServer.AddTools(
		s.storeMemoryTool(),
		s.retrieveMemoriesTool(),
		s.getMemoryTool(),
		s.listRecentMemoriesTool(),
		s.getMemoryStatsTool(),
		s.memoryTool(),
	)
}

func (s *Server) storeMemoryTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("store_memory",
		mcplib.WithDescription("Store a new memory witnessed by one or more entities"),
		mcplib.WithString("agent_id", mcplib.Required(), mcplib.Description("The agent recording the memory")),
		mcplib.WithString("content", mcplib.Required(), mcplib.Description("The memory text to store")),
		mcplib.WithString("witnessed_by", mcplib.Description("Comma-separated entity IDs who witness this memory; defaults to agent_id alone")),
		mcplib.WithString("memory_type", mcplib.Description("One of fact, preference, event, solution, insight, decision, pattern, conversation")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleStoreMemory}
}

func (s *Server) retrieveMemoriesTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("retrieve_memories",
		mcplib.WithDescription("Retrieve memories similar to a query, scoped to the requesting entity's witnessed memories"),
		mcplib.WithString("requesting_entity", mcplib.Required(), mcplib.Description("The entity asking for memories")),
		mcplib.WithString("query", mcplib.Required(), mcplib.Description("Natural-language query to embed and search")),
		mcplib.WithNumber("top_k", mcplib.Description("Maximum number of memories to return, default 10")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleRetrieveMemories}
}

func (s *Server) getMemoryTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("get_memory",
		mcplib.WithDescription("Fetch a single memory by ID"),
		mcplib.WithString("memory_id", mcplib.Required(), mcplib.Description("The memory ID to fetch")),
		mcplib.WithString("requesting_entity", mcplib.Description("Entity requesting the read, for witness checking")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleGetMemory}
}

func (s *Server) listRecentMemoriesTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("list_recent_memories",
		mcplib.WithDescription("List the most recently created memories visible to an entity"),
		mcplib.WithString("requesting_entity", mcplib.Description("Entity to scope the list to; empty lists everything")),
		mcplib.WithNumber("limit", mcplib.Description("Maximum number of memories to return, default 20")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleListRecentMemories}
}

func (s *Server) getMemoryStatsTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("get_memory_stats",
		mcplib.WithDescription("Get aggregate memory statistics for an entity"),
		mcplib.WithString("entity_id", mcplib.Required(), mcplib.Description("The entity to summarize")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleGetMemoryStats}
}

func (s *Server) memoryTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("memory",
		mcplib.WithDescription("Unified natural-language memory tool: infers store vs. retrieve intent from the request text"),
		mcplib.WithString("request", mcplib.Required(), mcplib.Description("The natural-language request")),
		mcplib.WithString("agent_id", mcplib.Description("Agent ID to use if the request is a store")),
		mcplib.WithString("requesting_entity", mcplib.Description("Entity ID to use if the request is a retrieval")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleMemory}
}

func (s *Server) handleStoreMemory(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic
	if s.deps.Engine == nil || s.deps.Embedder == nil {
		return mcplib.NewToolResultError("memory engine not configured"), nil
	}
	args := req.GetArguments()
	agentID, ok := stringArg(args, "agent_id")
	if !ok {
		return mcplib.NewToolResultError("agent_id is required"), nil
	}
	content, ok := stringArg(args, "content")
	if !ok {
		return mcplib.NewToolResultError("content is required"), nil
	}
	witnesses := stringSliceArg(args, "witnessed_by")
	if len(witnesses) == 0 {
		witnesses = []string{agentID}
	}
	memType, _ := stringArg(args, "memory_type")
	if memType == "" {
		memType = string(engram.TypeConversation)
	}

	vector, err := s.deps.Embedder.Embed(ctx, content)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to embed content", err), nil
	}

	result, err := s.deps.Engine.StoreMulti(ctx, engine.StoreMultiRequest{
		WitnessedBy:   witnesses,
		SituationType: engram.SituationConversation,
		Content:       engram.Content{Text: content},
		PrimaryVector: vector,
		Metadata: engram.Metadata{
			MemoryType: engram.MemoryType(memType),
			AgentID:    agentID,
		},
	})
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to store memory", err), nil
	}
	return mcplib.NewToolResultText(fmt.Sprintf("✅ Stored memory %s", result.MemoryID)), nil
}

func (s *Server) handleRetrieveMemories(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic
	if s.deps.Engine == nil || s.deps.Embedder == nil {
		return mcplib.NewToolResultError("memory engine not configured"), nil
	}
	args := req.GetArguments()
	requester, ok := stringArg(args, "requesting_entity")
	if !ok {
		return mcplib.NewToolResultError("requesting_entity is required"), nil
	}
	query, ok := stringArg(args, "query")
	if !ok {
		return mcplib.NewToolResultError("query is required"), nil
	}

	vector, err := s.deps.Embedder.Embed(ctx, query)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to embed query", err), nil
	}

	result, err := s.deps.Engine.RetrieveMulti(ctx, engine.RetrieveMultiRequest{
		RetrieveSingleRequest: engine.RetrieveSingleRequest{
			ResonanceVectors: []engine.ResonanceVector{{Vector: vector, Weight: 1}},
			Retrieval:        engine.RetrievalOptions{TopK: intArg(args, "top_k", 10)},
		},
		RequestingEntity: requester,
	})
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to retrieve memories", err), nil
	}
	return toolResultObject(retrieveMemoriesText(result)), nil
}

func retrieveMemoriesText(result engine.RetrieveMultiResult) []map[string]any {
	out := make([]map[string]any, 0, len(result.Memories))
	for _, m := range result.Memories {
		out = append(out, map[string]any{
			"memory_id":        m.MemoryID,
			"content_preview":  engram.ContentPreview(m.Content.Text, 200),
			"similarity_score": m.SimilarityScore,
			"memory_type":      m.Metadata.MemoryType,
			"created_at":       m.CreatedAt,
		})
	}
	return out
}

func (s *Server) handleGetMemory(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic
	if s.deps.Engine == nil {
		return mcplib.NewToolResultError("memory engine not configured"), nil
	}
	args := req.GetArguments()
	memoryID, ok := stringArg(args, "memory_id")
	if !ok {
		return mcplib.NewToolResultError("memory_id is required"), nil
	}
	requester, _ := stringArg(args, "requesting_entity")

	m, err := s.deps.Engine.Get(ctx, memoryID, requester)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(fmt.Sprintf("failed to get memory %s", memoryID), err), nil
	}
	return toolResultObject(m), nil
}

func (s *Server) handleListRecentMemories(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic
	if s.deps.Engine == nil {
		return mcplib.NewToolResultError("memory engine not configured"), nil
	}
	args := req.GetArguments()
	requester, _ := stringArg(args, "requesting_entity")
	limit := intArg(args, "limit", 20)

	memories, err := s.deps.Engine.RecentMemories(ctx, requester, limit)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to list recent memories", err), nil
	}
	return toolResultObject(memories), nil
}

func (s *Server) handleGetMemoryStats(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic
	if s.deps.Engine == nil {
		return mcplib.NewToolResultError("memory engine not configured"), nil
	}
	args := req.GetArguments()
	entityID, ok := stringArg(args, "entity_id")
	if !ok {
		return mcplib.NewToolResultError("entity_id is required"), nil
	}
	stats, err := s.deps.Engine.StatsForEntity(ctx, entityID)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(fmt.Sprintf("failed to get stats for %s", entityID), err), nil
	}
	return toolResultObject(stats), nil
}

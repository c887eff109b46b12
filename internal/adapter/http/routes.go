package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/engram-ai/engram/internal/config"
	"github.com/engram-ai/engram/internal/middleware"
)

// MountRoutes registers every endpoint of §6.1's HTTP surface on r.
// mcpHandler serves the MCP JSON-RPC transport (C10) and is mounted
// under /mcp/ alongside the CAM routes since both share the same auth
// and rate-limit middleware chain.
func MountRoutes(r chi.Router, h *Handlers, mcpHandler http.Handler, authCfg config.Auth) {
	apiKeyAuth := middleware.APIKeyAuth(authCfg.APISecretKey, authCfg.Enabled)
	adminAuth := middleware.AdminBasicAuth(authCfg.AdminUsername, []byte(authCfg.AdminPasswordHash))

	r.Get("/health", h.Health)

	r.Route("/cam", func(r chi.Router) {
		r.Use(apiKeyAuth)

		r.Post("/store", h.StoreSingle)
		r.Post("/retrieve", h.RetrieveSingle)
		r.Get("/memory/{id}", h.GetMemory)
		r.Post("/memory/{id}/annotate", h.AnnotateMemory)
		r.Get("/memory/{id}/annotations", h.ListAnnotations)

		r.Route("/multi", func(r chi.Router) {
			r.Post("/store", h.StoreMulti)
			r.Post("/retrieve", h.RetrieveMulti)
			r.Get("/memory/{id}", h.GetMultiMemory)
			r.Get("/situations/{entity_id}", h.SituationsForEntity)
		})

		r.Route("/curated", func(r chi.Router) {
			r.Post("/analyze", h.AnalyzeCurated)
			r.Post("/store", h.StoreCurated)
			r.Post("/retrieve", h.RetrieveCurated)
			r.Get("/stats/{entity_id}", h.StatsForEntity)
		})
	})

	r.With(apiKeyAuth).Mount("/mcp", http.StripPrefix("/mcp", mcpHandler))

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(adminAuth, apiKeyAuth)
		r.Post("/flush/memories", h.FlushMemories)
		r.Post("/recreate/indexes", h.RecreateIndexes)
		r.Get("/status", h.AdminStatus)
	})
}

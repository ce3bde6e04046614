package http

import (
	"log/slog"
	"net/http"

	"github.com/Strob0t/ChatForge/internal/adapter/moonshot"
)

// ListTools handles GET /api/v1/tools
func (h *Handlers) ListTools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Completion.Tools())
}

// ListLLMModels handles GET /api/v1/llm/models
func (h *Handlers) ListLLMModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.LLM.ListModels(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "llm unavailable", "error", err)
		writeError(w, r, http.StatusBadGateway, "LLM service unavailable")
		return
	}
	if models == nil {
		models = []moonshot.Model{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"default": h.Completion.Model(),
		"models":  models,
	})
}

// GetVersion handles GET /api/v1/
func (h *Handlers) GetVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": h.Version})
}

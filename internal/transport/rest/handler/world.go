package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rewrz/word-soul/internal/model"
	"github.com/rewrz/word-soul/internal/service"
	"github.com/rewrz/word-soul/internal/transport/rest/middleware"
)

// WorldHandler handles world creation endpoints
type WorldHandler struct {
	worldSvc *service.WorldService
}

// NewWorldHandler creates a new world handler
func NewWorldHandler(worldSvc *service.WorldService) *WorldHandler {
	return &WorldHandler{worldSvc: worldSvc}
}

// Create handles POST /api/worlds
func (h *WorldHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req model.CreateWorldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "无效的输入")
		return
	}
	if req.WorldName == "" || req.CharacterDescription == "" || req.WorldRules == "" ||
		req.InitialScene == "" || req.NarrativePrinciples == "" {
		writeError(w, http.StatusBadRequest, "创建世界所需字段不完整")
		return
	}

	resp, err := h.worldSvc.Create(r.Context(), userID, &req)
	if err != nil {
		var invalid *service.PackValidationError
		if errors.As(err, &invalid) {
			writeErrorDetails(w, http.StatusBadRequest, "世界设定包未通过校验", strings.Join(invalid.Problems, "; "))
			return
		}
		writeError(w, http.StatusInternalServerError, "创建世界失败")
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// Assist handles POST /api/worlds/assist
func (h *WorldHandler) Assist(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req model.AssistWorldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "无效的输入")
		return
	}

	resp, err := h.worldSvc.Assist(r.Context(), userID, &req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "AI辅助生成失败，请稍后再试。")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/rewrz/word-soul/internal/model"
	"github.com/rewrz/word-soul/internal/service"
	"github.com/rewrz/word-soul/internal/transport/rest/middleware"
)

// SettingHandler handles AI config endpoints
type SettingHandler struct {
	settingSvc *service.SettingService
}

// NewSettingHandler creates a new setting handler
func NewSettingHandler(settingSvc *service.SettingService) *SettingHandler {
	return &SettingHandler{settingSvc: settingSvc}
}

// List handles GET /api/ai-configs
func (h *SettingHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	configs, err := h.settingSvc.List(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "获取AI配置失败")
		return
	}

	writeJSON(w, http.StatusOK, configs)
}

// Create handles POST /api/ai-configs
func (h *SettingHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req model.AIConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "无效的输入")
		return
	}

	id, err := h.settingSvc.Create(r.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, service.ErrConfigIncomplete) {
			writeError(w, http.StatusBadRequest, "配置名称和API类型是必填项")
			return
		}
		writeError(w, http.StatusInternalServerError, "创建AI配置失败")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"message": "AI配置创建成功", "id": id})
}

// Update handles PUT /api/ai-configs/{configId}
func (h *SettingHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	configID, ok := configIDFrom(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "无效的配置ID")
		return
	}

	var req model.AIConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "无效的输入")
		return
	}

	if err := h.settingSvc.Update(r.Context(), userID, configID, &req); err != nil {
		if errors.Is(err, service.ErrConfigNotFound) {
			writeError(w, http.StatusNotFound, "配置未找到或无权访问")
			return
		}
		writeError(w, http.StatusInternalServerError, "更新AI配置失败")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "AI配置更新成功"})
}

// Delete handles DELETE /api/ai-configs/{configId}
func (h *SettingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	configID, ok := configIDFrom(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "无效的配置ID")
		return
	}

	if err := h.settingSvc.Delete(r.Context(), userID, configID); err != nil {
		if errors.Is(err, service.ErrConfigNotFound) {
			writeError(w, http.StatusNotFound, "配置未找到或无权访问")
			return
		}
		writeError(w, http.StatusInternalServerError, "删除AI配置失败")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "AI配置删除成功"})
}

func configIDFrom(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["configId"], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

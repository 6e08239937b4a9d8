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

// SessionHandler handles game session endpoints
type SessionHandler struct {
	sessionSvc *service.SessionService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessionSvc *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionSvc: sessionSvc}
}

// List handles GET /api/sessions
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	summaries, err := h.sessionSvc.List(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "获取会话失败")
		return
	}

	writeJSON(w, http.StatusOK, summaries)
}

// Get handles GET /api/sessions/{sessionId}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	sessionID, ok := sessionIDFrom(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "无效的会话ID")
		return
	}

	detail, err := h.sessionSvc.Get(r.Context(), userID, sessionID)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "游戏会话未找到或无权访问")
			return
		}
		writeError(w, http.StatusInternalServerError, "获取会话信息失败")
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// Delete handles DELETE /api/sessions/{sessionId}
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	sessionID, ok := sessionIDFrom(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "无效的会话ID")
		return
	}

	if err := h.sessionSvc.Delete(r.Context(), userID, sessionID); err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "游戏会话未找到或无权访问")
			return
		}
		writeError(w, http.StatusInternalServerError, "删除会话失败")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "会话删除成功"})
}

// Action handles POST /api/sessions/{sessionId}/action
func (h *SessionHandler) Action(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	sessionID, ok := sessionIDFrom(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "无效的会话ID")
		return
	}

	var req model.ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Action == "" {
		writeError(w, http.StatusBadRequest, "必须提供行动指令")
		return
	}

	resp, err := h.sessionSvc.TakeAction(r.Context(), userID, sessionID, req.Action)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			writeError(w, http.StatusNotFound, "游戏会话未找到或无权访问")
		case errors.Is(err, service.ErrNarratorUnavailable), errors.Is(err, service.ErrNarratorBadOutput):
			writeError(w, http.StatusInternalServerError, "言灵失效，世界暂时没有回应。")
		case errors.Is(err, service.ErrStateCorrupted):
			writeError(w, http.StatusInternalServerError, "回合结算未通过校验，状态未提交。")
		default:
			writeError(w, http.StatusInternalServerError, "处理行动失败")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// SetAIConfig handles POST /api/sessions/{sessionId}/set-ai-config
func (h *SessionHandler) SetAIConfig(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	sessionID, ok := sessionIDFrom(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "无效的会话ID")
		return
	}

	var req model.SetAIConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "无效的输入")
		return
	}

	if err := h.sessionSvc.SetAIConfig(r.Context(), userID, sessionID, req.ConfigID); err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			writeError(w, http.StatusNotFound, "游戏会话未找到或无权访问")
		case errors.Is(err, service.ErrConfigNotFound):
			writeError(w, http.StatusNotFound, "配置未找到或无权使用")
		default:
			writeError(w, http.StatusInternalServerError, "更新AI配置失败")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "会话 " + strconv.FormatInt(sessionID, 10) + " 的AI配置已更新",
	})
}

// UpdateNarrative handles POST /api/sessions/{sessionId}/update_narrative. The
// edited state comes back so the client can confirm what was committed.
func (h *SessionHandler) UpdateNarrative(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	sessionID, ok := sessionIDFrom(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "无效的会话ID")
		return
	}

	var req model.UpdateNarrativeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Narrative == "" {
		writeError(w, http.StatusBadRequest, "必须提供新的叙事文本")
		return
	}

	session, err := h.sessionSvc.UpdateNarrative(r.Context(), userID, sessionID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			writeError(w, http.StatusNotFound, "游戏会话未找到或无权访问")
		case errors.Is(err, service.ErrBadHistoryIndex):
			writeError(w, http.StatusBadRequest, "历史记录索引超出范围")
		case errors.Is(err, service.ErrNotNarrative):
			writeError(w, http.StatusBadRequest, "只能编辑叙事者条目")
		default:
			writeError(w, http.StatusInternalServerError, "更新叙事失败")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":       "叙事已更新",
		"current_state": session.CurrentState,
	})
}

func sessionIDFrom(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["sessionId"], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

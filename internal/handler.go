package internal

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/koopa0/system-design/14-game-rooms/internal/history"
	apperrors "github.com/koopa0/system-design/14-game-rooms/pkg/errors"
)

// Handler HTTP 請求處理器：健康檢查、統計、房間與對局紀錄查詢，以及 WebSocket 入口
type Handler struct {
	coord   *Coordinator
	hub     *Hub
	history history.Recorder
	logger  *slog.Logger
}

// NewHandler 創建 HTTP 處理器；recorder 為 nil 時查詢對局紀錄返回空列表
func NewHandler(coord *Coordinator, hub *Hub, recorder history.Recorder, logger *slog.Logger) *Handler {
	if recorder == nil {
		recorder = history.NopRecorder{}
	}
	return &Handler{
		coord:   coord,
		hub:     hub,
		history: recorder,
		logger:  logger,
	}
}

// Routes 設定路由
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	wrap := func(handler http.HandlerFunc) http.HandlerFunc {
		return h.recoverer(h.loggerMiddleware(handler))
	}

	mux.HandleFunc("GET /api/v1/rooms", wrap(h.listRooms))
	mux.HandleFunc("GET /api/v1/rooms/{room_id}", wrap(h.getRoom))
	mux.HandleFunc("GET /api/v1/matches", wrap(h.listMatches))

	mux.HandleFunc("GET /health", wrap(h.health))
	mux.HandleFunc("GET /stats", wrap(h.stats))

	// 升級需要原始 ResponseWriter（Hijacker），不經過日誌中間件
	mux.HandleFunc("GET /ws", h.recoverer(h.hub.ServeWS))

	return mux
}

// parseGameParam 解析 game 查詢參數，空字串表示全部
func parseGameParam(r *http.Request) (GameType, error) {
	name := r.URL.Query().Get("game")
	if name == "" {
		return "", nil
	}
	t, ok := ParseGameType(name)
	if !ok {
		return "", apperrors.ErrUnknownGame.WithDetails(name)
	}
	return t, nil
}

// listRooms 列出房間（不含牌面等隱藏資訊）
func (h *Handler) listRooms(w http.ResponseWriter, r *http.Request) {
	t, err := parseGameParam(r)
	if err != nil {
		h.errorResponse(w, err, http.StatusBadRequest)
		return
	}

	rooms := h.coord.Registry().List(t)
	h.jsonResponse(w, map[string]any{
		"rooms": rooms,
		"total": len(rooms),
	}, http.StatusOK)
}

// getRoom 房間詳情
func (h *Handler) getRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.coord.Registry().Find(r.PathValue("room_id"))
	if err != nil {
		h.errorResponse(w, err, http.StatusNotFound)
		return
	}
	h.jsonResponse(w, room.Summary(), http.StatusOK)
}

// listMatches 最近的對局紀錄
func (h *Handler) listMatches(w http.ResponseWriter, r *http.Request) {
	t, err := parseGameParam(r)
	if err != nil {
		h.errorResponse(w, err, http.StatusBadRequest)
		return
	}

	limit := history.DefaultLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		val, err := strconv.Atoi(l)
		if err != nil {
			h.errorResponse(w, apperrors.New(apperrors.ErrCodeInvalidInput, "limit must be a number"), http.StatusBadRequest)
			return
		}
		limit = history.ClampLimit(val)
	}

	matches, err := h.history.ListRecent(r.Context(), string(t), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list matches failed", "error", err)
		h.errorResponse(w, apperrors.Wrap(err, apperrors.ErrCodeInternal, "list matches failed"), http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, map[string]any{
		"matches": matches,
		"limit":   limit,
	}, http.StatusOK)
}

// health 健康檢查
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, map[string]any{
		"status": "healthy",
		"time":   time.Now().Unix(),
	}, http.StatusOK)
}

// stats 統計資訊
func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, map[string]any{
		"rooms":       h.coord.Registry().Stats(),
		"connections": h.hub.ConnectionCount(),
	}, http.StatusOK)
}

// jsonResponse 返回 JSON 響應
func (h *Handler) jsonResponse(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("encode json failed", "error", err)
	}
}

// errorResponse 返回錯誤響應：{"error": message, "code": code}
func (h *Handler) errorResponse(w http.ResponseWriter, err error, status int) {
	body := map[string]any{
		"error": err.Error(),
		"code":  apperrors.CodeOf(err),
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		body["error"] = appErr.Message
		if appErr.Details != "" {
			body["details"] = appErr.Details
		}
	}
	h.jsonResponse(w, body, status)
}

// loggerMiddleware 日誌中間件
func (h *Handler) loggerMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next(ww, r)

		h.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.statusCode,
			"duration", time.Since(start))
	}
}

// recoverer panic 恢復中間件
func (h *Handler) recoverer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				h.logger.Error("panic while handling request",
					"error", err,
					"method", r.Method,
					"path", r.URL.Path)
				h.errorResponse(w, apperrors.New(apperrors.ErrCodeInternal, "internal server error"), http.StatusInternalServerError)
			}
		}()

		next(w, r)
	}
}

// responseWriter 包裝 ResponseWriter 以獲取狀態碼
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

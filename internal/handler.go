package internal

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// Handler HTTP 請求處理器
//
// 遊戲流量全走 WebSocket，HTTP 只留健康檢查、統計與展演模式的
// 日期覆寫端點。
type Handler struct {
	hub        *Hub
	matchmaker *Matchmaker
	engine     *GameEngine
	presence   *Presence
	demoClock  *DemoClock // nil 表示展演模式未啟用
	logger     *slog.Logger
}

// NewHandler 創建 HTTP 處理器
func NewHandler(hub *Hub, matchmaker *Matchmaker, engine *GameEngine, presence *Presence, demoClock *DemoClock, logger *slog.Logger) *Handler {
	return &Handler{
		hub:        hub,
		matchmaker: matchmaker,
		engine:     engine,
		presence:   presence,
		demoClock:  demoClock,
		logger:     logger,
	}
}

// Routes 設定路由
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	// 中間件鏈
	wrap := func(handler http.HandlerFunc) http.HandlerFunc {
		return h.recoverer(h.loggerMiddleware(handler))
	}

	mux.HandleFunc("GET /ws", h.recoverer(h.hub.ServeWS))

	// 健康檢查與統計
	mux.HandleFunc("GET /health", wrap(h.health))
	mux.HandleFunc("GET /stats", wrap(h.stats))

	// 展演模式：覆寫「今天」以便現場演示連續紀錄跨日行為
	if h.demoClock != nil {
		mux.HandleFunc("POST /demo/set_date", wrap(h.setDemoDate))
		mux.HandleFunc("POST /demo/clear_date", wrap(h.clearDemoDate))
	}

	return mux
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
	queues := map[string]int{}
	for role, n := range h.matchmaker.QueueSizes() {
		queues[string(role)] = n
	}

	h.jsonResponse(w, map[string]any{
		"connections":   h.hub.ConnectionCount(),
		"online":        h.presence.Count(),
		"waiting":       queues,
		"game_sessions": h.engine.SessionCount(),
	}, http.StatusOK)
}

type setDateRequest struct {
	Date string `json:"date"` // YYYY-MM-DD
}

// setDemoDate 覆寫展演日期
func (h *Handler) setDemoDate(w http.ResponseWriter, r *http.Request) {
	var req setDateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorResponse(w, "無效的請求格式", http.StatusBadRequest)
		return
	}

	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		h.errorResponse(w, "日期格式必須為 YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	h.demoClock.SetDate(req.Date)
	h.logger.Info("展演日期已覆寫", "date", req.Date)

	h.jsonResponse(w, map[string]any{
		"success": true,
		"today":   h.demoClock.Today(),
	}, http.StatusOK)
}

// clearDemoDate 清除展演日期覆寫
func (h *Handler) clearDemoDate(w http.ResponseWriter, r *http.Request) {
	h.demoClock.Clear()
	h.logger.Info("展演日期已清除")

	h.jsonResponse(w, map[string]any{
		"success": true,
		"today":   h.demoClock.Today(),
	}, http.StatusOK)
}

// jsonResponse 返回 JSON 響應
func (h *Handler) jsonResponse(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("編碼 JSON 失敗", "error", err)
	}
}

// errorResponse 返回錯誤響應
func (h *Handler) errorResponse(w http.ResponseWriter, message string, status int) {
	h.jsonResponse(w, map[string]any{
		"error": message,
	}, status)
}

// loggerMiddleware 日誌中間件
func (h *Handler) loggerMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// 包裝 ResponseWriter 以獲取狀態碼
		ww := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next(ww, r)

		h.logger.Info("HTTP 請求",
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
				h.logger.Error("處理請求時發生 panic",
					"error", err,
					"method", r.Method,
					"path", r.URL.Path)

				h.errorResponse(w, "內部伺服器錯誤", http.StatusInternalServerError)
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

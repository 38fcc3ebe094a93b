package interfaces

import (
	"encoding/json"
	"net/http"
	"strings"

	"promo-lottery/internal/pkg/logger"
	"promo-lottery/internal/service/lottery/application"
	"promo-lottery/internal/service/lottery/domain"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// MemberIDHeader 由上游网关在认证后写入
const MemberIDHeader = "X-Member-ID"

// LotteryHandler 封装了抽奖服务的 HTTP 处理器
type LotteryHandler struct {
	service *application.LotteryService
}

// NewLotteryHandler 创建一个新的 HTTP 处理器实例
func NewLotteryHandler(service *application.LotteryService) *LotteryHandler {
	return &LotteryHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *LotteryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/event/check", h.handleCheck)
	mux.HandleFunc("POST /api/event/save", h.handleSave)
	mux.HandleFunc("GET /api/event/history", h.handleHistory)
}

// saveRequest 是抽奖接口的请求体
type saveRequest struct {
	Draw bool `json:"draw"`
}

func (h *LotteryHandler) handleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	memberID, ok := requireMember(w, r)
	if !ok {
		return
	}

	res, err := h.service.CheckEligibility(ctx, memberID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *LotteryHandler) handleSave(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	memberID, ok := requireMember(w, r)
	if !ok {
		return
	}

	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	res, err := h.service.Attempt(ctx, memberID, req.Draw)
	if err != nil {
		writeError(w, err)
		return
	}
	// 业务拒绝也是 200，tier 为 0，message 为拒绝原因
	writeJSON(w, http.StatusOK, res)
}

func (h *LotteryHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	entries, err := h.service.ListHistory(ctx, r.URL.Query().Get("filter"))
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("History request failed")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func requireMember(w http.ResponseWriter, r *http.Request) (string, bool) {
	memberID := strings.TrimSpace(r.Header.Get(MemberIDHeader))
	if memberID == "" {
		http.Error(w, "missing "+MemberIDHeader+" header", http.StatusBadRequest)
		return "", false
	}
	return memberID, true
}

// writeError 根据错误类型返回不同的 HTTP 状态码
func writeError(w http.ResponseWriter, err error) {
	var statusCode int
	switch {
	case errors.Is(err, domain.ErrMemberNotFound):
		statusCode = http.StatusNotFound
	case errors.Is(err, application.ErrInvalidFilter):
		statusCode = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnavailable):
		statusCode = http.StatusServiceUnavailable // 可重试
	default:
		statusCode = http.StatusInternalServerError
	}
	http.Error(w, err.Error(), statusCode)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pocketshop-sync/internal/config"
	"github.com/pocketshop-sync/internal/logger"
	"github.com/pocketshop-sync/internal/models"
)

// 远端网关错误分类
var (
	// ErrUnreachable 网络不可达、超时或服务端临时故障（可重试）
	ErrUnreachable = errors.New("remote gateway unreachable")
	// ErrRejected 服务端明确拒绝（如校验失败，不可通过重试恢复）
	ErrRejected = errors.New("remote gateway rejected request")
)

// OrderLine 订单行载荷
type OrderLine struct {
	ProductID   uint         `json:"product_id"`
	ProductName string       `json:"product_name"`
	UnitPrice   models.Money `json:"unit_price"`
	Quantity    int          `json:"quantity"`
	TotalPrice  models.Money `json:"total_price"`
}

// CreateOrderRequest 订单创建载荷（同步队列条目的序列化形态）
type CreateOrderRequest struct {
	LocalID     string       `json:"local_id"`
	OwnerID     string       `json:"owner_id"`
	Lines       []OrderLine  `json:"lines"`
	TotalAmount models.Money `json:"total_amount"`
}

// RemoteOrder 服务端确认的订单
type RemoteOrder struct {
	ID               string       `json:"id"`
	LocalID          string       `json:"local_id,omitempty"`
	OwnerID          string       `json:"owner_id"`
	Status           string       `json:"status"`
	TotalAmount      models.Money `json:"total_amount"`
	CreatedAt        time.Time    `json:"created_at"`
	CourierName      string       `json:"courier_name,omitempty"`
	LastPosition     string       `json:"last_position,omitempty"`
	EstimatedArrival *time.Time   `json:"estimated_arrival,omitempty"`
	ArrivedAt        *time.Time   `json:"arrived_at,omitempty"`
}

// Gateway 远端网关接口（网络边界，调用方视为可失败协作者）
type Gateway interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*RemoteOrder, error)
	ListOrders(ctx context.Context, ownerID string) ([]RemoteOrder, error)
	Healthy(ctx context.Context) bool
}

// HTTPGateway 远端 REST 网关实现
type HTTPGateway struct {
	baseURL   string
	token     string
	probePath string
	client    *http.Client
}

// NewHTTPGateway 创建远端网关
func NewHTTPGateway(cfg config.RemoteConfig, probePath string) *HTTPGateway {
	if strings.TrimSpace(probePath) == "" {
		probePath = "/healthz"
	}
	return &HTTPGateway{
		baseURL:   strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		token:     strings.TrimSpace(cfg.Token),
		probePath: probePath,
		client:    &http.Client{Timeout: cfg.Timeout()},
	}
}

// CreateOrder 创建服务端订单
// 以本地 ID 作为幂等键，重试不会产生重复订单。
func (g *HTTPGateway) CreateOrder(ctx context.Context, req CreateOrderRequest) (*RemoteOrder, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: encode payload: %v", ErrRejected, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", req.LocalID)
	g.authorize(httpReq)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return nil, err
	}

	var remoteOrder RemoteOrder
	if err := json.NewDecoder(resp.Body).Decode(&remoteOrder); err != nil {
		// 响应损坏按临时故障处理，下一轮重试
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnreachable, err)
	}
	if remoteOrder.ID == "" {
		return nil, fmt.Errorf("%w: response missing order id", ErrUnreachable)
	}
	return &remoteOrder, nil
}

// ListOrders 获取服务端订单列表
func (g *HTTPGateway) ListOrders(ctx context.Context, ownerID string) ([]RemoteOrder, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/api/v1/orders", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	query := httpReq.URL.Query()
	query.Set("owner_id", ownerID)
	httpReq.URL.RawQuery = query.Encode()
	g.authorize(httpReq)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return nil, err
	}

	var orders []RemoteOrder
	if err := json.NewDecoder(resp.Body).Decode(&orders); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnreachable, err)
	}
	return orders, nil
}

// Healthy 健康检查（连接监测探针）
func (g *HTTPGateway) Healthy(ctx context.Context) bool {
	if g.baseURL == "" {
		return false
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodHead, g.baseURL+g.probePath, nil)
	if err != nil {
		return false
	}
	resp, err := g.client.Do(httpReq)
	if err != nil {
		logger.Debugw("remote_probe_failed", "error", err)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode < http.StatusInternalServerError
}

func (g *HTTPGateway) authorize(req *http.Request) {
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}
}

// classifyStatus 把 HTTP 状态映射到错误分类：
// 2xx 成功；408/429/5xx 临时故障；其余 4xx 为明确拒绝。
func classifyStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	snippet := readBodySnippet(resp.Body)
	if resp.StatusCode == http.StatusRequestTimeout ||
		resp.StatusCode == http.StatusTooManyRequests ||
		resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: status %d: %s", ErrUnreachable, resp.StatusCode, snippet)
	}
	return fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, snippet)
}

func readBodySnippet(body io.Reader) string {
	buf, err := io.ReadAll(io.LimitReader(body, 512))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(buf))
}

package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/astrocyte/PSOLOMON/internal/models"

	"github.com/shopspring/decimal"
)

const (
	defaultTimeout  = 15 * time.Second
	defaultPageSize = 100
)

// Config WooCommerce REST v3 网关配置
type Config struct {
	BaseURL        string // 商城站点地址，如 https://shop.example.com
	ConsumerKey    string // REST API consumer key
	ConsumerSecret string // REST API consumer secret
	Timeout        time.Duration
	PageSize       int
}

// WooClient WooCommerce REST v3 网关客户端
type WooClient struct {
	baseURL    string
	key        string
	secret     string
	pageSize   int
	httpClient *http.Client
}

// NewWooClient 创建 WooCommerce 网关客户端
func NewWooClient(cfg Config) (*WooClient, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("%w: base url is empty", ErrConfigInvalid)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 || pageSize > defaultPageSize {
		pageSize = defaultPageSize
	}
	return &WooClient{
		baseURL:    base,
		key:        strings.TrimSpace(cfg.ConsumerKey),
		secret:     strings.TrimSpace(cfg.ConsumerSecret),
		pageSize:   pageSize,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type wooCoupon struct {
	ID           int64  `json:"id"`
	Code         string `json:"code"`
	Amount       string `json:"amount"`
	DiscountType string `json:"discount_type"`
	Description  string `json:"description"`
}

type wooLineItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Total    string `json:"total"`
}

type wooCouponLine struct {
	Code string `json:"code"`
}

type wooOrder struct {
	ID          int64           `json:"id"`
	Number      string          `json:"number"`
	Status      string          `json:"status"`
	Total       string          `json:"total"`
	DateCreated string          `json:"date_created"`
	CouponLines []wooCouponLine `json:"coupon_lines"`
	LineItems   []wooLineItem   `json:"line_items"`
}

type wooError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CreateCoupon 创建优惠券，返回商城侧优惠券 ID
// 券码已存在时返回 ErrDuplicateCouponCode，由调用方换下一个候选码重试
func (c *WooClient) CreateCoupon(ctx context.Context, input CouponInput) (int64, error) {
	payload := map[string]interface{}{
		"code":          input.Code,
		"discount_type": normalizeDiscountType(input.DiscountType),
		"amount":        input.DiscountAmount.StringFixed(2),
		"description":   input.Description,
	}
	body, err := c.request(ctx, http.MethodPost, "/wp-json/wc/v3/coupons", nil, payload)
	if err != nil {
		return 0, err
	}
	var coupon wooCoupon
	if err := json.Unmarshal(body, &coupon); err != nil {
		return 0, fmt.Errorf("%w: decode coupon: %v", ErrResponseInvalid, err)
	}
	if coupon.ID == 0 {
		return 0, fmt.Errorf("%w: coupon id missing", ErrResponseInvalid)
	}
	return coupon.ID, nil
}

// GetCouponIDByCode 按券码查询优惠券 ID
// 返回 (id, found, err)；未注册的券码不视为错误
func (c *WooClient) GetCouponIDByCode(ctx context.Context, code string) (int64, bool, error) {
	query := url.Values{}
	query.Set("code", strings.TrimSpace(code))
	body, err := c.request(ctx, http.MethodGet, "/wp-json/wc/v3/coupons", query, nil)
	if err != nil {
		return 0, false, err
	}
	var coupons []wooCoupon
	if err := json.Unmarshal(body, &coupons); err != nil {
		return 0, false, fmt.Errorf("%w: decode coupons: %v", ErrResponseInvalid, err)
	}
	for _, coupon := range coupons {
		if equalFoldTrim(coupon.Code, code) {
			return coupon.ID, true, nil
		}
	}
	return 0, false, nil
}

// DisableCoupon 暂停优惠券（使用次数上限置 0，不删除）
func (c *WooClient) DisableCoupon(ctx context.Context, code string) error {
	return c.updateCouponByCode(ctx, code, map[string]interface{}{
		"usage_limit": 0,
	})
}

// EnableCoupon 恢复优惠券（清除使用次数上限）
func (c *WooClient) EnableCoupon(ctx context.Context, code string) error {
	return c.updateCouponByCode(ctx, code, map[string]interface{}{
		"usage_limit": nil,
	})
}

// UpdateCouponDiscount 调整优惠券折扣
func (c *WooClient) UpdateCouponDiscount(ctx context.Context, code, discountType string, amount decimal.Decimal) error {
	return c.updateCouponByCode(ctx, code, map[string]interface{}{
		"discount_type": normalizeDiscountType(discountType),
		"amount":        amount.StringFixed(2),
	})
}

// DeleteCoupon 永久删除优惠券
func (c *WooClient) DeleteCoupon(ctx context.Context, code string) error {
	id, found, err := c.GetCouponIDByCode(ctx, code)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrCouponNotFound, code)
	}
	query := url.Values{}
	query.Set("force", "true")
	_, err = c.request(ctx, http.MethodDelete, "/wp-json/wc/v3/coupons/"+strconv.FormatInt(id, 10), query, nil)
	return err
}

// QueryOrders 查询使用了指定优惠券的订单
// 逐页拉取直到结果不足一页，不做数量截断
func (c *WooClient) QueryOrders(ctx context.Context, statuses []string, couponCode string) ([]Order, error) {
	orders := make([]Order, 0)
	for page := 1; ; page++ {
		query := url.Values{}
		if len(statuses) > 0 {
			query.Set("status", strings.Join(statuses, ","))
		}
		query.Set("per_page", strconv.Itoa(c.pageSize))
		query.Set("page", strconv.Itoa(page))

		body, err := c.request(ctx, http.MethodGet, "/wp-json/wc/v3/orders", query, nil)
		if err != nil {
			return nil, err
		}
		var batch []wooOrder
		if err := json.Unmarshal(body, &batch); err != nil {
			return nil, fmt.Errorf("%w: decode orders: %v", ErrResponseInvalid, err)
		}

		for _, row := range batch {
			order, err := toOrder(row)
			if err != nil {
				return nil, err
			}
			if couponCode == "" || order.UsedCoupon(couponCode) {
				orders = append(orders, order)
			}
		}

		if len(batch) < c.pageSize {
			return orders, nil
		}
	}
}

func (c *WooClient) updateCouponByCode(ctx context.Context, code string, payload map[string]interface{}) error {
	id, found, err := c.GetCouponIDByCode(ctx, code)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrCouponNotFound, code)
	}
	_, err = c.request(ctx, http.MethodPut, "/wp-json/wc/v3/coupons/"+strconv.FormatInt(id, 10), nil, payload)
	return err
}

func (c *WooClient) request(ctx context.Context, method, path string, query url.Values, payload interface{}) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.key, c.secret)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrRequestFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr wooError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Code != "" {
			if strings.Contains(apiErr.Code, "coupon_code_already_exists") {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateCouponCode, apiErr.Message)
			}
			return nil, fmt.Errorf("%w: http %d: %s (%s)", ErrRequestFailed, resp.StatusCode, apiErr.Message, apiErr.Code)
		}
		return nil, fmt.Errorf("%w: http %d", ErrRequestFailed, resp.StatusCode)
	}

	return body, nil
}

func toOrder(row wooOrder) (Order, error) {
	total, err := models.NewMoneyFromString(strings.TrimSpace(row.Total))
	if err != nil {
		return Order{}, fmt.Errorf("%w: order %d total %q", ErrResponseInvalid, row.ID, row.Total)
	}

	codes := make([]string, 0, len(row.CouponLines))
	for _, line := range row.CouponLines {
		if code := strings.TrimSpace(line.Code); code != "" {
			codes = append(codes, code)
		}
	}

	items := make([]LineItem, 0, len(row.LineItems))
	for _, line := range row.LineItems {
		lineTotal, err := models.NewMoneyFromString(strings.TrimSpace(line.Total))
		if err != nil {
			lineTotal = models.Money{}
		}
		items = append(items, LineItem{
			Name:     line.Name,
			Quantity: line.Quantity,
			Total:    lineTotal,
		})
	}

	return Order{
		ID:          row.ID,
		Number:      row.Number,
		Status:      row.Status,
		Total:       total,
		CouponCodes: codes,
		CreatedAt:   parseOrderDate(row.DateCreated),
		LineItems:   items,
	}, nil
}

// parseOrderDate 解析商城返回的订单时间
// WooCommerce 默认返回站点本地时间（无时区后缀）
func parseOrderDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse("2006-01-02T15:04:05", value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Time{}
}

func normalizeDiscountType(discountType string) string {
	switch strings.ToLower(strings.TrimSpace(discountType)) {
	case "fixed_cart":
		return "fixed_cart"
	case "fixed_product":
		return "fixed_product"
	default:
		return "percent"
	}
}

func equalFoldTrim(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

package commerce

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func newTestClient(t *testing.T, handler http.Handler) (*WooClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewWooClient(Config{
		BaseURL:        server.URL,
		ConsumerKey:    "ck_test",
		ConsumerSecret: "cs_test",
		Timeout:        5 * time.Second,
		PageSize:       2,
	})
	if err != nil {
		t.Fatalf("NewWooClient failed: %v", err)
	}
	return client, server
}

func TestNewWooClientRequiresBaseURL(t *testing.T) {
	if _, err := NewWooClient(Config{}); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected config invalid error, got: %v", err)
	}
}

func TestCreateCoupon(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/wp-json/wc/v3/coupons" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "ck_test" || pass != "cs_test" {
			t.Fatalf("missing basic auth credentials")
		}
		var payload map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload failed: %v", err)
		}
		if payload["code"] != "PS-JS25" {
			t.Fatalf("unexpected coupon code: %v", payload["code"])
		}
		if payload["discount_type"] != "percent" {
			t.Fatalf("unexpected discount type: %v", payload["discount_type"])
		}
		if payload["amount"] != "10.00" {
			t.Fatalf("unexpected amount: %v", payload["amount"])
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 77, "code": "ps-js25"}`))
	}))

	id, err := client.CreateCoupon(context.Background(), CouponInput{
		Code:           "PS-JS25",
		Description:    "Affiliate coupon for Jane Smith",
		DiscountType:   "percent",
		DiscountAmount: decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("CreateCoupon failed: %v", err)
	}
	if id != 77 {
		t.Fatalf("expected coupon id 77, got %d", id)
	}
}

func TestCreateCouponDuplicateCode(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"woocommerce_rest_coupon_code_already_exists","message":"The coupon code already exists"}`))
	}))

	_, err := client.CreateCoupon(context.Background(), CouponInput{
		Code:           "PS-JS25",
		DiscountType:   "percent",
		DiscountAmount: decimal.NewFromInt(10),
	})
	if !errors.Is(err, ErrDuplicateCouponCode) {
		t.Fatalf("expected duplicate code error, got: %v", err)
	}
}

func TestGetCouponIDByCode(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("code") != "PS-JS25" {
			t.Fatalf("unexpected code query: %s", r.URL.Query().Get("code"))
		}
		// 商城端以小写存储券码
		_, _ = w.Write([]byte(`[{"id": 12, "code": "ps-js25"}]`))
	}))

	id, found, err := client.GetCouponIDByCode(context.Background(), "PS-JS25")
	if err != nil {
		t.Fatalf("GetCouponIDByCode failed: %v", err)
	}
	if !found || id != 12 {
		t.Fatalf("expected coupon 12 found, got id=%d found=%v", id, found)
	}
}

func TestGetCouponIDByCodeMissing(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))

	_, found, err := client.GetCouponIDByCode(context.Background(), "NYC-XX99")
	if err != nil {
		t.Fatalf("GetCouponIDByCode failed: %v", err)
	}
	if found {
		t.Fatalf("expected coupon not found")
	}
}

func TestDisableCouponSetsUsageLimitZero(t *testing.T) {
	var sawUpdate bool
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			_, _ = w.Write([]byte(`[{"id": 12, "code": "ps-js25"}]`))
		case r.Method == http.MethodPut && r.URL.Path == "/wp-json/wc/v3/coupons/12":
			sawUpdate = true
			var payload map[string]interface{}
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Fatalf("decode payload failed: %v", err)
			}
			limit, ok := payload["usage_limit"]
			if !ok {
				t.Fatalf("usage_limit missing from payload")
			}
			if limit != float64(0) {
				t.Fatalf("expected usage_limit 0, got %v", limit)
			}
			_, _ = w.Write([]byte(`{"id": 12}`))
		default:
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))

	if err := client.DisableCoupon(context.Background(), "PS-JS25"); err != nil {
		t.Fatalf("DisableCoupon failed: %v", err)
	}
	if !sawUpdate {
		t.Fatalf("expected coupon update request")
	}
}

func TestEnableCouponClearsUsageLimit(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(`[{"id": 12, "code": "ps-js25"}]`))
		case http.MethodPut:
			var payload map[string]interface{}
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Fatalf("decode payload failed: %v", err)
			}
			limit, ok := payload["usage_limit"]
			if !ok || limit != nil {
				t.Fatalf("expected null usage_limit, got %v (present=%v)", limit, ok)
			}
			_, _ = w.Write([]byte(`{"id": 12}`))
		}
	}))

	if err := client.EnableCoupon(context.Background(), "PS-JS25"); err != nil {
		t.Fatalf("EnableCoupon failed: %v", err)
	}
}

func TestDeleteCouponForces(t *testing.T) {
	var sawDelete bool
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(`[{"id": 9, "code": "bk-aa25"}]`))
		case http.MethodDelete:
			sawDelete = true
			if r.URL.Path != "/wp-json/wc/v3/coupons/9" {
				t.Fatalf("unexpected delete path: %s", r.URL.Path)
			}
			if r.URL.Query().Get("force") != "true" {
				t.Fatalf("expected force=true delete")
			}
			_, _ = w.Write([]byte(`{"id": 9}`))
		}
	}))

	if err := client.DeleteCoupon(context.Background(), "BK-AA25"); err != nil {
		t.Fatalf("DeleteCoupon failed: %v", err)
	}
	if !sawDelete {
		t.Fatalf("expected delete request")
	}
}

func TestQueryOrdersPaginatesAndFilters(t *testing.T) {
	pages := map[string]string{
		"1": `[
			{"id": 1, "number": "1001", "status": "completed", "total": "500.00",
			 "date_created": "2025-03-01T10:00:00",
			 "coupon_lines": [{"code": "ps-js25"}],
			 "line_items": [{"name": "Widget", "quantity": 2, "total": "500.00"}]},
			{"id": 2, "number": "1002", "status": "processing", "total": "120.00",
			 "date_created": "2025-03-02T11:30:00",
			 "coupon_lines": [{"code": "other"}], "line_items": []}
		]`,
		"2": `[
			{"id": 3, "number": "1003", "status": "completed", "total": "80.00",
			 "date_created": "2025-03-03T09:15:00",
			 "coupon_lines": [{"code": "PS-JS25"}], "line_items": []}
		]`,
	}
	var statusParams []string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wp-json/wc/v3/orders" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		statusParams = append(statusParams, r.URL.Query().Get("status"))
		body, ok := pages[r.URL.Query().Get("page")]
		if !ok {
			body = `[]`
		}
		_, _ = w.Write([]byte(body))
	}))

	orders, err := client.QueryOrders(context.Background(), []string{"completed", "processing"}, "PS-JS25")
	if err != nil {
		t.Fatalf("QueryOrders failed: %v", err)
	}
	// 第二页不满一页，分页应在两次请求后停止
	if len(statusParams) != 2 {
		t.Fatalf("expected 2 page requests, got %d", len(statusParams))
	}
	if statusParams[0] != "completed,processing" {
		t.Fatalf("unexpected status param: %s", statusParams[0])
	}
	if len(orders) != 2 {
		t.Fatalf("expected 2 matched orders, got %d", len(orders))
	}
	if orders[0].ID != 1 || orders[1].ID != 3 {
		t.Fatalf("unexpected order ids: %d, %d", orders[0].ID, orders[1].ID)
	}
	if orders[0].Total.String() != "500.00" {
		t.Fatalf("unexpected order total: %s", orders[0].Total.String())
	}
	if len(orders[0].LineItems) != 1 || orders[0].LineItems[0].Name != "Widget" {
		t.Fatalf("unexpected line items: %+v", orders[0].LineItems)
	}
	if orders[0].CreatedAt.IsZero() {
		t.Fatalf("order date should parse")
	}
}

func TestQueryOrdersHonorsContext(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`[]`))
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := client.QueryOrders(ctx, []string{"completed"}, "PS-JS25"); err == nil {
		t.Fatalf("expected context deadline error")
	}
}

func TestGetCouponIDByCodePicksExactMatch(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 商城按前缀模糊匹配返回多条，需要精确比对命中项
		_, _ = w.Write([]byte(`[{"id": 9, "code": "ps-js25-1"}, {"id": 12, "code": "ps-js25"}]`))
	}))

	id, found, err := client.GetCouponIDByCode(context.Background(), "PS-JS25")
	if err != nil {
		t.Fatalf("GetCouponIDByCode failed: %v", err)
	}
	if !found || id != 12 {
		t.Fatalf("expected exact match id 12, got id=%d found=%v", id, found)
	}
}

func TestDeleteCouponMissing(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))

	if err := client.DeleteCoupon(context.Background(), "GHOST-99"); !errors.Is(err, ErrCouponNotFound) {
		t.Fatalf("expected coupon not found error, got: %v", err)
	}
}

func TestParseOrderDate(t *testing.T) {
	if got := parseOrderDate("2025-03-01T10:00:00"); !got.Equal(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected site-local parse: %v", got)
	}
	if got := parseOrderDate("2025-03-01T10:00:00Z"); !got.Equal(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected rfc3339 parse: %v", got)
	}
	if got := parseOrderDate(""); !got.IsZero() {
		t.Fatalf("expected zero time for empty input, got %v", got)
	}
}

func TestOrderUsedCoupon(t *testing.T) {
	order := Order{CouponCodes: []string{" ps-js25 "}}
	if !order.UsedCoupon("PS-JS25") {
		t.Fatalf("expected case-insensitive coupon match")
	}
	if order.UsedCoupon("NYC-JS25") {
		t.Fatalf("expected no match for other code")
	}
}

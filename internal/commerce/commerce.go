package commerce

import (
	"context"
	"errors"
	"time"

	"github.com/astrocyte/PSOLOMON/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrConfigInvalid       = errors.New("commerce config invalid")
	ErrRequestFailed       = errors.New("commerce request failed")
	ErrResponseInvalid     = errors.New("commerce response invalid")
	ErrCouponNotFound      = errors.New("commerce coupon not found")
	ErrDuplicateCouponCode = errors.New("commerce coupon code already exists")
)

// CouponInput 创建优惠券参数
type CouponInput struct {
	Code           string
	Description    string
	DiscountType   string
	DiscountAmount decimal.Decimal
}

// LineItem 订单行条目
type LineItem struct {
	Name     string       `json:"name"`
	Quantity int          `json:"quantity"`
	Total    models.Money `json:"total"`
}

// Order 商城订单只读视图
type Order struct {
	ID          int64        `json:"id"`
	Number      string       `json:"number"`
	Status      string       `json:"status"`
	Total       models.Money `json:"total"`
	CouponCodes []string     `json:"coupon_codes"`
	CreatedAt   time.Time    `json:"created_at"`
	LineItems   []LineItem   `json:"line_items"`
}

// UsedCoupon 判断订单是否使用了指定优惠券
// 商城端会将券码归一为小写存储，这里按不区分大小写匹配
func (o Order) UsedCoupon(code string) bool {
	for _, used := range o.CouponCodes {
		if equalFoldTrim(used, code) {
			return true
		}
	}
	return false
}

// Gateway 商城网关接口
// 优惠券与订单归商城系统所有，引擎只调用、不落库
type Gateway interface {
	CreateCoupon(ctx context.Context, input CouponInput) (int64, error)
	GetCouponIDByCode(ctx context.Context, code string) (int64, bool, error)
	DisableCoupon(ctx context.Context, code string) error
	EnableCoupon(ctx context.Context, code string) error
	DeleteCoupon(ctx context.Context, code string) error
	UpdateCouponDiscount(ctx context.Context, code, discountType string, amount decimal.Decimal) error
	QueryOrders(ctx context.Context, statuses []string, couponCode string) ([]Order, error)
}

package models

import (
	"database/sql/driver"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Money 金额类型，出入口都只保留两位小数
type Money struct {
	decimal.Decimal
}

// canonical 所有出口统一过一次两位小数舍入
func (m Money) canonical() decimal.Decimal {
	return m.Decimal.Round(2)
}

// NewMoneyFromDecimal 由 decimal 构造金额
func NewMoneyFromDecimal(amount decimal.Decimal) Money {
	return Money{Decimal: amount.Round(2)}
}

// NewMoneyFromString 由字符串构造金额（商城接口返回的金额均为字符串）
func NewMoneyFromString(amount string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, err
	}
	return NewMoneyFromDecimal(d), nil
}

// Add 金额相加
func (m Money) Add(other Money) Money {
	return NewMoneyFromDecimal(m.Decimal.Add(other.Decimal))
}

// Sub 金额相减
func (m Money) Sub(other Money) Money {
	return NewMoneyFromDecimal(m.Decimal.Sub(other.Decimal))
}

// ApplyRate 按百分比比例计算金额（rate 为 0-100 的百分数）
func (m Money) ApplyRate(rate decimal.Decimal) Money {
	return NewMoneyFromDecimal(m.Decimal.Mul(rate).Div(decimal.NewFromInt(100)))
}

// IsNegative 判断金额是否为负
func (m Money) IsNegative() bool {
	return m.Decimal.IsNegative()
}

// MarshalJSON 固定输出两位小数的字符串
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.canonical().StringFixed(2))
}

// UnmarshalJSON 解析金额，字符串与数字两种形式都接受
func (m *Money) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(string(b), `"`)
	if raw == "" || raw == "null" {
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return err
	}
	m.Decimal = d.Round(2)
	return nil
}

// Value 数据库写入
func (m Money) Value() (driver.Value, error) {
	return m.canonical().Value()
}

// Scan 数据库读取
func (m *Money) Scan(value interface{}) error {
	if err := m.Decimal.Scan(value); err != nil {
		return err
	}
	m.Decimal = m.canonical()
	return nil
}

func (m Money) String() string {
	return m.canonical().StringFixed(2)
}

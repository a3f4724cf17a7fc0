package service

import (
	"fmt"
	"strings"
	"unicode"
)

// couponPrefixes 候选前缀按优先级排列，PS 打头，其余为行政区缩写
var couponPrefixes = []string{"PS", "NYC", "BK", "BX", "QN", "SI"}

const couponNumericSuffixMax = 99

// CouponCodeCandidates 生成候选券码序列
// 依次为 前缀-首字母年份、PS-首字母年份-序号，最后回退 PS-推广伙伴编号
func CouponCodeCandidates(affiliateID, firstName, lastName string, year int) []string {
	base := nameInitials(firstName, lastName) + fmt.Sprintf("%02d", year%100)
	candidates := make([]string, 0, len(couponPrefixes)+couponNumericSuffixMax+1)
	for _, prefix := range couponPrefixes {
		candidates = append(candidates, prefix+"-"+base)
	}
	for n := 1; n <= couponNumericSuffixMax; n++ {
		candidates = append(candidates, fmt.Sprintf("PS-%s-%d", base, n))
	}
	candidates = append(candidates, "PS-"+stripNonAlphanumeric(affiliateID))
	return candidates
}

func nameInitials(firstName, lastName string) string {
	return firstRuneUpper(firstName) + firstRuneUpper(lastName)
}

func firstRuneUpper(name string) string {
	for _, r := range strings.TrimSpace(name) {
		return strings.ToUpper(string(r))
	}
	return ""
}

func stripNonAlphanumeric(value string) string {
	var builder strings.Builder
	for _, r := range value {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			builder.WriteRune(r)
		}
	}
	return builder.String()
}

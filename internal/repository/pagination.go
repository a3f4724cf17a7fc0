package repository

import "gorm.io/gorm"

// applyPagination 应用分页参数。
// pageSize 不大于 0 时视为不分页，页码从 1 起算。
func applyPagination(query *gorm.DB, page, pageSize int) *gorm.DB {
	if query == nil || pageSize <= 0 {
		return query
	}
	offset := 0
	if page > 1 {
		offset = (page - 1) * pageSize
	}
	return query.Limit(pageSize).Offset(offset)
}

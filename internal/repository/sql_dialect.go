package repository

import (
	"strings"

	"gorm.io/gorm"
)

// dbDialectName 取数据库方言名，拿不到时按 sqlite 处理。
func dbDialectName(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return "sqlite"
	}
	if name := strings.ToLower(strings.TrimSpace(db.Dialector.Name())); name != "" {
		return name
	}
	return "sqlite"
}

// keywordMatchOperator sqlite 的 LIKE 对 ASCII 不区分大小写，
// postgres 需要 ILIKE 才能保持一致行为。
func keywordMatchOperator(dialect string) string {
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "postgres", "postgresql":
		return "ILIKE"
	}
	return "LIKE"
}

// buildKeywordLikeCondition 构建多列关键字模糊匹配条件，并返回参数数量。
func buildKeywordLikeCondition(db *gorm.DB, columns []string) (string, int) {
	return buildKeywordLikeConditionByDialect(dbDialectName(db), columns)
}

func buildKeywordLikeConditionByDialect(dialect string, columns []string) (string, int) {
	operator := keywordMatchOperator(dialect)
	var parts []string
	for _, column := range columns {
		if column = strings.TrimSpace(column); column != "" {
			parts = append(parts, column+" "+operator+" ?")
		}
	}
	return strings.Join(parts, " OR "), len(parts)
}

// repeatLikeArgs 把同一个 LIKE 参数复制 count 份。
func repeatLikeArgs(like string, count int) []interface{} {
	args := make([]interface{}, count)
	for i := range args {
		args[i] = like
	}
	return args
}

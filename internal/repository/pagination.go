package repository

import "gorm.io/gorm"

// maxPageSize 仓储层兜底上限，接口层的归一化在此之外再挡一道
const maxPageSize = 500

// applyPagination 应用分页参数，统一处理非法页码、偏移量与页大小上限。
func applyPagination(query *gorm.DB, page, pageSize int) *gorm.DB {
	if query == nil || pageSize <= 0 {
		return query
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize
	if offset < 0 {
		offset = 0
	}
	return query.Limit(pageSize).Offset(offset)
}

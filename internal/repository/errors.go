package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// translateNotFound 将 gorm.ErrRecordNotFound 转换为业务层的 NotFound
func translateNotFound(err, notFound error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return err
}

// isDuplicateKey 兼容未开启 TranslateError 的连接
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "duplicate key value")
}

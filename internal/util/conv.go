package util

import (
	"math"
	"strconv"
)

// MustParseUint 将字符串转换为无符号整数，解析失败时返回 0
func MustParseUint(s string) uint {
	id, _ := strconv.ParseUint(s, 10, 32)
	return uint(id)
}

// ParseLimit 解析分页大小，非法值回退为默认值
func ParseLimit(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return DefaultPageLimit
	}
	if v > MaxPageLimit {
		return MaxPageLimit
	}
	return v
}

// Round2 保留两位小数
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

package utils

import "strings"

// NormalizeEmail 去空白 + 小写；唯一性按归一化后的值判断
func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

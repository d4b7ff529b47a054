package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewID 生成 32 位无横线 ID（与 users.id varchar(32) 对齐）
func NewID() string { return strings.ReplaceAll(uuid.NewString(), "-", "") }

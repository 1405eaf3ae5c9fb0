package biz

import (
	"context"
	"time"
)

// Activity 操作日志
type Activity struct {
	ID         string
	Action     string
	EntityType string
	EntityID   string
	UserID     string
	Details    map[string]any
	CreatedAt  time.Time
}

// ActivityRepo 操作日志仓库接口
type ActivityRepo interface {
	Record(ctx context.Context, a *Activity) error
}

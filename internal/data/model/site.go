package model

import (
	"time"

	"gorm.io/datatypes"
)

// SiteSetting 店铺设置，value 为 JSON
type SiteSetting struct {
	ID        string         `gorm:"primaryKey;type:varchar(36);column:id"`
	Key       string         `gorm:"uniqueIndex;type:varchar(64);not null;column:key"`
	Value     datatypes.JSON `gorm:"not null;column:value"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime;column:updated_at"`
}

func (SiteSetting) TableName() string { return "site_settings" }

// ActivityLog 操作日志
type ActivityLog struct {
	ID         string                             `gorm:"primaryKey;type:varchar(36);column:id"`
	Action     string                             `gorm:"index;type:varchar(64);not null;column:action"`
	EntityType *string                            `gorm:"type:varchar(32);column:entity_type"`
	EntityID   *string                            `gorm:"type:varchar(36);column:entity_id"`
	UserID     *string                            `gorm:"type:varchar(36);column:user_id"`
	Details    datatypes.JSONType[map[string]any] `gorm:"column:details"`
	CreatedAt  time.Time                          `gorm:"index;autoCreateTime;column:created_at"`
}

func (ActivityLog) TableName() string { return "activity_log" }

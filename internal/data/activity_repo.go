package data

import (
	"context"
	"fmt"

	"github.com/elakshat/mystamoura-e-commerce-launch/internal/biz"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type activityRepo struct {
	data *Data
	log  *log.Helper
}

// NewActivityRepo 创建操作日志仓库
func NewActivityRepo(data *Data, logger log.Logger) biz.ActivityRepo {
	return &activityRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// Record 写入操作日志，未配置数据库时只打日志
func (r *activityRepo) Record(ctx context.Context, a *biz.Activity) error {
	if !r.data.Enabled() {
		r.log.Infof("activity %s %s/%s (not persisted)", a.Action, a.EntityType, a.EntityID)
		return nil
	}
	details := a.Details
	if details == nil {
		details = map[string]any{}
	}
	m := &model.ActivityLog{
		ID:         uuid.NewString(),
		Action:     a.Action,
		EntityType: model.StringPtr(a.EntityType),
		EntityID:   model.StringPtr(a.EntityID),
		UserID:     model.StringPtr(a.UserID),
		Details:    datatypes.NewJSONType(details),
	}
	if err := r.data.DB(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("record activity %s: %w", a.Action, err)
	}
	a.ID = m.ID
	a.CreatedAt = m.CreatedAt
	return nil
}

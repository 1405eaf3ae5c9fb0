package data

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/elakshat/mystamoura-e-commerce-launch/internal/biz"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

type couponRepo struct {
	data *Data
	log  *log.Helper
}

// NewCouponRepo 创建优惠券仓库
func NewCouponRepo(data *Data, logger log.Logger) biz.CouponRepo {
	return &couponRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// FindByCode 按券码查询 (不区分大小写)，不存在返回 nil
func (r *couponRepo) FindByCode(ctx context.Context, code string) (*biz.Coupon, error) {
	if !r.data.Enabled() {
		return nil, nil
	}
	var m model.Coupon
	err := r.data.DB(ctx).Where("UPPER(code) = ?", strings.ToUpper(strings.TrimSpace(code))).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find coupon: %w", err)
	}
	c := &biz.Coupon{
		ID:            m.ID,
		Code:          m.Code,
		DiscountType:  m.DiscountType,
		DiscountValue: m.DiscountValue,
		MaxUses:       m.MaxUses,
		UsedCount:     m.UsedCount,
		Active:        m.IsActive == nil || *m.IsActive,
		ExpiresAt:     m.ExpiresAt,
	}
	if m.MinOrderAmount.Valid {
		c.MinOrderAmount = m.MinOrderAmount.Decimal
	}
	return c, nil
}

// IncrementUsage 原子递增使用次数
func (r *couponRepo) IncrementUsage(ctx context.Context, id string) error {
	if !r.data.Enabled() {
		return nil
	}
	err := r.data.DB(ctx).Model(&model.Coupon{}).
		Where("id = ?", id).
		UpdateColumn("used_count", gorm.Expr("used_count + ?", 1)).Error
	if err != nil {
		return fmt.Errorf("increment coupon %s usage: %w", id, err)
	}
	return nil
}

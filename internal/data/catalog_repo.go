package data

import (
	"context"
	"fmt"

	"github.com/elakshat/mystamoura-e-commerce-launch/internal/biz"
	"github.com/elakshat/mystamoura-e-commerce-launch/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
)

type catalogRepo struct {
	data *Data
	log  *log.Helper
}

// NewCatalogRepo 创建商品目录读仓库
func NewCatalogRepo(data *Data, logger log.Logger) biz.CatalogRepo {
	return &catalogRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

func (r *catalogRepo) Enabled() bool {
	return r.data.Enabled()
}

func (r *catalogRepo) FindProducts(ctx context.Context, ids []string) (map[string]*biz.Product, error) {
	out := make(map[string]*biz.Product, len(ids))
	if len(ids) == 0 || !r.data.Enabled() {
		return out, nil
	}
	var ms []model.Product
	if err := r.data.DB(ctx).Where("id IN ?", ids).Find(&ms).Error; err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	for _, m := range ms {
		out[m.ID] = &biz.Product{
			ID:        m.ID,
			Name:      m.Name,
			SKU:       model.StringVal(m.SKU),
			Price:     m.Price,
			SalePrice: m.SalePrice,
			Visible:   visible(m.IsVisible),
		}
	}
	return out, nil
}

func (r *catalogRepo) FindVariants(ctx context.Context, ids []string) (map[string]*biz.ProductVariant, error) {
	out := make(map[string]*biz.ProductVariant, len(ids))
	if len(ids) == 0 || !r.data.Enabled() {
		return out, nil
	}
	var ms []model.ProductVariant
	if err := r.data.DB(ctx).Where("id IN ?", ids).Find(&ms).Error; err != nil {
		return nil, fmt.Errorf("find variants: %w", err)
	}
	for _, m := range ms {
		out[m.ID] = &biz.ProductVariant{
			ID:        m.ID,
			ProductID: m.ProductID,
			Size:      m.Size,
			SKU:       model.StringVal(m.SKU),
			Price:     m.Price,
			SalePrice: m.SalePrice,
			Visible:   visible(m.IsVisible),
		}
	}
	return out, nil
}

// visible treats a NULL flag as visible.
func visible(flag *bool) bool {
	return flag == nil || *flag
}

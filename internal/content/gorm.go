package content

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// GormResolver resolves host objects stored in a gorm table keyed by primary key.
// T must be a struct type whose pointer implements Object.
func GormResolver[T any, PT interface {
	*T
	Object
}](db *gorm.DB) Resolver {
	return ResolverFunc(func(ctx context.Context, id string) (Object, error) {
		var obj T
		if err := db.WithContext(ctx).Where("id = ?", id).First(&obj).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrObjectNotFound
			}
			return nil, err
		}
		return PT(&obj), nil
	})
}

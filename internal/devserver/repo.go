package devserver

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/bookstore/internal/models"
	"github.com/Skotchmaster/bookstore/pkg/hash"
)

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUserAlreadyExist    = errors.New("user already exist")
	ErrInvalidRefreshToken = errors.New("refresh token expired or revoked")
)

type GormRepo struct {
	DB *gorm.DB
}

func Migrate(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.RefreshToken{},
		&models.Category{},
		&models.Product{},
		&models.Review{},
	)
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func (r *GormRepo) UserByCredentials(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive || !hash.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

func (r *GormRepo) CreateUserIfNotExists(ctx context.Context, u *models.User) error {
	tx := r.DB.WithContext(ctx).Where("email = ?", u.Email).FirstOrCreate(u)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrUserAlreadyExist
	}
	return nil
}

func (r *GormRepo) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) Users(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.DB.WithContext(ctx).Order("id ASC").Find(&users).Error
	return users, err
}

func (r *GormRepo) RoleByName(ctx context.Context, name string) (*models.Role, error) {
	var role models.Role
	if err := r.DB.WithContext(ctx).Where("name = ?", name).First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *GormRepo) Roles(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	if err := r.DB.WithContext(ctx).Order("id ASC").Find(&roles).Error; err != nil {
		return nil, err
	}
	for i := range roles {
		if err := r.DB.WithContext(ctx).Model(&models.User{}).Where("role = ?", roles[i].Name).Count(&roles[i].UserCount).Error; err != nil {
			return nil, err
		}
	}
	return roles, nil
}

func (r *GormRepo) AddRefreshToken(ctx context.Context, token models.RefreshToken) error {
	return r.DB.WithContext(ctx).Create(&token).Error
}

func refreshExpiredOrRevoked(tx *gorm.DB, jti string, now time.Time) (*models.RefreshToken, error) {
	var refresh models.RefreshToken
	if err := tx.Where("jti = ?", jti).First(&refresh).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	if refresh.Revoked || refresh.ExpiresAt.Before(now) {
		return nil, ErrInvalidRefreshToken
	}
	return &refresh, nil
}

// RotateRefreshToken revokes oldJTI and stores next in one transaction. The
// old token must match rawOld, be unrevoked and unexpired.
func (r *GormRepo) RotateRefreshToken(ctx context.Context, oldJTI, rawOld string, next models.RefreshToken, now time.Time) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		old, err := refreshExpiredOrRevoked(tx, oldJTI, now)
		if err != nil {
			return err
		}
		if old.TokenHash != sha256Hex(rawOld) || old.UserID != next.UserID {
			return ErrInvalidRefreshToken
		}

		res := tx.Model(&models.RefreshToken{}).
			Where("jti = ? AND revoked = ?", oldJTI, false).
			Update("revoked", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidRefreshToken
		}

		return tx.Create(&next).Error
	})
}

func (r *GormRepo) Categories(ctx context.Context) ([]models.Category, error) {
	var cats []models.Category
	if err := r.DB.WithContext(ctx).Order("id ASC").Find(&cats).Error; err != nil {
		return nil, err
	}
	for i := range cats {
		if err := r.DB.WithContext(ctx).Model(&models.Product{}).Where("category_id = ?", cats[i].ID).Count(&cats[i].ProductCount).Error; err != nil {
			return nil, err
		}
	}
	return cats, nil
}

func (r *GormRepo) Category(ctx context.Context, id uint) (*models.Category, error) {
	var cat models.Category
	if err := r.DB.WithContext(ctx).First(&cat, id).Error; err != nil {
		return nil, err
	}
	return &cat, nil
}

func (r *GormRepo) Products(ctx context.Context, offset, limit int) (int64, []models.Product, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Product{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var items []models.Product
	if err := r.DB.WithContext(ctx).Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) ProductsWhere(ctx context.Context, query string, args ...any) ([]models.Product, error) {
	var items []models.Product
	err := r.DB.WithContext(ctx).Where(query, args...).Order("id ASC").Find(&items).Error
	return items, err
}

func (r *GormRepo) Product(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := r.DB.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	if cat, err := r.Category(ctx, p.CategoryID); err == nil {
		p.CategoryName = cat.Name
	}

	var avg struct{ Avg float64 }
	if err := r.DB.WithContext(ctx).Model(&models.Review{}).Select("COALESCE(AVG(rating), 0) AS avg").Where("product_id = ?", id).Scan(&avg).Error; err != nil {
		return nil, err
	}
	p.AverageRating = avg.Avg
	return &p, nil
}

func (r *GormRepo) Reviews(ctx context.Context, productID uint) ([]models.Review, error) {
	var reviews []models.Review
	err := r.DB.WithContext(ctx).Where("product_id = ?", productID).Order("id ASC").Find(&reviews).Error
	return reviews, err
}

package devserver

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Skotchmaster/bookstore/internal/models"
	"github.com/Skotchmaster/bookstore/pkg/hash"
	"github.com/Skotchmaster/bookstore/pkg/tokens"
)

// SeedAdmin is the account created by Seed when AdminPassword is set.
type SeedAdmin struct {
	Email    string
	Password string
}

// Seed fills an empty database with roles, a small catalog and optionally an
// admin account. Existing rows are left alone.
func Seed(ctx context.Context, db *gorm.DB, admin *SeedAdmin) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, r := range []models.Role{
			{Name: tokens.RoleAdmin, Description: "Full access to the dashboard"},
			{Name: RoleUser, Description: "Storefront customer"},
		} {
			if err := tx.Where("name = ?", r.Name).FirstOrCreate(&r).Error; err != nil {
				return fmt.Errorf("seed role %s: %w", r.Name, err)
			}
		}

		var count int64
		if err := tx.Model(&models.Category{}).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			fiction := models.Category{Name: "Fiction", Description: "Novels and short stories"}
			science := models.Category{Name: "Science", Description: "Popular science"}
			if err := tx.Create(&fiction).Error; err != nil {
				return err
			}
			if err := tx.Create(&science).Error; err != nil {
				return err
			}

			products := []models.Product{
				{Name: "Dune", Author: "Frank Herbert", Description: "Desert planet epic", Price: 9.99, Stock: 12, Featured: true, CategoryID: fiction.ID},
				{Name: "Emma", Author: "Jane Austen", Description: "A comedy of manners", Price: 6.5, Stock: 4, CategoryID: fiction.ID},
				{Name: "Cosmos", Author: "Carl Sagan", Description: "A personal voyage", Price: 14.25, Stock: 7, Featured: true, CategoryID: science.ID},
			}
			if err := tx.Create(&products).Error; err != nil {
				return err
			}
		}

		if admin == nil || admin.Password == "" {
			return nil
		}
		var existing models.User
		err := tx.Where("email = ?", admin.Email).First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		pw, err := hash.HashPassword(admin.Password)
		if err != nil {
			return err
		}
		var role models.Role
		if err := tx.Where("name = ?", tokens.RoleAdmin).First(&role).Error; err != nil {
			return err
		}
		return tx.Create(&models.User{
			Email:        admin.Email,
			PasswordHash: pw,
			FirstName:    "Store",
			LastName:     "Admin",
			Role:         tokens.RoleAdmin,
			RoleID:       role.ID,
			IsActive:     true,
		}).Error
	})
}

package models

import (
	"time"
)

type Category struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string    `gorm:"unique;not null"          json:"name"`
	Description  string    `json:"description"`
	ProductCount int64     `gorm:"-"                        json:"productCount,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Product struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string    `gorm:"not null"                 json:"name"`
	Description   string    `gorm:"not null"                 json:"description"`
	Author        string    `json:"author,omitempty"`
	Price         float64   `gorm:"not null"                 json:"price"`
	Stock         uint      `json:"stock"`
	ImageURL      string    `json:"imageUrl,omitempty"`
	Featured      bool      `gorm:"index"                    json:"featured"`
	CategoryID    uint      `gorm:"index"                    json:"categoryId"`
	CategoryName  string    `gorm:"-"                        json:"categoryName,omitempty"`
	AverageRating float64   `gorm:"-"                        json:"averageRating,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type Review struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID uint      `gorm:"index;not null"           json:"productId"`
	UserID    uint      `gorm:"index;not null"           json:"userId"`
	UserName  string    `json:"userName,omitempty"`
	Rating    int       `gorm:"not null;check:rating >= 1 AND rating <= 5" json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProductDetails is a product together with its reviews.
type ProductDetails struct {
	Product
	Reviews []Review `json:"reviews"`
}

type Role struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"unique;not null"          json:"name"`
	Description string    `json:"description"`
	UserCount   int64     `gorm:"-"                        json:"userCount,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string `gorm:"unique;not null"          json:"email"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	PhoneNumber  string `json:"phoneNumber,omitempty"`
	RoleID       uint   `json:"roleId,omitempty"`
	Role         string `gorm:"not null"                 json:"roleName"`
	IsActive     bool   `gorm:"default:true"             json:"isActive"`
}

// RefreshToken tracks an issued refresh token by its JTI. Only a hash of the
// token itself is stored.
type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"      json:"id"`
	JTI       string    `gorm:"unique;not null" json:"jti"`
	TokenHash string    `gorm:"not null"        json:"-"`
	UserID    uint      `gorm:"index;not null"  json:"user_id"`
	ExpiresAt time.Time `gorm:"not null"        json:"expires_at"`
	Revoked   bool      `gorm:"default:false"   json:"revoked"`
}

type PageMeta struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
	HasPrev    bool  `json:"has_prev"`
	HasNext    bool  `json:"has_next"`
}

type Page[T any] struct {
	Data []T      `json:"data"`
	Meta PageMeta `json:"meta"`
}

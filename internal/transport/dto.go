package transport

import (
	"github.com/Skotchmaster/bookstore/internal/credstore"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	PhoneNumber     string `json:"phoneNumber"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"-"`
}

// AuthResponse is the body of login, register and refresh responses.
type AuthResponse = credstore.Credential

type CategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type ProductRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Author      string  `json:"author,omitempty"`
	Price       float64 `json:"price"`
	Stock       uint    `json:"stock"`
	ImageURL    string  `json:"imageUrl,omitempty"`
	Featured    bool    `json:"featured"`
	CategoryID  uint    `json:"categoryId"`
}

type ReviewRequest struct {
	ProductID uint   `json:"productId"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

type RoleRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type UpdateUserRequest struct {
	FirstName   *string `json:"firstName,omitempty"`
	LastName    *string `json:"lastName,omitempty"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
	RoleID      *uint   `json:"roleId,omitempty"`
	IsActive    *bool   `json:"isActive,omitempty"`
}

package api

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Skotchmaster/bookstore/internal/transport"
)

var ErrValidation = errors.New("validation failed")

const MinPasswordLength = 6

var (
	emailRe = regexp.MustCompile(`^\S+@\S+\.\S+$`)
	phoneRe = regexp.MustCompile(`^[0-9]{10,11}$`)
)

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

func validateLogin(req transport.LoginRequest) error {
	if strings.TrimSpace(req.Email) == "" {
		return invalid("email is required")
	}
	if req.Password == "" {
		return invalid("password is required")
	}
	return nil
}

func validateRegister(req transport.RegisterRequest) error {
	switch {
	case strings.TrimSpace(req.FirstName) == "":
		return invalid("first name is required")
	case strings.TrimSpace(req.LastName) == "":
		return invalid("last name is required")
	case strings.TrimSpace(req.Email) == "":
		return invalid("email is required")
	case !emailRe.MatchString(strings.TrimSpace(req.Email)):
		return invalid("email is not valid")
	case req.Password == "":
		return invalid("password is required")
	case len(req.Password) < MinPasswordLength:
		return invalid(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	case req.Password != req.ConfirmPassword:
		return invalid("passwords do not match")
	}

	if req.PhoneNumber != "" && !phoneRe.MatchString(strings.Join(strings.Fields(req.PhoneNumber), "")) {
		return invalid("phone number is not valid")
	}
	return nil
}

func validateProduct(req transport.ProductRequest) error {
	switch {
	case strings.TrimSpace(req.Name) == "":
		return invalid("name is required")
	case strings.TrimSpace(req.Description) == "":
		return invalid("description is required")
	case req.Price <= 0:
		return invalid("price must be positive")
	case req.CategoryID == 0:
		return invalid("category is required")
	}
	return nil
}

func validateReview(req transport.ReviewRequest) error {
	if req.Rating < 1 || req.Rating > 5 {
		return invalid("rating must be between 1 and 5")
	}
	return nil
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return invalid("name is required")
	}
	return nil
}

// Package forms validates user input before any persistence mutation.
// Each form's Validate returns a map of field name to message; an empty map
// means the input is acceptable. Duplicate checks that need the database
// (username/email taken) live in the controllers, not here.
package forms

import (
	"fmt"
	"regexp"
	"strings"

	"bookstore/models"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type RegistrationForm struct {
	Username  string
	Email     string
	Password  string
	Password2 string
}

func (f RegistrationForm) Validate() map[string]string {
	errs := map[string]string{}
	if l := len(f.Username); l < 3 || l > 80 {
		errs["username"] = "Username must be between 3 and 80 characters"
	}
	if f.Email == "" || len(f.Email) > 120 || !emailPattern.MatchString(f.Email) {
		errs["email"] = "Invalid email address"
	}
	if len(f.Password) < 6 {
		errs["password"] = "Password must be at least 6 characters"
	}
	if f.Password2 != f.Password {
		errs["password2"] = "Passwords must match"
	}
	return errs
}

type LoginForm struct {
	Username string // username or email
	Password string
	Remember bool
}

func (f LoginForm) Validate() map[string]string {
	errs := map[string]string{}
	if f.Username == "" {
		errs["username"] = "Username or email is required"
	}
	if f.Password == "" {
		errs["password"] = "Password is required"
	}
	return errs
}

type BookForm struct {
	Title         string
	Author        string
	Price         float64
	Category      string
	Description   string
	ImageURL      string
	StockQuantity int
}

func (f BookForm) Validate() map[string]string {
	errs := map[string]string{}
	if f.Title == "" {
		errs["title"] = "Title is required"
	} else if len(f.Title) > 200 {
		errs["title"] = "Title must be at most 200 characters"
	}
	if f.Author == "" {
		errs["author"] = "Author is required"
	} else if len(f.Author) > 150 {
		errs["author"] = "Author must be at most 150 characters"
	}
	if f.Price <= 0 {
		errs["price"] = "Price must be positive"
	}
	if !models.IsValidCategory(f.Category) {
		errs["category"] = fmt.Sprintf("Category must be one of: %s", strings.Join(models.Categories, ", "))
	}
	if len(f.Description) > 2000 {
		errs["description"] = "Description must be at most 2000 characters"
	}
	if len(f.ImageURL) > 500 {
		errs["image_url"] = "Image URL must be at most 500 characters"
	}
	if f.StockQuantity < 0 {
		errs["stock_quantity"] = "Stock cannot be negative"
	}
	return errs
}

type ReviewForm struct {
	Rating     int
	ReviewText string
}

func (f ReviewForm) Validate() map[string]string {
	errs := map[string]string{}
	if f.Rating < 1 || f.Rating > 5 {
		errs["rating"] = "Rating must be between 1 and 5"
	}
	if len(f.ReviewText) > 1000 {
		errs["review_text"] = "Review must be at most 1000 characters"
	}
	return errs
}

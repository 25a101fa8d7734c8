package forms

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func validRegistration() RegistrationForm {
	return RegistrationForm{
		Username:  "alice",
		Email:     "a@x.com",
		Password:  "secret1",
		Password2: "secret1",
	}
}

func TestRegistrationFormValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RegistrationForm)
		field  string
	}{
		{"valid", func(f *RegistrationForm) {}, ""},
		{"username too short", func(f *RegistrationForm) { f.Username = "ab" }, "username"},
		{"username at min length", func(f *RegistrationForm) { f.Username = "abc" }, ""},
		{"username too long", func(f *RegistrationForm) { f.Username = strings.Repeat("a", 81) }, "username"},
		{"username at max length", func(f *RegistrationForm) { f.Username = strings.Repeat("a", 80) }, ""},
		{"email missing at sign", func(f *RegistrationForm) { f.Email = "ax.com" }, "email"},
		{"email empty", func(f *RegistrationForm) { f.Email = "" }, "email"},
		{"password too short", func(f *RegistrationForm) { f.Password = "12345"; f.Password2 = "12345" }, "password"},
		{"password at min length", func(f *RegistrationForm) { f.Password = "123456"; f.Password2 = "123456" }, ""},
		{"confirmation mismatch", func(f *RegistrationForm) { f.Password2 = "different" }, "password2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validRegistration()
			tt.mutate(&form)
			errs := form.Validate()
			if tt.field == "" {
				assert.Empty(t, errs)
			} else {
				assert.Contains(t, errs, tt.field)
			}
		})
	}
}

func TestLoginFormValidate(t *testing.T) {
	assert.Empty(t, LoginForm{Username: "alice", Password: "x"}.Validate())
	assert.Contains(t, LoginForm{Password: "x"}.Validate(), "username")
	assert.Contains(t, LoginForm{Username: "alice"}.Validate(), "password")
}

func validBook() BookForm {
	return BookForm{
		Title:         "T",
		Author:        "A",
		Price:         10,
		Category:      "Literature",
		Description:   "d",
		ImageURL:      "https://example.com/cover.jpg",
		StockQuantity: 5,
	}
}

func TestBookFormValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*BookForm)
		field  string
	}{
		{"valid", func(f *BookForm) {}, ""},
		{"title required", func(f *BookForm) { f.Title = "" }, "title"},
		{"title too long", func(f *BookForm) { f.Title = strings.Repeat("t", 201) }, "title"},
		{"title at max", func(f *BookForm) { f.Title = strings.Repeat("t", 200) }, ""},
		{"author required", func(f *BookForm) { f.Author = "" }, "author"},
		{"author too long", func(f *BookForm) { f.Author = strings.Repeat("a", 151) }, "author"},
		{"price zero", func(f *BookForm) { f.Price = 0 }, "price"},
		{"price negative", func(f *BookForm) { f.Price = -1 }, "price"},
		{"unknown category", func(f *BookForm) { f.Category = "Cooking" }, "category"},
		{"empty category", func(f *BookForm) { f.Category = "" }, "category"},
		{"description too long", func(f *BookForm) { f.Description = strings.Repeat("d", 2001) }, "description"},
		{"image url too long", func(f *BookForm) { f.ImageURL = strings.Repeat("u", 501) }, "image_url"},
		{"negative stock", func(f *BookForm) { f.StockQuantity = -1 }, "stock_quantity"},
		{"zero stock allowed", func(f *BookForm) { f.StockQuantity = 0 }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validBook()
			tt.mutate(&form)
			errs := form.Validate()
			if tt.field == "" {
				assert.Empty(t, errs)
			} else {
				assert.Contains(t, errs, tt.field)
			}
		})
	}
}

func TestReviewFormValidate(t *testing.T) {
	for rating := 1; rating <= 5; rating++ {
		assert.Empty(t, ReviewForm{Rating: rating}.Validate())
	}
	assert.Contains(t, ReviewForm{Rating: 0}.Validate(), "rating")
	assert.Contains(t, ReviewForm{Rating: 6}.Validate(), "rating")
	assert.Contains(t, ReviewForm{Rating: 3, ReviewText: strings.Repeat("r", 1001)}.Validate(), "review_text")
}

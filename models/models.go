package models

import (
	"time"

	"github.com/google/uuid"
)

// Categories is the fixed set of shelves the store carries. Book.Category
// must come from this list.
var Categories = []string{
	"Photography",
	"Investing",
	"Literature",
	"Languages",
	"Biography",
	"Reference",
	"Wellness",
	"Graphic Novels",
}

func IsValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	IsAdmin      bool      `json:"is_admin" db:"is_admin"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type Book struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Title         string    `json:"title" db:"title"`
	Author        string    `json:"author" db:"author"`
	Price         float64   `json:"price" db:"price"`
	Category      string    `json:"category" db:"category"`
	Description   string    `json:"description" db:"description"`
	ImageURL      string    `json:"image_url" db:"image_url"`
	StockQuantity int       `json:"stock_quantity" db:"stock_quantity"`
	AverageRating float64   `json:"average_rating" db:"average_rating"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

type CartItem struct {
	ID       uuid.UUID `json:"id" db:"id"`
	UserID   uuid.UUID `json:"user_id" db:"user_id"`
	BookID   uuid.UUID `json:"book_id" db:"book_id"`
	Quantity int       `json:"quantity" db:"quantity"`
	AddedAt  time.Time `json:"added_at" db:"added_at"`
}

// CartLine is a cart row joined with its book, as listed on the cart page.
type CartLine struct {
	ID       uuid.UUID `json:"id" db:"id"`
	Quantity int       `json:"quantity" db:"quantity"`
	AddedAt  time.Time `json:"added_at" db:"added_at"`
	Book     Book      `json:"book" db:"book"`
}

type Review struct {
	ID         uuid.UUID `json:"id" db:"id"`
	UserID     uuid.UUID `json:"user_id" db:"user_id"`
	BookID     uuid.UUID `json:"book_id" db:"book_id"`
	Rating     int       `json:"rating" db:"rating"`
	ReviewText string    `json:"review_text" db:"review_text"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// ReviewWithAuthor joins a review with the reviewer's username for the book
// detail page.
type ReviewWithAuthor struct {
	Review
	Username string `json:"username" db:"username"`
}

package controllers

import (
	"net/http"
	"strconv"

	"bookstore/models"
	"bookstore/utils"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// topRatedLimit caps the best-sellers listing on the home page.
const topRatedLimit = 15

// Home lists the top rated books. Ties keep insertion order.
func Home(w http.ResponseWriter, r *http.Request) {
	query, args, err := QB.Select(bookColumns...).From("books").
		OrderBy("average_rating DESC", "created_at ASC").
		Limit(topRatedLimit).
		ToSql()
	if err != nil {
		utils.HandleError(w, http.StatusInternalServerError, "Failed to load books")
		logrus.WithError(utils.ErrorWithTrace(err, "building top rated query")).Error("home")
		return
	}

	books := []models.Book{}
	if err := db.Select(&books, query, args...); err != nil {
		utils.HandleError(w, http.StatusInternalServerError, "Failed to load books")
		logrus.WithError(utils.ErrorWithTrace(err, "selecting top rated books")).Error("home")
		return
	}

	utils.SendJSONResponse(w, http.StatusOK, map[string]interface{}{
		"books":      books,
		"categories": models.Categories,
		"cart_count": cartCountFor(userFrom(r)),
	})
}

// Category lists books on one shelf. Unknown categories yield an empty
// listing, not an error.
func Category(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	books := []models.Book{}

	if models.IsValidCategory(name) {
		limit, offset := pageWindow(r)
		query, args, err := QB.Select(bookColumns...).From("books").
			Where(squirrel.Eq{"category": name}).
			OrderBy("created_at ASC").
			Limit(limit).Offset(offset).
			ToSql()
		if err != nil {
			utils.HandleError(w, http.StatusInternalServerError, "Failed to load books")
			logrus.WithError(utils.ErrorWithTrace(err, "building category query")).Error("category")
			return
		}
		if err := db.Select(&books, query, args...); err != nil {
			utils.HandleError(w, http.StatusInternalServerError, "Failed to load books")
			logrus.WithError(utils.ErrorWithTrace(err, "selecting category books")).Error("category")
			return
		}
	}

	utils.SendJSONResponse(w, http.StatusOK, map[string]interface{}{
		"books":      books,
		"category":   name,
		"categories": models.Categories,
		"cart_count": cartCountFor(userFrom(r)),
	})
}

// Search matches a case-insensitive substring against book titles. An empty
// term returns an empty result set rather than the whole catalog.
func Search(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	books := []models.Book{}

	if term != "" {
		limit, offset := pageWindow(r)
		query, args, err := QB.Select(bookColumns...).From("books").
			Where(squirrel.ILike{"title": "%" + term + "%"}).
			OrderBy("created_at ASC").
			Limit(limit).Offset(offset).
			ToSql()
		if err != nil {
			utils.HandleError(w, http.StatusInternalServerError, "Failed to search books")
			logrus.WithError(utils.ErrorWithTrace(err, "building search query")).Error("search")
			return
		}
		if err := db.Select(&books, query, args...); err != nil {
			utils.HandleError(w, http.StatusInternalServerError, "Failed to search books")
			logrus.WithError(utils.ErrorWithTrace(err, "selecting search results")).Error("search")
			return
		}
	}

	utils.SendJSONResponse(w, http.StatusOK, map[string]interface{}{
		"books":      books,
		"query":      term,
		"categories": models.Categories,
		"cart_count": cartCountFor(userFrom(r)),
	})
}

// BookDetail returns one book with its reviews newest-first and, for
// logged-in visitors, their own review of it if they have one.
func BookDetail(w http.ResponseWriter, r *http.Request) {
	bookID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		utils.HandleError(w, http.StatusNotFound, "Book not found")
		return
	}

	query, args, err := QB.Select(bookColumns...).From("books").Where(squirrel.Eq{"id": bookID}).ToSql()
	if err != nil {
		utils.HandleError(w, http.StatusInternalServerError, "Failed to load book")
		logrus.WithError(utils.ErrorWithTrace(err, "building book query")).Error("book detail")
		return
	}
	var book models.Book
	if err := db.Get(&book, query, args...); err != nil {
		utils.HandleError(w, http.StatusNotFound, "Book not found")
		return
	}

	query, args, err = QB.Select("r.id", "r.user_id", "r.book_id", "r.rating", "r.review_text", "r.created_at", "u.username").
		From("reviews r").
		Join("users u ON u.id = r.user_id").
		Where(squirrel.Eq{"r.book_id": bookID}).
		OrderBy("r.created_at DESC").
		ToSql()
	if err != nil {
		utils.HandleError(w, http.StatusInternalServerError, "Failed to load reviews")
		logrus.WithError(utils.ErrorWithTrace(err, "building reviews query")).Error("book detail")
		return
	}
	reviews := []models.ReviewWithAuthor{}
	if err := db.Select(&reviews, query, args...); err != nil {
		utils.HandleError(w, http.StatusInternalServerError, "Failed to load reviews")
		logrus.WithError(utils.ErrorWithTrace(err, "selecting reviews")).Error("book detail")
		return
	}

	user := userFrom(r)
	var userReview *models.Review
	if user != nil {
		query, args, err = QB.Select("id", "user_id", "book_id", "rating", "review_text", "created_at").
			From("reviews").
			Where(squirrel.Eq{"user_id": user.ID, "book_id": bookID}).
			ToSql()
		if err != nil {
			utils.HandleError(w, http.StatusInternalServerError, "Failed to load reviews")
			logrus.WithError(utils.ErrorWithTrace(err, "building user review query")).Error("book detail")
			return
		}
		var existing models.Review
		if err := db.Get(&existing, query, args...); err == nil {
			userReview = &existing
		}
	}

	utils.SendJSONResponse(w, http.StatusOK, map[string]interface{}{
		"book":        book,
		"reviews":     reviews,
		"user_review": userReview,
		"categories":  models.Categories,
		"cart_count":  cartCountFor(user),
	})
}

// pageWindow turns the ?page= parameter into a LIMIT/OFFSET window of
// booksPerPage rows.
func pageWindow(r *http.Request) (uint64, uint64) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	size := uint64(booksPerPage)
	return size, uint64(page-1) * size
}

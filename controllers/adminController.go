package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bookstore/forms"
	"bookstore/models"
	"bookstore/utils"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/gorilla/csrf"
	"github.com/sirupsen/logrus"
)

// Dashboard aggregates store counts and the full catalog for the admin
// landing page. Read-only.
func Dashboard(w http.ResponseWriter, r *http.Request) {
	counts := map[string]int{"books": 0, "users": 0, "reviews": 0}
	for _, table := range []string{"books", "users", "reviews"} {
		query, args, err := QB.Select("COUNT(*)").From(table).ToSql()
		if err != nil {
			utils.HandleError(w, http.StatusInternalServerError, "Failed to load dashboard")
			logrus.WithError(utils.ErrorWithTrace(err, "building count query")).Error("dashboard")
			return
		}
		var count int
		if err := db.Get(&count, query, args...); err != nil {
			utils.HandleError(w, http.StatusInternalServerError, "Failed to load dashboard")
			logrus.WithError(utils.ErrorWithTrace(err, "counting "+table)).Error("dashboard")
			return
		}
		counts[table] = count
	}

	query, args, err := QB.Select(bookColumns...).From("books").OrderBy("created_at ASC").ToSql()
	if err != nil {
		utils.HandleError(w, http.StatusInternalServerError, "Failed to load dashboard")
		logrus.WithError(utils.ErrorWithTrace(err, "building book list query")).Error("dashboard")
		return
	}
	books := []models.Book{}
	if err := db.Select(&books, query, args...); err != nil {
		utils.HandleError(w, http.StatusInternalServerError, "Failed to load dashboard")
		logrus.WithError(utils.ErrorWithTrace(err, "selecting books")).Error("dashboard")
		return
	}

	utils.SendJSONResponse(w, http.StatusOK, map[string]interface{}{
		"books":         books,
		"total_books":   counts["books"],
		"total_users":   counts["users"],
		"total_reviews": counts["reviews"],
		"categories":    models.Categories,
		"cart_count":    cartCountFor(userFrom(r)),
	})
}

// AddBookPage returns the data needed to render the add-book form.
func AddBookPage(w http.ResponseWriter, r *http.Request) {
	utils.SendJSONResponse(w, http.StatusOK, map[string]interface{}{
		"categories": models.Categories,
		"csrf_token": csrf.Token(r),
	})
}

func AddBook(w http.ResponseWriter, r *http.Request) {
	form, imageURL, ok := parseBookForm(w, r)
	if !ok {
		return
	}
	if errs := form.Validate(); len(errs) > 0 {
		utils.HandleFieldErrors(w, errs)
		return
	}

	book := models.Book{
		ID:            uuid.New(),
		Title:         form.Title,
		Author:        form.Author,
		Price:         form.Price,
		Category:      form.Category,
		Description:   form.Description,
		ImageURL:      imageURL,
		StockQuantity: form.StockQuantity,
		AverageRating: 0.0,
		CreatedAt:     time.Now(),
	}

	query, args, err := QB.Insert("books").
		Columns("id", "title", "author", "price", "category", "description", "image_url", "stock_quantity", "average_rating", "created_at").
		Values(book.ID, book.Title, book.Author, book.Price, book.Category, book.Description, book.ImageURL, book.StockQuantity, book.AverageRating, book.CreatedAt).
		Suffix(fmt.Sprintf("RETURNING %s", strings.Join(bookColumns, ", "))).
		ToSql()
	if err != nil {
		utils.HandleError(w, http.StatusInternalServerError, "Failed to add book")
		logrus.WithError(utils.ErrorWithTrace(err, "building book insert")).Error("add book")
		return
	}
	if err := db.QueryRowx(query, args...).StructScan(&book); err != nil {
		utils.HandleError(w, http.StatusInternalServerError, "Error adding book")
		logrus.WithError(utils.ErrorWithTrace(err, "inserting book")).Error("add book")
		return
	}

	utils.SendJSONResponse(w, http.StatusCreated, map[string]interface{}{
		"message": "Book added successfully!",
		"book":    book,
	})
}

// EditBookPage returns the current book for the edit form.
func EditBookPage(w http.ResponseWriter, r *http.Request) {
	book, ok := loadBook(w, r)
	if !ok {
		return
	}
	utils.SendJSONResponse(w, http.StatusOK, map[string]interface{}{
		"book":       book,
		"categories": models.Categories,
		"csrf_token": csrf.Token(r),
	})
}

// EditBook overwrites every mutable field of a book. No partial patching.
func EditBook(w http.ResponseWriter, r *http.Request) {
	book, ok := loadBook(w, r)
	if !ok {
		return
	}

	form, imageURL, formOK := parseBookForm(w, r)
	if !formOK {
		return
	}
	if errs := form.Validate(); len(errs) > 0 {
		utils.HandleFieldErrors(w, errs)
		return
	}

	query, args, err := QB.Update("books").
		Set("title", form.Title).
		Set("author", form.Author).
		Set("price", form.Price).
		Set("category", form.Category).
		Set("description", form.Description).
		Set("image_url", imageURL).
		Set("stock_quantity", form.StockQuantity).
		Where(squirrel.Eq{"id": book.ID}).
		ToSql()
	if err != nil {
		utils.HandleError(w, http.StatusInternalServerError, "Failed to update book")
		logrus.WithError(utils.ErrorWithTrace(err, "building book update")).Error("edit book")
		return
	}
	if _, err := db.Exec(query, args...); err != nil {
		utils.HandleError(w, http.StatusInternalServerError, "Failed to update book")
		logrus.WithError(utils.ErrorWithTrace(err, "updating book")).Error("edit book")
		return
	}

	utils.SendJSONResponse(w, http.StatusOK, map[string]string{
		"message":  "Book updated successfully!",
		"redirect": "/admin",
	})
}

// DeleteBook removes a book; the cart and review rows pointing at it go with
// it via the schema's ON DELETE CASCADE.
func DeleteBook(w http.ResponseWriter, r *http.Request) {
	book, ok := loadBook(w, r)
	if !ok {
		return
	}

	query, args, err := QB.Delete("books").Where(squirrel.Eq{"id": book.ID}).ToSql()
	if err != nil {
		utils.HandleError(w, http.StatusInternalServerError, "Failed to delete book")
		logrus.WithError(utils.ErrorWithTrace(err, "building book delete")).Error("delete book")
		return
	}
	if _, err := db.Exec(query, args...); err != nil {
		utils.HandleError(w, http.StatusInternalServerError, "Failed to delete book")
		logrus.WithError(utils.ErrorWithTrace(err, "deleting book")).Error("delete book")
		return
	}

	utils.SendJSONResponse(w, http.StatusOK, map[string]string{
		"message":  "Book deleted successfully!",
		"redirect": "/admin",
	})
}

// loadBook fetches the book named in the path, answering 404 itself when it
// is missing.
func loadBook(w http.ResponseWriter, r *http.Request) (models.Book, bool) {
	var book models.Book

	bookID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		utils.HandleError(w, http.StatusNotFound, "Book not found")
		return book, false
	}

	query, args, err := QB.Select(bookColumns...).From("books").Where(squirrel.Eq{"id": bookID}).ToSql()
	if err != nil {
		utils.HandleError(w, http.StatusInternalServerError, "Failed to look up book")
		logrus.WithError(utils.ErrorWithTrace(err, "building book lookup")).Error("admin")
		return book, false
	}
	if err := db.Get(&book, query, args...); err != nil {
		utils.HandleError(w, http.StatusNotFound, "Book not found")
		return book, false
	}
	return book, true
}

// parseBookForm reads the admin book form. The cover image may arrive as an
// uploaded file, which wins over the image_url field when both are present.
func parseBookForm(w http.ResponseWriter, r *http.Request) (forms.BookForm, string, bool) {
	var form forms.BookForm

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		if err := r.ParseForm(); err != nil {
			utils.HandleError(w, http.StatusBadRequest, "Invalid form data")
			return form, "", false
		}
	}

	fieldErrs := map[string]string{}
	price, err := strconv.ParseFloat(r.FormValue("price"), 64)
	if err != nil && r.FormValue("price") != "" {
		fieldErrs["price"] = "Price must be a number"
	}
	stock := 0
	if raw := r.FormValue("stock_quantity"); raw != "" {
		stock, err = strconv.Atoi(raw)
		if err != nil {
			fieldErrs["stock_quantity"] = "Stock must be a whole number"
		}
	}
	if len(fieldErrs) > 0 {
		utils.HandleFieldErrors(w, fieldErrs)
		return form, "", false
	}

	form = forms.BookForm{
		Title:         r.FormValue("title"),
		Author:        r.FormValue("author"),
		Price:         price,
		Category:      r.FormValue("category"),
		Description:   r.FormValue("description"),
		ImageURL:      r.FormValue("image_url"),
		StockQuantity: stock,
	}

	imageURL := form.ImageURL
	if file, handler, err := r.FormFile("img"); err == nil {
		defer file.Close()

		imgPath, err := utils.SaveImageFile(file, "books", handler.Filename)
		if err != nil {
			utils.HandleError(w, http.StatusInternalServerError, "Failed to save image")
			logrus.WithError(utils.ErrorWithTrace(err, "saving cover image")).Error("admin")
			return form, "", false
		}
		imageURL = fmt.Sprintf("%s/%s", domain, strings.ReplaceAll(imgPath, "\\", "/"))
		form.ImageURL = imageURL
	}

	return form, imageURL, true
}

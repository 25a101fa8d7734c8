package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"bookstore/forms"
	"bookstore/utils"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SubmitReview records the caller's rating of a book, replacing any earlier
// review they left on it, and recomputes the book's average rating. Both
// writes commit as one transaction so a crash can never leave the stored
// average out of step with the review rows.
func SubmitReview(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	bookID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		utils.HandleError(w, http.StatusNotFound, "Book not found")
		return
	}

	if err := r.ParseForm(); err != nil {
		utils.HandleError(w, http.StatusBadRequest, "Invalid form data")
		return
	}
	rating, _ := strconv.Atoi(r.FormValue("rating"))
	form := forms.ReviewForm{
		Rating:     rating,
		ReviewText: r.FormValue("review_text"),
	}
	if errs := form.Validate(); len(errs) > 0 {
		utils.HandleFieldErrors(w, errs)
		return
	}

	query, args, err := QB.Select("id").From("books").Where(squirrel.Eq{"id": bookID}).ToSql()
	if err != nil {
		utils.HandleError(w, http.StatusInternalServerError, "Failed to look up book")
		logrus.WithError(utils.ErrorWithTrace(err, "building book lookup")).Error("submit review")
		return
	}
	var existingID uuid.UUID
	if err := db.Get(&existingID, query, args...); err != nil {
		utils.HandleError(w, http.StatusNotFound, "Book not found")
		return
	}

	tx, err := db.Beginx()
	if err != nil {
		utils.HandleError(w, http.StatusInternalServerError, "Failed to save review")
		logrus.WithError(utils.ErrorWithTrace(err, "opening transaction")).Error("submit review")
		return
	}
	defer tx.Rollback()

	query, args, err = QB.Insert("reviews").
		Columns("id", "user_id", "book_id", "rating", "review_text", "created_at").
		Values(uuid.New(), user.ID, bookID, form.Rating, form.ReviewText, time.Now()).
		Suffix("ON CONFLICT (user_id, book_id) DO UPDATE SET rating = EXCLUDED.rating, review_text = EXCLUDED.review_text").
		ToSql()
	if err != nil {
		utils.HandleError(w, http.StatusInternalServerError, "Failed to save review")
		logrus.WithError(utils.ErrorWithTrace(err, "building review upsert")).Error("submit review")
		return
	}
	if _, err := tx.Exec(query, args...); err != nil {
		utils.HandleError(w, http.StatusInternalServerError, "Failed to save review")
		logrus.WithError(utils.ErrorWithTrace(err, "upserting review")).Error("submit review")
		return
	}

	// Derived field: mean of current review ratings rounded to one decimal,
	// 0 when none remain.
	query, args, err = QB.Update("books").
		Set("average_rating", squirrel.Expr(
			"COALESCE((SELECT ROUND(AVG(rating)::numeric, 1) FROM reviews WHERE book_id = ?), 0)", bookID)).
		Where(squirrel.Eq{"id": bookID}).
		ToSql()
	if err != nil {
		utils.HandleError(w, http.StatusInternalServerError, "Failed to update rating")
		logrus.WithError(utils.ErrorWithTrace(err, "building rating update")).Error("submit review")
		return
	}
	if _, err := tx.Exec(query, args...); err != nil {
		utils.HandleError(w, http.StatusInternalServerError, "Failed to update rating")
		logrus.WithError(utils.ErrorWithTrace(err, "recomputing average rating")).Error("submit review")
		return
	}

	if err := tx.Commit(); err != nil {
		utils.HandleError(w, http.StatusInternalServerError, "Failed to save review")
		logrus.WithError(utils.ErrorWithTrace(err, "committing review")).Error("submit review")
		return
	}

	utils.SendJSONResponse(w, http.StatusOK, map[string]string{
		"message":  "Thank you for your review!",
		"redirect": fmt.Sprintf("/book/%s", bookID),
	})
}

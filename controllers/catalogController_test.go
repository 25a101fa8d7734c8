package controllers

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bookstore/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHomeListsTopRated(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("SELECT (.+) FROM books ORDER BY average_rating DESC, created_at ASC LIMIT 15").
		WillReturnRows(bookRows(sampleBook("1984"), sampleBook("Dune")))

	rec := httptest.NewRecorder()
	Home(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Len(t, body["books"], 2)
	assert.Len(t, body["categories"], len(models.Categories))
	assert.Equal(t, float64(0), body["cart_count"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryKnown(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("SELECT (.+) FROM books WHERE category").
		WithArgs("Literature").
		WillReturnRows(bookRows(sampleBook("1984")))

	req := httptest.NewRequest(http.MethodGet, "/category/Literature", nil)
	req.SetPathValue("name", "Literature")
	rec := httptest.NewRecorder()
	Category(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Len(t, body["books"], 1)
	assert.Equal(t, "Literature", body["category"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryUnknownYieldsEmptyList(t *testing.T) {
	newMock(t)

	req := httptest.NewRequest(http.MethodGet, "/category/Cooking", nil)
	req.SetPathValue("name", "Cooking")
	rec := httptest.NewRecorder()
	Category(rec, req)

	// Unknown category is an empty listing, not an error.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody(t, rec)["books"])
}

func TestSearchEmptyTermReturnsNothing(t *testing.T) {
	newMock(t)

	rec := httptest.NewRecorder()
	Search(rec, httptest.NewRequest(http.MethodGet, "/search?q=", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody(t, rec)["books"])
}

func TestSearchSubstringMatch(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("SELECT (.+) FROM books WHERE title ILIKE").
		WithArgs("%1984%").
		WillReturnRows(bookRows(sampleBook("1984")))

	rec := httptest.NewRecorder()
	Search(rec, httptest.NewRequest(http.MethodGet, "/search?q=1984", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Len(t, body["books"], 1)
	assert.Equal(t, "1984", body["query"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchNoMatch(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("SELECT (.+) FROM books WHERE title ILIKE").
		WithArgs("%zzzzz%").
		WillReturnRows(bookRows())

	rec := httptest.NewRecorder()
	Search(rec, httptest.NewRequest(http.MethodGet, "/search?q=zzzzz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody(t, rec)["books"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookDetailNotFound(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("SELECT (.+) FROM books WHERE id").
		WillReturnError(sql.ErrNoRows)

	req := httptest.NewRequest(http.MethodGet, "/book/x", nil)
	req.SetPathValue("id", uuid.NewString())
	rec := httptest.NewRecorder()
	BookDetail(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBookDetailWithReviewsAndOwnReview(t *testing.T) {
	mock := newMock(t)
	user := testUser(false)
	book := sampleBook("1984")
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM books WHERE id").
		WillReturnRows(bookRows(book))
	mock.ExpectQuery("SELECT (.+) FROM reviews r JOIN users u").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "book_id", "rating", "review_text", "created_at", "username"}).
			AddRow(uuid.New(), user.ID, book.ID, 5, "great", now, "alice").
			AddRow(uuid.New(), uuid.New(), book.ID, 3, "fine", now.Add(-time.Hour), "bob"))
	mock.ExpectQuery("SELECT (.+) FROM reviews WHERE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "book_id", "rating", "review_text", "created_at"}).
			AddRow(uuid.New(), user.ID, book.ID, 5, "great", now))

	req := httptest.NewRequest(http.MethodGet, "/book/"+book.ID.String(), nil)
	req.SetPathValue("id", book.ID.String())
	// cart count for the logged-in visitor
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM cart").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	rec := httptest.NewRecorder()
	BookDetail(rec, authed(req, user))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Len(t, body["reviews"], 2)
	assert.NotNil(t, body["user_review"])
	assert.Equal(t, float64(1), body["cart_count"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookDetailAnonymousSkipsOwnReview(t *testing.T) {
	mock := newMock(t)
	book := sampleBook("1984")

	mock.ExpectQuery("SELECT (.+) FROM books WHERE id").
		WillReturnRows(bookRows(book))
	mock.ExpectQuery("SELECT (.+) FROM reviews r JOIN users u").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "book_id", "rating", "review_text", "created_at", "username"}))

	req := httptest.NewRequest(http.MethodGet, "/book/"+book.ID.String(), nil)
	req.SetPathValue("id", book.ID.String())
	rec := httptest.NewRecorder()
	BookDetail(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Nil(t, body["user_review"])
	require.NoError(t, mock.ExpectationsWereMet())
}

package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"bookstore/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func init() {
	SetSessionStore(sessions.NewCookieStore([]byte("test-secret-key")))
}

// newMock swaps the package DB for a sqlmock-backed one for the duration of
// the test.
func newMock(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	SetDB(sqlx.NewDb(mockDB, "sqlmock"))
	t.Cleanup(func() { mockDB.Close() })
	return mock
}

func testUser(admin bool) *models.User {
	return &models.User{
		ID:        uuid.New(),
		Username:  "alice",
		Email:     "a@x.com",
		IsAdmin:   admin,
		CreatedAt: time.Now(),
	}
}

// authed stashes a resolved user in the request context the way the guards
// do, so handlers can be exercised without a session cookie.
func authed(r *http.Request, user *models.User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), userContextKey, user))
}

// sessionCookie builds a signed session cookie identifying the given user.
func sessionCookie(t *testing.T, user *models.User) *http.Cookie {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	sess, err := store.Get(req, sessionName)
	require.NoError(t, err)
	sess.Values["user_id"] = user.ID.String()
	require.NoError(t, sess.Save(req, rec))
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies[0]
}

func formRequest(method, target string, values url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func userRows(user *models.User, passwordHash string) *sqlmock.Rows {
	return sqlmock.NewRows(userColumns).
		AddRow(user.ID, user.Username, user.Email, passwordHash, user.IsAdmin, user.CreatedAt)
}

func bookRows(books ...models.Book) *sqlmock.Rows {
	rows := sqlmock.NewRows(bookColumns)
	for _, b := range books {
		rows.AddRow(b.ID, b.Title, b.Author, b.Price, b.Category, b.Description,
			b.ImageURL, b.StockQuantity, b.AverageRating, b.CreatedAt)
	}
	return rows
}

func sampleBook(title string) models.Book {
	return models.Book{
		ID:            uuid.New(),
		Title:         title,
		Author:        "Author",
		Price:         10.0,
		Category:      "Literature",
		StockQuantity: 5,
		CreatedAt:     time.Now(),
	}
}

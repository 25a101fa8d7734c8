package controllers

import (
	"context"
	"fmt"
	"net/http"

	"bookstore/models"
	"bookstore/utils"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

const (
	sessionName = "bookstore_session"
	// rememberMaxAge keeps the session alive past the browser session when
	// the user ticks "remember me".
	rememberMaxAge = 30 * 24 * 60 * 60
)

type contextKey string

const userContextKey contextKey = "current_user"

var (
	db    *sqlx.DB
	store *sessions.CookieStore
	QB    = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	// booksPerPage windows category and search listings; overridden from
	// BOOKS_PER_PAGE at startup.
	booksPerPage = 20

	// domain prefixes stored upload URIs, e.g. http://localhost:8000.
	domain = "http://localhost:8000"

	userColumns = []string{"id", "username", "email", "password_hash", "is_admin", "created_at"}
	bookColumns = []string{"id", "title", "author", "price", "category", "description", "image_url", "stock_quantity", "average_rating", "created_at"}
)

func SetDB(database *sqlx.DB) {
	db = database
}

func SetSessionStore(s *sessions.CookieStore) {
	store = s
}

func SetPageSize(size int) {
	if size > 0 {
		booksPerPage = size
	}
}

func SetDomain(d string) {
	if d != "" {
		domain = d
	}
}

// currentUser resolves the session cookie to a user row, or nil for
// anonymous requests and stale sessions.
func currentUser(r *http.Request) *models.User {
	session, err := store.Get(r, sessionName)
	if err != nil {
		return nil
	}
	raw, ok := session.Values["user_id"].(string)
	if !ok {
		return nil
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}

	query, args, err := QB.Select(userColumns...).From("users").Where(squirrel.Eq{"id": userID}).ToSql()
	if err != nil {
		logrus.WithError(err).Error("building current user query")
		return nil
	}
	var user models.User
	if err := db.Get(&user, query, args...); err != nil {
		return nil
	}
	return &user
}

func userFrom(r *http.Request) *models.User {
	user, _ := r.Context().Value(userContextKey).(*models.User)
	return user
}

// WithUser resolves the session user, if any, into the request context.
// Anonymous requests pass through with a nil user.
func WithUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := currentUser(r)
		ctx := context.WithValue(r.Context(), userContextKey, user)
		next(w, r.WithContext(ctx))
	}
}

// RequireAuth rejects anonymous requests with a 401 before the handler runs.
func RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := currentUser(r)
		if user == nil {
			utils.HandleError(w, http.StatusUnauthorized, "Please log in to access this page")
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, user)
		next(w, r.WithContext(ctx))
	}
}

// RequireAdmin rejects anonymous requests with a 401 and authenticated
// non-admins with a 403 and a visible message.
func RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		if !userFrom(r).IsAdmin {
			utils.HandleError(w, http.StatusForbidden, "You need admin privileges to access this page")
			return
		}
		next(w, r)
	})
}

// saveLoginSession establishes the session cookie for a freshly
// authenticated user.
func saveLoginSession(w http.ResponseWriter, r *http.Request, user *models.User, remember bool) error {
	session, err := store.Get(r, sessionName)
	if err != nil {
		// A stale or tampered cookie still yields a usable new session.
		session, err = store.New(r, sessionName)
		if err != nil {
			return err
		}
	}
	session.Values["user_id"] = user.ID.String()
	if remember {
		session.Options.MaxAge = rememberMaxAge
	} else {
		session.Options.MaxAge = 0
	}
	return session.Save(r, w)
}

func clearSession(w http.ResponseWriter, r *http.Request) error {
	session, err := store.Get(r, sessionName)
	if err != nil {
		return err
	}
	delete(session.Values, "user_id")
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// cartCount returns the number of distinct cart rows for a user, shown in
// the page chrome and returned by the add-to-cart endpoint.
func cartCount(userID uuid.UUID) (int, error) {
	query, args, err := QB.Select("COUNT(*)").From("cart").Where(squirrel.Eq{"user_id": userID}).ToSql()
	if err != nil {
		return 0, err
	}
	var count int
	if err := db.Get(&count, query, args...); err != nil {
		return 0, err
	}
	return count, nil
}

// cartCountFor is cartCount for an optional user; anonymous visitors get 0.
func cartCountFor(user *models.User) int {
	if user == nil {
		return 0
	}
	count, err := cartCount(user.ID)
	if err != nil {
		logrus.WithError(utils.ErrorWithTrace(err, "counting cart items")).Error("cart count")
		return 0
	}
	return count
}

// prefixedBookColumns aliases book columns for sqlx dot-notation scanning
// into an embedded Book, e.g. b.title AS "book.title".
func prefixedBookColumns(alias string) []string {
	cols := make([]string, 0, len(bookColumns))
	for _, c := range bookColumns {
		cols = append(cols, fmt.Sprintf(`%s.%s AS "book.%s"`, alias, c, c))
	}
	return cols
}

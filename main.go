package main

import (
	"errors"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"

	"bookstore/controllers"
	"bookstore/utils"

	"github.com/go-michi/michi"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/gorilla/csrf"
	"github.com/gorilla/handlers"
	"github.com/gorilla/sessions"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logrus.WithError(err).Warn("no .env file loaded")
	}

	connStr := os.Getenv("DATABASE_CONNECTION_STR")
	if connStr == "" {
		logrus.Fatal("DATABASE_CONNECTION_STR not set")
	}
	secretKey := os.Getenv("SECRET_KEY")
	if secretKey == "" {
		logrus.Fatal("SECRET_KEY not set")
	}
	domain := os.Getenv("DOMAIN")
	if domain == "" {
		logrus.Fatal("DOMAIN not set")
	}
	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}
	if raw := os.Getenv("BOOKS_PER_PAGE"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			logrus.WithError(err).Fatal("BOOKS_PER_PAGE must be a number")
		}
		controllers.SetPageSize(size)
	}

	// Connect to the database
	db, err := sqlx.Connect("postgres", connStr)
	if err != nil {
		logrus.WithError(utils.ErrorWithTrace(err, "connecting to database")).Fatal("database")
	}
	defer db.Close()
	controllers.SetDB(db)
	controllers.SetDomain(domain)

	// Handle migrations
	mig, err := migrate.New("file://"+getRootPath("database/migrations"), connStr)
	if err != nil {
		logrus.WithError(utils.ErrorWithTrace(err, "opening migrations")).Fatal("migrations")
	}
	if err := mig.Up(); err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			logrus.WithError(utils.ErrorWithTrace(err, "applying migrations")).Fatal("migrations")
		}
		logrus.Info("migrations: no change")
	}

	// Session cookies are signed with the secret key; secure flag follows
	// the public scheme.
	secure := strings.HasPrefix(domain, "https://")
	store := sessions.NewCookieStore([]byte(secretKey))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	}
	controllers.SetSessionStore(store)

	// Initialize the router and define routes
	r := michi.NewRouter()
	r.Handle("/uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir("./uploads"))))

	r.HandleFunc("GET /{$}", controllers.WithUser(controllers.Home))
	r.HandleFunc("GET /category/{name}", controllers.WithUser(controllers.Category))
	r.HandleFunc("GET /search", controllers.WithUser(controllers.Search))
	r.HandleFunc("GET /book/{id}", controllers.WithUser(controllers.BookDetail))

	r.HandleFunc("GET /register", controllers.WithUser(controllers.RegisterPage))
	r.HandleFunc("POST /register", controllers.WithUser(controllers.Register))
	r.HandleFunc("GET /login", controllers.WithUser(controllers.LoginPage))
	r.HandleFunc("POST /login", controllers.WithUser(controllers.Login))
	r.HandleFunc("GET /logout", controllers.RequireAuth(controllers.Logout))
	r.HandleFunc("GET /profile", controllers.RequireAuth(controllers.Profile))

	r.HandleFunc("GET /cart", controllers.RequireAuth(controllers.ViewCart))
	r.Route("/cart", func(sub *michi.Router) {
		sub.HandleFunc("POST add/{bookId}", controllers.RequireAuth(controllers.AddToCart))
		sub.HandleFunc("POST remove/{itemId}", controllers.RequireAuth(controllers.RemoveFromCart))
		sub.HandleFunc("POST update/{itemId}", controllers.RequireAuth(controllers.UpdateCart))
	})

	r.HandleFunc("POST /book/{id}/review", controllers.RequireAuth(controllers.SubmitReview))

	r.HandleFunc("GET /admin", controllers.RequireAdmin(controllers.Dashboard))
	r.Route("/admin", func(sub *michi.Router) {
		sub.HandleFunc("GET book/add", controllers.RequireAdmin(controllers.AddBookPage))
		sub.HandleFunc("POST book/add", controllers.RequireAdmin(controllers.AddBook))
		sub.HandleFunc("GET book/edit/{id}", controllers.RequireAdmin(controllers.EditBookPage))
		sub.HandleFunc("POST book/edit/{id}", controllers.RequireAdmin(controllers.EditBook))
		sub.HandleFunc("POST book/delete/{id}", controllers.RequireAdmin(controllers.DeleteBook))
	})

	// CSRF tokens are required on every state-mutating POST.
	csrfProtect := csrf.Protect(
		[]byte(secretKey),
		csrf.Secure(secure),
		csrf.Path("/"),
	)

	// Enable CORS
	corsOptions := handlers.CORS(
		handlers.AllowedOrigins([]string{domain}),
		handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "X-CSRF-Token", "X-Requested-With"}),
		handlers.AllowCredentials(),
	)

	logrus.Infof("Server running on port %s", port)
	if err := http.ListenAndServe(":"+port, corsOptions(csrfProtect(r))); err != nil {
		logrus.WithError(utils.ErrorWithTrace(err, "serving")).Fatal("server")
	}
}

func getRootPath(dir string) string {
	ex, err := os.Executable()
	if err != nil {
		logrus.WithError(utils.ErrorWithTrace(err, "resolving executable path")).Fatal("migrations")
	}
	return path.Join(path.Dir(ex), dir)
}

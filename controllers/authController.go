package controllers

import (
	"fmt"
	"net/http"
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

// RegisterPage returns the CSRF token for the registration form. Logged-in
// users are sent back to the home page.
func RegisterPage(w http.ResponseWriter, r *http.Request) {
	if userFrom(r) != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	utils.SendJSONResponse(w, http.StatusOK, map[string]string{
		"csrf_token": csrf.Token(r),
	})
}

func Register(w http.ResponseWriter, r *http.Request) {
	if userFrom(r) != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		utils.HandleError(w, http.StatusBadRequest, "Invalid form data")
		return
	}

	form := forms.RegistrationForm{
		Username:  r.FormValue("username"),
		Email:     r.FormValue("email"),
		Password:  r.FormValue("password"),
		Password2: r.FormValue("password2"),
	}
	if errs := form.Validate(); len(errs) > 0 {
		utils.HandleFieldErrors(w, errs)
		return
	}

	// Exact-match duplicate checks against existing accounts.
	query, args, err := QB.Select("id").From("users").Where(squirrel.Eq{"username": form.Username}).ToSql()
	if err != nil {
		utils.HandleError(w, http.StatusInternalServerError, "Failed to check username")
		logrus.WithError(utils.ErrorWithTrace(err, "building username lookup")).Error("register")
		return
	}
	var existingID uuid.UUID
	if err := db.Get(&existingID, query, args...); err == nil {
		utils.HandleError(w, http.StatusConflict, "Username already taken. Please choose a different one.")
		return
	}

	query, args, err = QB.Select("id").From("users").Where(squirrel.Eq{"email": form.Email}).ToSql()
	if err != nil {
		utils.HandleError(w, http.StatusInternalServerError, "Failed to check email")
		logrus.WithError(utils.ErrorWithTrace(err, "building email lookup")).Error("register")
		return
	}
	if err := db.Get(&existingID, query, args...); err == nil {
		utils.HandleError(w, http.StatusConflict, "Email already registered. Please use a different one.")
		return
	}

	hashedPassword, err := utils.HashPassword(form.Password)
	if err != nil {
		utils.HandleError(w, http.StatusInternalServerError, "Failed to hash password")
		logrus.WithError(utils.ErrorWithTrace(err, "hashing password")).Error("register")
		return
	}

	user := models.User{
		ID:           uuid.New(),
		Username:     form.Username,
		Email:        form.Email,
		PasswordHash: hashedPassword,
		IsAdmin:      false,
		CreatedAt:    time.Now(),
	}

	query, args, err = QB.Insert("users").
		Columns("id", "username", "email", "password_hash", "is_admin", "created_at").
		Values(user.ID, user.Username, user.Email, user.PasswordHash, user.IsAdmin, user.CreatedAt).
		Suffix(fmt.Sprintf("RETURNING %s", strings.Join(userColumns, ", "))).
		ToSql()
	if err != nil {
		utils.HandleError(w, http.StatusInternalServerError, "Failed to create user")
		logrus.WithError(utils.ErrorWithTrace(err, "building user insert")).Error("register")
		return
	}
	if err := db.QueryRowx(query, args...).StructScan(&user); err != nil {
		utils.HandleError(w, http.StatusInternalServerError, "Error creating user")
		logrus.WithError(utils.ErrorWithTrace(err, "inserting user")).Error("register")
		return
	}

	utils.SendJSONResponse(w, http.StatusCreated, map[string]interface{}{
		"message": "Registration successful! Please log in.",
		"user":    user,
	})
}

// LoginPage returns the CSRF token for the login form.
func LoginPage(w http.ResponseWriter, r *http.Request) {
	if userFrom(r) != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	utils.SendJSONResponse(w, http.StatusOK, map[string]string{
		"csrf_token": csrf.Token(r),
	})
}

func Login(w http.ResponseWriter, r *http.Request) {
	if userFrom(r) != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		utils.HandleError(w, http.StatusBadRequest, "Invalid form data")
		return
	}

	form := forms.LoginForm{
		Username: r.FormValue("username"),
		Password: r.FormValue("password"),
		Remember: parseCheckbox(r.FormValue("remember")),
	}
	if errs := form.Validate(); len(errs) > 0 {
		utils.HandleFieldErrors(w, errs)
		return
	}

	// The identifier matches either username or email; failures stay
	// deliberately vague so the response never reveals which part was wrong.
	query, args, err := QB.Select(userColumns...).From("users").
		Where(squirrel.Or{
			squirrel.Eq{"username": form.Username},
			squirrel.Eq{"email": form.Username},
		}).ToSql()
	if err != nil {
		utils.HandleError(w, http.StatusInternalServerError, "Failed to look up user")
		logrus.WithError(utils.ErrorWithTrace(err, "building login lookup")).Error("login")
		return
	}

	var user models.User
	if err := db.Get(&user, query, args...); err != nil {
		utils.HandleError(w, http.StatusUnauthorized, "Invalid username/email or password")
		return
	}
	if err := utils.CheckPassword(user.PasswordHash, form.Password); err != nil {
		utils.HandleError(w, http.StatusUnauthorized, "Invalid username/email or password")
		return
	}

	if err := saveLoginSession(w, r, &user, form.Remember); err != nil {
		utils.HandleError(w, http.StatusInternalServerError, "Failed to establish session")
		logrus.WithError(utils.ErrorWithTrace(err, "saving session")).Error("login")
		return
	}

	utils.SendJSONResponse(w, http.StatusOK, map[string]interface{}{
		"message":  fmt.Sprintf("Welcome back, %s!", user.Username),
		"user":     user,
		"redirect": safeNext(r.URL.Query().Get("next")),
	})
}

func Logout(w http.ResponseWriter, r *http.Request) {
	if err := clearSession(w, r); err != nil {
		logrus.WithError(utils.ErrorWithTrace(err, "clearing session")).Error("logout")
	}
	utils.SendJSONResponse(w, http.StatusOK, map[string]string{
		"message":  "You have been logged out.",
		"redirect": "/",
	})
}

func Profile(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	query, args, err := QB.Select("COUNT(*)").From("reviews").Where(squirrel.Eq{"user_id": user.ID}).ToSql()
	if err != nil {
		utils.HandleError(w, http.StatusInternalServerError, "Failed to load profile")
		logrus.WithError(utils.ErrorWithTrace(err, "building review count")).Error("profile")
		return
	}
	var reviewCount int
	if err := db.Get(&reviewCount, query, args...); err != nil {
		utils.HandleError(w, http.StatusInternalServerError, "Failed to load profile")
		logrus.WithError(utils.ErrorWithTrace(err, "counting reviews")).Error("profile")
		return
	}

	utils.SendJSONResponse(w, http.StatusOK, map[string]interface{}{
		"user":         user,
		"review_count": reviewCount,
		"cart_count":   cartCountFor(user),
		"categories":   models.Categories,
	})
}

func parseCheckbox(value string) bool {
	switch strings.ToLower(value) {
	case "on", "true", "1", "y", "yes":
		return true
	}
	return false
}

// safeNext allows only site-relative redirect targets after login.
func safeNext(next string) string {
	if strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") {
		return next
	}
	return "/"
}

package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"bookstore/models"
	"bookstore/utils"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ViewCart lists the user's cart rows with their books and the order total.
func ViewCart(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	columns := append([]string{"c.id", "c.quantity", "c.added_at"}, prefixedBookColumns("b")...)
	query, args, err := QB.Select(columns...).
		From("cart c").
		Join("books b ON b.id = c.book_id").
		Where(squirrel.Eq{"c.user_id": user.ID}).
		OrderBy("c.added_at ASC").
		ToSql()
	if err != nil {
		utils.HandleError(w, http.StatusInternalServerError, "Failed to load cart")
		logrus.WithError(utils.ErrorWithTrace(err, "building cart query")).Error("view cart")
		return
	}

	items := []models.CartLine{}
	if err := db.Select(&items, query, args...); err != nil {
		utils.HandleError(w, http.StatusInternalServerError, "Failed to load cart")
		logrus.WithError(utils.ErrorWithTrace(err, "selecting cart items")).Error("view cart")
		return
	}

	var total float64
	for _, item := range items {
		total += float64(item.Quantity) * item.Book.Price
	}

	utils.SendJSONResponse(w, http.StatusOK, map[string]interface{}{
		"items":      items,
		"total":      total,
		"categories": models.Categories,
		"cart_count": len(items),
	})
}

// AddToCart puts a book in the cart, or bumps its quantity when it is
// already there. Repeated calls keep incrementing; that is the intended
// contract of the button.
func AddToCart(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	bookID, err := uuid.Parse(r.PathValue("bookId"))
	if err != nil {
		utils.HandleError(w, http.StatusNotFound, "Book not found")
		return
	}
	query, args, err := QB.Select("id").From("books").Where(squirrel.Eq{"id": bookID}).ToSql()
	if err != nil {
		utils.HandleError(w, http.StatusInternalServerError, "Failed to look up book")
		logrus.WithError(utils.ErrorWithTrace(err, "building book lookup")).Error("add to cart")
		return
	}
	var existingID uuid.UUID
	if err := db.Get(&existingID, query, args...); err != nil {
		utils.HandleError(w, http.StatusNotFound, "Book not found")
		return
	}

	// Single-statement upsert keeps the one-row-per-(user,book) invariant
	// without a read-modify-write race.
	query, args, err = QB.Insert("cart").
		Columns("id", "user_id", "book_id", "quantity", "added_at").
		Values(uuid.New(), user.ID, bookID, 1, time.Now()).
		Suffix("ON CONFLICT (user_id, book_id) DO UPDATE SET quantity = cart.quantity + 1").
		ToSql()
	if err != nil {
		utils.HandleError(w, http.StatusInternalServerError, "Failed to add to cart")
		logrus.WithError(utils.ErrorWithTrace(err, "building cart upsert")).Error("add to cart")
		return
	}
	if _, err := db.Exec(query, args...); err != nil {
		utils.HandleError(w, http.StatusInternalServerError, "Failed to add to cart")
		logrus.WithError(utils.ErrorWithTrace(err, "upserting cart item")).Error("add to cart")
		return
	}

	count, err := cartCount(user.ID)
	if err != nil {
		utils.HandleError(w, http.StatusInternalServerError, "Failed to count cart")
		logrus.WithError(utils.ErrorWithTrace(err, "counting cart items")).Error("add to cart")
		return
	}

	if isAJAX(r) {
		utils.SendJSONResponse(w, http.StatusOK, map[string]interface{}{
			"success":    true,
			"cart_count": count,
			"message":    "Book added to cart!",
		})
		return
	}

	target := r.Referer()
	if target == "" {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// RemoveFromCart deletes one cart row after checking the caller owns it.
func RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	item, ok := loadOwnedCartItem(w, r, user.ID)
	if !ok {
		return
	}

	query, args, err := QB.Delete("cart").Where(squirrel.Eq{"id": item.ID}).ToSql()
	if err != nil {
		utils.HandleError(w, http.StatusInternalServerError, "Failed to remove item")
		logrus.WithError(utils.ErrorWithTrace(err, "building cart delete")).Error("remove from cart")
		return
	}
	if _, err := db.Exec(query, args...); err != nil {
		utils.HandleError(w, http.StatusInternalServerError, "Failed to remove item")
		logrus.WithError(utils.ErrorWithTrace(err, "deleting cart item")).Error("remove from cart")
		return
	}

	utils.SendJSONResponse(w, http.StatusOK, map[string]interface{}{
		"message":    "Item removed from cart.",
		"cart_count": cartCountFor(user),
	})
}

// UpdateCart sets a cart row's quantity. Zero or negative input is rejected;
// removal goes through RemoveFromCart explicitly.
func UpdateCart(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	item, ok := loadOwnedCartItem(w, r, user.ID)
	if !ok {
		return
	}

	if err := r.ParseForm(); err != nil {
		utils.HandleError(w, http.StatusBadRequest, "Invalid form data")
		return
	}
	quantity, err := strconv.Atoi(r.FormValue("quantity"))
	if err != nil || quantity <= 0 {
		utils.HandleFieldErrors(w, map[string]string{"quantity": "Quantity must be a positive number"})
		return
	}

	query, args, err := QB.Update("cart").
		Set("quantity", quantity).
		Where(squirrel.Eq{"id": item.ID}).
		ToSql()
	if err != nil {
		utils.HandleError(w, http.StatusInternalServerError, "Failed to update cart")
		logrus.WithError(utils.ErrorWithTrace(err, "building cart update")).Error("update cart")
		return
	}
	if _, err := db.Exec(query, args...); err != nil {
		utils.HandleError(w, http.StatusInternalServerError, "Failed to update cart")
		logrus.WithError(utils.ErrorWithTrace(err, "updating cart item")).Error("update cart")
		return
	}

	utils.SendJSONResponse(w, http.StatusOK, map[string]interface{}{
		"message":    "Cart updated.",
		"cart_count": cartCountFor(user),
	})
}

// loadOwnedCartItem fetches the cart row named in the path and enforces the
// ownership check. It writes the error response itself when the row is
// missing or belongs to someone else.
func loadOwnedCartItem(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (models.CartItem, bool) {
	var item models.CartItem

	itemID, err := uuid.Parse(r.PathValue("itemId"))
	if err != nil {
		utils.HandleError(w, http.StatusNotFound, "Cart item not found")
		return item, false
	}

	query, args, err := QB.Select("id", "user_id", "book_id", "quantity", "added_at").
		From("cart").
		Where(squirrel.Eq{"id": itemID}).
		ToSql()
	if err != nil {
		utils.HandleError(w, http.StatusInternalServerError, "Failed to look up cart item")
		logrus.WithError(utils.ErrorWithTrace(err, "building cart item lookup")).Error("cart")
		return item, false
	}
	if err := db.Get(&item, query, args...); err != nil {
		utils.HandleError(w, http.StatusNotFound, "Cart item not found")
		return item, false
	}
	if item.UserID != userID {
		utils.HandleError(w, http.StatusForbidden, "Unauthorized action.")
		return item, false
	}
	return item, true
}

// isAJAX reports whether the client asked for a JSON answer instead of the
// redirect flow.
func isAJAX(r *http.Request) bool {
	if r.Header.Get("X-Requested-With") == "XMLHttpRequest" {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"meatstore/internal/events"
	"meatstore/internal/logging"
	"meatstore/internal/models"
)

type CartHandler struct {
	DB       *gorm.DB
	Producer events.Publisher
}

type cartItemRequest struct {
	ID       string  `json:"id"`
	Weight   string  `json:"weight"`
	Quantity int     `json:"quantity"`
	Name     string  `json:"name"`
	Image    string  `json:"image"`
	Price    float64 `json:"price"`
}

// getOrCreateCart resolves the caller's cart, creating an empty one on
// first access. A cart is never deleted afterwards, only emptied.
func (h *CartHandler) getOrCreateCart(c echo.Context, userID uint) (*models.Cart, error) {
	var cart models.Cart
	err := h.DB.WithContext(c.Request().Context()).
		Where(models.Cart{UserID: userID}).
		FirstOrCreate(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// loadCart returns the cart with items, or nil when it doesn't exist.
func (h *CartHandler) loadCart(c echo.Context, userID uint) (*models.Cart, error) {
	var cart models.Cart
	err := h.DB.WithContext(c.Request().Context()).
		Preload("Items").
		Where("user_id = ?", userID).
		First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	return &cart, nil
}

// mergeItem applies the merge rule inside tx: an existing
// (product, weight) row gets its quantity bumped with a single
// conditional UPDATE, otherwise the row is inserted. Doing the
// increment in SQL keeps two concurrent adds from losing one.
func mergeItem(tx *gorm.DB, cartID uint, item cartItemRequest) error {
	res := tx.Model(&models.CartItem{}).
		Where("cart_id = ? AND product_id = ? AND weight = ?", cartID, item.ID, item.Weight).
		Update("quantity", gorm.Expr("quantity + ?", item.Quantity))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	return tx.Create(&models.CartItem{
		CartID:    cartID,
		ProductID: item.ID,
		Weight:    item.Weight,
		Quantity:  item.Quantity,
		Name:      item.Name,
		Image:     item.Image,
		Price:     item.Price,
	}).Error
}

func (h *CartHandler) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart_get")

	userID, err := sessionUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	if _, err := h.getOrCreateCart(c, userID); err != nil {
		l.Error("cart_get_error", "status", 500, "error", err)
		return fail(c, http.StatusInternalServerError, "server error")
	}
	cart, err := h.loadCart(c, userID)
	if err != nil {
		l.Error("cart_get_error", "status", 500, "error", err)
		return fail(c, http.StatusInternalServerError, "server error")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "cart": cart})
}

func (h *CartHandler) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart_add")

	userID, err := sessionUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	var item cartItemRequest
	if err := c.Bind(&item); err != nil {
		l.Warn("cart_add_error", "status", 400, "error", err)
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if item.ID == "" {
		return fail(c, http.StatusBadRequest, "item id is required")
	}

	cart, err := h.getOrCreateCart(c, userID)
	if err != nil {
		l.Error("cart_add_error", "status", 500, "error", err)
		return fail(c, http.StatusInternalServerError, "server error")
	}

	if err := h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return mergeItem(tx, cart.ID, item)
	}); err != nil {
		l.Error("cart_add_error", "status", 500, "error", err)
		return fail(c, http.StatusInternalServerError, "server error")
	}

	publish(c, h.Producer, events.TopicCartEvents, item.ID, map[string]interface{}{
		"type":     "cart_item_added",
		"userID":   userID,
		"itemID":   item.ID,
		"weight":   item.Weight,
		"quantity": item.Quantity,
	})

	cartOut, err := h.loadCart(c, userID)
	if err != nil {
		l.Error("cart_add_error", "status", 500, "error", err)
		return fail(c, http.StatusInternalServerError, "server error")
	}

	l.Info("cart_item_added", "user_id", userID, "item_id", item.ID)
	return c.JSON(http.StatusOK, echo.Map{"success": true, "cart": cartOut})
}

func (h *CartHandler) AddMultipleToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart_add_multiple")

	userID, err := sessionUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	var req struct {
		Items []cartItemRequest `json:"items"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("cart_add_multiple_error", "status", 400, "error", err)
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if len(req.Items) == 0 {
		return fail(c, http.StatusBadRequest, "no items to add")
	}

	cart, err := h.getOrCreateCart(c, userID)
	if err != nil {
		l.Error("cart_add_multiple_error", "status", 500, "error", err)
		return fail(c, http.StatusInternalServerError, "server error")
	}

	if err := h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range req.Items {
			if err := mergeItem(tx, cart.ID, item); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		l.Error("cart_add_multiple_error", "status", 500, "error", err)
		return fail(c, http.StatusInternalServerError, "server error")
	}

	cartOut, err := h.loadCart(c, userID)
	if err != nil {
		l.Error("cart_add_multiple_error", "status", 500, "error", err)
		return fail(c, http.StatusInternalServerError, "server error")
	}

	l.Info("cart_items_added", "user_id", userID, "count", len(req.Items))
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "cart updated successfully",
		"cart":    cartOut,
	})
}

// RemoveFromCart deletes the matching (id, weight) row; removing an
// absent item is a silent no-op.
func (h *CartHandler) RemoveFromCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart_remove")

	userID, err := sessionUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	var req struct {
		ID     string `json:"id"`
		Weight string `json:"weight"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	cart, err := h.loadCart(c, userID)
	if err != nil {
		l.Error("cart_remove_error", "status", 500, "error", err)
		return fail(c, http.StatusInternalServerError, "server error")
	}
	if cart == nil {
		return fail(c, http.StatusNotFound, "cart not found")
	}

	if err := h.DB.WithContext(ctx).
		Where("cart_id = ? AND product_id = ? AND weight = ?", cart.ID, req.ID, req.Weight).
		Delete(&models.CartItem{}).Error; err != nil {
		l.Error("cart_remove_error", "status", 500, "error", err)
		return fail(c, http.StatusInternalServerError, "server error")
	}

	publish(c, h.Producer, events.TopicCartEvents, req.ID, map[string]interface{}{
		"type":   "cart_item_removed",
		"userID": userID,
		"itemID": req.ID,
		"weight": req.Weight,
	})

	cartOut, err := h.loadCart(c, userID)
	if err != nil {
		l.Error("cart_remove_error", "status", 500, "error", err)
		return fail(c, http.StatusInternalServerError, "server error")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "cart": cartOut})
}

// UpdateCartItem overwrites quantity on the matching row; the value is
// applied as the caller sent it.
func (h *CartHandler) UpdateCartItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart_update")

	userID, err := sessionUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	var req struct {
		ID       string `json:"id"`
		Weight   string `json:"weight"`
		Quantity int    `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	cart, err := h.loadCart(c, userID)
	if err != nil {
		l.Error("cart_update_error", "status", 500, "error", err)
		return fail(c, http.StatusInternalServerError, "server error")
	}
	if cart == nil {
		return fail(c, http.StatusNotFound, "cart not found")
	}

	res := h.DB.WithContext(ctx).Model(&models.CartItem{}).
		Where("cart_id = ? AND product_id = ? AND weight = ?", cart.ID, req.ID, req.Weight).
		Update("quantity", req.Quantity)
	if res.Error != nil {
		l.Error("cart_update_error", "status", 500, "error", res.Error)
		return fail(c, http.StatusInternalServerError, "server error")
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "item not found in cart")
	}

	cartOut, err := h.loadCart(c, userID)
	if err != nil {
		l.Error("cart_update_error", "status", 500, "error", err)
		return fail(c, http.StatusInternalServerError, "server error")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "cart": cartOut})
}

// ClearCart empties the items; the cart row itself stays.
func (h *CartHandler) ClearCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart_clear")

	userID, err := sessionUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}

	cart, err := h.loadCart(c, userID)
	if err != nil {
		l.Error("cart_clear_error", "status", 500, "error", err)
		return fail(c, http.StatusInternalServerError, "server error")
	}
	if cart == nil {
		return fail(c, http.StatusNotFound, "cart not found")
	}

	if err := h.DB.WithContext(ctx).
		Where("cart_id = ?", cart.ID).
		Delete(&models.CartItem{}).Error; err != nil {
		l.Error("cart_clear_error", "status", 500, "error", err)
		return fail(c, http.StatusInternalServerError, "server error")
	}

	publish(c, h.Producer, events.TopicCartEvents, "", map[string]interface{}{
		"type":   "cart_cleared",
		"userID": userID,
	})

	cartOut, err := h.loadCart(c, userID)
	if err != nil {
		l.Error("cart_clear_error", "status", 500, "error", err)
		return fail(c, http.StatusInternalServerError, "server error")
	}

	l.Info("cart_cleared", "user_id", userID)
	return c.JSON(http.StatusOK, echo.Map{"success": true, "cart": cartOut})
}

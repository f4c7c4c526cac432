package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/marketplace/internal/flash"
	"github.com/Skotchmaster/marketplace/internal/models"
)

type CartHandler struct {
	DB       *gorm.DB
	Producer EventPublisher
}

// CartRow is one cart line joined with its product, subtotal is unit price
// times quantity.
type CartRow struct {
	ID        uint
	ProductID uint
	Title     string
	Price     decimal.Decimal
	Quantity  uint
	Subtotal  decimal.Decimal
}

func (h *CartHandler) loadCart(userID uint) ([]CartRow, decimal.Decimal, error) {
	var rows []CartRow
	err := h.DB.Model(&models.CartItem{}).
		Select("cart_items.id, cart_items.product_id, cart_items.quantity, products.title, products.price").
		Joins("JOIN products ON products.id = cart_items.product_id").
		Where("cart_items.user_id = ?", userID).
		Order("cart_items.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, decimal.Decimal{}, err
	}

	total := decimal.Zero
	for i := range rows {
		rows[i].Subtotal = rows[i].Price.Mul(decimal.NewFromInt(int64(rows[i].Quantity)))
		total = total.Add(rows[i].Subtotal)
	}
	return rows, total, nil
}

func (h *CartHandler) ViewCart(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	rows, total, err := h.loadCart(userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.Render(http.StatusOK, "cart.html", map[string]interface{}{
		"Items": rows,
		"Total": total,
		"Flash": flash.Pop(c),
	})
}

func (h *CartHandler) AddToCart(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	productID, err := strconv.Atoi(c.Param("product_id"))
	if err != nil || productID <= 0 {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}

	var product models.Product
	if err := h.DB.First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var item models.CartItem
	tx := h.DB.Where("user_id = ? AND product_id = ?", userID, product.ID).First(&item)
	switch {
	case tx.Error == nil:
		item.Quantity += 1
		if err := h.DB.Save(&item).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	case errors.Is(tx.Error, gorm.ErrRecordNotFound):
		item = models.CartItem{
			UserID:    userID,
			ProductID: product.ID,
			Quantity:  1,
		}
		if err := h.DB.Create(&item).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, tx.Error.Error())
	}

	publish(c, h.Producer, "cart_events", fmt.Sprint(userID), map[string]interface{}{
		"type":      "cart_item_added",
		"userID":    userID,
		"productID": product.ID,
		"quantity":  item.Quantity,
	})

	flash.Set(c, flash.Success, fmt.Sprintf("%s added to cart!", product.Title))
	return c.Redirect(http.StatusFound, "/cart/")
}

func (h *CartHandler) RemoveFromCart(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("cart_item_id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusNotFound, "cart item not found")
	}

	// The user_id predicate doubles as the ownership check: someone else's
	// item is indistinguishable from a missing one.
	var item models.CartItem
	if err := h.DB.Where("id = ? AND user_id = ?", id, userID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "cart item not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := h.DB.Delete(&item).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	publish(c, h.Producer, "cart_events", fmt.Sprint(userID), map[string]interface{}{
		"type":   "cart_item_removed",
		"userID": userID,
		"itemID": item.ID,
	})

	flash.Set(c, flash.Info, "Item removed from cart.")
	return c.Redirect(http.StatusFound, "/cart/")
}

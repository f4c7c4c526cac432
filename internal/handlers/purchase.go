package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/marketplace/internal/flash"
	"github.com/Skotchmaster/marketplace/internal/models"
)

type PurchaseHandler struct {
	DB       *gorm.DB
	Producer EventPublisher
}

// Checkout converts every cart item into a purchase and empties the cart.
// The conversion runs in one transaction so a failure leaves the cart
// untouched rather than half-converted.
func (h *PurchaseHandler) Checkout(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	var items []models.CartItem
	if err := h.DB.Where("user_id = ?", userID).Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if len(items) == 0 {
		flash.Set(c, flash.Warning, "Your cart is empty.")
		return c.Redirect(http.StatusFound, "/cart/")
	}

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		for _, item := range items {
			purchase := models.Purchase{
				UserID:    userID,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
			}
			if err := tx.Create(&purchase).Error; err != nil {
				return err
			}
			if err := tx.Delete(&models.CartItem{}, item.ID).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, txErr.Error())
	}

	publish(c, h.Producer, "purchase_events", fmt.Sprint(userID), map[string]interface{}{
		"type":   "checkout_completed",
		"userID": userID,
		"items":  len(items),
	})

	flash.Set(c, flash.Success, "Checkout complete! Thank you for your purchase.")
	return c.Redirect(http.StatusFound, "/purchases/")
}

// PurchaseRow is a history line joined with its product.
type PurchaseRow struct {
	ID          uint
	ProductID   uint
	Title       string
	Price       decimal.Decimal
	Quantity    uint
	Subtotal    decimal.Decimal
	PurchasedAt time.Time
}

func (h *PurchaseHandler) History(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	var rows []PurchaseRow
	err = h.DB.Model(&models.Purchase{}).
		Select("purchases.id, purchases.product_id, purchases.quantity, purchases.purchased_at, products.title, products.price").
		Joins("JOIN products ON products.id = purchases.product_id").
		Where("purchases.user_id = ?", userID).
		Order("purchases.purchased_at DESC, purchases.id DESC").
		Scan(&rows).Error
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	for i := range rows {
		rows[i].Subtotal = rows[i].Price.Mul(decimal.NewFromInt(int64(rows[i].Quantity)))
	}

	return c.Render(http.StatusOK, "purchases.html", map[string]interface{}{
		"Purchases": rows,
		"Flash":     flash.Pop(c),
	})
}

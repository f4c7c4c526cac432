package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/marketplace/internal/flash"
	"github.com/Skotchmaster/marketplace/internal/forms"
	"github.com/Skotchmaster/marketplace/internal/models"
	"github.com/Skotchmaster/marketplace/internal/session"
)

type ProductHandler struct {
	DB       *gorm.DB
	Producer EventPublisher
	MediaDir string
}

// FeedRow is a feed line materialized by an explicit join, the seller
// username comes from the users table in the same query.
type FeedRow struct {
	ID         uint
	Title      string
	Price      decimal.Decimal
	Image      string
	SellerName string
	CreatedAt  time.Time
}

func (h *ProductHandler) Feed(c echo.Context) error {
	var rows []FeedRow
	err := h.DB.Model(&models.Product{}).
		Select("products.id, products.title, products.price, products.image, products.created_at, users.username AS seller_name").
		Joins("JOIN users ON users.id = products.seller_id").
		Order("products.created_at DESC, products.id DESC").
		Scan(&rows).Error
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.Render(http.StatusOK, "feed.html", map[string]interface{}{
		"Products": rows,
		"Username": session.Username(c),
		"Flash":    flash.Pop(c),
	})
}

func (h *ProductHandler) AddProductForm(c echo.Context) error {
	return c.Render(http.StatusOK, "add_product.html", map[string]interface{}{
		"Flash": flash.Pop(c),
	})
}

func (h *ProductHandler) AddProduct(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	var form forms.ProductForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	fieldErrors := map[string]string{}
	if err := c.Validate(&form); err != nil {
		fieldErrors = forms.Errors(err)
	}

	price, perr := decimal.NewFromString(form.Price)
	if _, ok := fieldErrors["Price"]; !ok {
		if perr != nil {
			fieldErrors["Price"] = "Enter a valid amount."
		} else if !price.IsPositive() {
			fieldErrors["Price"] = "Price must be a positive amount."
		}
	}

	if len(fieldErrors) > 0 {
		return h.renderProductForm(c, &form, fieldErrors)
	}

	image, err := h.saveImage(c)
	if err != nil {
		return h.renderProductForm(c, &form, map[string]string{"Image": "Could not store the uploaded image."})
	}

	product := models.Product{
		Title:       form.Title,
		Description: form.Description,
		Price:       price,
		Image:       image,
		SellerID:    userID,
	}
	if err := h.DB.Create(&product).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	publish(c, h.Producer, "product_events", fmt.Sprint(userID), map[string]interface{}{
		"type":      "product_created",
		"productID": product.ID,
		"sellerID":  userID,
		"title":     product.Title,
	})

	flash.Set(c, flash.Success, "Product added successfully!")
	return c.Redirect(http.StatusFound, "/")
}

func (h *ProductHandler) renderProductForm(c echo.Context, form *forms.ProductForm, fieldErrors map[string]string) error {
	return c.Render(http.StatusOK, "add_product.html", map[string]interface{}{
		"Errors":      fieldErrors,
		"Title":       form.Title,
		"Description": form.Description,
		"Price":       form.Price,
	})
}

// saveImage stores the uploaded file under the media dir with a generated
// name and returns the stored reference. A missing file is not an error,
// the image is optional.
func (h *ProductHandler) saveImage(c echo.Context) (string, error) {
	file, err := c.FormFile("image")
	if err != nil {
		return "", nil
	}
	return storeUpload(file, h.MediaDir)
}

func storeUpload(file *multipart.FileHeader, dir string) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	name := uuid.New().String() + filepath.Ext(file.Filename)
	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return name, nil
}

func (h *ProductHandler) MyListings(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	var products []models.Product
	if err := h.DB.
		Where("seller_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&products).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.Render(http.StatusOK, "my_listings.html", map[string]interface{}{
		"Products": products,
		"Username": session.Username(c),
		"Flash":    flash.Pop(c),
	})
}

func (h *ProductHandler) ProductDetail(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}

	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var seller models.User
	if err := h.DB.First(&seller, product.SellerID).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.Render(http.StatusOK, "product_detail.html", map[string]interface{}{
		"Product":    product,
		"SellerName": seller.Username,
		"Flash":      flash.Pop(c),
	})
}

func (h *ProductHandler) Dashboard(c echo.Context) error {
	return c.Render(http.StatusOK, "dashboard.html", map[string]interface{}{
		"Username": session.Username(c),
		"Flash":    flash.Pop(c),
	})
}

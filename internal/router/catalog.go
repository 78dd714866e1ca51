package router

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"storefront/internal/catalog"
	"storefront/internal/model"
)

func listProducts(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var list []model.Product
		if err := d.DB.WithContext(c.Request.Context()).Preload("Variants").Find(&list).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": list})
	}
}

func getProduct(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramUint(c, "id")
		if !ok {
			return
		}
		product, found, err := catalog.LoadProduct(c.Request.Context(), d.DB, id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"code": 404, "msg": "product not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": product})
	}
}

func createProduct(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Name        string `json:"name" binding:"required"`
			Slug        string `json:"slug"`
			Description string `json:"description"`
			Variants    []struct {
				Name  string `json:"name" binding:"required"`
				Sizes string `json:"sizes"`
				Price *int64 `json:"price" binding:"omitempty,min=0"`
				Stock *int64 `json:"stock" binding:"omitempty,min=0"`
			} `json:"variants" binding:"omitempty,dive"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}

		p := &model.Product{
			Name:        req.Name,
			Slug:        req.Slug,
			Description: req.Description,
		}
		if p.Slug == "" {
			p.Slug = slugify(req.Name)
		}
		for _, v := range req.Variants {
			p.Variants = append(p.Variants, model.ProductVariant{
				Name:  v.Name,
				Sizes: v.Sizes,
				Price: v.Price,
				Stock: v.Stock,
			})
		}
		// Products created without variants get the sentinel default so the
		// variant-level pricing model holds everywhere.
		catalog.EnsureDefaultVariant(p)

		if err := d.DB.WithContext(c.Request.Context()).Create(p).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": p})
	}
}

func deleteProduct(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramUint(c, "id")
		if !ok {
			return
		}
		err := catalog.DeleteProduct(c.Request.Context(), d.DB, id)
		if errors.Is(err, catalog.ErrReferencedByOrders) {
			c.JSON(http.StatusConflict, gin.H{"code": 409, "msg": err.Error()})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "deleted"})
	}
}

func deleteVariant(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID, ok := paramUint(c, "id")
		if !ok {
			return
		}
		variantID, ok := paramUint(c, "variant_id")
		if !ok {
			return
		}
		err := catalog.DeleteVariant(c.Request.Context(), d.DB, productID, variantID)
		if errors.Is(err, catalog.ErrReferencedByOrders) {
			c.JSON(http.StatusConflict, gin.H{"code": 409, "msg": err.Error()})
			return
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": 404, "msg": "variant not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "deleted"})
	}
}

func paramUint(c *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "invalid " + name})
		return 0, false
	}
	return uint(n), true
}

func slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}), "-")
}

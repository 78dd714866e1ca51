package router

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"storefront/internal/model"
)

// getOrder looks an order up by its shareable reference.
func getOrder(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ref := c.Param("reference")
		var order model.Order
		err := d.DB.WithContext(c.Request.Context()).Preload("Details").
			Where("reference = ?", ref).First(&order).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": 404, "msg": "order not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": order})
	}
}

package router

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"storefront/internal/cart"
	"storefront/internal/catalog"
)

// cartLineView is a resolved, priced cart line as rendered to the shopper.
type cartLineView struct {
	Key            string `json:"key"`
	ProductID      uint   `json:"product_id"`
	ProductName    string `json:"product_name"`
	VariantID      uint   `json:"variant_id"`
	VariantName    string `json:"variant_name"`
	SelectedSize   string `json:"selected_size"`
	Quantity       int64  `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	LineTotalCents int64  `json:"line_total_cents"`
	StockQuantity  int64  `json:"stock_quantity"`
}

// resolveCart renders the session cart through the variant resolver. Lines
// referencing vanished products are silently dropped, matching the codec's
// "degrade, don't crash" posture.
func resolveCart(c *gin.Context, d Deps, sid string) ([]cartLineView, int64, error) {
	raw, err := d.Cart.Get(c.Request.Context(), sid)
	if err != nil {
		return nil, 0, err
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var views []cartLineView
	var total int64
	for _, key := range keys {
		line := cart.ParseKey(key)
		if line.ProductID == 0 {
			continue
		}
		product, found, err := catalog.LoadProduct(c.Request.Context(), d.DB, line.ProductID)
		if err != nil {
			return nil, 0, err
		}
		if !found {
			continue
		}
		res := catalog.Resolve(product, line.VariantID)
		view := cartLineView{
			Key:            key,
			ProductID:      product.ID,
			ProductName:    product.Name,
			SelectedSize:   line.SelectedSize,
			Quantity:       raw[key],
			UnitPriceCents: res.UnitPriceCents(),
			StockQuantity:  res.StockQuantity(),
		}
		if res.Variant != nil {
			view.VariantID = res.Variant.ID
			view.VariantName = res.Variant.Name
		}
		view.LineTotalCents = view.UnitPriceCents * view.Quantity
		total += view.LineTotalCents
		views = append(views, view)
	}
	return views, total, nil
}

func viewCart(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := sessionID(c)
		lines, total, err := resolveCart(c, d, sid)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{
			"lines":       lines,
			"total_cents": total,
		}})
	}
}

func addCartItem(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			ProductID uint   `json:"product_id" binding:"required,min=1"`
			VariantID uint   `json:"variant_id"`
			Size      string `json:"size"`
			Quantity  int64  `json:"quantity" binding:"omitempty,min=1"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}
		if req.Quantity <= 0 {
			req.Quantity = 1
		}

		product, found, err := catalog.LoadProduct(c.Request.Context(), d.DB, req.ProductID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"code": 404, "msg": "product not found"})
			return
		}

		// A variant id that does not belong to this product resolves to the
		// default; the key records what actually resolved, not the raw input.
		res := catalog.Resolve(product, req.VariantID)
		variantID := uint(0)
		if res.Kind == catalog.VariantExplicit {
			variantID = res.Variant.ID
		}

		sid := sessionID(c)
		key := cart.BuildKey(product.ID, variantID, req.Size)

		current, err := d.Cart.Get(c.Request.Context(), sid)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		if current[key]+req.Quantity > res.StockQuantity() {
			c.JSON(http.StatusConflict, gin.H{"code": 409, "msg": "insufficient stock"})
			return
		}

		qty, err := d.Cart.Add(c.Request.Context(), sid, key, req.Quantity)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{
			"key":      key,
			"quantity": qty,
		}})
	}
}

func removeCartItem(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := sessionID(c)
		key := c.Param("key")
		if err := d.Cart.Remove(c.Request.Context(), sid, key); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "removed"})
	}
}

func clearCart(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := sessionID(c)
		if err := d.Cart.Clear(c.Request.Context(), sid); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "cleared"})
	}
}

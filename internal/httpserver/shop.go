package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	catalogsvc "storefront/internal/service/catalog"
)

func (h *handlers) index(c *gin.Context) {
	h.productList(c, "/", "Shop")
}

func (h *handlers) products(c *gin.Context) {
	h.productList(c, "/products", "All Products")
}

func (h *handlers) productList(c *gin.Context, path, title string) {
	page, err := h.deps.Catalog.ListPage(c.Request.Context(), catalogsvc.ParsePage(c.Query("page")))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.HTML(http.StatusOK, "shop/product-list.html", view(c, path, title, gin.H{
		"prods":           page.Products,
		"currentPage":     page.CurrentPage,
		"hasNextPage":     page.HasNextPage,
		"hasPreviousPage": page.HasPreviousPage,
		"nextPage":        page.NextPage,
		"previousPage":    page.PreviousPage,
		"lastPage":        page.LastPage,
	}))
}

func (h *handlers) productDetail(c *gin.Context) {
	p, err := h.deps.Catalog.Get(c.Request.Context(), c.Param("productId"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.HTML(http.StatusOK, "shop/product-detail.html", view(c, "/products", p.Title, gin.H{
		"product": p,
	}))
}

func (h *handlers) cart(c *gin.Context) {
	user, _ := currentUser(c)
	cart, err := h.deps.Carts.View(c.Request.Context(), user.ID)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.HTML(http.StatusOK, "shop/cart.html", view(c, "/cart", "Your Cart", gin.H{
		"products": cart.Items,
	}))
}

func (h *handlers) addToCart(c *gin.Context) {
	user, _ := currentUser(c)
	if err := h.deps.Carts.Add(c.Request.Context(), user.ID, c.PostForm("productId")); err != nil {
		h.renderError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/cart")
}

func (h *handlers) removeFromCart(c *gin.Context) {
	user, _ := currentUser(c)
	if err := h.deps.Carts.Remove(c.Request.Context(), user.ID, c.PostForm("productId")); err != nil {
		h.renderError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/cart")
}

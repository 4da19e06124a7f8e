package httpserver

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	ordersvc "storefront/internal/service/order"
)

func (h *handlers) createOrder(c *gin.Context) {
	user, _ := currentUser(c)
	if _, err := h.deps.Orders.Create(c.Request.Context(), user); err != nil {
		h.renderError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/checkout")
}

func (h *handlers) checkout(c *gin.Context) {
	user, _ := currentUser(c)
	co, err := h.deps.Orders.Checkout(c.Request.Context(), user.ID)
	if err != nil {
		h.renderError(c, err)
		return
	}
	data := gin.H{"totalSum": co.Total}
	if co.Order != nil {
		data["products"] = co.Order.Items
		data["orderId"] = co.Order.ID
	}
	c.HTML(http.StatusOK, "shop/checkout.html", view(c, "/checkout", "Checkout", data))
}

// initiatePayment answers the checkout script with the provider approval URL.
func (h *handlers) initiatePayment(c *gin.Context) {
	user, _ := currentUser(c)
	href, err := h.deps.Orders.InitiatePayment(c.Request.Context(), user.ID)
	if err != nil {
		h.jsonError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"redirectUrl": href})
}

// confirmPayment handles the provider return URL. It never renders an error:
// failures are logged and the shopper goes back to checkout.
func (h *handlers) confirmPayment(c *gin.Context) {
	user, _ := currentUser(c)
	paymentID := c.Query("paymentId")
	if paymentID == "" {
		paymentID = c.Query("token")
	}
	in := ordersvc.ConfirmInput{
		PaymentID: paymentID,
		PayerID:   c.Query("PayerID"),
		OrderID:   c.Query("orderId"),
	}
	if _, err := h.deps.Orders.ConfirmPayment(c.Request.Context(), user.ID, in); err != nil {
		h.logger.Printf("http: payment confirmation request_id=%s order_id=%s payment_id=%s error=%v",
			c.GetString(requestIDKey), in.OrderID, in.PaymentID, err)
		c.Redirect(http.StatusFound, "/checkout")
		return
	}
	c.Redirect(http.StatusFound, "/orders")
}

// cancelPayment handles the provider cancel URL. The order's items go back
// into the cart; like confirmation it only logs failures.
func (h *handlers) cancelPayment(c *gin.Context) {
	user, _ := currentUser(c)
	orderID := c.Query("orderId")
	restored, err := h.deps.Orders.CancelPayment(c.Request.Context(), user.ID, orderID)
	if err != nil {
		h.logger.Printf("http: payment cancel request_id=%s order_id=%s error=%v", c.GetString(requestIDKey), orderID, err)
	} else {
		h.logger.Printf("http: payment canceled request_id=%s order_id=%s restored=%t", c.GetString(requestIDKey), orderID, restored)
	}
	c.Redirect(http.StatusFound, "/cart")
}

func (h *handlers) orders(c *gin.Context) {
	user, _ := currentUser(c)
	orders, err := h.deps.Orders.ListPaid(c.Request.Context(), user.ID)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.HTML(http.StatusOK, "shop/orders.html", view(c, "/orders", "Your Orders", gin.H{
		"orders": orders,
	}))
}

func (h *handlers) invoice(c *gin.Context) {
	user, _ := currentUser(c)
	inv, err := h.deps.Orders.Invoice(c.Request.Context(), user.ID, c.Param("orderId"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", inv.FileName))
	c.Data(http.StatusOK, "application/pdf", inv.PDF)
}

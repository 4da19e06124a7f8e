package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"storefront/internal/domain"
	accountsvc "storefront/internal/service/account"
)

func (h *handlers) loginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "auth/login.html", view(c, "/login", "Login", nil))
}

func (h *handlers) login(c *gin.Context) {
	email := c.PostForm("email")
	_, sess, err := h.deps.Accounts.Login(c.Request.Context(), email, c.PostForm("password"))
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			c.HTML(http.StatusUnprocessableEntity, "auth/login.html", view(c, "/login", "Login", gin.H{
				"errorMessage": publicMessage(err, http.StatusBadRequest),
				"oldEmail":     email,
			}))
			return
		}
		h.renderError(c, err)
		return
	}
	setSessionCookie(c, sess.Token, sess.ExpiresAt, h.opts.SecureCookies)
	c.Redirect(http.StatusFound, "/")
}

func (h *handlers) signupPage(c *gin.Context) {
	c.HTML(http.StatusOK, "auth/signup.html", view(c, "/signup", "Signup", nil))
}

func (h *handlers) signup(c *gin.Context) {
	var in accountsvc.SignupInput
	if err := c.ShouldBind(&in); err != nil {
		h.renderError(c, domain.Validation("invalid signup form"))
		return
	}
	if _, err := h.deps.Accounts.Signup(c.Request.Context(), in); err != nil {
		if errors.Is(err, domain.ErrValidation) {
			c.HTML(http.StatusUnprocessableEntity, "auth/signup.html", view(c, "/signup", "Signup", gin.H{
				"errorMessage": publicMessage(err, http.StatusBadRequest),
				"oldEmail":     in.Email,
			}))
			return
		}
		h.renderError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/login")
}

func (h *handlers) logout(c *gin.Context) {
	if token, ok := c.Get(sessionKey); ok {
		if err := h.deps.Accounts.Logout(c.Request.Context(), token.(string)); err != nil {
			h.logger.Printf("http: logout request_id=%s error=%v", c.GetString(requestIDKey), err)
		}
	}
	clearSessionCookie(c, h.opts.SecureCookies)
	c.Redirect(http.StatusFound, "/")
}

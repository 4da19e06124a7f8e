package httpserver

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"storefront/internal/domain"
	"storefront/internal/invoice"
	accountsvc "storefront/internal/service/account"
	catalogsvc "storefront/internal/service/catalog"
	ordersvc "storefront/internal/service/order"
)

type catalogService interface {
	ListPage(ctx context.Context, page int) (*catalogsvc.Page, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
}

type cartService interface {
	Add(ctx context.Context, userID, productID string) error
	Remove(ctx context.Context, userID, productID string) error
	View(ctx context.Context, userID string) (*domain.Cart, error)
}

type orderService interface {
	Create(ctx context.Context, user domain.User) (*domain.Order, error)
	Checkout(ctx context.Context, userID string) (*ordersvc.Checkout, error)
	InitiatePayment(ctx context.Context, userID string) (string, error)
	ConfirmPayment(ctx context.Context, userID string, in ordersvc.ConfirmInput) (*domain.Order, error)
	CancelPayment(ctx context.Context, userID, orderID string) (bool, error)
	ListPaid(ctx context.Context, userID string) ([]domain.Order, error)
	Invoice(ctx context.Context, userID, orderID string) (*invoice.Invoice, error)
}

type accountService interface {
	Signup(ctx context.Context, in accountsvc.SignupInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, *domain.Session, error)
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

// Deps bundles the services the routes call into.
type Deps struct {
	Catalog  catalogService
	Carts    cartService
	Orders   orderService
	Accounts accountService
}

type handlers struct {
	deps   Deps
	logger *log.Logger
	opts   Options
}

// buildRouter wires the storefront routes.
func buildRouter(logger *log.Logger, db *pgxpool.Pool, deps Deps, opts Options) (*gin.Engine, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if deps.Catalog == nil || deps.Carts == nil || deps.Orders == nil || deps.Accounts == nil {
		return nil, fmt.Errorf("httpserver: missing service dependency")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery(), requestID())

	if len(opts.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     opts.CORSOrigins,
			AllowMethods:     []string{"GET", "POST"},
			AllowHeaders:     []string{"Origin", "Content-Type", "csrf-token", requestIDHeader},
			ExposeHeaders:    []string{requestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	tmpl, err := loadTemplates()
	if err != nil {
		return nil, fmt.Errorf("httpserver: load templates: %w", err)
	}
	router.SetHTMLTemplate(tmpl)

	static, err := staticFiles()
	if err != nil {
		return nil, fmt.Errorf("httpserver: static files: %w", err)
	}
	router.StaticFS("/static", static)

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	h := &handlers{deps: deps, logger: logger, opts: opts}
	site := router.Group("/", loadUser(deps.Accounts, logger))

	site.GET("/", h.index)
	site.GET("/products", h.products)
	site.GET("/products/:productId", h.productDetail)

	site.GET("/login", h.loginPage)
	site.POST("/login", h.login)
	site.GET("/signup", h.signupPage)
	site.POST("/signup", h.signup)
	site.POST("/logout", h.logout)

	shop := site.Group("/", requireUser())
	shop.GET("/cart", h.cart)
	shop.POST("/cart", h.addToCart)
	shop.POST("/cart-delete-item", h.removeFromCart)
	shop.POST("/create-order", h.createOrder)
	shop.GET("/checkout", h.checkout)
	shop.POST("/checkout", h.initiatePayment)
	shop.GET("/checkout/success", h.confirmPayment)
	shop.GET("/checkout/cancel", h.cancelPayment)
	shop.GET("/orders", h.orders)
	shop.GET("/orders/:orderId", h.invoice)

	router.NoRoute(loadUser(deps.Accounts, logger), func(c *gin.Context) {
		h.renderError(c, domain.ErrNotFound)
	})

	return router, nil
}

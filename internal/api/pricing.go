package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/avainsure/internal/config"
	"github.com/vyrodovalexey/avainsure/internal/domain"
	"github.com/vyrodovalexey/avainsure/internal/service"
)

// CalculateQuoteRequest is the body of POST /quotes/calculate.
type CalculateQuoteRequest struct {
	ProductType    string  `json:"product_type" binding:"required"`
	Age            *int    `json:"age" binding:"required,gte=0,lte=120"`
	CoverageAmount float64 `json:"coverage_amount" binding:"required,gt=0"`
	TermYears      int     `json:"term_years" binding:"gte=0,lte=100"`
	Smoker         bool    `json:"smoker"`
}

func (r CalculateQuoteRequest) toDomain() domain.QuoteRequest {
	return domain.QuoteRequest{
		ProductType:    domain.ProductType(r.ProductType),
		Age:            *r.Age,
		CoverageAmount: r.CoverageAmount,
		TermYears:      r.TermYears,
		Smoker:         r.Smoker,
	}
}

// PricingHandler serves the product catalogue and quotes.
type PricingHandler struct {
	products *service.ProductService
	quotes   *service.QuoteService
}

// NewPricingHandler creates the pricing handler.
func NewPricingHandler(products *service.ProductService, quotes *service.QuoteService) *PricingHandler {
	return &PricingHandler{products: products, quotes: quotes}
}

// RegisterRoutes mounts the pricing routes on rg.
func (h *PricingHandler) RegisterRoutes(rg *gin.RouterGroup, mw *Middleware) {
	rg.GET("/products", h.ListProducts)
	rg.GET("/products/:type", h.GetProduct)
	rg.POST("/quotes/calculate", mw.RateLimit(config.ProfileQuote), h.CalculateQuote)
	rg.GET("/quotes/:quoteId", h.GetQuote)
}

// ListProducts handles GET /products.
func (h *PricingHandler) ListProducts(c *gin.Context) {
	products, err := h.products.ListProducts(c.Request.Context())
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "products": products})
}

// GetProduct handles GET /products/:type.
func (h *PricingHandler) GetProduct(c *gin.Context) {
	product, err := h.products.GetProduct(c.Request.Context(), c.Param("type"))
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "product": product})
}

// CalculateQuote handles POST /quotes/calculate.
func (h *PricingHandler) CalculateQuote(c *gin.Context) {
	var req CalculateQuoteRequest
	if !bindJSON(c, &req) {
		return
	}

	quote, err := h.quotes.Calculate(c.Request.Context(), req.toDomain())
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "quote": quote})
}

// GetQuote handles GET /quotes/:quoteId.
func (h *PricingHandler) GetQuote(c *gin.Context) {
	quote, err := h.quotes.Get(c.Request.Context(), c.Param("quoteId"))
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "quote": quote})
}

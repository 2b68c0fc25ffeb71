// Package stub is a scriptable stand-in for the remote commerce backend. It
// exists for the demo binary and for exercising the HTTP client; it is not a
// product surface.
package stub

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/shopspring/decimal"

	"storefront-checkout/internal/client"
	"storefront-checkout/internal/model"
)

// Script controls what the stub answers. Zero value gives a happy path:
// orders get created with a transaction reference and verify immediately.
type Script struct {
	mu sync.Mutex

	// OrderStatus, when non-zero, is returned for create-order instead of 200.
	OrderStatus int
	// VerifyResponses are consumed in order; the last one repeats.
	VerifyResponses []client.VerifyResponse
	// ConfirmFailures rejects this many confirm calls with 500 before
	// answering success.
	ConfirmFailures int

	orderSeq   int
	verifyIdx  int
	confirmAtt int
}

type Server struct {
	echo   *echo.Echo
	script *Script
}

func NewServer(script *Script) *Server {
	if script == nil {
		script = &Script{}
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:   e,
		script: script,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	api.POST("/orders", s.createOrder)
	api.POST("/payments/verify", s.verifyPayment)
	api.POST("/payments/confirm", s.confirmPayment)
	api.POST("/shipping/calculate", s.calculateShipping)
}

func (s *Server) createOrder(c echo.Context) error {
	var req client.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}
	if len(req.Items) == 0 || req.CustomerInfo.Email == "" {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "items and customer email are required")
	}

	s.script.mu.Lock()
	defer s.script.mu.Unlock()

	if s.script.OrderStatus != 0 {
		return echo.NewHTTPError(s.script.OrderStatus, "scripted order failure")
	}

	s.script.orderSeq++
	total := decimal.Zero
	for _, item := range req.Items {
		total = total.Add(item.Subtotal())
	}

	return c.JSON(http.StatusOK, model.Order{
		OrderID:        orderID(s.script.orderSeq),
		OrderNumber:    orderNumber(s.script.orderSeq),
		TransactionRef: transactionRef(s.script.orderSeq),
		TotalAmount:    total,
		Currency:       "USD",
	})
}

func (s *Server) verifyPayment(c echo.Context) error {
	var req client.VerifyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}
	if req.TransactionRef == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "transactionRef is required")
	}

	s.script.mu.Lock()
	defer s.script.mu.Unlock()

	if len(s.script.VerifyResponses) == 0 {
		return c.JSON(http.StatusOK, client.VerifyResponse{
			Verified:      true,
			PaymentStatus: client.PaymentCompleted,
			OrderID:       orderID(s.script.orderSeq),
			OrderNumber:   orderNumber(s.script.orderSeq),
		})
	}

	res := s.script.VerifyResponses[s.script.verifyIdx]
	if s.script.verifyIdx < len(s.script.VerifyResponses)-1 {
		s.script.verifyIdx++
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) confirmPayment(c echo.Context) error {
	payload := map[string]any{}
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	s.script.mu.Lock()
	defer s.script.mu.Unlock()

	s.script.confirmAtt++
	if s.script.confirmAtt <= s.script.ConfirmFailures {
		return echo.NewHTTPError(http.StatusInternalServerError, "webhook not processed yet")
	}

	return c.JSON(http.StatusOK, client.ConfirmResponse{
		OrderID:          orderID(s.script.orderSeq),
		OrderNumber:      orderNumber(s.script.orderSeq),
		PaymentStatus:    client.PaymentCompleted,
		Message:          "payment confirmed",
		AlreadyProcessed: s.script.confirmAtt > s.script.ConfirmFailures+1,
	})
}

func (s *Server) calculateShipping(c echo.Context) error {
	var req client.ShippingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	threshold := decimal.NewFromInt(100)
	free := req.Subtotal.GreaterThanOrEqual(threshold)

	methods := []client.ShippingMethod{
		{Code: "standard", Name: "Standard", Cost: decimal.NewFromFloat(4.99), EstimatedDaysMin: 3, EstimatedDaysMax: 7},
		{Code: "express", Name: "Express", Cost: decimal.NewFromFloat(12.99), EstimatedDays: 1, Description: "Next business day"},
	}
	if free {
		methods[0].Cost = decimal.Zero
	}

	return c.JSON(http.StatusOK, client.ShippingResponse{
		Methods:               methods,
		FreeShippingEligible:  free,
		FreeShippingThreshold: threshold,
	})
}

// Handler exposes the router for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown() error {
	return s.echo.Close()
}

func orderID(seq int) string {
	return fmt.Sprintf("ORD-%03d", seq)
}

func orderNumber(seq int) string {
	return fmt.Sprintf("1%05d", seq)
}

func transactionRef(seq int) string {
	return fmt.Sprintf("TXN-%03d", seq)
}

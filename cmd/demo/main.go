package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront-checkout/internal/checkout"
	"storefront-checkout/internal/client"
	"storefront-checkout/internal/config"
	"storefront-checkout/internal/controller"
	"storefront-checkout/internal/model"
	"storefront-checkout/internal/reconcile"
	"storefront-checkout/internal/sdk"
	"storefront-checkout/internal/store"
	"storefront-checkout/internal/stub"
)

// demoSDK stands in for the vendor script: it approves every popup and hands
// back the transaction reference it was configured with.
type demoSDK struct{}

type demoInstance struct {
	reference string
	callback  func(sdk.Payload)
	onClose   func()
}

func (demoSDK) Setup(cfg *checkout.Config) (sdk.Instance, error) {
	return &demoInstance{reference: cfg.Reference}, nil
}

func (i *demoInstance) SetCallback(fn func(sdk.Payload)) { i.callback = fn }
func (i *demoInstance) SetOnClose(fn func())             { i.onClose = fn }
func (i *demoInstance) ShowPopup() error {
	i.callback(sdk.Payload{
		"reference": i.reference,
		"status":    "success",
	})
	return nil
}

type logNavigator struct {
	log *zap.Logger
}

func (n *logNavigator) Success(o reconcile.Outcome) {
	n.log.Info("-> /checkout/success",
		zap.String("orderId", o.OrderID),
		zap.String("orderNumber", o.OrderNumber),
		zap.String("ref", o.TransactionRef))
}

func (n *logNavigator) ManualVerification(o reconcile.Outcome) {
	n.log.Info("-> /checkout/verify",
		zap.String("reference", o.TransactionRef),
		zap.String("storeId", o.StoreID))
}

type logNotifier struct {
	log *zap.Logger
}

func (n *logNotifier) Toast(message string) {
	n.log.Warn("toast", zap.String("message", message))
}

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Payment.PublicKey == "" {
		cfg.Payment.PublicKey = "pk_test_demo"
	}
	if cfg.Store.ID == "" {
		cfg.Store.ID = "demo-store"
	}

	logger := newLogger(cfg)
	defer logger.Sync()

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port
	cfg.Backend.BaseURL = "http://127.0.0.1:" + cfg.HTTP.Port

	srv := stub.NewServer(nil)
	logger.Info("starting stub commerce backend", zap.String("addr", serverAddr))
	go func() {
		if err := srv.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("stub backend error", zap.Error(err))
		}
	}()

	waitForBackend(cfg.Backend.BaseURL, logger)

	profileDB, err := store.OpenProfileDB(cfg.ProfileDBPath)
	if err != nil {
		logger.Fatal("profile db", zap.Error(err))
	}
	profiles := store.NewProfileStore(profileDB)

	commerce := client.NewCommerceClient(&cfg.Backend)
	adapter := sdk.NewAdapter(func(context.Context) (sdk.SDK, error) {
		return demoSDK{}, nil
	}, logger)
	machine := reconcile.NewMachine(commerce,
		reconcile.WithLogger(logger),
		reconcile.WithProgress(func(attempt, max int) {
			logger.Info("checking payment", zap.Int("attempt", attempt), zap.Int("of", max))
		}),
	)

	engine := controller.NewEngine(
		commerce, adapter, machine, profiles,
		cfg.Payment, cfg.Store,
		&logNavigator{log: logger}, &logNotifier{log: logger},
		logger,
	)

	runDemoCheckout(engine, commerce, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	logger.Info("signal received, starting graceful shutdown...")

	_, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(); err != nil {
		logger.Fatal("stub backend shutdown error", zap.Error(err))
	}
}

func waitForBackend(baseURL string, logger *zap.Logger) {
	for i := 0; i < 50; i++ {
		resp, err := http.Get(baseURL + "/api/health")
		if err == nil {
			resp.Body.Close()
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	logger.Fatal("stub backend did not become ready")
}

func newLogger(cfg *config.Config) *zap.Logger {
	var zapCfg zap.Config
	if cfg.Environment.Name == "production" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	if level, err := zap.ParseAtomicLevel(cfg.Log.Level); err == nil {
		zapCfg.Level = level
	}
	if cfg.Log.Format == "json" {
		zapCfg.Encoding = "json"
	}
	logger, err := zapCfg.Build()
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func runDemoCheckout(engine *controller.Engine, commerce client.CommerceClient, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cart := controller.NewMemoryCart()
	cart.Add(model.LineItem{
		ProductID: "p-001",
		Name:      "Organic Coffee Beans 1kg",
		UnitPrice: decimal.NewFromFloat(24.99),
		Quantity:  2,
		Currency:  "USD",
	})

	ctrl := controller.NewCartController(engine, cart, commerce, logger)

	customer := model.CustomerInfo{
		Email:     "demo@example.com",
		FirstName: "Demo",
		LastName:  "Shopper",
		Phone:     "+15550123",
	}
	if saved, ok := engine.GuestProfile(ctx); ok {
		logger.Info("prefilled from saved guest profile", zap.String("email", saved.Email))
		customer = saved
	}

	if err := ctrl.SubmitDetails(customer, model.Address{
		Line1:      "42 Demo Street",
		City:       "Springfield",
		PostalCode: "12345",
		Country:    "US",
	}); err != nil {
		logger.Fatal("submit details", zap.Error(err))
	}

	methods, err := ctrl.ShippingMethods(ctx)
	if err != nil {
		logger.Fatal("shipping methods", zap.Error(err))
	}
	logger.Info("shipping methods", zap.Int("count", len(methods.Methods)))

	if err := ctrl.SelectShipping(methods.Methods[0]); err != nil {
		logger.Fatal("select shipping", zap.Error(err))
	}

	if err := ctrl.Pay(ctx); err != nil {
		logger.Error("checkout failed", zap.Error(err))
		return
	}
	logger.Info("demo checkout finished", zap.String("step", ctrl.Step().String()))
}

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/minhngo-dev/storefront-checkout/internal/app"
	"github.com/minhngo-dev/storefront-checkout/internal/config"
	"github.com/minhngo-dev/storefront-checkout/internal/events"
	"github.com/minhngo-dev/storefront-checkout/internal/handler"
	"github.com/minhngo-dev/storefront-checkout/internal/payment"
	"github.com/minhngo-dev/storefront-checkout/internal/postgres"
	"github.com/minhngo-dev/storefront-checkout/internal/repo"
	"github.com/minhngo-dev/storefront-checkout/internal/service"
	"github.com/minhngo-dev/storefront-checkout/internal/shipping"
	"github.com/minhngo-dev/storefront-checkout/pkg/cache"
	"github.com/minhngo-dev/storefront-checkout/pkg/kv"
	"github.com/minhngo-dev/storefront-checkout/pkg/trm"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

// @title           Storefront Checkout API
// @version         1.0
// @description     Order fulfillment and payment reconciliation
func main() {
	conf := config.New()
	logger := newLogger(conf.Env)
	panicIfErr("invalid config", conf.Validate())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	db, err := postgres.New(conf.Postgres)
	panicIfErr("failed to connect to db", err)
	defer db.Close()
	logger.Info("postgres connected")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	defer redisClient.Close()

	store := kv.NewRedisStore(redisClient, conf.Redis.Prefix)
	panicIfErr("failed to connect to redis", store.Ping(ctx))
	logger.Info("redis connected")

	orderRepo := repo.NewOrderRepo(db)
	cartRepo := repo.NewCartRepo(store)
	stockRepo := repo.NewStockRepo(store)
	draftRepo := repo.NewDraftRepo(store)

	txManager := trm.NewManager(db)
	orderCache := cache.NewLRUCache(conf.Cache.Capacity, conf.Cache.TTL)

	shippingClient := shipping.NewClient(conf.Shipping)
	gateway := payment.NewGateway(conf.VNPay)
	publisher := events.NewPublisher(conf.Kafka)

	quoteService := service.NewQuoteService(logger, shippingClient, cartRepo)
	checkoutService := service.NewCheckoutService(logger, txManager, orderRepo, cartRepo, stockRepo, quoteService, publisher)
	orderService := service.NewOrderService(logger, txManager, orderRepo, orderCache, publisher)
	paymentService := service.NewPaymentService(logger, txManager, orderRepo, gateway, orderCache, publisher)
	draftService := service.NewDraftService(logger, draftRepo, quoteService)

	httpHandler := handler.NewHTTPHandler(logger, checkoutService, orderService, paymentService, draftService)
	handler.RegisterMetrics()

	app := app.New(logger, conf)

	app.SetHTTPHandlers(httpHandler)
	app.SetStarters(janitorStarter{cache: orderCache})
	app.SetClosers(publisher)

	panicIfErr("failed to start app", app.Start(ctx))
	<-ctx.Done()
	panicIfErr("failed to stop app", app.Stop())
}

func init() {
	godotenv.Load()
}

func newLogger(env string) *slog.Logger {
	switch env {
	case "production":
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}

func panicIfErr(prefix string, err error) {
	if err != nil {
		panic(prefix + ": " + err.Error())
	}
}

type janitorStarter struct {
	cache *cache.LRUCache
}

func (s janitorStarter) Start(ctx context.Context) error {
	s.cache.StartJanitor(ctx)
	return nil
}

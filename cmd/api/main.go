package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"seifenshop/internal/config"
	"seifenshop/internal/handler"
	"seifenshop/internal/infra/db"
	infraRepo "seifenshop/internal/infra/repository"
	"seifenshop/internal/infra/security"
	"seifenshop/internal/logger"
	"seifenshop/internal/notify"
	"seifenshop/internal/server"
	"seifenshop/internal/usecase"
	"seifenshop/internal/validator"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logger.Setup(cfg.LogLevel, cfg.IsProduction())

	//金額はJSONで数値として返す
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//DB接続（memoryならSQLite）
	gormDB, err := db.Connect(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	defer db.Close(gormDB)

	if err := db.Migrate(gormDB); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	//Repository（GORM実装）生成
	repos := infraRepo.NewRepos(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)
	customers := repos.Customers()

	//usecaseに渡す部品
	clock := usecase.SystemClock{}
	idGen := usecase.UUIDGenerator{}
	pricing := usecase.Pricing{
		TaxRate:          cfg.TaxRate,
		ShippingFlat:     cfg.ShippingFlat,
		FreeShippingFrom: cfg.FreeShippingFrom,
	}

	hasher := security.NewBcryptHasher(12)
	issuer, err := security.NewJWTIssuer(cfg.JWTSecret, cfg.AccessTokenTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("jwt issuer")
	}

	//Usecase生成
	workflow := usecase.NewOrderWorkflow(clock, idGen)
	customerUC := usecase.NewCustomerUsecase(txm, customers, validator.NewCustomerValidator(customers), hasher, issuer, clock)
	productUC := usecase.NewProductUsecase(txm, repos.Products(), clock)
	cartUC := usecase.NewCartUsecase(repos.Carts(), repos.CartItems(), repos.Products(), pricing)
	orderUC := usecase.NewOrderUsecase(txm, workflow, pricing, clock, idGen)
	adminOrderUC := usecase.NewAdminOrderUsecase(txm, workflow)
	stockUC := usecase.NewStockUsecase(txm, clock)
	inquiryUC := usecase.NewInquiryUsecase(txm, workflow, pricing, clock, idGen)
	adminQueryUC := usecase.NewAdminQueryUsecase(txm)

	//初期管理者
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := customerUC.SeedAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Fatal().Err(err).Msg("seed admin")
		}
		log.Info().Str("email", cfg.AdminEmail).Msg("admin account ready")
	}

	//メール送信（アウトボックスから取り出して送る）
	var sender notify.Sender = notify.LogSender{}
	if cfg.MailTransport == config.MailTransportAMQP {
		amqpSender := notify.NewAMQPSender(cfg.RabbitMQURL, cfg.MailExchange)
		defer amqpSender.Close()
		sender = amqpSender
	}
	relay := notify.NewRelay(repos.Emails(), sender, notify.RelayConfig{
		PollInterval: cfg.OutboxPollInterval,
		BatchSize:    cfg.OutboxBatchSize,
		MaxAttempts:  cfg.OutboxMaxAttempts,
		Lease:        cfg.OutboxLease,
	}, func() time.Time { return clock.Now() })

	//Handler生成
	e := server.New(cfg)
	server.RegisterRoutes(e, cfg, customers,
		handler.NewAuthHandler(customerUC),
		handler.NewProductHandler(productUC),
		handler.NewAdminProductHandler(productUC),
		handler.NewCartHandler(cartUC),
		handler.NewOrderHandler(orderUC),
		handler.NewAdminOrderHandler(adminOrderUC),
		handler.NewStockHandler(stockUC),
		handler.NewInquiryHandler(inquiryUC),
		handler.NewAdminHandler(adminQueryUC, customerUC),
	)

	addr := cfg.Port
	if addr[0] != ':' {
		addr = ":" + addr
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx, e, addr)
	})
	g.Go(func() error {
		return relay.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("stopped with error")
		return
	}
	log.Info().Msg("bye")
}

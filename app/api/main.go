package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/go-playground/validator/v10"
	"github.com/mintleaf/goapi/base/ctx"
	"github.com/mintleaf/goapi/base/database/mongoclient"
	"github.com/mintleaf/goapi/base/log"
	"github.com/mintleaf/goapi/base/txn"
	bValidator "github.com/mintleaf/goapi/base/validator"
	"github.com/mintleaf/goapi/domain"
	mmiddleware "github.com/mintleaf/goapi/middleware"
	"github.com/mintleaf/goapi/service/query"
	admin_delivery "github.com/mintleaf/goapi/stores/admin/delivery/http"
	asset_repository "github.com/mintleaf/goapi/stores/asset/repository"
	auction_delivery "github.com/mintleaf/goapi/stores/auction/delivery/http"
	auction_repository "github.com/mintleaf/goapi/stores/auction/repository"
	auction_usecase "github.com/mintleaf/goapi/stores/auction/usecase"
	auth_delivery "github.com/mintleaf/goapi/stores/auth/delivery/http"
	auth_middleware "github.com/mintleaf/goapi/stores/auth/delivery/http/middleware"
	auth_usecase "github.com/mintleaf/goapi/stores/auth/usecase"
	collection_repository "github.com/mintleaf/goapi/stores/collection/repository"
	hc_delivery "github.com/mintleaf/goapi/stores/healthcheck/delivery/http"
	hc_repo "github.com/mintleaf/goapi/stores/healthcheck/repository"
	hc_usecase "github.com/mintleaf/goapi/stores/healthcheck/usecase"
	ledger_repository "github.com/mintleaf/goapi/stores/ledger/repository"
	listing_delivery "github.com/mintleaf/goapi/stores/listing/delivery/http"
	listing_repository "github.com/mintleaf/goapi/stores/listing/repository"
	listing_usecase "github.com/mintleaf/goapi/stores/listing/usecase"
	offer_delivery "github.com/mintleaf/goapi/stores/offer/delivery/http"
	offer_repository "github.com/mintleaf/goapi/stores/offer/repository"
	offer_usecase "github.com/mintleaf/goapi/stores/offer/usecase"
	salerecord_delivery "github.com/mintleaf/goapi/stores/salerecord/delivery/http"
	salerecord_repository "github.com/mintleaf/goapi/stores/salerecord/repository"
	settlement_usecase "github.com/mintleaf/goapi/stores/settlement/usecase"
)

func init() {
	cfgFile := pflag.String("config", "infra/configs/config.yaml", "config file path")
	pflag.Parse()

	viper.SetConfigType("yaml")
	viper.SetConfigFile(*cfgFile)
	err := viper.ReadInConfig()
	if err != nil {
		panic(err)
	}

	if viper.GetBool(`debug`) {
		log.Log().Info("Service RUN on DEBUG mode")
	}
}

func main() {
	// init echo
	e := echo.New()
	e.Use(middleware.Recover())
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{}))
	e.Use(middleware.RequestID())
	middL := mmiddleware.InitMiddleware()
	e.Use(middL.ResponseLogger())
	e.Use(middL.AddContext())
	e.Use(middleware.CORS())
	e.Validator = bValidator.NewCustomValidator(validator.New())

	context := ctx.Background()

	// init mongo client for sale history
	context.Info("init mongo")
	uri := viper.GetString("mongo.uri")
	authDBName := viper.GetString("mongo.authDBName")
	dbName := viper.GetString("mongo.dbName")
	enableSSL := viper.GetBool("mongo.enableSSL")
	checkIndex := viper.GetBool("mongo.checkIndex")
	mongoClient := mongoclient.MustConnectMongoClient(uri, authDBName, dbName, enableSSL, true, 2)
	q := query.New(mongoClient, checkIndex)

	mmiddleware.SetupCache()

	// engine state and the single writer gate
	gate := txn.NewGate()
	clock := domain.RealClock()

	assetRegistry := asset_repository.New()
	ledgerService := ledger_repository.New()
	collectionRepo := collection_repository.New()
	listingRepo := listing_repository.New()
	auctionRepo := auction_repository.New()
	offerRepo := offer_repository.New()
	saleRecordRepo := salerecord_repository.New(q)
	hcRepo := hc_repo.New(mongoClient)

	settlement := settlement_usecase.New(&settlement_usecase.SettlementUseCaseCfg{
		AssetRegistry:  assetRegistry,
		Ledger:         ledgerService,
		CollectionRepo: collectionRepo,
		SaleRecordRepo: saleRecordRepo,
		Clock:          clock,
		PlatformFeeBps: viper.GetInt64("market.platformFeeBps"),
		FeeRecipient:   domain.Address(viper.GetString("market.feeRecipient")).ToLower(),
	})
	auction := auction_usecase.New(&auction_usecase.AuctionUseCaseCfg{
		AuctionRepo:   auctionRepo,
		ListingRepo:   listingRepo,
		AssetRegistry: assetRegistry,
		Ledger:        ledgerService,
		SettlementUC:  settlement,
		Clock:         clock,
		Gate:          gate,
		MinDuration:   viper.GetDuration("market.auction.minDuration"),
		MaxDuration:   viper.GetDuration("market.auction.maxDuration"),
	})
	listing := listing_usecase.New(&listing_usecase.ListingUseCaseCfg{
		ListingRepo:   listingRepo,
		AuctionUC:     auction,
		AssetRegistry: assetRegistry,
		SettlementUC:  settlement,
		Clock:         clock,
		Gate:          gate,
		MaxPageSize:   viper.GetInt32("market.maxPageSize"),
	})
	offer := offer_usecase.New(&offer_usecase.OfferUseCaseCfg{
		OfferRepo:      offerRepo,
		CollectionRepo: collectionRepo,
		ListingRepo:    listingRepo,
		AuctionUC:      auction,
		AssetRegistry:  assetRegistry,
		Ledger:         ledgerService,
		SettlementUC:   settlement,
		Clock:          clock,
		Gate:           gate,
		MinDuration:    viper.GetDuration("market.offer.minDuration"),
		MaxDuration:    viper.GetDuration("market.offer.maxDuration"),
	})
	hc := hc_usecase.New(hcRepo)
	auth := auth_usecase.New(viper.GetString("auth.jwtSecret"), viper.GetDuration("auth.tokenTTL"))

	adminAddresses := viper.GetStringSlice("admin.addresses")
	authMiddleware := auth_middleware.New(auth, adminAddresses)

	hc_delivery.New(e, hc)
	auth_delivery.New(e, auth)
	listing_delivery.New(e, listing, authMiddleware)
	auction_delivery.New(e, auction, authMiddleware)
	offer_delivery.New(e, offer, authMiddleware)
	salerecord_delivery.New(e, saleRecordRepo, settlement)
	// engine state is in-process until a chain indexer feeds it; the admin
	// endpoints are the seeding path for collections, assets and balances
	admin_delivery.New(e, collectionRepo, assetRegistry, ledgerService, authMiddleware)

	e.GET("/check", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"address": c.Get("address").(domain.Address),
		})
	}, authMiddleware.Auth())

	go func() {
		if err := e.Start(viper.GetString("server.address")); err != nil && err != http.ErrServerClosed {
			log.Log().WithField("err", err).Error("shutting down the server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 10 seconds.
	// Use a buffered channel to avoid missing signals as recommended for signal.Notify
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	sig := <-quit
	log.Log().WithField("signal", sig).Info("received signal")
	ctx, cancel := ctx.WithTimeout(context, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Log().WithField("err", err).Error("shutting down the server")
	} else {
		log.Log().Info("shutdown server successfully")
	}
}

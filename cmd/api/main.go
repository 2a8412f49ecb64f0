package main

import (
	"context"
	"log"
	"time"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/handler"
	"app/internal/infra/db"
	infraRepo "app/internal/infra/repository"
	"app/internal/infra/stripegw"
	"app/internal/server"
	"app/internal/usecase"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	//.envは無ければ環境変数だけで動く
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	//DB接続
	gormDB, err := db.Connect()
	if err != nil {
		log.Fatal(err)
	}
	if err := gormDB.AutoMigrate(
		&model.Guest{},
		&model.Cart{},
		&model.CartItem{},
		&model.ProductVariant{},
		&model.CheckoutSnapshot{},
		&model.CheckoutSnapshotItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.Payment{},
	); err != nil {
		log.Fatal(err)
	}

	txManager := infraRepo.NewTxManagerGorm(gormDB)

	//決済ゲートウェイ
	gateway, err := stripegw.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	if err != nil {
		log.Fatal(err)
	}

	//Usecase生成
	cartUC := usecase.NewCartUsecase(txManager, uuid.NewString, time.Now)
	mergeUC := usecase.NewMergeUsecase(txManager)
	checkoutUC := usecase.NewCheckoutUsecase(txManager, gateway, cfg.AppURL, time.Now)
	orderUC := usecase.NewOrderUsecase(txManager, gateway, cfg.ClearCartOnOrder, time.Now)

	//Handler生成
	h := server.Handlers{
		Cart:     handler.NewCartHandler(cartUC, mergeUC, cfg),
		Checkout: handler.NewCheckoutHandler(checkoutUC, cfg),
		Webhook:  handler.NewWebhookHandler(gateway, orderUC),
		Order:    handler.NewOrderHandler(orderUC, cfg),
	}

	//期限切れゲストの掃除（1時間ごと）
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			n, err := cartUC.PurgeExpiredGuests(context.Background())
			if err != nil {
				log.Printf("purge expired guests: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("purged %d expired guest sessions", n)
			}
		}
	}()

	//Server起動
	e := server.New(cfg, h)
	if err := server.Start(e, cfg.Port); err != nil {
		log.Fatal(err)
	}
}

package config

import (
	"fmt"
	"os"
	"strconv"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	JWTSecret string // JWT署名シークレット（検証のみ。発行は認証サービス側）

	AppURL string // 自分の公開URL（決済の戻り先や画像URLの組み立てに使う）
	FEURL  string // フロントURL（CORSで使う）

	StripeSecretKey     string // StripeのAPIキー
	StripeWebhookSecret string // Webhook署名検証シークレット

	FulfillmentToken string // 注文ステータス更新APIの共有トークン

	ClearCartOnOrder bool // 注文確定時にカートを空にするか（既定false）

	GoEnv string // dev/prod
}

// Loadは環境変数
func Load() (Config, error) {
	cfg := Config{
		Port: os.Getenv("PORT"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		AppURL: os.Getenv("APP_URL"),
		FEURL:  os.Getenv("FE_URL"),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),

		FulfillmentToken: os.Getenv("FULFILLMENT_TOKEN"),

		GoEnv: os.Getenv("GO_ENV"),
	}

	if v := os.Getenv("CLEAR_CART_ON_ORDER"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("CLEAR_CART_ON_ORDER must be bool: %w", err)
		}
		cfg.ClearCartOnOrder = b
	}

	//必須チェック
	if cfg.Port == "" {
		return Config{}, fmt.Errorf("PORT is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.AppURL == "" {
		return Config{}, fmt.Errorf("APP_URL is required")
	}
	if cfg.FEURL == "" {
		return Config{}, fmt.Errorf("FE_URL is required")
	}
	if cfg.StripeSecretKey == "" {
		return Config{}, fmt.Errorf("STRIPE_SECRET_KEY is required")
	}
	if cfg.StripeWebhookSecret == "" {
		return Config{}, fmt.Errorf("STRIPE_WEBHOOK_SECRET is required")
	}
	if cfg.FulfillmentToken == "" {
		return Config{}, fmt.Errorf("FULFILLMENT_TOKEN is required")
	}
	if cfg.GoEnv == "" {
		return Config{}, fmt.Errorf("GO_ENV is required")
	}

	return cfg, nil
}

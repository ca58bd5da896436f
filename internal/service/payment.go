//go:generate mockery --name PaymentGateway --output ./mocks --outpkg mocks --case=underscore
package service

import (
	"context"
	"fmt"
	"time"

	"go_5_course_market/internal/config"
	"go_5_course_market/internal/middleware"
	"go_5_course_market/internal/model"

	"github.com/go-resty/resty/v2"
)

// PaymentIntentStatus は決済ゲートウェイ側のインテント状態
type PaymentIntentStatus string

const (
	IntentSucceeded PaymentIntentStatus = "succeeded"
	IntentPending   PaymentIntentStatus = "pending"
	IntentFailed    PaymentIntentStatus = "failed"
)

// PaymentIntent は決済インテント作成の結果
type PaymentIntent struct {
	IntentID     string `json:"intent_id"`
	ClientSecret string `json:"client_secret"`
}

// PaymentConfirmation は決済確認の結果
type PaymentConfirmation struct {
	IntentID string              `json:"intent_id"`
	Amount   int64               `json:"amount"`
	Currency string              `json:"currency"`
	Status   PaymentIntentStatus `json:"status"`
}

// PaymentGateway は外部決済プロバイダへのインターフェースです。
// 呼び出しは失敗しうるRPCとして扱い、リトライ上限到達は model.ErrUpstream になります。
// 確認に失敗しても「成功した決済レコード」を偽造してはいけません。
type PaymentGateway interface {
	CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*PaymentIntent, error)
	Confirm(ctx context.Context, intentID string) (*PaymentConfirmation, error)
}

// restyPaymentGateway は resty ベースのHTTPクライアント実装です
type restyPaymentGateway struct {
	client      *resty.Client
	maxAttempts int
	backoff     time.Duration
}

func NewRestyPaymentGateway(cfg *config.Config) PaymentGateway {
	client := resty.New().
		SetBaseURL(cfg.Payment.BaseURL).
		SetAuthToken(cfg.Payment.APIKey).
		SetTimeout(10 * time.Second).
		SetHeader("Content-Type", "application/json")

	return &restyPaymentGateway{
		client:      client,
		maxAttempts: cfg.Payment.MaxAttempts,
		backoff:     time.Duration(cfg.Payment.BackoffMS) * time.Millisecond,
	}
}

func (g *restyPaymentGateway) CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*PaymentIntent, error) {
	logger := middleware.GetLogger(ctx)

	var intent PaymentIntent
	body := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"metadata": metadata,
	}

	err := g.withRetry(ctx, "CreateIntent", func() error {
		resp, err := g.client.R().
			SetContext(ctx).
			SetBody(body).
			SetResult(&intent).
			Post("/payment_intents")
		if err != nil {
			return err
		}
		if resp.IsError() {
			return fmt.Errorf("payment gateway returned status %d", resp.StatusCode())
		}
		return nil
	})
	if err != nil {
		logger.Error("CreateIntent failed after retries", "error", err)
		return nil, model.NewAppError("UPSTREAM_ERROR", "決済サービスへの接続に失敗しました。", "", model.ErrUpstream)
	}
	return &intent, nil
}

func (g *restyPaymentGateway) Confirm(ctx context.Context, intentID string) (*PaymentConfirmation, error) {
	logger := middleware.GetLogger(ctx).With("intent_id", intentID)

	var confirmation PaymentConfirmation
	err := g.withRetry(ctx, "Confirm", func() error {
		resp, err := g.client.R().
			SetContext(ctx).
			SetResult(&confirmation).
			Get("/payment_intents/" + intentID)
		if err != nil {
			return err
		}
		if resp.IsError() {
			return fmt.Errorf("payment gateway returned status %d", resp.StatusCode())
		}
		return nil
	})
	if err != nil {
		logger.Error("Confirm failed after retries", "error", err)
		return nil, model.NewAppError("UPSTREAM_ERROR", "決済の確認に失敗しました。", "", model.ErrUpstream)
	}
	return &confirmation, nil
}

// withRetry は指数バックオフ付きの有限リトライでfnを実行します
func (g *restyPaymentGateway) withRetry(ctx context.Context, op string, fn func() error) error {
	logger := middleware.GetLogger(ctx)

	var lastErr error
	backoff := g.backoff
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		logger.Warn("Payment gateway call failed",
			"op", op,
			"attempt", attempt,
			"max_attempts", g.maxAttempts,
			"error", lastErr,
		)
		if attempt == g.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return lastErr
}

// internal/config/constants.go
package config

// アプリケーション情報
const (
	AppName    = "CourseMarket"
	AppVersion = "1.0.0"
)

// デフォルト設定値
const (
	DefaultServerPort         = ":8080"
	DefaultLogLevel           = "info"
	DefaultDailyBudgetMinutes = 45 // 完了見込み計算の1日あたり学習時間（分）
	DefaultPaymentMaxAttempts = 3
	DefaultPaymentBackoffMS   = 200
)

// 特定の外部サービスのエンドポイントなど
const PaymentGatewayAPIEndpoint = "https://api.paymentprovider.com/v1"

// auth.enabled=false のときに注入される開発用ユーザーID
const DevUserID = "00000000-0000-0000-0000-000000000001"

// レッスンのdurationが未設定(0)の場合に完了見込み計算で使う分数。
// progressの計算には影響しない。
const DefaultLessonDurationMin = 30

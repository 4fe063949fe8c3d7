package connectors

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	SlippagePct float64 `envconfig:"SIM_SLIPPAGE_PCT" default:"0.1"`

	FinnhubToken        string        `envconfig:"FINNHUB_TOKEN"`
	FinnhubBaseURL      string        `envconfig:"FINNHUB_BASE_URL" default:"https://finnhub.io/api/v1"`
	FinnhubRPS          float64       `envconfig:"FINNHUB_RPS" default:"1"`
	FinnhubLookbackDays int           `envconfig:"FINNHUB_LOOKBACK_DAYS" default:"2"`
	FinnhubTimeout      time.Duration `envconfig:"FINNHUB_TIMEOUT" default:"10s"`
	FinnhubRetries      int           `envconfig:"FINNHUB_RETRIES" default:"3"`
	YahooRSSEnabled     bool          `envconfig:"YAHOO_RSS_ENABLED" default:"true"`

	PushoverUserKey  string `envconfig:"PUSHOVER_USER_KEY"`
	PushoverAPIToken string `envconfig:"PUSHOVER_API_TOKEN"`
	PushoverURL      string `envconfig:"PUSHOVER_URL" default:"https://api.pushover.net/1"`

	TelegramToken  string `envconfig:"TELEGRAM_TOKEN"`
	TelegramChatID int64  `envconfig:"TELEGRAM_CHAT_ID"`
	TelegramURL    string `envconfig:"TELEGRAM_URL" default:"https://api.telegram.org"`

	NotifyMinInterval time.Duration `envconfig:"NOTIFY_MIN_INTERVAL" default:"60s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}

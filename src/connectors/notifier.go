package connectors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v3"
)

const (
	NotifierLog      = "log"
	NotifierPushover = "pushover"
	NotifierTelegram = "telegram"
)

// Notifier delivers operator alerts. Callers log failures and carry on.
type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}

// NewNotifier returns the notifier named by kind, wrapped in a per-title
// throttle when cfg.NotifyMinInterval is positive.
func NewNotifier(kind string, cfg Config, log *logger.Entry) (Notifier, error) {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}

	var (
		n   Notifier
		err error
	)
	switch strings.ToLower(kind) {
	case "", NotifierLog:
		n = NewLogNotifier(log)
	case NotifierPushover:
		n, err = NewPushoverNotifier(cfg.PushoverURL, cfg.PushoverAPIToken, cfg.PushoverUserKey)
	case NotifierTelegram:
		n, err = NewTelegramNotifier(cfg.TelegramURL, cfg.TelegramToken, cfg.TelegramChatID)
	default:
		err = fmt.Errorf("unknown notifier %q", kind)
	}
	if err != nil {
		return nil, err
	}
	if cfg.NotifyMinInterval > 0 {
		n = NewThrottledNotifier(n, cfg.NotifyMinInterval, log)
	}
	return n, nil
}

// LogNotifier writes alerts to the log only.
type LogNotifier struct {
	log *logger.Entry
}

func NewLogNotifier(log *logger.Entry) *LogNotifier {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}
	return &LogNotifier{log: log.WithField("component", "notifier")}
}

func (n *LogNotifier) Notify(_ context.Context, title, message string) error {
	n.log.WithField("title", title).Info(message)
	return nil
}

type pushoverResponse struct {
	Status  int      `json:"status"`
	Request string   `json:"request"`
	Errors  []string `json:"errors"`
}

// PushoverNotifier posts alerts to the Pushover messages API.
type PushoverNotifier struct {
	token string
	user  string
	http  *resty.Client
}

func NewPushoverNotifier(baseURL, token, user string) (*PushoverNotifier, error) {
	if token == "" || user == "" {
		return nil, errors.New("pushover requires PUSHOVER_API_TOKEN and PUSHOVER_USER_KEY")
	}
	return &PushoverNotifier{
		token: token,
		user:  user,
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(10 * time.Second),
	}, nil
}

func (n *PushoverNotifier) Notify(ctx context.Context, title, message string) error {
	var out pushoverResponse
	resp, err := n.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"token":   n.token,
			"user":    n.user,
			"title":   title,
			"message": message,
		}).
		SetResult(&out).
		SetError(&out).
		Post("/messages.json")
	if err != nil {
		return fmt.Errorf("pushover request: %w", err)
	}
	if resp.IsError() || out.Status != 1 {
		return fmt.Errorf("pushover status %d: %s", resp.StatusCode(), strings.Join(out.Errors, "; "))
	}
	return nil
}

// TelegramNotifier sends alerts to one chat through the Bot API.
type TelegramNotifier struct {
	bot  *tele.Bot
	chat *tele.Chat
}

func NewTelegramNotifier(apiURL, token string, chatID int64) (*TelegramNotifier, error) {
	if token == "" || chatID == 0 {
		return nil, errors.New("telegram requires TELEGRAM_TOKEN and TELEGRAM_CHAT_ID")
	}
	b, err := tele.NewBot(tele.Settings{
		URL:     apiURL,
		Token:   token,
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: b, chat: &tele.Chat{ID: chatID}}, nil
}

func (n *TelegramNotifier) Notify(_ context.Context, title, message string) error {
	_, err := n.bot.Send(n.chat, "*"+title+"*\n"+message, tele.ModeMarkdown)
	return err
}

// ThrottledNotifier forwards at most one alert per title per interval.
type ThrottledNotifier struct {
	next     Notifier
	interval time.Duration
	log      *logger.Entry

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewThrottledNotifier(next Notifier, interval time.Duration, log *logger.Entry) *ThrottledNotifier {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}
	return &ThrottledNotifier{
		next:     next,
		interval: interval,
		log:      log.WithField("component", "notifier"),
		limiters: make(map[string]*rate.Limiter),
	}
}

func (n *ThrottledNotifier) allow(title string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	l, ok := n.limiters[title]
	if !ok {
		l = rate.NewLimiter(rate.Every(n.interval), 1)
		n.limiters[title] = l
	}
	return l.Allow()
}

func (n *ThrottledNotifier) Notify(ctx context.Context, title, message string) error {
	if !n.allow(title) {
		n.log.WithField("title", title).Debug("alert throttled")
		return nil
	}
	return n.next.Notify(ctx, title, message)
}

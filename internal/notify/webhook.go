package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/juancollazo-ch/holded-order-monitor/internal/breaker"
	"github.com/juancollazo-ch/holded-order-monitor/internal/clock"
	"github.com/juancollazo-ch/holded-order-monitor/internal/config"
	apperrors "github.com/juancollazo-ch/holded-order-monitor/internal/errors"
	"github.com/juancollazo-ch/holded-order-monitor/internal/logging"
	"github.com/juancollazo-ch/holded-order-monitor/internal/models"
	"github.com/juancollazo-ch/holded-order-monitor/internal/retry"
)

const webhookTimeout = 10 * time.Second

// WebhookNotifier publica el resumen de la ejecución como JSON en WEBHOOK_URL.
type WebhookNotifier struct {
	http       *http.Client
	webhookURL string
	attempts   int
	baseDelay  time.Duration
	cb         *gobreaker.CircuitBreaker
	clock      clock.Clock
	logger     *zap.Logger
}

func NewWebhookNotifier(cfg *config.Config, clk clock.Clock, logger *zap.Logger) *WebhookNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "webhook_notifier"))
	return &WebhookNotifier{
		http:       &http.Client{Timeout: webhookTimeout},
		webhookURL: cfg.Webhook.URL,
		attempts:   cfg.Retry.Attempts,
		baseDelay:  cfg.RetryBaseDelay(),
		cb:         breaker.New("webhook", logger),
		clock:      clk,
		logger:     logger,
	}
}

func (s *WebhookNotifier) Notify(ctx context.Context, orders []models.Order) (bool, error) {
	if len(orders) == 0 {
		return true, nil
	}
	payload := models.NewNotificationPayload(orders, s.clock.Now())
	if err := s.post(ctx, payload, false); err != nil {
		return false, err
	}
	logging.For(ctx, s.logger).Info("webhook notification sent", zap.Int("orders", len(orders)))
	return true, nil
}

// Test envía un payload vacío marcado con X-Webhook-Test.
func (s *WebhookNotifier) Test(ctx context.Context) error {
	payload := models.NewNotificationPayload(nil, s.clock.Now())
	if err := s.post(ctx, payload, true); err != nil {
		s.logger.Error("webhook connection test failed", zap.Error(err))
		return err
	}
	s.logger.Info("webhook connection test successful")
	return nil
}

func (s *WebhookNotifier) post(ctx context.Context, payload models.NotificationPayload, test bool) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return apperrors.ErrInternal("error marshaling payload", err)
	}

	log := logging.For(ctx, s.logger)
	return retry.WithRetry(ctx, s.attempts, s.baseDelay, func(attempt int) error {
		_, err := s.cb.Execute(func() (interface{}, error) {
			return nil, s.send(ctx, body, attempt, test)
		})
		if err != nil {
			log.Warn("webhook attempt failed",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", s.attempts),
				zap.Error(err),
			)
		}
		return breaker.Translate("webhook", err)
	})
}

func (s *WebhookNotifier) send(ctx context.Context, body []byte, attempt int, test bool) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return apperrors.ErrConfiguration("error creating request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Retry-Attempt", strconv.Itoa(attempt))
	if test {
		req.Header.Set("X-Webhook-Test", "true")
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return apperrors.ErrTransport(fmt.Sprintf("error sending webhook (attempt %d/%d)", attempt, s.attempts), err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return apperrors.ErrExternalAPI(resp.StatusCode,
		fmt.Sprintf("webhook failed with status: %d (attempt %d/%d)", resp.StatusCode, attempt, s.attempts), nil)
}

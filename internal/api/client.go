package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/juancollazo-ch/holded-order-monitor/internal/breaker"
	"github.com/juancollazo-ch/holded-order-monitor/internal/config"
	apperrors "github.com/juancollazo-ch/holded-order-monitor/internal/errors"
	"github.com/juancollazo-ch/holded-order-monitor/internal/logging"
	"github.com/juancollazo-ch/holded-order-monitor/internal/models"
	"github.com/juancollazo-ch/holded-order-monitor/internal/retry"
)

const salesOrdersEndpoint = "documents/salesorder"

type HoldedClient struct {
	http      *http.Client
	base      string
	apiKey    string
	attempts  int
	baseDelay time.Duration
	cb        *gobreaker.CircuitBreaker
	logger    *zap.Logger
}

func NewHoldedClient(cfg *config.Config, logger *zap.Logger) (*HoldedClient, error) {
	if cfg.Holded.APIKey == "" {
		return nil, apperrors.ErrConfiguration("HOLDED_API_KEY is required", nil)
	}
	if cfg.Holded.BaseURL == "" {
		return nil, apperrors.ErrConfiguration("HOLDED_BASE_URL is required", nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "holded_client"))

	c := &HoldedClient{
		http:      &http.Client{Timeout: cfg.HoldedTimeout()},
		base:      cfg.Holded.BaseURL,
		apiKey:    cfg.Holded.APIKey,
		attempts:  cfg.Retry.Attempts,
		baseDelay: cfg.RetryBaseDelay(),
		cb:        breaker.New("holded", logger),
		logger:    logger,
	}
	logger.Info("holded API client initialized", zap.String("base_url", c.base))
	return c, nil
}

// FetchOrders devuelve las órdenes de venta creadas en [start, end]. Si algún
// documento no se pudo leer devuelve las órdenes válidas junto con un error de tipo
// data_quality (ver apperrors.MalformedCount).
func (c *HoldedClient) FetchOrders(ctx context.Context, start, end time.Time) ([]models.Order, error) {
	query := url.Values{}
	query.Set("starttmp", strconv.FormatInt(start.Unix(), 10))
	query.Set("endtmp", strconv.FormatInt(end.Unix(), 10))

	log := logging.For(ctx, c.logger)
	log.Info("fetching sales orders",
		zap.Time("start", start),
		zap.Time("end", end),
		zap.String("starttmp", query.Get("starttmp")),
		zap.String("endtmp", query.Get("endtmp")),
	)

	var body []byte
	err := retry.WithRetry(ctx, c.attempts, c.baseDelay, func(attempt int) error {
		b, err := c.get(ctx, salesOrdersEndpoint, query)
		if err != nil {
			log.Warn("holded request failed",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", c.attempts),
				zap.Error(err),
			)
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	orders, malformed, err := decodeOrders(body)
	if err != nil {
		return nil, err
	}
	log.Info("retrieved sales orders", zap.Int("count", len(orders)))
	if malformed > 0 {
		// el lote sigue siendo válido; el llamador decide qué hacer con el aviso
		log.Warn("skipped malformed Holded documents", zap.Int("malformed", malformed))
		return orders, apperrors.ErrMalformedOrders(malformed)
	}
	return orders, nil
}

// TestConnection hace una petición mínima sin reintentos.
func (c *HoldedClient) TestConnection(ctx context.Context) error {
	query := url.Values{}
	query.Set("limit", "1")
	if _, err := c.get(ctx, salesOrdersEndpoint, query); err != nil {
		c.logger.Error("holded API connection test failed", zap.Error(err))
		return err
	}
	c.logger.Info("holded API connection test successful")
	return nil
}

func (c *HoldedClient) get(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	out, err := c.cb.Execute(func() (interface{}, error) {
		return c.do(ctx, endpoint, query)
	})
	if err != nil {
		return nil, breaker.Translate("holded", err)
	}
	return out.([]byte), nil
}

func (c *HoldedClient) do(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/"+endpoint, nil)
	if err != nil {
		return nil, apperrors.ErrConfiguration("error building request", err)
	}
	req.URL.RawQuery = query.Encode()
	req.Header.Set("key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("holded request", zap.String("url", req.URL.String()))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.ErrTransport("holded request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.ErrTransport("holded response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.ErrExternalAPI(resp.StatusCode, fmt.Sprintf("holded returned status %d", resp.StatusCode), nil).
			WithMetadata("endpoint", endpoint)
	}
	return body, nil
}

// decodeOrders acepta un array de documentos o un objeto que lo envuelve en
// "data" o "documents". Un objeto sin envoltorio se trata como un único documento.
// Cada documento se decodifica por separado: los que no se pueden leer se descartan
// y se cuentan en malformed.
func decodeOrders(body []byte) (orders []models.Order, malformed int, err error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []models.Order{}, 0, nil
	}

	var raw json.RawMessage
	switch trimmed[0] {
	case '[':
		raw = trimmed
	case '{':
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, 0, apperrors.ErrExternalAPI(http.StatusOK, "invalid JSON from Holded", err)
		}
		if data, ok := wrapper["data"]; ok {
			raw = data
		} else if docs, ok := wrapper["documents"]; ok {
			raw = docs
		} else {
			raw = append(append([]byte{'['}, trimmed...), ']')
		}
	default:
		return nil, 0, apperrors.ErrExternalAPI(http.StatusOK, "unexpected response format from Holded", nil)
	}

	var elems []json.RawMessage
	if trimmedRaw := bytes.TrimSpace(raw); len(trimmedRaw) > 0 && !bytes.Equal(trimmedRaw, []byte("null")) {
		if err := json.Unmarshal(trimmedRaw, &elems); err != nil {
			return nil, 0, apperrors.ErrExternalAPI(http.StatusOK, "cannot decode Holded documents", err)
		}
	}

	orders = make([]models.Order, 0, len(elems))
	for _, elem := range elems {
		var order models.Order
		elem = bytes.TrimSpace(elem)
		if len(elem) == 0 || elem[0] != '{' {
			malformed++
			continue
		}
		if err := json.Unmarshal(elem, &order); err != nil {
			malformed++
			continue
		}
		orders = append(orders, order)
	}
	return orders, malformed, nil
}

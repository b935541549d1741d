package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"wallet_session/internal/domain/entity"
)

// RecordClient posts verification records to a backend.
type RecordClient struct {
	client   *fasthttp.Client
	endpoint string
	timeout  time.Duration
	logger   *zap.Logger
}

// NewRecordClient creates a new instance of RecordClient.
func NewRecordClient(endpoint string, timeout time.Duration, logger *zap.Logger) *RecordClient {
	return &RecordClient{
		client:   &fasthttp.Client{},
		endpoint: strings.TrimRight(endpoint, "/"),
		timeout:  timeout,
		logger:   logger.Named("RecordClient"),
	}
}

// Save implements port.RecordSink.
func (c *RecordClient) Save(ctx context.Context, rec entity.VerificationRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode verification record: %w", err)
	}

	status, rawBody, err := postJSON(ctx, c.client, c.endpoint, payload, c.timeout)
	if err != nil {
		c.logger.Error("Failed to execute request to record backend", zap.String("url", c.endpoint), zap.Error(err))
		return err
	}
	if status < 200 || status >= 300 {
		c.logger.Error("Record backend request failed",
			zap.String("url", c.endpoint),
			zap.Int("statusCode", status),
			zap.ByteString("responseBody", rawBody),
		)
		return fmt.Errorf("record backend request to %s failed with status %d: %s", c.endpoint, status, string(rawBody))
	}
	c.logger.Debug("Verification record stored", zap.String("userId", rec.UserID), zap.Bool("verified", rec.Verified))
	return nil
}

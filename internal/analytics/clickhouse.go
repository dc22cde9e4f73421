package analytics

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-reward-engine/internal/models"
)

// Schema is the expected distributions table, applied out of band.
const Schema = `
CREATE TABLE IF NOT EXISTS distributions (
    epoch             Int64,
    batch_index       Int32,
    signature         String,
    timestamp         DateTime,
    harvested_raw     UInt64,
    swapped_raw       UInt64,
    received_lamports UInt64,
    paid_lamports     UInt64,
    paid_wallets      Int32,
    accrued_wallets   Int32,
    duration_ms       Int64
) ENGINE = MergeTree()
ORDER BY (timestamp, epoch)
`

// ClickHouseSink records one row per completed slice for offline analysis.
// Strictly best effort: an unreachable warehouse never blocks a payout.
type ClickHouseSink struct {
	conn   driver.Conn
	logger *logrus.Logger
}

type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
	Logger   *logrus.Logger
}

func NewClickHouseSink(cfg ClickHouseConfig) (*ClickHouseSink, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	cfg.Logger.WithField("addr", cfg.Addr).Info("connected to ClickHouse")

	return &ClickHouseSink{conn: conn, logger: cfg.Logger}, nil
}

func (c *ClickHouseSink) Publish(ctx context.Context, event models.DistributionEvent) {
	query := `
		INSERT INTO distributions (
			epoch, batch_index, signature, timestamp,
			harvested_raw, swapped_raw, received_lamports,
			paid_lamports, paid_wallets, accrued_wallets, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := c.conn.Exec(ctx, query,
		event.Epoch,
		event.BatchIndex,
		event.Signature,
		event.Timestamp,
		event.HarvestedRaw,
		event.SwappedRaw,
		event.ReceivedLamports,
		event.PaidLamports,
		event.PaidWallets,
		event.AccruedWallets,
		event.DurationMS,
	)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"signature": event.Signature,
			"error":     err,
		}).Warn("failed to record distribution in ClickHouse")
	}
}

func (c *ClickHouseSink) Close() error {
	return c.conn.Close()
}

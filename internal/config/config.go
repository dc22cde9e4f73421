package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ThresholdMode selects the unit the minimum-payout and harvest thresholds
// are expressed in.
type ThresholdMode string

const (
	// ModeRaw expresses thresholds in raw fee-token units.
	ModeRaw ThresholdMode = "raw"
	// ModeSOL expresses thresholds in SOL, converted through the pool rate.
	ModeSOL ThresholdMode = "sol"
)

type Config struct {
	// RPC settings
	RPCUrl            string
	HTTPTimeout       time.Duration
	MaxRetries        int
	RetryBackoff      time.Duration
	RequestsPerSecond float64

	// Wallet
	WalletPrivateKey string

	// Token settings
	TokenMint     string
	TokenDecimals int

	// Pool settings
	PoolID       string
	PoolIndexURL string

	// Threshold gate
	Mode ThresholdMode
	// MinHarvestRaw is the harvest threshold in raw token units (raw mode,
	// and the degraded fallback in sol mode when no rate is available).
	MinHarvestRaw uint64
	// MinHarvestSOL is the harvest threshold in SOL (sol mode).
	MinHarvestSOL float64

	// Batching
	BatchCeilingRaw uint64
	BatchCeilingSOL float64
	BatchCount      int
	BatchDelay      time.Duration

	// Swap
	SlippageBps       uint16
	MinSwapOutFloor   uint64 // absolute floor on expected output, lamports
	RequireSimulation bool

	// Distribution
	MinPayoutSOL       float64
	MinPayoutRaw       uint64
	SecondaryRecipient string
	SecondaryShareBps  uint16
	// MinHoldRaw is the eligibility minimum in raw token units (raw mode,
	// and the degraded fallback in sol mode when no rate is available).
	MinHoldRaw uint64
	// MinHoldSOL is the eligibility minimum as a SOL value (sol mode).
	MinHoldSOL          float64
	EligibilityInterval time.Duration

	// Blacklist holds comma-separated addresses excluded from distribution
	// (treasury, pool vaults, burn address).
	Blacklist []string

	// Scheduler
	EpochInterval time.Duration

	// State store
	StateDir string

	// Redis settings
	RedisAddr string

	// ClickHouse settings
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// Status server
	StatusAddr string
	APIKey     string
	DevMode    bool
}

func Load() *Config {
	return &Config{
		// RPC
		RPCUrl:            getEnv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),
		HTTPTimeout:       getDurationEnv("HTTP_TIMEOUT", 30*time.Second),
		MaxRetries:        getIntEnv("MAX_RETRIES", 5),
		RetryBackoff:      getDurationEnv("RETRY_BACKOFF", 2*time.Second),
		RequestsPerSecond: getFloatEnv("RPC_REQUESTS_PER_SECOND", 8),

		// Wallet
		WalletPrivateKey: getEnv("WALLET_PRIVATE_KEY", ""),

		// Token
		TokenMint:     getEnv("TOKEN_MINT", ""),
		TokenDecimals: getIntEnv("TOKEN_DECIMALS", 9),

		// Pool
		PoolID:       getEnv("POOL_ID", ""),
		PoolIndexURL: getEnv("POOL_INDEX_URL", "https://api-v3.raydium.io"),

		// Threshold gate
		Mode:          ThresholdMode(getEnv("THRESHOLD_MODE", string(ModeSOL))),
		MinHarvestRaw: getUint64Env("MIN_HARVEST_RAW", 20_000),
		MinHarvestSOL: getFloatEnv("MIN_HARVEST_SOL", 0.5),

		// Batching
		BatchCeilingRaw: getUint64Env("BATCH_CEILING_RAW", 1_000_000),
		BatchCeilingSOL: getFloatEnv("BATCH_CEILING_SOL", 25),
		BatchCount:      getIntEnv("BATCH_COUNT", 4),
		BatchDelay:      getDurationEnv("BATCH_DELAY", 20*time.Second),

		// Swap
		SlippageBps:       uint16(getIntEnv("SLIPPAGE_BPS", 100)),
		MinSwapOutFloor:   getUint64Env("MIN_SWAP_OUT_LAMPORTS", 10_000),
		RequireSimulation: getBoolEnv("REQUIRE_SIMULATION", true),

		// Distribution
		MinPayoutSOL:        getFloatEnv("MIN_PAYOUT_SOL", 0.01),
		MinPayoutRaw:        getUint64Env("MIN_PAYOUT_RAW", 1_000),
		SecondaryRecipient:  getEnv("SECONDARY_RECIPIENT", ""),
		SecondaryShareBps:   uint16(getIntEnv("SECONDARY_SHARE_BPS", 0)),
		MinHoldRaw:          getUint64Env("MIN_HOLD_RAW", 100_000),
		MinHoldSOL:          getFloatEnv("MIN_HOLD_SOL", 0.1),
		EligibilityInterval: getDurationEnv("ELIGIBILITY_INTERVAL", 30*time.Minute),

		Blacklist: getListEnv("BLACKLIST_ADDRESSES"),

		// Scheduler
		EpochInterval: getDurationEnv("EPOCH_INTERVAL", 10*time.Minute),

		// State
		StateDir: getEnv("STATE_DIR", "data"),

		// Redis
		RedisAddr: getEnv("REDIS_ADDR", ""),

		// ClickHouse
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", ""),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "rewards"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		// Status server
		StatusAddr: getEnv("STATUS_ADDR", ":8092"),
		APIKey:     getEnv("STATUS_API_KEY", ""),
		DevMode:    getBoolEnv("DEV_MODE", false),
	}
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	if c.WalletPrivateKey == "" {
		return fmt.Errorf("config: WALLET_PRIVATE_KEY is required")
	}
	if c.TokenMint == "" {
		return fmt.Errorf("config: TOKEN_MINT is required")
	}
	if c.PoolID == "" {
		return fmt.Errorf("config: POOL_ID is required")
	}
	if c.Mode != ModeRaw && c.Mode != ModeSOL {
		return fmt.Errorf("config: THRESHOLD_MODE must be %q or %q, got %q", ModeRaw, ModeSOL, c.Mode)
	}
	if c.BatchCount < 1 {
		return fmt.Errorf("config: BATCH_COUNT must be >= 1")
	}
	if c.SlippageBps >= 10000 {
		return fmt.Errorf("config: SLIPPAGE_BPS must be < 10000")
	}
	if c.SecondaryShareBps >= 10000 {
		return fmt.Errorf("config: SECONDARY_SHARE_BPS must be < 10000")
	}
	if c.SecondaryShareBps > 0 && c.SecondaryRecipient == "" {
		return fmt.Errorf("config: SECONDARY_RECIPIENT required when SECONDARY_SHARE_BPS > 0")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getUint64Env(key string, defaultVal uint64) uint64 {
	if val := os.Getenv(key); val != "" {
		if u, err := strconv.ParseUint(val, 10, 64); err == nil {
			return u
		}
	}
	return defaultVal
}

func getFloatEnv(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getListEnv(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

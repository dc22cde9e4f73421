package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-reward-engine/internal/config"
	"github.com/aman-zulfiqar/solana-reward-engine/internal/engine"
)

func loadEnv() {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	_ = godotenv.Load(filepath.Join(projectRoot, ".env"))
}

// main is the operator CLI: inspect the gate, run one epoch, or dump state.
func main() {
	loadEnv()

	mode := flag.String("mode", "check", "check | run | state")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	cfg := config.Load()

	eng, err := engine.NewFromConfig(cfg, logger)
	if err != nil {
		fmt.Println("failed to init engine:", err)
		os.Exit(1)
	}
	defer eng.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	switch *mode {
	case "check":
		mint, err := solana.PublicKeyFromBase58(cfg.TokenMint)
		if err != nil {
			fmt.Println("invalid token mint:", err)
			os.Exit(1)
		}
		fees, err := eng.Ledger.GetWithheldFees(ctx, mint)
		if err != nil {
			fmt.Println("withheld scan failed:", err)
			os.Exit(1)
		}
		fmt.Printf("withheld_total=%d mint_withheld=%d accounts=%d\n",
			fees.Total, fees.MintWithheld, len(fees.Accounts))

	case "run":
		report, err := eng.Scheduler.RunOnce(ctx)
		if err != nil {
			fmt.Println("epoch failed:", err)
			os.Exit(1)
		}
		if report == nil {
			fmt.Println("epoch already in progress")
			os.Exit(2)
		}
		fmt.Printf("skipped=%v harvested_raw=%d received_sol=%.6f paid_sol=%.6f paid_wallets=%d accrued=%d duration=%s\n",
			report.Skipped, report.HarvestedRaw,
			float64(report.ReceivedLamports)/1e9, float64(report.PaidLamports)/1e9,
			report.PaidWallets, report.AccruedWallets, report.Duration)

	case "state":
		rewards, err := eng.State.LoadRewards(ctx)
		if err != nil {
			fmt.Println("failed to load rewards:", err)
			os.Exit(1)
		}
		totals, err := eng.State.LoadTaxState(ctx)
		if err != nil {
			fmt.Println("failed to load totals:", err)
			os.Exit(1)
		}
		out, _ := json.MarshalIndent(map[string]any{
			"rewards": rewards,
			"totals":  totals,
		}, "", "  ")
		fmt.Println(string(out))

	default:
		fmt.Println("invalid -mode (use check|run|state)")
		os.Exit(2)
	}
}

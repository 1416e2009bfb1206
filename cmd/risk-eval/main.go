package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/liqtrade/riskengine/internal/config"
	"github.com/liqtrade/riskengine/internal/risk"
	"github.com/liqtrade/riskengine/pkg/types"
)

func main() {
	configPath := flag.String("config", "configs/risk.yaml", "path to config file")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	riskCfg, err := cfg.RiskConfig()
	if err != nil {
		log.Fatal("Invalid risk config:", err)
	}

	sizer, err := cfg.BuildSizer()
	if err != nil {
		log.Fatal("Failed to build sizer:", err)
	}

	chain, _, _, err := cfg.BuildConstraints()
	if err != nil {
		log.Fatal("Failed to build constraints:", err)
	}

	engine := risk.NewEngine(sizer, chain)
	engine.SetLogger(logger.WithField("component", "risk-engine"))

	// Synthetic batch: two long signals against a $100k cash book.
	now := time.Now().UTC()

	signals := []types.Signal{
		{Symbol: "AAPL", Timestamp: now, Direction: types.DirectionLong, Strength: 1.0},
		{Symbol: "GOOGL", Timestamp: now, Direction: types.DirectionLong, Strength: 0.8},
	}

	portfolio := types.PortfolioState{
		Cash:      decimal.NewFromInt(100000),
		Positions: map[string]types.Position{},
		Timestamp: now,
	}

	market := types.MarketState{
		CurrentBars: map[string]types.Bar{
			"AAPL":  {Symbol: "AAPL", Open: d(100), High: d(102), Low: d(98), Close: d(100), Volume: d(1000000), Timestamp: now},
			"GOOGL": {Symbol: "GOOGL", Open: d(150), High: d(153), Low: d(147), Close: d(150), Volume: d(800000), Timestamp: now},
		},
		Volatility: map[string]decimal.Decimal{
			"AAPL":  d(2),
			"GOOGL": d(3),
		},
		Liquidity: map[string]decimal.Decimal{
			"AAPL":  d(50000000),
			"GOOGL": d(30000000),
		},
		Timestamp: now,
	}

	result, err := engine.ProcessSignals(signals, portfolio, market, riskCfg, decimal.Zero, decimal.Zero)
	if err != nil {
		log.Fatal("Engine failed:", err)
	}

	fmt.Printf("halted: %v\n", result.Halted)
	for _, order := range result.Orders {
		fmt.Printf("order: %s %s %s", order.Side, order.Quantity, order.Symbol)
		if stop, ok := result.StopLosses[order.Symbol]; ok {
			fmt.Printf(" (stop %s)", stop)
		}
		fmt.Println()
	}
	for name, violations := range result.ConstraintViolations {
		for _, v := range violations {
			fmt.Printf("violation [%s]: %s\n", name, v)
		}
	}
	for _, sig := range result.RejectedSignals {
		fmt.Printf("rejected signal: %s\n", sig.Symbol)
	}
}

func d(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	enclave "github.com/edgebitio/nitro-enclaves-sdk-go"

	"github.com/cloudx-io/escrowauction/auctionapi"
	"github.com/cloudx-io/escrowauction/core"
	"github.com/cloudx-io/escrowauction/notary"
	"github.com/cloudx-io/escrowauction/substrate"
)

// plainTextHandler is a simple slog handler that writes plain text to stdout
// without timestamps or log levels - appropriate for CLI output
type plainTextHandler struct{}

func (*plainTextHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (*plainTextHandler) Handle(_ context.Context, r slog.Record) error {
	_, err := fmt.Fprintln(os.Stdout, r.Message)
	return err
}

func (h *plainTextHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

func (h *plainTextHandler) WithGroup(_ string) slog.Handler {
	return h
}

var output = slog.New(&plainTextHandler{})

func main() {
	var (
		scenarioInput = flag.String("scenario", "", "Scenario JSON (file path or inline JSON)")
		journalPath   = flag.String("journal", "", "Write the signed receipt journal to this path")
		outputFormat  = flag.String("format", "text", "Output format: text or json")
		parallel      = flag.Int("parallel", 1, "Max concurrent calls for steps sharing a minute")
		verbose       = flag.Bool("v", false, "Log auction internals to stderr")
		help          = flag.Bool("help", false, "Show usage information")
	)

	flag.Parse()

	if *help || *scenarioInput == "" {
		showUsage()
		if *scenarioInput == "" && !*help {
			os.Exit(1)
		}
		os.Exit(0)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	scenario, err := loadScenario(*scenarioInput)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading scenario: %v\n", err)
		os.Exit(2)
	}

	report, err := simulate(context.Background(), scenario, simConfig{
		Parallel: *parallel,
		Logger:   logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Simulation error: %v\n", err)
		os.Exit(2)
	}

	if *journalPath != "" {
		data, err := json.MarshalIndent(report.Journal, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error marshaling journal: %v\n", err)
			os.Exit(2)
		}
		if err := os.WriteFile(*journalPath, data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing journal: %v\n", err)
			os.Exit(2)
		}
	}

	if *outputFormat == "json" {
		if err := outputJSON(report); err != nil {
			fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
			os.Exit(2)
		}
	} else {
		outputText(report)
	}

	if !report.Conserved {
		os.Exit(1)
	}
	os.Exit(0)
}

func showUsage() {
	output.Info("Escrow Auction Simulator")
	output.Info("")
	output.Info("Replays a timed scenario against one auction on an in-memory ledger")
	output.Info("and records a signed receipt journal.")
	output.Info("")
	output.Info("Usage:")
	output.Info("  auction-sim --scenario <json> [options]")
	output.Info("")
	output.Info("Optional Flags:")
	output.Info("  --journal <path>                  Write the signed journal (JSON)")
	output.Info("  --format <text|json>              Output format (default: text)")
	output.Info("  --parallel <n>                    Concurrent calls per minute (default: 1)")
	output.Info("                                    Values above 1 may give outcomes no sequential order would")
	output.Info("  --v                               Verbose auction logging to stderr")
	output.Info("")
	output.Info("Environment:")
	output.Info("  AUCTION_SIGNING_KEY_PATH          EC P-384 private key PEM (default: ephemeral key)")
	output.Info("  AUCTION_ATTEST=1                  Attest finalization with the Nitro NSM")
	output.Info("")
	output.Info("Scenario:")
	output.Info(`  {"owner":"owner","item":"X","duration_minutes":60,"rejecting":["carol"],`)
	output.Info(`   "steps":[{"at_minute":1,"op":"bid","caller":"alice","amount":100},`)
	output.Info(`            {"at_minute":61,"op":"finalize","caller":"owner"}]}`)
	output.Info("")
	output.Info("Ops: bid, receive, withdraw_excess, finalize, refund, distribute_refunds,")
	output.Info("     withdraw_funds, emergency_recovery")
	output.Info("")
	output.Info("Exit Codes:")
	output.Info("  0 - Scenario completed, custody conserved")
	output.Info("  1 - Custody conservation violated")
	output.Info("  2 - Invalid input or runtime error")
}

// simConfig carries operator settings for one simulation.
type simConfig struct {
	Parallel int
	Logger   *slog.Logger
	Keys     *notary.KeyManager
	Attester notary.EnclaveAttester
}

// loadEnvConfig fills signing key and attester from the environment.
func loadEnvConfig(cfg *simConfig) error {
	if path := getEnvString("AUCTION_SIGNING_KEY_PATH", ""); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read signing key: %w", err)
		}
		keys, err := notary.KeyManagerFromPEM(data)
		if err != nil {
			return fmt.Errorf("load signing key: %w", err)
		}
		cfg.Keys = keys
		cfg.Logger.Info("signing key loaded", "path", path)
	}

	attest, err := getEnvBool("AUCTION_ATTEST", false)
	if err != nil {
		return err
	}
	if attest {
		attester, err := getEnclaveAttester()
		if err != nil {
			return err
		}
		cfg.Attester = attester
	}
	return nil
}

// getEnclaveAttester attempts to get the NSM attester, returns error if not available
func getEnclaveAttester() (notary.EnclaveAttester, error) {
	handle, err := enclave.GetOrInitializeHandle()
	if err != nil {
		return nil, fmt.Errorf("NSM not available: %w", err)
	}
	return handle, nil
}

func getEnvString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid value for %s: %s (must be a boolean)", key, value)
	}
	return b, nil
}

// report is everything a simulation produced.
type report struct {
	Results   []StepResult            `json:"results"`
	Record    core.Record             `json:"record"`
	State     core.State              `json:"state"`
	Totals    core.Totals             `json:"totals"`
	Standings []core.Standing         `json:"standings"`
	Wallets   map[core.Account]uint64 `json:"wallets"`
	Transfers []substrate.Transfer    `json:"transfers"`
	Conserved bool                    `json:"conserved"`
	HeadHash  string                  `json:"head_hash"`
	Journal   *auctionapi.Journal     `json:"-"`
}

func simulate(ctx context.Context, scenario *Scenario, cfg simConfig) (*report, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if err := loadEnvConfig(&cfg); err != nil {
		return nil, err
	}
	if cfg.Keys == nil {
		keys, err := notary.NewKeyManager()
		if err != nil {
			return nil, err
		}
		cfg.Keys = keys
	}

	start := scenario.Start
	if start.IsZero() {
		start = time.Now().UTC().Truncate(time.Minute)
	}
	clock := substrate.NewClock(start)
	wallets := substrate.NewWallets()
	for _, account := range scenario.Rejecting {
		wallets.Reject(account)
	}

	notaryOpts := []notary.Option{notary.WithClock(clock.Now), notary.WithLogger(cfg.Logger)}
	if cfg.Attester != nil {
		notaryOpts = append(notaryOpts, notary.WithAttester(cfg.Attester))
	}
	n, err := notary.New(cfg.Keys, notaryOpts...)
	if err != nil {
		return nil, err
	}

	auction, err := core.NewWithMinutes(scenario.Owner, scenario.DurationMinutes, scenario.Item,
		core.WithClock(clock.Now),
		core.WithTransferer(wallets),
		core.WithEventSink(n),
		core.WithLogger(cfg.Logger))
	if err != nil {
		return nil, err
	}

	r := &runner{auction: auction, clock: clock, wallets: wallets, start: start, parallel: cfg.Parallel}
	results, err := r.run(ctx, scenario)
	if err != nil {
		return nil, err
	}

	journal, err := n.Journal(auction)
	if err != nil {
		return nil, err
	}

	totals := auction.Totals()
	walletBalances := make(map[core.Account]uint64)
	for _, t := range wallets.History() {
		walletBalances[t.To] = wallets.BalanceOf(t.To)
	}

	return &report{
		Results:   results,
		Record:    auction.Snapshot(),
		State:     auction.State(),
		Totals:    totals,
		Standings: auction.Standings(),
		Wallets:   walletBalances,
		Transfers: wallets.History(),
		Conserved: totals.Received == totals.PaidOut+totals.Balance && totals.PaidOut == wallets.TotalPaid(),
		Journal:   journal,
		HeadHash:  n.HeadHash(),
	}, nil
}

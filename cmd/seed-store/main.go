// Command seed-store prepares a fresh deployment: it runs migrations and
// inserts demo customers into PostgreSQL, and optionally pushes a discount
// seed file (as emitted by promo-ingest) into a running API server.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/customer"
	"github.com/xenking/storefront/internal/storage/postgres"
)

type discountSeed struct {
	Name   string          `json:"name"`
	Factor decimal.Decimal `json:"factor"`
	Tier   string          `json:"tier"`
}

type customerSeed struct {
	Name    string
	Address string
	Tier    customer.Tier
}

var demoCustomers = []customerSeed{
	{Name: "Ana Torres", Address: "12 Harbor Lane", Tier: customer.TierNew},
	{Name: "Bruno Keller", Address: "7 Mill Road", Tier: customer.TierFrequent},
	{Name: "Carla Mendes", Address: "3 Kingfisher Court", Tier: customer.TierVIP},
}

func main() {
	var (
		databaseURL   string
		discountsFile string
		apiURL        string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&discountsFile, "discounts-file", "", "path to a discount seed JSON file (optional)")
	flag.StringVar(&apiURL, "api-url", "", "base URL of a running API server to push discounts to")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if discountsFile != "" && apiURL == "" {
		slog.Error("--discounts-file requires --api-url")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, discountsFile, apiURL); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, discountsFile, apiURL string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedCustomers(ctx, postgres.NewLedger(pool)); err != nil {
		return errors.Wrap(err, "seed customers")
	}

	if discountsFile != "" {
		if err := pushDiscounts(ctx, discountsFile, apiURL); err != nil {
			return errors.Wrap(err, "push discounts")
		}
	}

	return nil
}

func seedCustomers(ctx context.Context, ledger *postgres.Ledger) error {
	slog.Info("seeding demo customers", slog.Int("count", len(demoCustomers)))

	for _, c := range demoCustomers {
		id, err := ledger.CreateCustomer(ctx, c.Name, c.Address, c.Tier)
		if err != nil {
			return errors.Wrapf(err, "create customer %s", c.Name)
		}

		slog.Info("created customer",
			slog.Int64("id", id),
			slog.String("name", c.Name),
			slog.String("tier", string(c.Tier)),
		)
	}

	return nil
}

// pushDiscounts registers every seed entry with the running API server.
// Discounts live in server memory, so they must be pushed after each start.
func pushDiscounts(ctx context.Context, discountsFile, apiURL string) error {
	data, err := os.ReadFile(discountsFile)
	if err != nil {
		return errors.Wrap(err, "read discounts file")
	}

	var seeds []discountSeed
	if err := json.Unmarshal(data, &seeds); err != nil {
		return errors.Wrap(err, "parse discounts JSON")
	}

	slog.Info("pushing discounts", slog.String("api", apiURL), slog.Int("count", len(seeds)))

	client := &http.Client{Timeout: 10 * time.Second}
	for _, s := range seeds {
		body, err := json.Marshal(s)
		if err != nil {
			return errors.Wrapf(err, "marshal discount %s", s.Name)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+"/api/discounts", bytes.NewReader(body))
		if err != nil {
			return errors.Wrapf(err, "build request for %s", s.Name)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return errors.Wrapf(err, "register discount %s", s.Name)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			return errors.Errorf("register discount %s: unexpected status %d", s.Name, resp.StatusCode)
		}

		slog.Info("registered discount",
			slog.String("name", s.Name),
			slog.String("tier", s.Tier),
			slog.String("factor", s.Factor.String()),
		)
	}

	return nil
}

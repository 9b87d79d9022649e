// Command fleet-report prints ledger statements and per-driver summaries
// from the configured backend, and can export a driver's balance chart.
// The hash-password command produces a DASHBOARD_PASSWORD_HASH value.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"fleetdash/internal/auth"
	"fleetdash/internal/backend"
	"fleetdash/internal/cli"
	"fleetdash/internal/config"
	"fleetdash/internal/core"
	applog "fleetdash/internal/log"
	"fleetdash/internal/report"
	"fleetdash/internal/services"
)

var (
	app = kingpin.New("fleet-report", "Fleet ledger reports.")

	reportCmd = app.Command("report", "Print the ledger statement or driver summaries.").Default()
	driverID  = reportCmd.Flag("driver", "Only report records for this driver id").Short('d').String()
	summary   = reportCmd.Flag("summary", "Print one summary row per driver instead of the statement").Short('s').Bool()
	chartPath = reportCmd.Flag("chart", "Write the driver's balance chart to this PNG file (requires --driver)").Short('o').String()
	timeout   = reportCmd.Flag("timeout", "Timeout for reading the store").Default("30s").Duration()

	hashCmd  = app.Command("hash-password", "Read a password from stdin and print its bcrypt hash.")
	hashCost = hashCmd.Flag("cost", "bcrypt cost").Default("10").Int()
)

func main() {
	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	if cmd == hashCmd.FullCommand() {
		if err := hashPassword(os.Stdin, os.Stdout, *hashCost); err != nil {
			fmt.Fprintln(os.Stderr, "hash-password:", err)
			os.Exit(1)
		}
		return
	}

	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentReport)

	if err := run(cfg, logger); err != nil {
		logger.Error("Report failed", applog.FieldError, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *applog.Logger) error {
	if *chartPath != "" && *driverID == "" {
		return fmt.Errorf("--chart requires --driver")
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	// Reports never publish.
	backendCfg.AMQPURL = ""

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	be, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("open backend: %w", err)
	}
	defer be.Close()

	svc := services.NewDashboardService(be.Store, nil, nil)

	if *driverID != "" {
		sum, err := svc.Search(ctx, *driverID)
		if err != nil {
			return err
		}
		if !sum.Found {
			return fmt.Errorf("no records for driver %q", core.NormalizeDriverID(*driverID))
		}
		if *chartPath != "" {
			if err := writeChart(*chartPath, sum); err != nil {
				return err
			}
			logger.Info("Balance chart written", "path", *chartPath, applog.FieldDriverID, sum.DriverID)
		}
		if *summary {
			report.WriteSummaries(os.Stdout, []core.DriverSummary{sum})
			return nil
		}
		report.WriteStatement(os.Stdout, sum.Records)
		return nil
	}

	records, err := svc.Statement(ctx)
	if err != nil {
		return err
	}
	if *summary {
		report.WriteSummaries(os.Stdout, report.Summaries(records))
		return nil
	}
	report.WriteStatement(os.Stdout, records)
	fmt.Fprintf(os.Stdout, "%d records as of %s\n", len(records), time.Now().Format(time.RFC3339))
	return nil
}

func writeChart(path string, sum core.DriverSummary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}
	if err := report.RenderBalanceChart(f, sum); err != nil {
		f.Close()
		return fmt.Errorf("render chart: %w", err)
	}
	return f.Close()
}

// hashPassword reads the first line of r and writes its bcrypt hash to w.
func hashPassword(r io.Reader, w io.Writer, cost int) error {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return errors.New("empty password")
	}
	hash, err := auth.HashPassword(password, cost)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, hash)
	return err
}

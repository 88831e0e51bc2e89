package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rugscan/rugscan/internal/domain"
	"github.com/rugscan/rugscan/internal/extract"
	httpiface "github.com/rugscan/rugscan/internal/interfaces/http"
	"github.com/rugscan/rugscan/internal/msg"
)

// resolveAddresses turns the scan argument into candidate addresses:
// extraction over the raw text, with the --chain flag narrowing bare
// addresses to a specific network.
func resolveAddresses(text string) []domain.Address {
	addrs := extract.Extract(text)
	if flagChain == "" {
		return addrs
	}
	chain := domain.Chain(flagChain)
	out := make([]domain.Address, 0, len(addrs))
	for _, addr := range addrs {
		if addr.Chain.Family() == chain.Family() {
			addr = domain.NewAddress(chain, addr.Value)
		}
		out = append(out, addr)
	}
	return out
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	var text string
	for _, arg := range args {
		text += arg + " "
	}
	addrs := resolveAddresses(text)
	if len(addrs) == 0 {
		return fmt.Errorf("no token addresses found in input")
	}

	for _, addr := range addrs {
		record, err := a.scanner.Scan(ctx, addr, !flagNoCache)
		if err != nil {
			fmt.Printf("%s  SCAN FAILED: %v\n", addr.Key(), err)
			continue
		}
		printRecord(record)
	}
	return nil
}

func printRecord(record *domain.TokenRecord) {
	name := record.TokenSymbol
	if name == "" {
		name = "?"
	}
	fmt.Printf("%s (%s)\n", record.Address.Key(), name)
	fmt.Printf("  score %d/100  risk %s\n", record.Score, record.RiskLevel)
	for factor, value := range record.Breakdown {
		fmt.Printf("    %-20s %d\n", factor, value)
	}
	for _, flag := range record.Flags {
		fmt.Printf("  [%s] %s\n", flag.Severity, flag.Message)
	}
}

func runWatchAdd(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	addrs := resolveAddresses(args[0])
	if len(addrs) != 1 {
		return fmt.Errorf("expected exactly one address, got %d", len(addrs))
	}
	addr := addrs[0]

	// Scan first so the baseline snapshots the current state.
	record, err := a.scanner.Scan(ctx, addr, true)
	if err != nil {
		return fmt.Errorf("scanning before add: %w", err)
	}

	resp := a.dispatcher.Dispatch(ctx, msg.Request{
		Type:    msg.TypeWatchlistAdd,
		Address: addr.Value,
		Chain:   addr.Chain,
		Token:   record,
	})
	if !resp.Success {
		return fmt.Errorf("%s", resp.Error)
	}
	fmt.Printf("watching %s (score %d, %s)\n", addr.Key(), record.Score, record.RiskLevel)
	return nil
}

func runWatchRemove(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	addrs := resolveAddresses(args[0])
	if len(addrs) != 1 {
		return fmt.Errorf("expected exactly one address, got %d", len(addrs))
	}

	resp := a.dispatcher.Dispatch(ctx, msg.Request{
		Type:    msg.TypeWatchlistRemove,
		Address: addrs[0].Value,
		Chain:   addrs[0].Chain,
	})
	if !resp.Success {
		return fmt.Errorf("%s", resp.Error)
	}
	fmt.Printf("removed %s\n", addrs[0].Key())
	return nil
}

func runWatchList(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	items := a.watchlist.Items(ctx)
	if len(items) == 0 {
		fmt.Println("watchlist is empty")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TOKEN\tSYMBOL\tSCORE\tRISK\tUPDATED")
	for _, item := range items {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			item.Address.Key(), item.TokenSymbol, item.LastScore,
			item.LastRiskTier, item.LastUpdated.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runWatchAlerts(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	addrs := resolveAddresses(args[0])
	if len(addrs) != 1 {
		return fmt.Errorf("expected exactly one address, got %d", len(addrs))
	}

	rows, err := a.archive.Recent(ctx, addrs[0], 0)
	if err != nil {
		return fmt.Errorf("reading alert archive: %w", err)
	}
	if len(rows) == 0 {
		fmt.Println("no archived alerts (is the postgres archive configured?)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tSEVERITY\tFIELD\tMESSAGE")
	for _, row := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			row.CreatedAt.Format("2006-01-02 15:04"), row.Severity, row.Field, row.Message)
	}
	return w.Flush()
}

func runMonitor(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	// One immediate cycle so baselines for fresh items are adopted
	// before the first interval elapses.
	a.monitor.RunCycle(ctx)
	a.monitor.Run(ctx)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	go a.monitor.Run(ctx)

	server := httpiface.NewServer(httpiface.Config{
		Host: a.config.HTTP.Host,
		Port: a.config.HTTP.Port,
	}, a.dispatcher, a.archive, a.metrics)
	return server.Run(ctx)
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	resp := a.dispatcher.Dispatch(ctx, msg.Request{Type: msg.TypeClearCache})
	if !resp.Success {
		return fmt.Errorf("%s", resp.Error)
	}
	fmt.Println("cache cleared")
	return nil
}

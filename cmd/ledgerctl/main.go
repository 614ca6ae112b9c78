// Command ledgerctl operates the inventory lot ledger from the shell.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/google/uuid"
)

const usage = `Inventory lot ledger

Usage:
  ledgerctl [flags] <command> [arguments]

Commands:
  catalog put -f skus.json                 Register or update catalog SKUs
  initial-balance -f balance.json          Create opening stock lots
  order create -f order.json               Create a draft supplier order
  order update <id> -f order.json          Replace supplier and items of a draft order
  order receive <id>                       Receive an order into lots
  order unreceive <id>                     Reverse a receipt while its lots are untouched
  order delete <id>                        Delete a draft order
  order show <id>                          Print one order
  order list [-status s] [-page n]         List orders newest first
  sale record -f sale.json                 Record a marketplace sale (idempotent)
  sale show <id>                           Print one sale with allocations
  inventory [-sku s] [-available]          Stock summary per SKU and lot detail
  report -kind k -from d -to d [-group-by g]
                                           cash_flow, pnl or unit_economics
  export -kind k -from d -to d [-o file]   Write the report as XLSX, uploading when configured

Flags:
  -config string   Config file (default: ./config.toml)
  -tenant string   Tenant id (default: $LEDGER_TENANT_ID)
  -json            Print JSON instead of tables
  -lang string     Number formatting locale (default: en)

A "-f -" argument reads the request from stdin.`

// globals are the flags shared by every command
type globals struct {
	configFile string
	tenantID   uuid.UUID
	asJSON     bool
	lang       string
	stdin      io.Reader
	stdout     io.Writer
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ledgerctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprintln(stderr, usage) }
	configFile := fs.String("config", "", "config file")
	tenant := fs.String("tenant", "", "tenant id")
	asJSON := fs.Bool("json", false, "print JSON")
	lang := fs.String("lang", "en", "number formatting locale")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	if err := loadEnv(".env"); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	if *tenant == "" {
		*tenant = os.Getenv("LEDGER_TENANT_ID")
	}
	tenantID, err := parseTenant(*tenant)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 2
	}

	cmd, ok := lookupCommand(fs.Args())
	if !ok {
		fmt.Fprintf(stderr, "Error: unknown command %q\n\n%s\n", fs.Arg(0), usage)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, *configFile)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	defer a.close(context.Background())

	g := &globals{
		configFile: *configFile,
		tenantID:   tenantID,
		asJSON:     *asJSON,
		lang:       *lang,
		stdin:      stdin,
		stdout:     stdout,
	}
	if err := cmd.run(ctx, a, g, cmd.args); err != nil {
		reportError(stderr, err)
		return exitCode(err)
	}
	return 0
}

func parseTenant(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, errors.New("tenant is required: pass -tenant or set LEDGER_TENANT_ID")
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("invalid tenant id %q", raw)
	}
	return id, nil
}

// reportError prints domain errors as "CODE: message"
func reportError(w io.Writer, err error) {
	var de *shared.DomainError
	if errors.As(err, &de) {
		fmt.Fprintf(w, "Error: %s: %s\n", de.Code, de.Message)
		return
	}
	fmt.Fprintln(w, "Error:", err)
}

// exitCode is 3 for rejected requests, 1 for everything else
func exitCode(err error) int {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return 3
	}
	return 1
}

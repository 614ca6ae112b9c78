package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	inventoryapp "github.com/erp/lotledger/internal/application/inventory"
	reportapp "github.com/erp/lotledger/internal/application/report"
	tradeapp "github.com/erp/lotledger/internal/application/trade"
	"github.com/erp/lotledger/internal/application/validation"
	"github.com/erp/lotledger/internal/domain/catalog"
	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type runFunc func(ctx context.Context, a *app, g *globals, args []string) error

type command struct {
	run  runFunc
	args []string
}

var commands = map[string]runFunc{
	"catalog put":     catalogPut,
	"initial-balance": initialBalance,
	"order create":    orderCreate,
	"order update":    orderUpdate,
	"order receive":   orderReceive,
	"order unreceive": orderUnreceive,
	"order delete":    orderDelete,
	"order show":      orderShow,
	"order list":      orderList,
	"sale record":     saleRecord,
	"sale show":       saleShow,
	"inventory":       inventory,
	"report":          showReport,
	"export":          exportReport,
}

// lookupCommand matches two-word commands before single words
func lookupCommand(args []string) (command, bool) {
	if len(args) >= 2 {
		if run, ok := commands[args[0]+" "+args[1]]; ok {
			return command{run: run, args: args[2:]}, true
		}
	}
	if len(args) >= 1 {
		if run, ok := commands[args[0]]; ok {
			return command{run: run, args: args[1:]}, true
		}
	}
	return command{}, false
}

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// decodeRequest reads JSON from path ("-" is stdin) into v, rejecting unknown fields
func decodeRequest(path string, stdin io.Reader, v interface{}) error {
	if path == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "a request file is required (-f)")
	}
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("invalid request JSON: %v", err))
	}
	return nil
}

// requestFile parses "-f path" out of args and returns the remaining positionals
func requestFile(name string, args []string) (string, []string, error) {
	fs := newFlags(name)
	path := fs.String("f", "", "request file")
	if err := parseInterspersed(fs, args); err != nil {
		return "", nil, err
	}
	return *path, fs.Args(), nil
}

// parseInterspersed allows flags after positionals: "order update <id> -f x.json"
func parseInterspersed(fs *flag.FlagSet, args []string) error {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return shared.NewDomainError(shared.CodeInvalidInput, err.Error())
		}
		if fs.NArg() == 0 {
			break
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
	return fs.Parse(append([]string{"--"}, positional...))
}

func idArg(args []string, what string) (uuid.UUID, error) {
	if len(args) != 1 {
		return uuid.Nil, shared.NewDomainError(shared.CodeInvalidInput, what+" id is required")
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return uuid.Nil, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("invalid %s id %q", what, args[0]))
	}
	return id, nil
}

// ==================== catalog ====================

type catalogSKUInput struct {
	Code       string                              `json:"code" validate:"required,max=100"`
	Name       string                              `json:"name" validate:"max=200"`
	Unit       string                              `json:"unit" validate:"max=20"`
	Enrichment map[string]catalog.EnrichmentRecord `json:"enrichment,omitempty"`
}

type catalogPutRequest struct {
	SKUs []catalogSKUInput `json:"skus" validate:"required,min=1,max=1000,dive"`
}

func catalogPut(ctx context.Context, a *app, g *globals, args []string) error {
	path, _, err := requestFile("catalog put", args)
	if err != nil {
		return err
	}
	var req catalogPutRequest
	if err := decodeRequest(path, g.stdin, &req); err != nil {
		return err
	}
	if err := validation.Struct(req); err != nil {
		return err
	}

	now := time.Now().UTC()
	skus := make([]*catalog.SKU, 0, len(req.SKUs))
	for _, in := range req.SKUs {
		sku, err := catalog.NewSKU(g.tenantID, in.Code, in.Name, in.Unit, now)
		if err != nil {
			return err
		}
		for provider, record := range in.Enrichment {
			if err := sku.Enrichment.Set(provider, record); err != nil {
				return shared.NewDomainError(shared.CodeInvalidInput,
					fmt.Sprintf("sku %s: enrichment %q: %v", sku.Code, provider, err))
			}
		}
		skus = append(skus, sku)
	}
	for _, sku := range skus {
		if err := a.catalog.Save(ctx, sku); err != nil {
			return err
		}
	}

	pr := newPrinter(g.stdout, g.lang, g.asJSON)
	if pr.asJSON {
		return pr.json(map[string]int{"saved": len(skus)})
	}
	rows := make([][]string, len(skus))
	for i, s := range skus {
		rows[i] = []string{s.Code, s.Name, s.Unit, strings.Join(s.Enrichment.Providers(), ",")}
	}
	return pr.table([]string{"SKU", "Name", "Unit", "Enrichment"}, rows, nil)
}

// ==================== inventory ====================

func initialBalance(ctx context.Context, a *app, g *globals, args []string) error {
	path, _, err := requestFile("initial-balance", args)
	if err != nil {
		return err
	}
	var req inventoryapp.InitialBalanceRequest
	if err := decodeRequest(path, g.stdin, &req); err != nil {
		return err
	}
	resp, err := a.inventory.InitialBalance(ctx, g.tenantID, req)
	if err != nil {
		return err
	}

	pr := newPrinter(g.stdout, g.lang, g.asJSON)
	if pr.asJSON {
		return pr.json(resp)
	}
	pr.line("Lots created: %d", resp.LotsCreated)
	pr.line("Purchase amount: %s", pr.money(resp.PurchaseAmount))
	return printLots(pr, resp.Lots)
}

func inventory(ctx context.Context, a *app, g *globals, args []string) error {
	fs := newFlags("inventory")
	sku := fs.String("sku", "", "only this SKU")
	available := fs.Bool("available", false, "hide exhausted lots")
	if err := parseInterspersed(fs, args); err != nil {
		return err
	}

	resp, err := a.inventory.ListInventory(ctx, g.tenantID, inventoryapp.ListInventoryRequest{
		SKU:           *sku,
		OnlyAvailable: *available,
	})
	if err != nil {
		return err
	}
	a.metrics.RecordInventoryValue(ctx, g.tenantID, resp.TotalStockValue)

	pr := newPrinter(g.stdout, g.lang, g.asJSON)
	if pr.asJSON {
		return pr.json(resp)
	}
	rows := make([][]string, len(resp.Summary))
	for i, s := range resp.Summary {
		rows[i] = []string{
			s.SKU, pr.qty(s.QuantityOnHand), strconv.Itoa(s.OpenLotCount), strconv.Itoa(s.LotCount),
			pr.money(s.AverageUnitCost), pr.money(s.StockValue),
		}
	}
	pr.heading("stock by sku")
	if err := pr.table(
		[]string{"SKU", "On hand", "Open lots", "Lots", "Avg cost", "Value"},
		rows,
		[]string{"Total", "", "", "", "", pr.money(resp.TotalStockValue)},
	); err != nil {
		return err
	}
	pr.line("")
	return printLots(pr, resp.Lots)
}

func printLots(pr *printer, lots []inventoryapp.LotResponse) error {
	rows := make([][]string, len(lots))
	for i, l := range lots {
		source := l.Source
		if l.SourceOrderID != nil {
			source += " " + l.SourceOrderID.String()
		}
		rows[i] = []string{
			l.ID.String(), l.SKU, pr.qty(l.QuantityRemaining) + "/" + pr.qty(l.QuantityOriginal),
			pr.money(l.UnitCost), pr.money(l.RemainingValue), pr.date(l.CreatedAt), source,
		}
	}
	pr.heading("lots")
	return pr.table([]string{"Lot", "SKU", "Remaining", "Unit cost", "Value", "Created", "Source"}, rows, nil)
}

// ==================== orders ====================

func orderCreate(ctx context.Context, a *app, g *globals, args []string) error {
	path, _, err := requestFile("order create", args)
	if err != nil {
		return err
	}
	var req tradeapp.CreateSupplierOrderRequest
	if err := decodeRequest(path, g.stdin, &req); err != nil {
		return err
	}
	order, err := a.orders.Create(ctx, g.tenantID, req)
	if err != nil {
		return err
	}
	return printOrder(newPrinter(g.stdout, g.lang, g.asJSON), order)
}

func orderUpdate(ctx context.Context, a *app, g *globals, args []string) error {
	path, rest, err := requestFile("order update", args)
	if err != nil {
		return err
	}
	id, err := idArg(rest, "order")
	if err != nil {
		return err
	}
	var req tradeapp.UpdateSupplierOrderRequest
	if err := decodeRequest(path, g.stdin, &req); err != nil {
		return err
	}
	order, err := a.orders.Update(ctx, g.tenantID, id, req)
	if err != nil {
		return err
	}
	return printOrder(newPrinter(g.stdout, g.lang, g.asJSON), order)
}

func orderReceive(ctx context.Context, a *app, g *globals, args []string) error {
	id, err := idArg(args, "order")
	if err != nil {
		return err
	}
	resp, err := a.orders.Receive(ctx, g.tenantID, id)
	if err != nil {
		return err
	}
	pr := newPrinter(g.stdout, g.lang, g.asJSON)
	if pr.asJSON {
		return pr.json(resp)
	}
	pr.line("Lots created: %d", resp.LotsCreated)
	pr.line("Purchase amount: %s", pr.money(resp.PurchaseAmount))
	return printOrder(pr, &resp.Order)
}

func orderUnreceive(ctx context.Context, a *app, g *globals, args []string) error {
	id, err := idArg(args, "order")
	if err != nil {
		return err
	}
	resp, err := a.orders.Unreceive(ctx, g.tenantID, id)
	if err != nil {
		return err
	}
	pr := newPrinter(g.stdout, g.lang, g.asJSON)
	if pr.asJSON {
		return pr.json(resp)
	}
	pr.line("Lots released: %d", len(resp.ReleasedLotIDs))
	return printOrder(pr, &resp.Order)
}

func orderDelete(ctx context.Context, a *app, g *globals, args []string) error {
	id, err := idArg(args, "order")
	if err != nil {
		return err
	}
	if err := a.orders.Delete(ctx, g.tenantID, id); err != nil {
		return err
	}
	pr := newPrinter(g.stdout, g.lang, g.asJSON)
	if pr.asJSON {
		return pr.json(map[string]interface{}{"deleted": true, "id": id})
	}
	pr.line("Order %s deleted", id)
	return nil
}

func orderShow(ctx context.Context, a *app, g *globals, args []string) error {
	id, err := idArg(args, "order")
	if err != nil {
		return err
	}
	order, err := a.orders.GetByID(ctx, g.tenantID, id)
	if err != nil {
		return err
	}
	return printOrder(newPrinter(g.stdout, g.lang, g.asJSON), order)
}

func orderList(ctx context.Context, a *app, g *globals, args []string) error {
	fs := newFlags("order list")
	status := fs.String("status", "", "draft or received")
	page := fs.Int("page", 1, "page number")
	pageSize := fs.Int("page-size", 20, "orders per page")
	if err := parseInterspersed(fs, args); err != nil {
		return err
	}

	resp, err := a.orders.List(ctx, g.tenantID, tradeapp.SupplierOrderListFilter{
		Status:   *status,
		Page:     *page,
		PageSize: *pageSize,
	})
	if err != nil {
		return err
	}
	pr := newPrinter(g.stdout, g.lang, g.asJSON)
	if pr.asJSON {
		return pr.json(resp)
	}
	rows := make([][]string, len(resp.Orders))
	for i, o := range resp.Orders {
		rows[i] = []string{
			o.ID.String(), pr.date(o.OrderDate), o.SupplierName, o.Status,
			strconv.Itoa(o.ItemCount), o.Currency, pr.money(o.PurchaseAmount),
		}
	}
	if err := pr.table([]string{"Order", "Date", "Supplier", "Status", "Items", "Currency", "Amount"}, rows, nil); err != nil {
		return err
	}
	pr.line("Page %d, %d orders in total", resp.Page, resp.Total)
	return nil
}

func printOrder(pr *printer, o *tradeapp.SupplierOrderResponse) error {
	if pr.asJSON {
		return pr.json(o)
	}
	pr.line("Order %s (%s, version %d)", o.ID, o.Status, o.Version)
	pr.line("Supplier: %s  Date: %s  Currency: %s", o.SupplierName, pr.date(o.OrderDate), o.Currency)
	if o.ReceivedAt != nil {
		pr.line("Received: %s", o.ReceivedAt.UTC().Format(time.RFC3339))
	}
	rows := make([][]string, len(o.Items))
	for i, it := range o.Items {
		rows[i] = []string{strconv.Itoa(it.LineNo), it.SKU, pr.qty(it.Quantity), pr.money(it.UnitCost), pr.money(it.Amount)}
	}
	return pr.table(
		[]string{"#", "SKU", "Quantity", "Unit cost", "Amount"},
		rows,
		[]string{"", "Total", pr.qty(o.TotalQuantity), "", pr.money(o.PurchaseAmount)},
	)
}

// ==================== sales ====================

func saleRecord(ctx context.Context, a *app, g *globals, args []string) error {
	path, _, err := requestFile("sale record", args)
	if err != nil {
		return err
	}
	var req tradeapp.RecordSaleRequest
	if err := decodeRequest(path, g.stdin, &req); err != nil {
		return err
	}
	sale, err := a.sales.RecordSale(ctx, g.tenantID, req)
	if err != nil {
		return err
	}
	return printSale(newPrinter(g.stdout, g.lang, g.asJSON), sale)
}

func saleShow(ctx context.Context, a *app, g *globals, args []string) error {
	id, err := idArg(args, "sale")
	if err != nil {
		return err
	}
	sale, err := a.sales.GetByID(ctx, g.tenantID, id)
	if err != nil {
		return err
	}
	return printSale(newPrinter(g.stdout, g.lang, g.asJSON), sale)
}

func printSale(pr *printer, s *tradeapp.SaleResponse) error {
	if pr.asJSON {
		return pr.json(s)
	}
	ref := "-"
	if s.ExternalOrderID != nil {
		ref = *s.ExternalOrderID
	}
	pr.line("Sale %s  %s/%s  %s", s.ID, s.Marketplace, ref, pr.date(s.SaleDate))
	if s.Existing {
		pr.line("Already recorded; nothing was allocated again")
	}

	var rows [][]string
	for _, it := range s.Items {
		rows = append(rows, []string{
			strconv.Itoa(it.LineNo), it.SKU, pr.qty(it.Quantity), pr.money(it.Revenue),
			pr.money(it.Fee), pr.money(it.Cost), pr.money(it.Margin), "",
		})
		for _, al := range it.Allocations {
			rows = append(rows, []string{
				"", "", pr.qty(al.Quantity), "", "", pr.money(al.Cost), "",
				"lot " + al.LotID.String() + " @ " + pr.money(al.UnitCost),
			})
		}
	}
	return pr.table(
		[]string{"#", "SKU", "Quantity", "Revenue", "Fee", "Cost", "Margin", "Allocation"},
		rows,
		[]string{"", "Total", "", pr.money(s.Revenue), pr.money(s.Fees), pr.money(s.Cost), pr.money(s.Margin), ""},
	)
}

// ==================== reports ====================

func reportFlags(name string, args []string) (reportapp.ReportRequest, *string, error) {
	fs := newFlags(name)
	kind := fs.String("kind", "", "cash_flow, pnl or unit_economics")
	from := fs.String("from", "", "first day, YYYY-MM-DD")
	to := fs.String("to", "", "last day, YYYY-MM-DD")
	groupBy := fs.String("group-by", "", "day or month (pnl)")
	out := fs.String("o", "", "output file")
	if err := parseInterspersed(fs, args); err != nil {
		return reportapp.ReportRequest{}, nil, err
	}
	return reportapp.ReportRequest{Kind: *kind, DateFrom: *from, DateTo: *to, GroupBy: *groupBy}, out, nil
}

func showReport(ctx context.Context, a *app, g *globals, args []string) error {
	req, _, err := reportFlags("report", args)
	if err != nil {
		return err
	}
	resp, err := a.reports.GetReport(ctx, g.tenantID, req)
	if err != nil {
		return err
	}
	pr := newPrinter(g.stdout, g.lang, g.asJSON)
	if pr.asJSON {
		return pr.json(resp)
	}
	pr.line("%s to %s", resp.DateFrom, resp.DateTo)
	return pr.reportTable(resp.View().Table())
}

func exportReport(ctx context.Context, a *app, g *globals, args []string) error {
	req, out, err := reportFlags("export", args)
	if err != nil {
		return err
	}
	resp, err := a.reports.Export(ctx, g.tenantID, req)
	if err != nil {
		return err
	}

	file := *out
	if file == "" {
		file = resp.FileName
	}
	if err := os.WriteFile(file, resp.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", file, err)
	}

	var link string
	if resp.ObjectKey != "" && a.exportStore != nil {
		link, _, err = a.exportStore.DownloadURL(ctx, resp.ObjectKey)
		if err != nil {
			a.log.Warn("Failed to presign export download", zap.Error(err))
		}
	}

	pr := newPrinter(g.stdout, g.lang, g.asJSON)
	if pr.asJSON {
		return pr.json(struct {
			*reportapp.ExportResponse
			Path        string `json:"path"`
			DownloadURL string `json:"download_url,omitempty"`
		}{resp, file, link})
	}
	pr.line("Wrote %s (%s bytes)", file, pr.p.Sprint(resp.Size))
	if resp.ObjectKey != "" {
		pr.line("Uploaded to s3://%s/%s", a.exportStore.Bucket(), resp.ObjectKey)
	}
	if link != "" {
		pr.line("Download: %s", link)
	}
	return nil
}

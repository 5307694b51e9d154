package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"cassa/internal/amqp"
	"cassa/internal/cli"
	"cassa/internal/core"
	applog "cassa/internal/log"
	"cassa/internal/services"
)

const dateLayout = "2006-01-02"

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := cli.LoadAndValidateConfig(logger)
	repo := cli.InitRepository(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// Event publishing is best effort for the CLI: without a broker the
	// pending-export sweep still picks entries up.
	var amqpClient *amqp.Client
	if c, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue); err != nil {
		logger.Warn("AMQP unavailable, entry events will not be published", applog.FieldError, err)
	} else {
		amqpClient = c
		defer amqpClient.Close()
	}

	reports := services.NewReportService(repo)
	ledger := services.NewLedgerService(repo, amqpClient, services.WithReports(reports))
	recon := services.NewReconciliationService(repo, services.NewAllowList(cfg.ResyncAdmins))

	ctx := context.Background()

	var err error
	switch os.Args[1] {
	case "create-account":
		err = runCreateAccount(ctx, ledger, os.Args[2:])
	case "accounts":
		err = runAccounts(ctx, reports, os.Args[2:])
	case "post":
		err = runPost(ctx, ledger, os.Args[2:])
	case "update":
		err = runUpdate(ctx, ledger, os.Args[2:])
	case "delete":
		err = runDelete(ctx, ledger, os.Args[2:])
	case "import":
		err = runImport(ctx, ledger, os.Args[2:])
	case "count":
		err = runCount(ctx, recon, os.Args[2:])
	case "recon":
		err = runRecon(ctx, recon, os.Args[2:])
	case "resync":
		err = runResync(ctx, recon, os.Args[2:])
	case "summary":
		err = runSummary(ctx, reports, os.Args[2:])
	case "history":
		err = runHistory(ctx, reports, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: cassa <command> [flags]

commands:
  create-account  create a cash account with an optional opening balance
  accounts        list accounts and their balances
  post            record an income or outcome entry
  update          modify an existing entry
  delete          remove an entry and reverse its balance effect
  import          post a batch of entries from a JSON file, all or nothing
  count           set the counted quantity of one denomination
  recon           compare counted cash against the recorded balance
  resync          recompute an account balance from its ledger history
  summary         income/outcome totals for a period
  history         list the entries of an account`)
}

func runCreateAccount(ctx context.Context, ledger *services.LedgerService, args []string) error {
	fs := flag.NewFlagSet("create-account", flag.ExitOnError)
	name := fs.String("name", "", "account name")
	opening := fs.String("opening", "0", "opening balance, e.g. 150.00")
	fs.Parse(args)

	var amount core.Money
	if *opening != "" && *opening != "0" {
		m, err := core.ParseMoney(*opening)
		if err != nil {
			return fmt.Errorf("opening balance: %w", err)
		}
		amount = m
	}
	account, err := ledger.CreateAccount(ctx, *name, amount)
	if err != nil {
		return err
	}
	fmt.Printf("account %d %q balance %s\n", account.ID, account.Name, account.Balance)
	return nil
}

func runAccounts(ctx context.Context, reports *services.ReportService, args []string) error {
	fs := flag.NewFlagSet("accounts", flag.ExitOnError)
	fs.Parse(args)

	accounts, err := reports.Accounts(ctx)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		fmt.Println("no accounts")
		return nil
	}
	for _, a := range accounts {
		fmt.Printf("%3d  %-20s %10s\n", a.ID, a.Name, a.Balance)
	}
	return nil
}

func runPost(ctx context.Context, ledger *services.LedgerService, args []string) error {
	fs := flag.NewFlagSet("post", flag.ExitOnError)
	kind := fs.String("kind", "", "income or outcome")
	accountID := fs.Int64("account", 0, "account id")
	periodID := fs.Int64("period", 0, "period id")
	date := fs.String("date", time.Now().Format(dateLayout), "entry date (YYYY-MM-DD)")
	amount := fs.String("amount", "", "amount, e.g. 12.50")
	category := fs.String("category", "", "category name")
	counterparty := fs.Int64("counterparty", 0, "counterparty id (income only)")
	fs.Parse(args)

	in, err := buildNewEntry(*accountID, *periodID, *date, *amount, *category, *counterparty)
	if err != nil {
		return err
	}
	entry, err := ledger.CreateEntry(ctx, core.Kind(*kind), *in)
	if err != nil {
		return err
	}
	fmt.Printf("%s entry %d: %s %s on account %d\n",
		entry.Kind, entry.ID, entry.Amount, entry.Category, entry.AccountID)
	return nil
}

func runUpdate(ctx context.Context, ledger *services.LedgerService, args []string) error {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	kind := fs.String("kind", "", "income or outcome")
	id := fs.Int64("id", 0, "entry id")
	accountID := fs.Int64("account", 0, "move the entry to this account")
	periodID := fs.Int64("period", 0, "new period id")
	date := fs.String("date", "", "new entry date (YYYY-MM-DD)")
	amount := fs.String("amount", "", "new amount")
	category := fs.String("category", "", "new category")
	counterparty := fs.Int64("counterparty", 0, "new counterparty id")
	fs.Parse(args)

	var upd core.EntryUpdate
	if *accountID > 0 {
		upd.AccountID = accountID
	}
	if *periodID > 0 {
		upd.PeriodID = periodID
	}
	if *date != "" {
		d, err := time.Parse(dateLayout, *date)
		if err != nil {
			return fmt.Errorf("date: %w", core.ErrInvalidDate)
		}
		upd.Date = &d
	}
	if *amount != "" {
		m, err := core.ParseMoney(*amount)
		if err != nil {
			return err
		}
		upd.Amount = &m
	}
	if *category != "" {
		upd.Category = category
	}
	if *counterparty > 0 {
		upd.CounterpartyID = counterparty
	}

	entry, err := ledger.UpdateEntry(ctx, core.Kind(*kind), *id, upd)
	if err != nil {
		return err
	}
	fmt.Printf("%s entry %d: %s %s on account %d\n",
		entry.Kind, entry.ID, entry.Amount, entry.Category, entry.AccountID)
	return nil
}

func runDelete(ctx context.Context, ledger *services.LedgerService, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	kind := fs.String("kind", "", "income or outcome")
	id := fs.Int64("id", 0, "entry id")
	fs.Parse(args)

	if err := ledger.DeleteEntry(ctx, core.Kind(*kind), *id); err != nil {
		return err
	}
	fmt.Printf("%s entry %d deleted\n", *kind, *id)
	return nil
}

// importItem is the JSON shape of one batch line.
type importItem struct {
	AccountID      int64  `json:"account_id"`
	PeriodID       int64  `json:"period_id"`
	Date           string `json:"date"`
	Amount         string `json:"amount"`
	Category       string `json:"category"`
	CounterpartyID *int64 `json:"counterparty_id,omitempty"`
}

func runImport(ctx context.Context, ledger *services.LedgerService, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	kind := fs.String("kind", "", "income or outcome")
	file := fs.String("file", "", "JSON file with an array of entries")
	fs.Parse(args)

	data, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("read batch file: %w", err)
	}
	var raw []importItem
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse batch file: %w", err)
	}

	items := make([]core.NewEntry, len(raw))
	for i, it := range raw {
		var counterparty int64
		if it.CounterpartyID != nil {
			counterparty = *it.CounterpartyID
		}
		in, err := buildNewEntry(it.AccountID, it.PeriodID, it.Date, it.Amount, it.Category, counterparty)
		if err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
		items[i] = *in
	}

	entries, err := ledger.CreateBatch(ctx, core.Kind(*kind), items)
	if err != nil {
		var batchErr *core.BatchError
		if errors.As(err, &batchErr) {
			for _, item := range batchErr.Items {
				fmt.Fprintf(os.Stderr, "item %d (%s): %v\n", item.Index, item.Field, item.Err)
			}
			return errors.New("batch rejected, nothing imported")
		}
		return err
	}
	fmt.Printf("%d entries imported\n", len(entries))
	return nil
}

func runCount(ctx context.Context, recon *services.ReconciliationService, args []string) error {
	fs := flag.NewFlagSet("count", flag.ExitOnError)
	accountID := fs.Int64("account", 0, "account id")
	denomination := fs.String("denomination", "", "face value, e.g. 50.00 or 0.02")
	quantity := fs.Int64("quantity", -1, "counted quantity")
	fs.Parse(args)

	face, err := core.ParseMoney(*denomination)
	if err != nil {
		return fmt.Errorf("denomination: %w", err)
	}
	count, err := recon.SetQuantity(ctx, *accountID, face, *quantity)
	if err != nil {
		return err
	}
	fmt.Printf("account %d: %d x %s\n", count.AccountID, count.Quantity, count.Denomination)
	return nil
}

func runRecon(ctx context.Context, recon *services.ReconciliationService, args []string) error {
	fs := flag.NewFlagSet("recon", flag.ExitOnError)
	accountID := fs.Int64("account", 0, "account id")
	verbose := fs.Bool("v", false, "show the counted denominations")
	fs.Parse(args)

	if *verbose {
		_, counts, err := recon.CountSheet(ctx, *accountID)
		if err != nil {
			return err
		}
		for _, c := range counts {
			if c.Quantity > 0 {
				fmt.Printf("  %4d x %s\n", c.Quantity, c.Denomination)
			}
		}
	}

	r, err := recon.Totals(ctx, *accountID)
	if err != nil {
		return err
	}
	fmt.Printf("account %d\n  counted  %s\n  recorded %s\n  drift    %s\n",
		r.AccountID, r.PhysicalTotal, r.SystemTotal, r.Drift)
	if r.Balanced {
		fmt.Println("  balanced")
	} else {
		fmt.Println("  NOT balanced")
	}
	return nil
}

func runResync(ctx context.Context, recon *services.ReconciliationService, args []string) error {
	fs := flag.NewFlagSet("resync", flag.ExitOnError)
	accountID := fs.Int64("account", 0, "account id (omit to resync all accounts)")
	caller := fs.String("caller", os.Getenv("USER"), "caller identity checked against RESYNC_ADMINS")
	fs.Parse(args)

	var results []core.ResyncResult
	if *accountID > 0 {
		r, err := recon.Resync(ctx, *caller, *accountID)
		if err != nil {
			return err
		}
		results = []core.ResyncResult{*r}
	} else {
		rs, err := recon.ResyncAll(ctx, *caller)
		if err != nil {
			return err
		}
		results = rs
	}
	for _, r := range results {
		fmt.Printf("account %d: %s -> %s\n", r.AccountID, r.OldBalance, r.NewBalance)
	}
	return nil
}

func runSummary(ctx context.Context, reports *services.ReportService, args []string) error {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	periodID := fs.Int64("period", 0, "period id")
	fs.Parse(args)

	s, err := reports.PeriodSummary(ctx, *periodID)
	if err != nil {
		return err
	}
	fmt.Printf("period %d\n  income  %s\n  outcome %s\n  net     %s\n",
		s.PeriodID, s.TotalIncome, s.TotalOutcome, s.Net)
	return nil
}

func runHistory(ctx context.Context, reports *services.ReportService, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	accountID := fs.Int64("account", 0, "account id")
	fs.Parse(args)

	entries, err := reports.AccountHistory(ctx, *accountID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no entries")
		return nil
	}
	for _, e := range entries {
		sign := "+"
		if e.Kind == core.KindOutcome {
			sign = "-"
		}
		fmt.Printf("%s  %-7s  %s%s  %s  (entry %d)\n",
			e.Date.Format(dateLayout), e.Kind, sign, e.Amount, e.Category, e.ID)
	}
	return nil
}

func buildNewEntry(accountID, periodID int64, date, amount, category string, counterparty int64) (*core.NewEntry, error) {
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("date: %w", core.ErrInvalidDate)
	}
	m, err := core.ParseMoney(amount)
	if err != nil {
		return nil, err
	}
	if category == "" {
		return nil, errors.New("category is required")
	}
	in := core.NewEntry{
		AccountID: accountID,
		PeriodID:  periodID,
		Date:      d,
		Amount:    m,
		Category:  category,
	}
	if counterparty > 0 {
		in.CounterpartyID = &counterparty
	}
	return &in, nil
}

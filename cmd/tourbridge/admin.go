package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/Strob0t/TourBridge/internal/adapter/postgres"
	"github.com/Strob0t/TourBridge/internal/config"
	"github.com/Strob0t/TourBridge/internal/domain/tenant"
	"github.com/Strob0t/TourBridge/internal/service"
)

// runAdmin dispatches admin subcommands (create-tenant, issue-key, list-tenants, migrate).
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "create-tenant":
		return runAdminCreateTenant(args[1:])
	case "issue-key":
		return runAdminIssueKey(args[1:])
	case "list-tenants":
		return runAdminListTenants(args[1:])
	case "migrate":
		return runAdminMigrate(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: tourbridge admin <command> [options]

Commands:
  create-tenant    Create a tenant and issue its first API key
  issue-key        Issue an additional API key for a tenant
  list-tenants     List all tenants
  migrate          Apply, roll back or show database migrations
  help             Show this help message

Examples:
  tourbridge admin create-tenant --name "Kapadokya Balloons" --slug kapadokya-balloons --phone +905320000001
  tourbridge admin issue-key --tenant 3
  tourbridge admin list-tenants
  tourbridge admin migrate --down 1
`)
}

func loadAdminDeps() (*service.TenantService, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	store := postgres.NewStore(pool)
	tenants := service.NewTenantService(store, nil, cfg.Auth)

	cleanup := func() {
		pool.Close()
	}
	return tenants, cleanup, nil
}

func runAdminCreateTenant(args []string) error {
	fs := flag.NewFlagSet("create-tenant", flag.ContinueOnError)
	name := fs.String("name", "", "tenant display name (required)")
	slug := fs.String("slug", "", "unique lowercase slug (required)")
	phone := fs.String("phone", "", "contact phone for partner notifications")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *name == "" {
		return fmt.Errorf("--name is required")
	}
	if *slug == "" {
		return fmt.Errorf("--slug is required")
	}

	tenants, cleanup, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := context.Background()
	t, err := tenants.Create(ctx, tenant.CreateRequest{Name: *name, Slug: *slug, ContactPhone: *phone})
	if err != nil {
		return fmt.Errorf("create tenant: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Tenant created: %s (id=%d, slug=%s)\n", t.Name, t.ID, t.Slug)

	issued, err := tenants.IssueKey(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("issue key: %w", err)
	}
	printSecret(issued)
	return nil
}

func runAdminIssueKey(args []string) error {
	fs := flag.NewFlagSet("issue-key", flag.ContinueOnError)
	tenantID := fs.Int64("tenant", 0, "tenant id (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *tenantID <= 0 {
		return fmt.Errorf("--tenant is required")
	}

	tenants, cleanup, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	issued, err := tenants.IssueKey(context.Background(), *tenantID)
	if err != nil {
		return fmt.Errorf("issue key: %w", err)
	}
	printSecret(issued)
	return nil
}

func runAdminListTenants(args []string) error {
	fs := flag.NewFlagSet("list-tenants", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	tenants, cleanup, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	list, err := tenants.List(context.Background())
	if err != nil {
		return fmt.Errorf("list tenants: %w", err)
	}

	if len(list) == 0 {
		fmt.Println("No tenants found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSLUG\tNAME\tPHONE\tENABLED")
	for i := range list {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\n",
			list[i].ID, list[i].Slug, list[i].Name, list[i].ContactPhone, list[i].Enabled)
	}
	return w.Flush()
}

func runAdminMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	down := fs.Int("down", 0, "roll back this many migrations instead of applying")
	status := fs.Bool("status", false, "print the current schema version and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx := context.Background()

	switch {
	case *status:
	case *down > 0:
		if err := postgres.RollbackMigrations(ctx, cfg.Postgres.DSN, *down); err != nil {
			return fmt.Errorf("rollback: %w", err)
		}
	default:
		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	v, err := postgres.MigrationVersion(ctx, cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("migration version: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Schema version: %s\n", strconv.FormatInt(v, 10))
	return nil
}

// printSecret writes the plaintext key to stdout. On a terminal it adds a
// reminder; when piped only the key is written so scripts can capture it.
func printSecret(issued *tenant.IssuedKey) {
	if term.IsTerminal(int(os.Stdout.Fd())) { //nolint:gosec // Fd fits in int on supported platforms
		fmt.Fprintf(os.Stderr, "API key %s issued. Store it now, it is not shown again.\n", issued.Key.Prefix)
	}
	fmt.Println(issued.Secret)
}

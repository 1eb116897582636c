package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"balanced-meal-planner/internal/app"
	"balanced-meal-planner/internal/auth"
	"balanced-meal-planner/internal/config"
	"balanced-meal-planner/internal/logger"
	"balanced-meal-planner/internal/planner"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.NewFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.Must(cfg.Env)
	defer logger.Sync(log)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// issue-token needs no database.
	if os.Args[1] == "issue-token" {
		issueToken(cfg, log, os.Args[2:])
		return
	}

	application, closeApp, err := app.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer closeApp()

	args := os.Args[2:]
	switch os.Args[1] {
	case "migrate":
		fmt.Println("Database is up to date.")
	case "import-catalog":
		cmd := flag.NewFlagSet("import-catalog", flag.ExitOnError)
		user := cmd.String("user", "", "Owner of the imported data")
		cmd.Parse(args)
		if *user == "" || cmd.NArg() != 1 {
			log.Fatal("usage: import-catalog -user <id> <catalog.yaml>")
		}
		catalog, err := app.LoadCatalog(cmd.Arg(0))
		if err != nil {
			log.Fatal("Failed to load catalog", zap.Error(err))
		}
		report, err := application.ImportCatalog(ctx, *user, catalog)
		if err != nil {
			log.Fatal("Import failed", zap.Error(err))
		}
		printJSON(report)
	case "generate":
		cmd := flag.NewFlagSet("generate", flag.ExitOnError)
		user := cmd.String("user", "", "Plan owner")
		start := cmd.String("start", "", "Start date (dd.MM.yyyy or yyyy-MM-dd)")
		layout := cmd.String("layout", "", "Menu layout (defaults to MENU_LAYOUT)")
		name := cmd.String("name", "", "Plan name")
		locale := cmd.String("locale", cfg.MenuLocale, "Weekday names: en or tr")
		seed := cmd.Uint64("seed", 0, "Fixed shuffle seed (0 draws a random one)")
		cmd.Parse(args)
		if *user == "" || *start == "" {
			log.Fatal("usage: generate -user <id> -start <date>")
		}
		startDate, err := app.ParseMenuDate(*start)
		if err != nil {
			log.Fatal("Invalid start date", zap.String("start", *start), zap.Error(err))
		}
		req := planner.Request{UserID: *user, StartDate: startDate, Layout: *layout, Name: *name}
		if *seed != 0 {
			req.Seed = seed
		}
		plan, list, err := application.GenerateMenuPlan(ctx, req)
		if err != nil {
			log.Fatal("Menu generation failed", zap.Error(err))
		}
		printJSON(app.Simplify(plan, *locale))
		for _, line := range list.Lines() {
			fmt.Println("  - " + line)
		}
	case "plans":
		cmd := flag.NewFlagSet("plans", flag.ExitOnError)
		user := cmd.String("user", "", "Plan owner")
		limit := cmd.Int("limit", 10, "Maximum number of plans")
		cmd.Parse(args)
		plans, err := application.ListPlans(ctx, *user, *limit, 0)
		if err != nil {
			log.Fatal("Failed to list plans", zap.Error(err))
		}
		for _, p := range plans {
			fmt.Printf("#%d  %s  %s - %s  score %.1f\n", p.ID, p.Status,
				p.StartDate.Format(app.MenuDateLayout), p.EndDate.Format(app.MenuDateLayout), p.BalanceScore)
		}
	case "activate":
		cmd := flag.NewFlagSet("activate", flag.ExitOnError)
		user := cmd.String("user", "", "Plan owner")
		id := cmd.Int64("id", 0, "Plan id")
		cmd.Parse(args)
		plan, err := application.ActivatePlan(ctx, *user, *id)
		if err != nil {
			log.Fatal("Activation failed", zap.Int64("plan_id", *id), zap.Error(err))
		}
		fmt.Printf("Plan #%d is now %s.\n", plan.ID, plan.Status)
	case "status":
		cmd := flag.NewFlagSet("status", flag.ExitOnError)
		user := cmd.String("user", "", "Plan owner")
		id := cmd.Int64("id", 0, "Plan id")
		status := cmd.String("status", "", "DRAFT, ACTIVE, COMPLETED or ARCHIVED")
		cmd.Parse(args)
		s, err := planner.ParseStatus(*status)
		if err != nil {
			log.Fatal("Invalid status", zap.Error(err))
		}
		plan, err := application.UpdatePlanStatus(ctx, *user, *id, s)
		if err != nil {
			log.Fatal("Status update failed", zap.Int64("plan_id", *id), zap.Error(err))
		}
		fmt.Printf("Plan #%d is now %s.\n", plan.ID, plan.Status)
	case "usage":
		cmd := flag.NewFlagSet("usage", flag.ExitOnError)
		days := cmd.Int("days", 7, "Number of days to report")
		cmd.Parse(args)
		usage, err := application.DailyUsage(ctx, *days)
		if err != nil {
			log.Fatal("Failed to read usage", zap.Error(err))
		}
		printJSON(usage)
	case "metrics-cleanup":
		cmd := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
		days := cmd.Int("days", 30, "Keep records for the last N days")
		cmd.Parse(args)
		affected, err := application.CleanupMetrics(ctx, *days)
		if err != nil {
			log.Fatal("Cleanup failed", zap.Error(err))
		}
		fmt.Printf("Successfully removed %d old metric records.\n", affected)
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func issueToken(cfg *config.Config, log *zap.Logger, args []string) {
	cmd := flag.NewFlagSet("issue-token", flag.ExitOnError)
	user := cmd.String("user", "", "User id to put in the token")
	ttl := cmd.Duration("ttl", auth.DefaultTTL, "Token lifetime")
	cmd.Parse(args)
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET environment variable not set")
	}
	token, err := auth.NewTokens(cfg.JWTSecret, cfg.JWTIssuer).Issue(*user, *ttl)
	if err != nil {
		log.Fatal("Failed to issue token", zap.Error(err))
	}
	fmt.Println(token)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode output: %v\n", err)
	}
}

func printUsage() {
	fmt.Println("Usage: menu-planner <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  migrate            Apply database migrations")
	fmt.Println("  import-catalog     Import ingredients and recipes from a YAML catalog")
	fmt.Println("  generate           Generate a menu plan and its shopping list")
	fmt.Println("  plans              List a user's menu plans")
	fmt.Println("  activate           Make a plan the active one")
	fmt.Println("  status             Change the status of a plan")
	fmt.Println("  issue-token        Print an API bearer token for a user")
	fmt.Println("  usage              Show generation statistics")
	fmt.Println("  metrics-cleanup    Remove old metric records")
}

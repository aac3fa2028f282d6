package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fuelops/correlator/internal/alias"
	"github.com/fuelops/correlator/internal/config"
	"github.com/fuelops/correlator/internal/correlation"
	"github.com/fuelops/correlator/internal/db"
	"github.com/fuelops/correlator/internal/report"
	"github.com/fuelops/correlator/internal/web"
)

var (
	// Global database connection
	dbConn *db.Connection
	logger *logrus.Logger
)

func main() {
	logger = logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if err := config.LoadEnv(); err != nil {
		logger.WithError(err).Warn("no .env file loaded, using environment as-is")
	}

	var err error
	dbConn, err = db.NewConnection()
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer dbConn.Close()

	rootCmd := &cobra.Command{
		Use:   "correlator",
		Short: "Fuel trip and payment correlation engine",
		Long:  `Resolves business, location and terminal names against the alias catalog and scores trip/payment pairs into audited correlations`,
	}

	rootCmd.AddCommand(createServeCmd())
	rootCmd.AddCommand(createPingCmd())
	rootCmd.AddCommand(createInitDBCmd())
	rootCmd.AddCommand(createResolveCmd())
	rootCmd.AddCommand(createMatchCmd())
	rootCmd.AddCommand(createStatsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// newService wires the resolver, scorers and store against the live database
func newService() (*correlation.Service, error) {
	cfg := config.EngineFromEnv()

	catalog, err := alias.LoadCatalog(dbConn.DB, cfg.DefaultBoost)
	if err != nil {
		return nil, fmt.Errorf("failed to load alias catalog: %w", err)
	}

	resolver := alias.NewResolver(catalog, cfg)
	store := correlation.NewPostgresStore(dbConn.DB)
	return correlation.NewService(resolver, store, cfg, logger), nil
}

// createServeCmd starts the HTTP API
func createServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the correlation HTTP API",
		Run: func(cmd *cobra.Command, args []string) {
			svc, err := newService()
			if err != nil {
				logger.Fatalf("Failed to build service: %v", err)
			}

			server := web.NewServer(web.LoadConfig(), svc, dbConn.DB, logger)
			if err := server.Start(); err != nil {
				logger.Fatalf("Server error: %v", err)
			}
		},
	}
}

// createPingCmd tests database connectivity
func createPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Test database connectivity",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Database connection successful!")

			var count int
			err := dbConn.DB.QueryRow("SELECT COUNT(*) FROM entity_alias").Scan(&count)
			if err != nil {
				logger.Warnf("Error counting entity_alias records: %v", err)
			} else {
				fmt.Printf("Alias catalog entries: %d\n", count)
			}

			err = dbConn.DB.QueryRow("SELECT COUNT(*) FROM correlation").Scan(&count)
			if err != nil {
				logger.Warnf("Error counting correlation records: %v", err)
			} else {
				fmt.Printf("Correlations stored: %d\n", count)
			}
		},
	}
}

// createInitDBCmd creates the schema
func createInitDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "initdb",
		Short: "Create database tables and indexes",
		Run: func(cmd *cobra.Command, args []string) {
			if err := db.InitSchema(dbConn.DB); err != nil {
				logger.Fatalf("Schema initialization failed: %v", err)
			}
			fmt.Println("Schema initialized")
		},
	}
}

// createResolveCmd resolves a single name against the catalog
func createResolveCmd() *cobra.Command {
	var kind string

	resolveCmd := &cobra.Command{
		Use:   "resolve [name]",
		Short: "Resolve a name against the alias catalog",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			svc, err := newService()
			if err != nil {
				logger.Fatalf("Failed to build service: %v", err)
			}

			result := svc.Resolve(args[0], alias.Kind(kind))
			out, _ := json.MarshalIndent(result, "", "  ")
			fmt.Println(string(out))
		},
	}

	resolveCmd.Flags().StringVar(&kind, "kind", string(alias.KindBusiness), "Entity kind: business, location or terminal")
	return resolveCmd
}

// createMatchCmd runs batch matching of stored trips against payments
func createMatchCmd() *cobra.Command {
	var windowDays int
	var actorID string

	matchCmd := &cobra.Command{
		Use:   "match",
		Short: "Evaluate stored trips against candidate payments",
		Run: func(cmd *cobra.Command, args []string) {
			svc, err := newService()
			if err != nil {
				logger.Fatalf("Failed to build service: %v", err)
			}

			matcher := correlation.NewBatchMatcher(dbConn.DB, svc, logger)
			result, err := matcher.Run(windowDays, actorID)
			if err != nil {
				logger.Fatalf("Batch matching failed: %v", err)
			}

			fmt.Printf("Trips processed:  %d\n", result.TripsProcessed)
			fmt.Printf("Pairs evaluated:  %d\n", result.PairsEvaluated)
			fmt.Printf("Needs review:     %d\n", result.NeedsReview)
			fmt.Printf("Skipped decided:  %d\n", result.Skipped)
		},
	}

	matchCmd.Flags().IntVar(&windowDays, "window-days", 30, "Payment date window around each trip date")
	matchCmd.Flags().StringVar(&actorID, "actor", "batch-matcher", "Actor recorded in the audit trail")
	return matchCmd
}

// createStatsCmd prints the correlation quality report
func createStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show correlation quality statistics",
		Run: func(cmd *cobra.Command, args []string) {
			reporter := report.NewReporter(dbConn.DB)
			rep, err := reporter.Build()
			if err != nil {
				logger.Fatalf("Failed to build report: %v", err)
			}

			out, _ := json.MarshalIndent(rep, "", "  ")
			fmt.Println(string(out))
		},
	}
}

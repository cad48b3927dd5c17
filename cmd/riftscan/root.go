package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/EvoluTechs/riftcollect/internal/app"
	"github.com/EvoluTechs/riftcollect/internal/catalog"
	"github.com/EvoluTechs/riftcollect/internal/crawler"
	"github.com/EvoluTechs/riftcollect/internal/database"
	"github.com/EvoluTechs/riftcollect/pkg/logger"
)

type scanFlags struct {
	configPath    string
	baseURL       string
	sets          []string
	idRange       string
	delayMS       int
	assetFilename string
	rescan        bool
	maxFound      int
}

func newRootCommand() *cobra.Command {
	flags := &scanFlags{}

	rootCmd := &cobra.Command{
		Use:           "riftscan",
		Short:         "Discover card assets on the CDN and ingest them into the catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, flags)
		},
	}

	rootCmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "Configuration directory path")
	rootCmd.Flags().StringVar(&flags.baseURL, "base-url", "", "CDN base URL")
	rootCmd.Flags().StringSliceVar(&flags.sets, "sets", nil, "Expansion codes to probe (e.g. OGN,ALZ)")
	rootCmd.Flags().StringVar(&flags.idRange, "range", "", "Candidate number range, a span \"1-300\" or a list \"1,2,5\"")
	rootCmd.Flags().IntVar(&flags.delayMS, "delay-ms", -1, "Delay between probes in milliseconds")
	rootCmd.Flags().StringVar(&flags.assetFilename, "asset-filename", "", "Asset filename probed under each card directory")
	rootCmd.Flags().BoolVar(&flags.rescan, "rescan", false, "Probe URLs even when a previous attempt is recorded")
	rootCmd.Flags().IntVar(&flags.maxFound, "max-found", -1, "Stop after this many discoveries (0 = unlimited)")

	return rootCmd
}

func runScan(cmd *cobra.Command, flags *scanFlags) error {
	cfg, err := loadConfig(flags.configPath)
	if err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.Server.LogLevel, cfg.Server.LogFormat); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	opts, baseURL := mergeOptions(cfg, flags)
	if strings.TrimSpace(baseURL) == "" {
		return fmt.Errorf("a CDN base url is required (--base-url or crawler.base_url)")
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
	}()

	cat, err := catalog.NewService(db, catalog.WithLogger(logger.WithModule("catalog")))
	if err != nil {
		return fmt.Errorf("initialise catalog service: %w", err)
	}

	c, err := crawler.New(db, baseURL, cat, opts, cfg.Crawler.Timeout, logger.WithModule("crawler"))
	if err != nil {
		return err
	}

	report, err := c.Run(cmd.Context())
	printReport(cmd, report)
	return err
}

func mergeOptions(cfg *app.Config, flags *scanFlags) (crawler.Options, string) {
	opts := crawler.Options{
		Sets:          cfg.Crawler.Sets,
		Range:         cfg.Crawler.Range,
		DelayMS:       cfg.Crawler.DelayMS,
		AssetFilename: cfg.Crawler.AssetFilename,
		Rescan:        cfg.Crawler.Rescan,
		MaxFound:      cfg.Crawler.MaxFound,
	}
	baseURL := cfg.Crawler.BaseURL

	if len(flags.sets) > 0 {
		opts.Sets = flags.sets
	}
	if flags.idRange != "" {
		opts.Range = flags.idRange
	}
	if flags.delayMS >= 0 {
		opts.DelayMS = flags.delayMS
	}
	if flags.assetFilename != "" {
		opts.AssetFilename = flags.assetFilename
	}
	if flags.rescan {
		opts.Rescan = true
	}
	if flags.maxFound >= 0 {
		opts.MaxFound = flags.maxFound
	}
	if flags.baseURL != "" {
		baseURL = flags.baseURL
	}

	return opts, baseURL
}

func loadConfig(path string) (*app.Config, error) {
	if strings.TrimSpace(path) == "" {
		return app.LoadConfig()
	}
	return app.LoadConfig(path)
}

func openDatabase(cfg *app.Config) (*gorm.DB, error) {
	policy := &database.FallbackPolicy{
		Primary: database.NewDriverConnector(cfg.DatabaseSettings()),
		Log:     logger.WithModule("database"),
	}
	if fallbackCfg, ok := cfg.FallbackSettings(); ok {
		policy.Secondary = database.NewDriverConnector(fallbackCfg)
	}

	db, err := policy.Connect()
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func printReport(cmd *cobra.Command, report crawler.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "probed:  %d\n", report.Probed)
	fmt.Fprintf(out, "skipped: %d\n", report.Skipped)
	fmt.Fprintf(out, "found:   %d\n", report.Found)
	fmt.Fprintf(out, "missing: %d\n", report.Missing)
	fmt.Fprintf(out, "denied:  %d\n", report.Denied)
	fmt.Fprintf(out, "other:   %d\n", report.Other)
}

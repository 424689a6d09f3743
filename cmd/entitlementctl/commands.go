package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/contractor-assistant/internal/config"
	"github.com/magabrotheeeer/contractor-assistant/internal/lib/sl"
	"github.com/magabrotheeeer/contractor-assistant/internal/migrations"
	"github.com/magabrotheeeer/contractor-assistant/internal/models"
	"github.com/magabrotheeeer/contractor-assistant/internal/services/subscription"
	"github.com/magabrotheeeer/contractor-assistant/internal/storage"
)

// accessEngine операции движка, доступные из утилиты.
type accessEngine interface {
	Decide(ctx context.Context, userID string, platform models.Platform) (subscription.Decision, error)
	Refresh(ctx context.Context, userID string, platform models.Platform, receipt string) (subscription.Decision, error)
	Reconcile(ctx context.Context, userID string) error
}

// openEngine подключается к хранилищу и собирает движок. Тесты подменяют её.
var openEngine = func(ctx context.Context, cfg *config.Config, log *slog.Logger) (accessEngine, func(), error) {
	db, err := storage.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, nil, err
	}
	return subscription.NewEngineFromConfig(cfg, db, log), func() { _ = db.Close() }, nil
}

// runMigrations применяет миграции. Тесты подменяют её.
var runMigrations = func(ctx context.Context, cfg *config.Config) error {
	db, err := storage.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return err
	}
	defer db.Close()
	return migrations.Run(db.DB, cfg.MigrationsPath)
}

type options struct {
	configPath string
	platform   string
	receipt    string
	asJSON     bool
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "entitlementctl",
		Short:        "Operator tool for subscription access",
		Long:         `Inspect and repair a user's subscription access across native and web billing`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv("CONFIG_PATH"), "path to config file")
	root.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "print results as JSON")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log engine activity to stderr")

	root.AddCommand(
		newCheckCmd(opts),
		newRefreshCmd(opts),
		newReconcileCmd(opts),
		newMigrateCmd(opts),
	)
	return root
}

func newCheckCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check USER_ID",
		Short: "Decide whether a user has access",
		Example: `  # Check access as seen from the iOS app
  entitlementctl check user-42 --platform native`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, opts, func(ctx context.Context, e accessEngine) error {
				d, err := e.Decide(ctx, args[0], models.Platform(opts.platform))
				if err != nil {
					return err
				}
				return printDecision(cmd.OutOrStdout(), opts, args[0], d)
			})
		},
	}
	cmd.Flags().StringVarP(&opts.platform, "platform", "p", string(models.PlatformWeb), "caller platform: native or web")
	return cmd
}

func newRefreshCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh USER_ID",
		Short: "Restore purchases or resync, then link platforms",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, opts, func(ctx context.Context, e accessEngine) error {
				d, err := e.Refresh(ctx, args[0], models.Platform(opts.platform), opts.receipt)
				if err != nil {
					return err
				}
				return printDecision(cmd.OutOrStdout(), opts, args[0], d)
			})
		},
	}
	cmd.Flags().StringVarP(&opts.platform, "platform", "p", string(models.PlatformWeb), "caller platform: native or web")
	cmd.Flags().StringVar(&opts.receipt, "receipt", "", "store receipt to restore (native only)")
	return cmd
}

func newReconcileCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile USER_ID",
		Short: "Run the link pass for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, opts, func(ctx context.Context, e accessEngine) error {
				if err := e.Reconcile(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reconciled %s\n", args[0])
				return nil
			})
		},
	}
}

func newMigrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := runMigrations(cmd.Context(), cfg); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func withEngine(cmd *cobra.Command, opts *options, fn func(ctx context.Context, e accessEngine) error) error {
	if opts.configPath == "" {
		return fmt.Errorf("config path is not set: use --config or CONFIG_PATH")
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if opts.verbose {
		logger = sl.Setup("local", cmd.ErrOrStderr())
	}

	ctx := cmd.Context()
	engine, closeFn, err := openEngine(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open engine: %w", err)
	}
	defer closeFn()
	return fn(ctx, engine)
}

func printDecision(w io.Writer, opts *options, userID string, d subscription.Decision) error {
	if opts.asJSON {
		return json.NewEncoder(w).Encode(map[string]any{
			"user_id":  userID,
			"platform": opts.platform,
			"granted":  d.Granted,
			"reason":   d.Reason,
		})
	}
	fmt.Fprintf(w, "user:     %s\nplatform: %s\ngranted:  %t\nreason:   %s\n", userID, opts.platform, d.Granted, d.Reason)
	return nil
}

// Command reclaimctl performs administrative tasks against the document store:
// schema migration, catalog seeding, room provisioning and one-off streak passes.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"reclaimAPI/internal/config"
	"reclaimAPI/internal/docstore"
	"reclaimAPI/internal/logger"
	"reclaimAPI/internal/seed"
	"reclaimAPI/internal/workers"
	"reclaimAPI/services"
)

// app is the state shared by subcommands once the root pre-run has connected.
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	store docstore.Store
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "reclaimctl",
		Short:         "Administer the reclaim progression store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadAdmin()
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.LogMode)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			store, err := docstore.Open(cmd.Context(), cfg.Store)
			if err != nil {
				return fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
			}
			a.cfg, a.log, a.store = cfg, log, store
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.store != nil {
				a.store.Close()
			}
			if a.log != nil {
				a.log.Sync()
			}
		},
	}

	root.AddCommand(
		newMigrateCmd(a),
		newSeedCmd(a),
		newProvisionRoomCmd(a),
		newAdvanceStreaksCmd(a),
	)
	return root
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the postgres document schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, ok := a.store.(interface{ Migrate(context.Context) error })
			if !ok {
				return fmt.Errorf("store driver %q has no schema to migrate", a.cfg.Store.Driver)
			}
			if err := m.Migrate(cmd.Context()); err != nil {
				return err
			}
			a.log.Info("migrations applied")
			return nil
		},
	}
}

func newSeedCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed-challenges",
		Short: "Load daily, weekly and monthly challenge catalogs from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			catalog, err := seed.Parse(f)
			if err != nil {
				return err
			}
			n, err := seed.Apply(cmd.Context(), a.store, catalog)
			if err != nil {
				return err
			}
			a.log.Info("challenges seeded", "file", file, "count", n)
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d challenges\n", n)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "catalog YAML file")
	cmd.MarkFlagRequired("file")
	return cmd
}

func newProvisionRoomCmd(a *app) *cobra.Command {
	var name, description, secretEnv string
	cmd := &cobra.Command{
		Use:   "provision-room <room-id>",
		Short: "Create or replace a room protected by a secret key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := os.Getenv(secretEnv)
			if secret == "" {
				return fmt.Errorf("room secret must be provided in $%s", secretEnv)
			}
			// room provisioning never consults the throttle
			rooms := services.NewRoomService(a.store, nil, a.log)
			r, err := rooms.ProvisionRoom(cmd.Context(), args[0], name, description, secret)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "provisioned room %s (%s)\n", r.ID, r.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name (defaults to the id)")
	cmd.Flags().StringVar(&description, "description", "", "room description")
	cmd.Flags().StringVar(&secretEnv, "secret-env", "ROOM_SECRET", "environment variable holding the room secret")
	return cmd
}

func newAdvanceStreaksCmd(a *app) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "advance-streaks",
		Short: "Run one streak pass over all active users",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			progression := services.NewProgressionService(a.store, a.cfg.Location, a.log)
			stats, err := workers.NewStreakWorker(progression, a.cfg.StreakInterval, a.log).RunOnce(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "users=%d advanced=%d failed=%d\n", stats.Users, stats.Advanced, stats.Failed)
			if stats.Failed > 0 {
				return errors.New("some streaks could not be advanced")
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "overall deadline for the pass")
	return cmd
}

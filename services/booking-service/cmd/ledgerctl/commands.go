package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/you/padel-booking/pkg/clock"
	"github.com/you/padel-booking/services/booking-service/internal/app"
	"github.com/you/padel-booking/services/booking-service/internal/repository"
)

type cliEnv struct {
	open    func() (*gorm.DB, error)
	close   func(*gorm.DB) error
	clock   clock.Clock
	holdTTL time.Duration
}

// withApp opens the database, runs fn and closes it again.
func (e *cliEnv) withApp(fn func(*app.App) error) error {
	gdb, err := e.open()
	if err != nil {
		return err
	}
	if e.close != nil {
		defer e.close(gdb)
	}
	return fn(app.New(gdb, app.Config{HoldTTL: e.holdTTL}, e.clock, nil, nil, nil))
}

func rootCmd(env *cliEnv) *cobra.Command {
	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Maintenance commands for the court booking ledger",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(migrateCmd(env))
	root.AddCommand(seedCmd(env))
	root.AddCommand(sweepCmd(env))
	root.AddCommand(bookingsCmd(env))
	return root
}

func migrateCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update tables and the live-slot index",
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withApp(func(a *app.App) error {
				if err := a.Store.Migrate(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrated")
				return nil
			})
		},
	}
}

func seedCmd(env *cliEnv) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load courts from a YAML file, or the built-in catalog if the table is empty",
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withApp(func(a *app.App) error {
				ctx := cmd.Context()
				var (
					n   int
					err error
				)
				if file == "" {
					n, err = a.Courts.SeedDefaults(ctx)
				} else {
					f, openErr := os.Open(file)
					if openErr != nil {
						return openErr
					}
					defer f.Close()
					n, err = a.Courts.SeedFromYAML(ctx, f)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d courts\n", n)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with a top-level courts list")
	return cmd
}

func sweepCmd(env *cliEnv) *cobra.Command {
	var scope repository.Scope
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete pending holds older than HOLD_TTL",
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withApp(func(a *app.App) error {
				n, err := a.Sweeper.Sweep(cmd.Context(), scope)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired holds\n", n)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&scope.CourtID, "court", "", "Only sweep this court")
	cmd.Flags().StringVar(&scope.Date, "date", "", "Only sweep this date (YYYY-MM-DD)")
	return cmd
}

func bookingsCmd(env *cliEnv) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "bookings",
		Short: "List every stored reservation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withApp(func(a *app.App) error {
				views, err := a.Ledger.ListAll(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(views)
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tCOURT\tDATE\tTIME\tSTATUS\tUSER")
				for _, v := range views {
					status := string(v.Status)
					if v.Expired {
						status += " (expired)"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", v.ID, v.CourtName, v.Date, v.Time, status, v.UserEmail)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

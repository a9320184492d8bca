// Package main is the bookstore command line client.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Skotchmaster/bookstore/internal/app"
	"github.com/Skotchmaster/bookstore/internal/config"
	"github.com/Skotchmaster/bookstore/internal/gateway"
	"github.com/Skotchmaster/bookstore/pkg/logging"
)

const Version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, closeApp := rootCmd()
	err := cmd.ExecuteContext(ctx)
	if cerr := closeApp(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// cli holds the client built before each subcommand runs.
type cli struct {
	app      *app.App
	logLevel string
	baseURL  string
}

// rootCmd builds the command tree. The returned func releases the client
// opened by whichever subcommand ran.
func rootCmd() (*cobra.Command, func() error) {
	c := &cli{}

	cmd := &cobra.Command{
		Use:           "bookstore",
		Short:         "Bookstore API client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch cmd.Name() {
			case "version", "help", "completion":
				return nil
			}
			return c.open(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&c.baseURL, "api", "", "API base URL, overrides API_BASE_URL")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "bookstore %s\n", Version)
			},
		},
		c.loginCmd(),
		c.registerCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.categoriesCmd(),
		c.productsCmd(),
		c.reviewsCmd(),
		c.usersCmd(),
		c.rolesCmd(),
	)
	return cmd, c.close
}

func (c *cli) close() error {
	if c.app == nil {
		return nil
	}
	err := c.app.Close()
	c.app = nil
	return err
}

func (c *cli) open(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if c.baseURL != "" {
		cfg.APIBaseURL = c.baseURL
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}

	log := logging.NewWithWriter(cmd.ErrOrStderr(), cfg.LogLevel)
	nav := gateway.NavigatorFunc(func(_ context.Context, target string) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Session expired, sign in again (%s)\n", target)
	})

	a, err := app.New(cmd.Context(), cfg, log, nav)
	if err != nil {
		return err
	}
	c.app = a
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint(id), nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/v0xg/domlens/internal/config"
	"github.com/v0xg/domlens/internal/driver"
	"github.com/v0xg/domlens/internal/observability"
	"github.com/v0xg/domlens/internal/wrapper"
)

// Version is set at build time with -ldflags "-X main.Version=..."
var Version = "0.1.0"

// app carries the state shared by all subcommands
type app struct {
	cfgFile  string
	headless bool
	verbose  bool

	cfg     *config.Config
	logger  *zap.Logger
	console zapcore.WriteSyncer // log output, stderr when nil
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "domlens",
		Short: "Inspect and annotate DOM elements of live web pages",
		Long: `domlens drives a local Chrome to load pages, report element geometry and
ancestry, and mark elements on the page before taking screenshots.

Example:
  domlens inspect example.com "h1" "//a[contains(., 'More')]"
  domlens mark example.com "h1" "p" -o marked.png --annotate`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./domlens.yaml)")
	rootCmd.PersistentFlags().BoolVar(&a.headless, "headless", true, "Run the browser without a window")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Show detailed progress")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(
		newInspectCmd(a),
		newMarkCmd(a),
		newRunCmd(a),
		newVersionCmd(),
	)
	return rootCmd, a
}

// execute runs the command tree and flushes the logger whatever the outcome
func execute(rootCmd *cobra.Command, a *app) error {
	defer func() { observability.Sync(a.logger) }()
	return rootCmd.Execute()
}

// setup loads the configuration, applies flag overrides and builds the logger
func (a *app) setup(cmd *cobra.Command) error {
	v, err := config.New(a.cfgFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("headless") {
		v.Set("browser.headless", a.headless)
	}
	if a.verbose {
		v.Set("logger.level", "debug")
	}

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	if a.console != nil {
		a.logger = observability.New(cfg.Logger, a.console)
	} else {
		a.logger = observability.NewStderr(cfg.Logger)
	}
	a.logger.Debug("configuration loaded", zap.String("version", Version), zap.Bool("headless", cfg.Browser.Headless))
	return nil
}

func (a *app) navigateOptions() wrapper.NavigateOptions {
	return wrapper.NavigateOptions{
		Wait:       a.cfg.Navigation.Wait,
		CloseAlert: a.cfg.Navigation.CloseAlert,
		Timeout:    a.cfg.Navigation.Timeout,
	}
}

// open launches the browser and loads url
func (a *app) open(cmd *cobra.Command, url string) (*wrapper.Session, error) {
	a.progress(cmd, "→ Loading %s... ", url)
	session, err := driver.Launch(a.cfg.Browser, a.logger)
	if err != nil {
		a.progress(cmd, "failed\n")
		return nil, err
	}
	if err := session.Navigate(url, a.navigateOptions()); err != nil {
		a.progress(cmd, "failed\n")
		session.Close()
		return nil, err
	}
	a.progress(cmd, "done\n")
	return session, nil
}

func (a *app) progress(cmd *cobra.Command, format string, args ...interface{}) {
	if a.verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), format, args...)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the domlens version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	}
}

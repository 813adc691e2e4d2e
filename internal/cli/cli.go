// Package cli implements the arcaluminis command-line interface.
package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/coreman2200/arcaluminis/internal/app"
	"github.com/coreman2200/arcaluminis/internal/brush"
	"github.com/coreman2200/arcaluminis/internal/calib"
	"github.com/coreman2200/arcaluminis/internal/config"
)

const defaultConfigPath = "arcaluminis.yaml"

// CLI holds state shared by all commands.
type CLI struct {
	out        io.Writer
	configPath string
	verbose    bool
}

// New returns a CLI printing to out and logging to stderr.
func New(out io.Writer) *CLI {
	return &CLI{out: out}
}

// RootCommand creates the root command with every subcommand registered.
// Without a subcommand it behaves like run.
func (c *CLI) RootCommand() *cobra.Command {
	run := c.runCommand()
	root := &cobra.Command{
		Use:          "arcaluminis",
		Short:        "Arcaluminis drives led surfaces",
		Long:         `Arcaluminis renders brushes, gradients and shows onto led panels and streams a live preview.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			c.setupLogging()
		},
		RunE: run.RunE,
	}
	root.Flags().AddFlagSet(run.Flags())
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", defaultConfigPath, "path to the YAML config")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(run)
	root.AddCommand(c.configCommand())
	root.AddCommand(c.brushesCommand())
	return root
}

func (c *CLI) setupLogging() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if c.verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

type runFlags struct {
	addr      string
	fps       int
	trigger   string
	simOnly   bool
	calib     string
	calibStep time.Duration
}

func (c *CLI) runCommand() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Render the configured scene until interrupted",
		Long: `Load the config, open every device and render frames until interrupted.

Flags override the matching config values. Without a config file a single
simulated panel is used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			f.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			core, err := app.InitCore(cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := core.Close(); err != nil {
					log.Warn().Err(err).Msg("shutdown")
				}
			}()
			if f.calib != "" {
				if _, err := core.Calibrate(calib.Kind(f.calib), f.calibStep); err != nil {
					return err
				}
			}
			log.Info().Int("fps", cfg.FPS).Str("trigger", cfg.Trigger).Int("devices", len(cfg.Devices)).Msg("running")
			return core.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&f.addr, "addr", "", "preview listen address (overrides config)")
	cmd.Flags().IntVar(&f.fps, "fps", 0, "frames per second (overrides config)")
	cmd.Flags().StringVar(&f.trigger, "trigger", "", "frame trigger: timer | device | manual")
	cmd.Flags().BoolVar(&f.simOnly, "sim-only", false, "force the simulated driver on every device")
	cmd.Flags().StringVar(&f.calib, "calib", "", "run a calibration sweep first: index_sweep | rgb_channels | rows")
	cmd.Flags().DurationVar(&f.calibStep, "calib-step", calib.DefaultInterval, "time per calibration step")
	return cmd
}

func (f runFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("addr") {
		cfg.Preview.Addr = f.addr
	}
	if f.fps > 0 {
		cfg.FPS = f.fps
	}
	if f.trigger != "" {
		cfg.Trigger = f.trigger
	}
	if f.simOnly {
		for i := range cfg.Devices {
			cfg.Devices[i].Driver = "sim"
		}
	}
}

// loadConfig reads the config file, falling back to the default config when
// the file doesn't exist.
func (c *CLI) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if os.IsNotExist(err) {
		log.Warn().Str("path", c.configPath).Msg("no config file; using defaults")
		cfg = config.Default()
		cfg.Preview.Addr = config.DefaultPreviewAddr
		return cfg, nil
	}
	return cfg, err
}

func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}
	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default config",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := c.configPath
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s exists; use --force to overwrite", path)
			}
			cfg := config.Default()
			cfg.Preview.Addr = config.DefaultPreviewAddr
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)
	return cmd
}

func (c *CLI) brushesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "brushes",
		Short: "List the brushes and presets a config can name",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := brush.Builtins()
			for _, name := range reg.List() {
				fmt.Fprintf(c.out, "%-8s %v\n", name, reg.Presets(name))
			}
			return nil
		},
	}
}

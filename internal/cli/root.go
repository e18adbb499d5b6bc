package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ictrader/internal/config"
	"ictrader/internal/logging"
	"ictrader/internal/store"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Store  store.DataStore
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	dbPath := config.DefaultConfigDir() + "/ictrader.db"
	dataStore, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, data commands will be unavailable")
	} else {
		app.Store = dataStore
		logger.Debug().Msg("SQLite store initialized")
	}

	rootCmd := &cobra.Command{
		Use:   "ictrader",
		Short: "ICT pattern detection and backtesting CLI",
		Long: `ictrader detects price-action patterns (fair value gaps, order blocks,
liquidity pools, divergences) over OHLCV bar series, scores trade signals,
validates them against risk limits and replays strategies in a simulated
account.

Use 'ictrader help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/ictrader)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newDataCmd(app))
	rootCmd.AddCommand(newAnalyzeCmd(app))
	rootCmd.AddCommand(newBacktestCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"version": Version})
			} else {
				output.Printf("ictrader v%s\n", Version)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate engine configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Detection")
	output.Printf("  Pivot Window:        %d\n", cfg.Detection.PivotWindow)
	output.Printf("  Max Pivot Distance:  %d\n", cfg.Detection.MaxPivotDistance)
	output.Printf("  Min Div. Strength:   %.1f\n", cfg.Detection.MinDivergenceStrength)
	output.Printf("  Min Gap Size:        %.2f\n", cfg.Detection.MinGapSize)
	output.Printf("  Min Displacement:    %.2f\n", cfg.Detection.MinDisplacement)
	output.Println()

	output.Bold("Risk")
	output.Printf("  Max Daily Loss:      %s\n", FormatCurrency(cfg.Risk.MaxDailyLoss))
	output.Printf("  Max Position Risk:   %s\n", FormatCurrency(cfg.Risk.MaxPositionRisk))
	output.Printf("  Min Risk/Reward:     %.1f\n", cfg.Risk.MinRiskReward)
	output.Printf("  Max Loss Streak:     %d\n", cfg.Risk.MaxConsecutiveLosses)
	output.Printf("  Max Portfolio Heat:  %s\n", FormatCurrency(cfg.Risk.MaxPortfolioHeat))
	output.Printf("  Max Positions:       %d\n", cfg.Risk.MaxPositions)
	output.Println()

	output.Bold("Sizing")
	output.Printf("  Base Contracts:      %d\n", cfg.Sizing.BaseContracts)
	output.Printf("  Max Contracts:       %d\n", cfg.Sizing.MaxContracts)
	output.Printf("  Kelly Fraction:      %.2f\n", cfg.Sizing.KellyFraction)
	output.Println()

	output.Bold("Backtest")
	output.Printf("  Initial Capital:     %s\n", FormatCurrency(cfg.Backtest.InitialCapital))
	output.Printf("  Lookback:            %d bars\n", cfg.Backtest.Lookback)
	output.Printf("  Max Forward Bars:    %d\n", cfg.Backtest.MaxForwardBars)
}

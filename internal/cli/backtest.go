package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"ictrader/internal/logging"
	"ictrader/internal/models"
	"ictrader/internal/store"
	"ictrader/internal/trading/backtest"
)

func newBacktestCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Strategy backtesting",
	}

	cmd.AddCommand(newBacktestRunCmd(app))
	cmd.AddCommand(newBacktestRunsCmd(app))

	return cmd
}

func newBacktestRunCmd(app *App) *cobra.Command {
	var timeframe, file string
	var save bool

	cmd := &cobra.Command{
		Use:   "run <symbol>",
		Short: "Replay the strategy over historical bars",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			symbol := args[0]

			var bars []models.Bar
			var err error
			if file != "" {
				bars, err = store.ImportCSV(file)
			} else {
				if app.Store == nil {
					return fmt.Errorf("store unavailable, use --file")
				}
				bars, err = loadBars(cmd, app, symbol, timeframe)
			}
			if err != nil {
				return err
			}

			ctx := logging.WithLogger(cmd.Context(), app.Logger)
			engine := backtest.NewEngine(app.Config.Backtest, app.Config.Detection)
			result := engine.Run(ctx, symbol, bars)

			if save && app.Store != nil {
				id, err := app.Store.SaveBacktestRun(ctx, store.BacktestRun{
					Symbol:       symbol,
					RunAt:        time.Now(),
					TotalTrades:  result.TotalTrades,
					WinRate:      result.WinRate,
					NetPnL:       result.NetPnL,
					ProfitFactor: result.ProfitFactor,
					MaxDrawdown:  result.MaxDrawdown,
					SharpeRatio:  result.SharpeRatio,
				})
				if err != nil {
					app.Logger.Warn().Err(err).Msg("failed to persist run summary")
				} else {
					app.Logger.Info().Int64("run_id", id).Msg("run summary saved")
				}
			}

			if output.IsJSON() {
				return output.JSON(result)
			}
			printResult(output, result)
			return nil
		},
	}

	cmd.Flags().StringVar(&timeframe, "timeframe", "1m", "bar timeframe")
	cmd.Flags().StringVar(&file, "file", "", "backtest a CSV file instead of stored bars")
	cmd.Flags().BoolVar(&save, "save", true, "persist the run summary")

	return cmd
}

func newBacktestRunsCmd(app *App) *cobra.Command {
	var symbol string
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List saved backtest runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("store unavailable")
			}

			runs, err := app.Store.ListBacktestRuns(cmd.Context(), symbol, limit)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(runs)
			}
			if len(runs) == 0 {
				output.Dim("No saved runs")
				return nil
			}

			table := NewTable(output, "ID", "SYMBOL", "RUN AT", "TRADES", "WIN%", "NET P&L", "PF", "MAX DD", "SHARPE")
			for _, r := range runs {
				table.AddRow(
					fmt.Sprintf("%d", r.ID),
					r.Symbol,
					r.RunAt.Format("2006-01-02 15:04"),
					fmt.Sprintf("%d", r.TotalTrades),
					fmt.Sprintf("%.1f", r.WinRate),
					FormatPnL(r.NetPnL),
					FormatRatio(r.ProfitFactor),
					fmt.Sprintf("%.1f%%", r.MaxDrawdown),
					FormatRatio(r.SharpeRatio),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&symbol, "symbol", "", "filter by symbol")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")

	return cmd
}

func printResult(output *Output, r *backtest.Result) {
	output.Bold("Backtest: %s", r.Symbol)
	output.Printf("  Initial Capital:  %s\n", FormatCurrency(r.InitialCapital))
	output.Printf("  Final Balance:    %s\n", FormatCurrency(r.FinalBalance))
	output.Printf("  Net P&L:          %s\n", FormatPnL(r.NetPnL))
	output.Printf("  Max Drawdown:     %.2f%%\n", r.MaxDrawdown)
	output.Println()

	output.Printf("  Trades:           %d (%d wins, %d losses)\n", r.TotalTrades, r.WinningTrades, r.LosingTrades)
	output.Printf("  Win Rate:         %.1f%%\n", r.WinRate)
	output.Printf("  Profit Factor:    %s\n", FormatRatio(r.ProfitFactor))
	output.Printf("  Expectancy:       %s\n", FormatPnL(r.Expectancy))
	output.Printf("  Avg Win / Loss:   %s / %s\n", FormatPnL(r.AvgWin), FormatPnL(r.AvgLoss))
	output.Printf("  Sharpe / Sortino: %s / %s\n", FormatRatio(r.SharpeRatio), FormatRatio(r.SortinoRatio))
	output.Println()

	if len(r.BySetup) > 0 {
		output.Bold("By Setup")
		table := NewTable(output, "SETUP", "TRADES", "WIN%", "NET P&L")
		for setup, stats := range r.BySetup {
			table.AddRow(string(setup), fmt.Sprintf("%d", stats.Trades), fmt.Sprintf("%.1f", stats.WinRate), FormatPnL(stats.NetPnL))
		}
		table.Render()
		output.Println()
	}

	if len(r.ByHour) > 0 {
		output.Bold("By Entry Hour")
		hours := make([]int, 0, len(r.ByHour))
		for h := range r.ByHour {
			hours = append(hours, h)
		}
		sort.Ints(hours)
		table := NewTable(output, "HOUR", "TRADES", "WIN%", "NET P&L")
		for _, h := range hours {
			stats := r.ByHour[h]
			table.AddRow(fmt.Sprintf("%02d:00", h), fmt.Sprintf("%d", stats.Trades), fmt.Sprintf("%.1f", stats.WinRate), FormatPnL(stats.NetPnL))
		}
		table.Render()
	}
}

package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ictrader/internal/models"
	"ictrader/internal/store"
)

func newDataCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "data",
		Short: "Historical bar data management",
	}

	cmd.AddCommand(newDataImportCmd(app))
	cmd.AddCommand(newDataShowCmd(app))

	return cmd
}

func newDataImportCmd(app *App) *cobra.Command {
	var symbol, timeframe string

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import OHLCV bars from a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("store unavailable")
			}

			bars, err := store.ImportCSV(args[0])
			if err != nil {
				return err
			}
			if len(bars) == 0 {
				output.Warning("No bars found in %s", args[0])
				return nil
			}

			if err := app.Store.SaveBars(cmd.Context(), symbol, timeframe, bars); err != nil {
				return err
			}

			app.Logger.Info().
				Str("symbol", symbol).
				Str("timeframe", timeframe).
				Int("bars", len(bars)).
				Msg("bars imported")

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"symbol":    symbol,
					"timeframe": timeframe,
					"bars":      len(bars),
					"first":     bars[0].Timestamp,
					"last":      bars[len(bars)-1].Timestamp,
				})
			}
			output.Success("Imported %d bars for %s (%s)", len(bars), symbol, timeframe)
			output.Dim("Range: %s to %s",
				bars[0].Timestamp.Format(time.RFC3339),
				bars[len(bars)-1].Timestamp.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&symbol, "symbol", "", "instrument symbol")
	cmd.Flags().StringVar(&timeframe, "timeframe", "1m", "bar timeframe")
	cmd.MarkFlagRequired("symbol")

	return cmd
}

func newDataShowCmd(app *App) *cobra.Command {
	var timeframe string
	var limit int

	cmd := &cobra.Command{
		Use:   "show <symbol>",
		Short: "Show stored bars for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("store unavailable")
			}

			bars, err := loadBars(cmd, app, args[0], timeframe)
			if err != nil {
				return err
			}
			if len(bars) == 0 {
				output.Warning("No bars stored for %s (%s)", args[0], timeframe)
				return nil
			}

			if limit > 0 && len(bars) > limit {
				bars = bars[len(bars)-limit:]
			}

			if output.IsJSON() {
				return output.JSON(bars)
			}

			table := NewTable(output, "TIME", "OPEN", "HIGH", "LOW", "CLOSE", "VOLUME")
			for _, b := range bars {
				table.AddRow(
					b.Timestamp.Format("2006-01-02 15:04"),
					fmt.Sprintf("%.2f", b.Open),
					fmt.Sprintf("%.2f", b.High),
					fmt.Sprintf("%.2f", b.Low),
					fmt.Sprintf("%.2f", b.Close),
					fmt.Sprintf("%d", b.Volume),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&timeframe, "timeframe", "1m", "bar timeframe")
	cmd.Flags().IntVar(&limit, "limit", 20, "show only the most recent N bars (0 for all)")

	return cmd
}

// loadBars fetches the full stored history for a symbol and timeframe.
func loadBars(cmd *cobra.Command, app *App, symbol, timeframe string) ([]models.Bar, error) {
	from := time.Time{}
	to := time.Now().Add(24 * time.Hour)
	return app.Store.GetBars(cmd.Context(), symbol, timeframe, from, to)
}

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ictrader/internal/analysis/ict"
	"ictrader/internal/analysis/indicators"
	"ictrader/internal/analysis/patterns"
	"ictrader/internal/analysis/signals"
	"ictrader/internal/logging"
	"ictrader/internal/models"
	"ictrader/internal/store"
)

func newAnalyzeCmd(app *App) *cobra.Command {
	var timeframe, file string

	cmd := &cobra.Command{
		Use:   "analyze <symbol>",
		Short: "Run pattern and divergence analysis over a bar series",
		Long: `Runs the full detection pipeline over stored bars (or a CSV file):
indicators, divergences, fair value gaps, order blocks, liquidity pools,
market structure and confluence signals.`,
		Args: cobra.ExactArgs(1),
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
			if len(bars) == 0 {
				output.Warning("No bars available for %s", symbol)
				return nil
			}

			ctx := logging.WithLogger(cmd.Context(), logging.WithSymbol(app.Logger, symbol))
			report, err := buildReport(ctx, app, symbol, bars)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(report)
			}
			printReport(output, report)
			return nil
		},
	}

	cmd.Flags().StringVar(&timeframe, "timeframe", "1m", "bar timeframe")
	cmd.Flags().StringVar(&file, "file", "", "analyze a CSV file instead of stored bars")

	return cmd
}

// analysisReport bundles the pipeline output for display.
type analysisReport struct {
	Symbol      string                `json:"symbol"`
	Bars        int                   `json:"bars"`
	Structure   ict.MarketStructure   `json:"structure"`
	Gaps        []ict.FairValueGap    `json:"fair_value_gaps"`
	Blocks      []ict.OrderBlock      `json:"order_blocks"`
	Pools       []ict.LiquidityPool   `json:"liquidity_pools"`
	Divergences []patterns.Divergence `json:"divergences"`
	Bias        patterns.BiasLabel    `json:"divergence_bias"`
	Signals     []models.Signal       `json:"signals"`
}

func buildReport(ctx context.Context, app *App, symbol string, bars []models.Bar) (*analysisReport, error) {
	det := app.Config.Detection

	engine := indicators.NewDefaultEngine(4)
	singles, _, err := engine.CalculateAll(ctx, bars)
	if err != nil {
		return nil, err
	}

	divDetector := patterns.NewDivergenceDetector(det.PivotWindow, det.MaxPivotDistance, det.MinDivergenceStrength)
	var divergences []patterns.Divergence
	for _, name := range []string{"RSI_14", "OBV"} {
		series, ok := singles[name]
		if !ok {
			continue
		}
		divergences = append(divergences, divDetector.Detect(bars, series, name)...)
	}

	fvgDetector := ict.NewFVGDetector(det.MinGapSize)
	gaps := fvgDetector.Update(fvgDetector.Detect(bars), bars)

	obDetector := ict.NewOrderBlockDetector(det.MinDisplacement)
	blocks := obDetector.Update(obDetector.Detect(bars), bars)

	liqDetector := ict.NewLiquidityDetector(det.LiquidityLookback, det.LiquidityTolerance)
	pools := liqDetector.Update(liqDetector.Detect(bars), bars)

	structure := ict.AnalyzeStructure(bars, det.PivotWindow)

	generator := signals.NewGenerator(app.Config.Signal)
	sigs := generator.Generate(ctx, signals.Snapshot{
		Bars:      bars,
		Gaps:      gaps,
		Blocks:    blocks,
		Pools:     pools,
		Structure: structure,
	})

	return &analysisReport{
		Symbol:      symbol,
		Bars:        len(bars),
		Structure:   structure,
		Gaps:        gaps,
		Blocks:      blocks,
		Pools:       pools,
		Divergences: divergences,
		Bias:        patterns.Bias(divergences),
		Signals:     sigs,
	}, nil
}

func printReport(output *Output, r *analysisReport) {
	output.Bold("Analysis: %s (%d bars)", r.Symbol, r.Bars)
	output.Printf("  Structure:        %s\n", BiasString(string(r.Structure.Bias)))
	output.Printf("  Divergence Bias:  %s\n", BiasString(string(r.Bias)))
	output.Println()

	if len(r.Divergences) > 0 {
		output.Bold("Divergences")
		table := NewTable(output, "TYPE", "INDICATOR", "STRENGTH", "WINDOW")
		for _, d := range r.Divergences {
			table.AddRow(
				string(d.Type),
				d.Indicator,
				fmt.Sprintf("%.0f", d.Strength),
				fmt.Sprintf("%d-%d", d.PricePivots[0], d.PricePivots[1]),
			)
		}
		table.Render()
		output.Println()
	}

	unfilled := 0
	for _, g := range r.Gaps {
		if !g.Filled {
			unfilled++
		}
	}
	output.Printf("Fair value gaps:  %d (%d unfilled)\n", len(r.Gaps), unfilled)
	output.Printf("Order blocks:     %d\n", len(r.Blocks))
	output.Printf("Liquidity pools:  %d\n", len(r.Pools))
	output.Println()

	if len(r.Signals) == 0 {
		output.Dim("No signals")
		return
	}

	output.Bold("Signals")
	for _, s := range r.Signals {
		output.Printf("  %s %s  confidence %.0f  entry %.2f  stop %.2f  R:R %.2f\n",
			s.Trigger, s.Direction, s.Confidence, s.Entry, s.Stop, s.RiskRewardRatio)
		output.Dim("    at %s, targets %v", s.Timestamp.Format(time.RFC3339), s.Targets)
	}
}

package cli

import (
	"github.com/spf13/cobra"

	"github.com/gilvegliach/CallReminder/internal/app"
)

var (
	predictInput      string
	predictCustomer   string
	predictBufferDays int
	predictDryRun     bool
	predictSinks      []string
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict the reminder date for one customer and create the reminder",
	Long: `Reads a customer order log: the customer name on the first line, a header
line, then one "YYYY-MM-DD,quantity" record per line.

  cat Client1.csv | callreminder predict`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.PredictOptions{
			InputPath:  predictInput,
			Customer:   predictCustomer,
			BufferDays: predictBufferDays,
			DryRun:     predictDryRun,
			Sinks:      predictSinks,
		}
		return getApp().Predict(cmd.Context(), opts)
	},
}

func init() {
	predictCmd.Flags().StringVarP(&predictInput, "input", "i", "", "Order log file (defaults to stdin)")
	predictCmd.Flags().StringVar(&predictCustomer, "customer", "", "Override the customer named in the input")
	predictCmd.Flags().IntVar(&predictBufferDays, "buffer-days", -1, "Days to call ahead of stock-out (defaults to config)")
	predictCmd.Flags().BoolVar(&predictDryRun, "dry-run", false, "Print the prediction without creating a reminder")
	predictCmd.Flags().StringSliceVar(&predictSinks, "sink", nil, "Reminder sinks to use (telegram, ics, log); defaults to config")
}

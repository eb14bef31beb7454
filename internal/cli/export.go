package cli

import (
	"github.com/spf13/cobra"

	"github.com/gilvegliach/CallReminder/internal/app"
)

var (
	exportInput      string
	exportPNGPath    string
	exportCSVPath    string
	exportMaxPoints  int
	exportBufferDays int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a customer's order history as CSV and/or PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ExportOptions{
			InputPath:  exportInput,
			PNGPath:    exportPNGPath,
			CSVPath:    exportCSVPath,
			MaxPoints:  exportMaxPoints,
			BufferDays: exportBufferDays,
		}

		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportInput, "input", "i", "", "Order log file (defaults to stdin)")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data")
	exportCmd.Flags().IntVar(&exportMaxPoints, "max-points", 0, "Maximum orders to plot (defaults to config)")
	exportCmd.Flags().IntVar(&exportBufferDays, "buffer-days", -1, "Days to call ahead of stock-out (defaults to config)")
}

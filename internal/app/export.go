package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/gilvegliach/CallReminder/internal/orders"
	"github.com/gilvegliach/CallReminder/internal/predictor"
)

// Export renders a customer's order history and projection as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	req, err := a.readRequest(opts.InputPath)
	if err != nil {
		return err
	}

	history, err := orders.Parse(req.Records)
	if err != nil {
		return err
	}

	result, err := predictor.New(a.Config.ResolveBufferDays(opts.BufferDays)).Predict(history)
	if err != nil {
		return err
	}

	chronological := make([]orders.Order, len(history))
	for i, o := range history {
		chronological[len(history)-1-i] = o
	}

	a.Logger.Info().
		Str("customer", req.Customer).
		Int("orders", len(history)).
		Msg("exporting order history")

	if opts.CSVPath != "" {
		if err := writeOrdersCSV(opts.CSVPath, chronological); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		points := downsampleOrders(chronological, opts.MaxPoints)
		if err := writeOrdersPNG(opts.PNGPath, req.Customer, points, history.Latest(), result); err != nil {
			return err
		}
	}

	return nil
}

func downsampleOrders(history []orders.Order, max int) []orders.Order {
	if max <= 1 || len(history) <= max {
		return history
	}

	result := make([]orders.Order, 0, max)
	step := float64(len(history)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(history) {
			idx = len(history) - 1
		}
		result = append(result, history[idx])
	}
	return result
}

func writeOrdersCSV(path string, chronological []orders.Order) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"date", "quantity", "days_since_previous"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for i, o := range chronological {
		gap := ""
		if i > 0 {
			days := o.Date.Sub(chronological[i-1].Date).Hours() / 24
			gap = strconv.Itoa(int(math.Round(days)))
		}
		record := []string{o.Date.Format(orders.DateLayout), strconv.Itoa(o.Quantity), gap}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeOrdersPNG(path, customer string, points []orders.Order, latest orders.Order, result predictor.Result) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(points))
	y := make([]float64, len(points))
	for i, o := range points {
		x[i] = o.Date
		y[i] = float64(o.Quantity)
	}

	depletion := latest.Date.AddDate(0, 0, result.DaysOfSupplyRemaining)
	quantityFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.0f")
	}

	graph := chart.Chart{
		Title:  customer,
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeDateValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Units",
			ValueFormatter: quantityFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Ordered",
				XValues: x,
				YValues: y,
			},
			chart.TimeSeries{
				Name:    "Projected supply",
				XValues: []time.Time{latest.Date, depletion},
				YValues: []float64{float64(latest.Quantity), 0},
			},
			chart.TimeSeries{
				Name:    "Call",
				XValues: []time.Time{result.ReminderDate, result.ReminderDate},
				YValues: []float64{0, float64(latest.Quantity)},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

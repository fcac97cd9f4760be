package ui

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"sort"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/fuelcast/fuelcast/internal/forecast"
	"github.com/fuelcast/fuelcast/internal/ui/svg"
)

// ModelField is one top-level entry of the prediction model, shown next to
// the chart.
type ModelField struct {
	Key   string
	Value string
}

// DetailView is the bound detail column.
type DetailView struct {
	PointOfSale forecast.PointOfSale
	Properties  VizProperties
	Feeds       *FeedSet
	History     []forecast.PriceRecord
	// Prediction stays nil when no model artifact exists.
	Prediction any
	Summary    []ModelField
	Chart      template.HTML
}

// DetailController loads the detail column for one point of sale.
type DetailController struct {
	backend Backend
	logger  *slog.Logger
}

// NewDetailController constructs the controller.
func NewDetailController(backend Backend, logger *slog.Logger) *DetailController {
	if logger == nil {
		logger = slog.Default()
	}
	return &DetailController{backend: backend, logger: logger}
}

// Load binds the point of sale, then reads price history and the prediction
// model concurrently. Only the binding can fail; read errors are logged and
// leave the corresponding part empty.
func (c *DetailController) Load(ctx context.Context, uuid string, predicted bool) (DetailView, error) {
	pos, err := c.backend.GetPointOfSale(ctx, uuid)
	if err != nil {
		return DetailView{}, fmt.Errorf("bind point of sale %s: %w", uuid, err)
	}

	view := DetailView{
		PointOfSale: pos,
		Properties:  DetailChartProperties(),
		Feeds:       NewFeedSet(),
	}
	view.Feeds.SetPredicted(predicted)

	logger := c.logger.With(slog.String("pointofsale", uuid))
	var g errgroup.Group
	g.Go(func() error {
		history, err := c.backend.History(ctx, uuid)
		if err != nil {
			logger.Error("read price history", slog.Any("error", err))
			return nil
		}
		view.History = history
		return nil
	})
	var models []forecast.ModelArtifact
	g.Go(func() error {
		rows, err := c.backend.Models(ctx, uuid)
		if err != nil {
			logger.Error("read prediction model", slog.Any("error", err))
			return nil
		}
		models = rows
		return nil
	})
	_ = g.Wait()

	if len(models) > 0 {
		prediction, err := models[0].Decode()
		if err != nil {
			logger.Error("decode prediction model", slog.Any("error", err))
		} else {
			view.Prediction = prediction
			view.Summary = summarize(models[0].ModelContent)
		}
	}

	chart, err := renderChart(view)
	if err != nil {
		logger.Debug("chart not rendered", slog.Any("error", err))
	}
	view.Chart = chart
	return view, nil
}

func summarize(content string) []ModelField {
	root := gjson.Parse(content)
	if !root.Exists() {
		return nil
	}
	if !root.IsObject() && !root.IsArray() {
		return []ModelField{{Key: "value", Value: fieldText(root)}}
	}
	var fields []ModelField
	index := 0
	root.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if root.IsArray() {
			name = fmt.Sprintf("[%d]", index)
			index++
		}
		fields = append(fields, ModelField{Key: name, Value: fieldText(value)})
		return true
	})
	// Array elements keep their order.
	if root.IsObject() {
		sort.Slice(fields, func(i, j int) bool { return fields[i].Key < fields[j].Key })
	}
	return fields
}

func fieldText(value gjson.Result) string {
	text := value.String()
	if value.IsObject() || value.IsArray() {
		text = value.Raw
	}
	if len(text) > 80 {
		text = text[:77] + "..."
	}
	return text
}

func renderChart(view DetailView) (template.HTML, error) {
	if len(view.History) == 0 {
		return "", fmt.Errorf("no history")
	}
	labels := make([]string, len(view.History))
	series := map[string]*svg.Series{
		FeedValuePrice:          {Name: FeedValuePrice, Values: make([]*float64, len(view.History))},
		FeedValuePredictedPrice: {Name: FeedValuePredictedPrice, Values: make([]*float64, len(view.History))},
	}
	for i, record := range view.History {
		labels[i] = record.Date.Format("2006-01-02")
		series[FeedValuePrice].Values[i] = record.Price
		series[FeedValuePredictedPrice].Values[i] = record.PredictedPrice
	}

	var active []svg.Series
	for _, measure := range view.Feeds.Measures() {
		if s, ok := series[measure]; ok {
			active = append(active, *s)
		}
	}

	props := view.Properties
	return svg.Lines(svg.DefaultWidth, svg.DefaultHeight, active, labels, svg.LineOpts{
		Title:       view.PointOfSale.Name,
		Description: "Fuel price history",
		ShowTitle:   props.Title.Visible,
		DataLabels:  props.PlotArea.DataLabel.Visible,
		ShowDots:    true,
		Scale: svg.Scale{
			Fixed: props.PlotArea.PrimaryScale.FixedRange,
			Min:   props.PlotArea.PrimaryScale.MinValue,
			Max:   props.PlotArea.PrimaryScale.MaxValue,
		},
		ClipToData: props.PlotArea.Window.Start == WindowFirstDataPoint &&
			props.PlotArea.Window.End == WindowLastDataPoint,
	})
}

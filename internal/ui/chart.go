package ui

// Visibility toggles a chart element.
type Visibility struct {
	Visible bool
}

// Window bounds the plotted category range.
type Window struct {
	Start string
	End   string
}

// PrimaryScale configures the value axis.
type PrimaryScale struct {
	FixedRange bool
	MinValue   float64
	MaxValue   float64
}

// PlotArea groups the plot area properties.
type PlotArea struct {
	DataLabel    Visibility
	Window       Window
	PrimaryScale PrimaryScale
}

// VizProperties is the static chart configuration of the detail view.
type VizProperties struct {
	Title    Visibility
	PlotArea PlotArea
}

// Window bounds.
const (
	WindowFirstDataPoint = "firstDataPoint"
	WindowLastDataPoint  = "lastDataPoint"
)

// DetailChartProperties returns the fixed price chart configuration.
func DetailChartProperties() VizProperties {
	return VizProperties{
		Title: Visibility{Visible: false},
		PlotArea: PlotArea{
			DataLabel: Visibility{Visible: false},
			Window:    Window{Start: WindowFirstDataPoint, End: WindowLastDataPoint},
			PrimaryScale: PrimaryScale{
				FixedRange: true,
				MinValue:   1.6,
				MaxValue:   2.4,
			},
		},
	}
}

// Feed types.
const (
	FeedDimension = "Dimension"
	FeedMeasure   = "Measure"
)

// Feed value names.
const (
	FeedValueDate           = "Date"
	FeedValuePrice          = "Price"
	FeedValuePredictedPrice = "Predicted Price"
)

// FeedItem binds a data series to a chart axis.
type FeedItem struct {
	UID    string
	Type   string
	Values []string
}

// FeedSet holds the chart feeds. The predicted price feed is driven by an
// explicit flag rather than by counting feeds.
type FeedSet struct {
	base      []FeedItem
	predicted bool
}

var predictedFeed = FeedItem{UID: "valueAxis", Type: FeedMeasure, Values: []string{FeedValuePredictedPrice}}

// NewFeedSet returns the date/price feeds with the predicted feed hidden.
func NewFeedSet() *FeedSet {
	return &FeedSet{base: []FeedItem{
		{UID: "categoryAxis", Type: FeedDimension, Values: []string{FeedValueDate}},
		{UID: "valueAxis", Type: FeedMeasure, Values: []string{FeedValuePrice}},
	}}
}

// TogglePredicted adds the predicted price feed when hidden and removes it
// when shown.
func (f *FeedSet) TogglePredicted() {
	f.predicted = !f.predicted
}

// SetPredicted sets the predicted price feed flag.
func (f *FeedSet) SetPredicted(shown bool) {
	f.predicted = shown
}

// PredictedShown reports whether the predicted price feed is active.
func (f *FeedSet) PredictedShown() bool {
	return f.predicted
}

// Feeds returns the active feeds in axis order.
func (f *FeedSet) Feeds() []FeedItem {
	out := make([]FeedItem, 0, len(f.base)+1)
	out = append(out, f.base...)
	if f.predicted {
		out = append(out, predictedFeed)
	}
	return out
}

// Len returns the number of active feeds.
func (f *FeedSet) Len() int {
	if f.predicted {
		return len(f.base) + 1
	}
	return len(f.base)
}

// Measures lists the measure names currently fed to the value axis.
func (f *FeedSet) Measures() []string {
	var out []string
	for _, item := range f.Feeds() {
		if item.Type == FeedMeasure {
			out = append(out, item.Values...)
		}
	}
	return out
}

package svg

// Series is one line on the chart. A nil value leaves a gap.
type Series struct {
	Name   string
	Values []*float64
	Color  string
}

// Scale pins the value axis to a fixed range when Fixed is set.
type Scale struct {
	Fixed bool
	Min   float64
	Max   float64
}

// LineOpts customises the line chart renderer.
type LineOpts struct {
	Title       string
	Description string
	ShowTitle   bool
	AxisColor   string
	GridColor   string
	Padding     float64
	ShowDots    bool
	DataLabels  bool
	TickCount   int
	Scale       Scale
	// ClipToData drops leading and trailing categories without any value.
	ClipToData bool
}

// Defaults for the detail chart.
const (
	DefaultWidth   = 720
	DefaultHeight  = 280
	DefaultPadding = 36.0
	DefaultTicks   = 4
)

var palette = []string{"#0a6ed1", "#e9730c", "#107e3e", "#bb0000"}

package svg

import (
	"fmt"
	"html/template"
	"math"
	"strings"
)

// Lines renders a responsive SVG line chart with one path per series.
func Lines(width, height int, series []Series, labels []string, opts LineOpts) (template.HTML, error) {
	if len(series) == 0 {
		return "", fmt.Errorf("svg: series required")
	}
	for _, s := range series {
		if len(s.Values) != len(labels) {
			return "", fmt.Errorf("svg: labels length must match series %q", s.Name)
		}
	}
	if opts.ClipToData {
		series, labels = clip(series, labels)
	}
	if len(labels) == 0 {
		return "", fmt.Errorf("svg: no data points")
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	padding := opts.Padding
	if padding <= 0 {
		padding = DefaultPadding
	}
	tickCount := opts.TickCount
	if tickCount <= 0 {
		tickCount = DefaultTicks
	}
	axisColor := fallback(opts.AxisColor, "#475569")
	gridColor := fallback(opts.GridColor, "#cbd5f5")

	chartWidth := float64(width) - 2*padding
	chartHeight := float64(height) - 2*padding
	if chartWidth <= 0 || chartHeight <= 0 {
		return "", fmt.Errorf("svg: viewport too small")
	}

	minVal, maxVal := opts.Scale.Min, opts.Scale.Max
	if !opts.Scale.Fixed {
		var ok bool
		minVal, maxVal, ok = bounds(series)
		if !ok {
			minVal, maxVal = 0, 1
		}
	}
	if almostEqual(maxVal, minVal) || maxVal < minVal {
		maxVal = minVal + 1
	}
	scale := chartHeight / (maxVal - minVal)

	step := 0.0
	if len(labels) > 1 {
		step = chartWidth / float64(len(labels)-1)
	}
	xAt := func(i int) float64 {
		if len(labels) > 1 {
			return padding + float64(i)*step
		}
		return padding + chartWidth/2
	}
	yAt := func(v float64) float64 {
		v = math.Max(minVal, math.Min(maxVal, v))
		return padding + chartHeight - (v-minVal)*scale
	}

	titleID := makeID(opts.Title, "line-title")
	descID := makeID(opts.Title, "line-desc")

	var b strings.Builder
	b.WriteString(fmt.Sprintf("<svg xmlns=\"http://www.w3.org/2000/svg\" viewBox=\"0 0 %d %d\" role=\"img\" aria-labelledby=\"%s %s\">", width, height, titleID, descID))
	b.WriteString(fmt.Sprintf("<title id=\"%s\">%s</title>", titleID, template.HTMLEscapeString(fallback(opts.Title, "Line chart"))))
	b.WriteString(fmt.Sprintf("<desc id=\"%s\">%s</desc>", descID, template.HTMLEscapeString(fallback(opts.Description, "Trend data"))))
	if opts.ShowTitle && opts.Title != "" {
		b.WriteString(fmt.Sprintf("<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"12\" text-anchor=\"middle\">%s</text>", float64(width)/2, padding/2, axisColor, template.HTMLEscapeString(opts.Title)))
	}

	for i := 0; i <= tickCount; i++ {
		ratio := float64(i) / float64(tickCount)
		y := padding + chartHeight - ratio*chartHeight
		value := minVal + (maxVal-minVal)*ratio
		b.WriteString(fmt.Sprintf("<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke=\"%s\" stroke-width=\"0.5\" stroke-dasharray=\"2,4\" aria-hidden=\"true\"></line>", padding, y, padding+chartWidth, y, gridColor))
		b.WriteString(fmt.Sprintf("<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"end\">%s</text>", padding-6, y+4, axisColor, template.HTMLEscapeString(formatTick(value))))
	}

	b.WriteString(fmt.Sprintf("<g stroke=\"%s\" aria-label=\"Axes\">", axisColor))
	b.WriteString(fmt.Sprintf("<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke-width=\"1\"></line>", padding, padding, padding, padding+chartHeight))
	b.WriteString(fmt.Sprintf("<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke-width=\"1\"></line>", padding, padding+chartHeight, padding+chartWidth, padding+chartHeight))
	b.WriteString("</g>")

	for idx, s := range series {
		color := s.Color
		if color == "" {
			color = palette[idx%len(palette)]
		}
		path := linePath(s.Values, xAt, yAt)
		if path == "" {
			continue
		}
		b.WriteString(fmt.Sprintf("<path d=\"%s\" fill=\"none\" stroke=\"%s\" stroke-width=\"2\" stroke-linejoin=\"round\" stroke-linecap=\"round\" data-series=\"%s\"></path>", path, color, template.HTMLEscapeString(s.Name)))
		for i, v := range s.Values {
			if v == nil {
				continue
			}
			x, y := xAt(i), yAt(*v)
			if opts.ShowDots {
				b.WriteString(fmt.Sprintf("<circle cx=\"%.2f\" cy=\"%.2f\" r=\"2.5\" fill=\"%s\"><title>%s %s: %s</title></circle>", x, y, color, template.HTMLEscapeString(s.Name), template.HTMLEscapeString(labels[i]), formatValue(*v)))
			}
			if opts.DataLabels {
				b.WriteString(fmt.Sprintf("<text class=\"data-label\" x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"9\" text-anchor=\"middle\">%s</text>", x, y-6, color, formatValue(*v)))
			}
		}
	}

	every := labelStride(len(labels), chartWidth)
	for i, label := range labels {
		if i%every != 0 && i != len(labels)-1 {
			continue
		}
		b.WriteString(fmt.Sprintf("<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"middle\">%s</text>", xAt(i), padding+chartHeight+14, axisColor, template.HTMLEscapeString(label)))
	}

	// Legend
	for idx, s := range series {
		color := s.Color
		if color == "" {
			color = palette[idx%len(palette)]
		}
		x := padding + float64(idx)*140
		y := float64(height) - 6
		b.WriteString(fmt.Sprintf("<rect x=\"%.2f\" y=\"%.2f\" width=\"10\" height=\"3\" fill=\"%s\"></rect>", x, y-4, color))
		b.WriteString(fmt.Sprintf("<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\">%s</text>", x+14, y, axisColor, template.HTMLEscapeString(s.Name)))
	}

	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}

func linePath(values []*float64, xAt func(int) float64, yAt func(float64) float64) string {
	var path strings.Builder
	penDown := false
	for i, v := range values {
		if v == nil {
			penDown = false
			continue
		}
		cmd := "L"
		if !penDown {
			cmd = "M"
		}
		if path.Len() > 0 {
			path.WriteByte(' ')
		}
		path.WriteString(fmt.Sprintf("%s%.2f %.2f", cmd, xAt(i), yAt(*v)))
		penDown = true
	}
	return path.String()
}

// clip keeps the window between the first and last category holding a value
// in any series.
func clip(series []Series, labels []string) ([]Series, []string) {
	first, last := -1, -1
	for i := range labels {
		for _, s := range series {
			if s.Values[i] != nil {
				if first < 0 {
					first = i
				}
				last = i
				break
			}
		}
	}
	if first < 0 {
		return series, nil
	}
	out := make([]Series, len(series))
	for i, s := range series {
		s.Values = s.Values[first : last+1]
		out[i] = s
	}
	return out, labels[first : last+1]
}

func labelStride(n int, width float64) int {
	maxLabels := int(width / 60)
	if maxLabels < 1 {
		maxLabels = 1
	}
	if n <= maxLabels {
		return 1
	}
	return int(math.Ceil(float64(n) / float64(maxLabels)))
}

func fallback(value, defaultValue string) string {
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	return value
}

func bounds(series []Series) (float64, float64, bool) {
	found := false
	var minVal, maxVal float64
	for _, s := range series {
		for _, v := range s.Values {
			if v == nil {
				continue
			}
			if !found {
				minVal, maxVal, found = *v, *v, true
				continue
			}
			minVal = math.Min(minVal, *v)
			maxVal = math.Max(maxVal, *v)
		}
	}
	return minVal, maxVal, found
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func makeID(base, suffix string) string {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		if r == '-' || r == '_' {
			return r
		}
		return '-'
	}, strings.ToLower(strings.TrimSpace(base)))
	cleaned = strings.Trim(cleaned, "-")
	if cleaned == "" {
		cleaned = "chart"
	}
	return fmt.Sprintf("%s-%s", cleaned, suffix)
}

func formatTick(v float64) string {
	if almostEqual(v, math.Round(v)) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}

func formatValue(v float64) string {
	return fmt.Sprintf("%.3f", v)
}

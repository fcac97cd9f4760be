// Package ui is the server-rendered front end: a master list of points of
// sale, a detail column with the price chart, and the Predict/Train triggers.
package ui

import (
	"github.com/fuelcast/fuelcast/internal/shared"
)

// Layout is the flexible column layout of the shell.
type Layout string

// Supported layouts.
const (
	LayoutOneColumn             Layout = "OneColumn"
	LayoutTwoColumnsMidExpanded Layout = "TwoColumnsMidExpanded"
)

var routeLayouts = map[string]Layout{
	RouteMain:   LayoutOneColumn,
	RouteDetail: LayoutTwoColumnsMidExpanded,
}

// LayoutForRoute maps a route name to its layout.
func LayoutForRoute(route string) (Layout, bool) {
	layout, ok := routeLayouts[route]
	return layout, ok
}

const (
	layoutKey        = "ui.layout"
	predictedFeedKey = "ui.feed.predicted"
)

// Model is the session scoped UI model shared by every view.
type Model struct {
	sess *shared.Session
}

// ModelFor wraps the session. A nil session yields a throwaway model.
func ModelFor(sess *shared.Session) *Model {
	if sess == nil {
		sess = &shared.Session{}
	}
	return &Model{sess: sess}
}

// OnRouteMatched updates the layout for mapped routes and leaves it alone
// otherwise.
func (m *Model) OnRouteMatched(route string) {
	if layout, ok := LayoutForRoute(route); ok {
		m.sess.Set(layoutKey, string(layout))
	}
}

// Layout returns the current layout, OneColumn until a route sets one.
func (m *Model) Layout() Layout {
	if value := m.sess.Get(layoutKey); value != "" {
		return Layout(value)
	}
	return LayoutOneColumn
}

// PredictedFeed reports whether the predicted price feed is shown.
func (m *Model) PredictedFeed() bool {
	return m.sess.Get(predictedFeedKey) == "1"
}

// SetPredictedFeed stores the predicted price feed flag.
func (m *Model) SetPredictedFeed(shown bool) {
	if shown {
		m.sess.Set(predictedFeedKey, "1")
		return
	}
	m.sess.Delete(predictedFeedKey)
}

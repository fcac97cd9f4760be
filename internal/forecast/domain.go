package forecast

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Action names exposed to callers. They double as the response field of the
// action result.
const (
	ActionPredict = "Prices_Predict"
	ActionTrain   = "Model_Train"
)

var (
	// ErrNotFound indicates the requested point of sale does not exist.
	ErrNotFound = errors.New("forecast: not found")
	// ErrUnknownAction is returned for action names outside the fixed set.
	ErrUnknownAction = errors.New("forecast: unknown action")
)

// PointOfSale is a fuel station listed in the master view.
type PointOfSale struct {
	UUID        string   `json:"uuid"`
	Name        string   `json:"name"`
	Brand       string   `json:"brand"`
	Street      string   `json:"street"`
	HouseNumber string   `json:"house_number"`
	PostCode    string   `json:"post_code"`
	City        string   `json:"city"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
}

// PriceRecord is one row of History_Forecast. Price holds the observed value,
// PredictedPrice the forecast written by the predict procedure.
type PriceRecord struct {
	UUID           string    `json:"uuid"`
	Date           time.Time `json:"date"`
	Price          *float64  `json:"price"`
	PredictedPrice *float64  `json:"predicted_price"`
}

// ModelArtifact is a serialized model produced by the training procedure.
type ModelArtifact struct {
	GroupID      string `json:"group_id"`
	RowIndex     int64  `json:"row_index"`
	ModelContent string `json:"model_content"`
}

// Decode parses ModelContent. Any JSON value is accepted, not only objects.
func (m ModelArtifact) Decode() (any, error) {
	var out any
	if err := json.Unmarshal([]byte(m.ModelContent), &out); err != nil {
		return nil, fmt.Errorf("forecast: decode model content for %s: %w", m.GroupID, err)
	}
	return out, nil
}

// IsAction reports whether name is one of the supported actions.
func IsAction(name string) bool {
	return name == ActionPredict || name == ActionTrain
}

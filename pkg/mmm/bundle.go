package mmm

import (
	"fmt"
	"time"

	"github.com/mixtools/mixatlas/pkg/models/domain"
)

// Bundle is a fully deserialized model artifact: the fitted model, the
// scalers it was trained with, channel prices and the training window.
// Bundles are read-only after load and shared across requests.
type Bundle struct {
	Name        string
	TrainedFrom time.Time
	TrainedTo   time.Time
	Channels    []string
	Prices      []float64
	Media       *MeanScaler
	Target      *TargetScaler
	Extra       *ColumnScaler
	Model       *MediaMixModel
}

// Validate checks the positional alignment the allocator relies on: index i
// of Prices, Channels, the media scaler and the model all refer to the same
// channel. A bundle that fails here is rejected at load, before any request
// can reach the solver with misattributed spend.
func (b *Bundle) Validate() error {
	if b.Name == "" {
		return fmt.Errorf("bundle has no name")
	}
	if b.Model == nil || b.Media == nil || b.Target == nil || b.Extra == nil {
		return fmt.Errorf("bundle %q is missing model or scalers", b.Name)
	}
	n := len(b.Channels)
	if n == 0 {
		return fmt.Errorf("bundle %q has no channels", b.Name)
	}
	if len(b.Prices) != n {
		return fmt.Errorf("bundle %q has %d prices for %d channels", b.Name, len(b.Prices), n)
	}
	if len(b.Media.Divisors) != n {
		return fmt.Errorf("bundle %q media scaler covers %d of %d channels", b.Name, len(b.Media.Divisors), n)
	}
	if got := len(b.Model.Channels()); got != n {
		return fmt.Errorf("bundle %q model has %d channels, artifact lists %d", b.Name, got, n)
	}
	for i, p := range b.Prices {
		if p <= 0 {
			return fmt.Errorf("bundle %q price for channel %q must be positive, got %v", b.Name, b.Channels[i], p)
		}
	}
	for _, ch := range b.Channels {
		if ch == domain.TotalRowLabel {
			return fmt.Errorf("bundle %q uses reserved channel name %q", b.Name, domain.TotalRowLabel)
		}
	}
	if b.TrainedTo.Before(b.TrainedFrom) {
		return fmt.Errorf("bundle %q training window ends before it starts", b.Name)
	}
	return nil
}

func (b *Bundle) Summary() domain.ModelSummary {
	return domain.ModelSummary{
		Name:        b.Name,
		Channels:    append([]string(nil), b.Channels...),
		TrainedFrom: b.TrainedFrom,
		TrainedTo:   b.TrainedTo,
	}
}

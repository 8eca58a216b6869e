// Package bundle deserializes model artifacts into ready-to-use bundles.
// Loading is a pure function of the artifact bytes; caching sits outside
// (see store/bundlecache) and is keyed by ContentHash.
package bundle

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mixtools/mixatlas/pkg/mmm"
)

const dateLayout = "2006-01-02"

type scalerArtifact struct {
	Divisors []float64 `json:"divisors"`
}

type columnScalerArtifact struct {
	Divisors map[string]float64 `json:"divisors"`
}

type targetScalerArtifact struct {
	Divisor float64 `json:"divisor"`
}

type modelArtifact struct {
	Intercept           float64            `json:"intercept"`
	Trend               float64            `json:"trend"`
	MediaCoefficients   []float64          `json:"media_coefficients"`
	AdstockRates        []float64          `json:"adstock_rates"`
	HillSlopes          []float64          `json:"hill_slopes"`
	HillHalfSaturations []float64          `json:"hill_half_saturations"`
	ExtraCoefficients   map[string]float64 `json:"extra_coefficients"`
	MediaMeans          []float64          `json:"media_means"`
}

type artifact struct {
	Name         string               `json:"name"`
	TrainedFrom  string               `json:"trained_from"`
	TrainedTo    string               `json:"trained_to"`
	Channels     []string             `json:"channels"`
	Prices       []float64            `json:"prices"`
	MediaScaler  scalerArtifact       `json:"media_scaler"`
	TargetScaler targetScalerArtifact `json:"target_scaler"`
	ExtraScaler  columnScalerArtifact `json:"extra_scaler"`
	Model        modelArtifact        `json:"model"`
}

// Parse deserializes and validates a model artifact. Any alignment problem
// between channels, prices, scalers and model parameters fails here, before
// the bundle can reach a solver.
func Parse(data []byte) (*mmm.Bundle, error) {
	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("malformed bundle artifact: %w", err)
	}

	trainedFrom, err := time.Parse(dateLayout, a.TrainedFrom)
	if err != nil {
		return nil, fmt.Errorf("bundle %q: invalid trained_from: %w", a.Name, err)
	}
	trainedTo, err := time.Parse(dateLayout, a.TrainedTo)
	if err != nil {
		return nil, fmt.Errorf("bundle %q: invalid trained_to: %w", a.Name, err)
	}

	media, err := mmm.NewMeanScaler(a.MediaScaler.Divisors)
	if err != nil {
		return nil, fmt.Errorf("bundle %q: media scaler: %w", a.Name, err)
	}
	target, err := mmm.NewTargetScaler(a.TargetScaler.Divisor)
	if err != nil {
		return nil, fmt.Errorf("bundle %q: target scaler: %w", a.Name, err)
	}
	extra, err := mmm.NewColumnScaler(a.ExtraScaler.Divisors)
	if err != nil {
		return nil, fmt.Errorf("bundle %q: extra scaler: %w", a.Name, err)
	}
	model, err := mmm.NewMediaMixModel(a.Channels, mmm.Params{
		Intercept:           a.Model.Intercept,
		Trend:               a.Model.Trend,
		MediaCoefficients:   a.Model.MediaCoefficients,
		AdstockRates:        a.Model.AdstockRates,
		HillSlopes:          a.Model.HillSlopes,
		HillHalfSaturations: a.Model.HillHalfSaturations,
		ExtraCoefficients:   a.Model.ExtraCoefficients,
		MediaMeans:          a.Model.MediaMeans,
	})
	if err != nil {
		return nil, fmt.Errorf("bundle %q: model: %w", a.Name, err)
	}

	b := &mmm.Bundle{
		Name:        a.Name,
		TrainedFrom: trainedFrom,
		TrainedTo:   trainedTo,
		Channels:    a.Channels,
		Prices:      a.Prices,
		Media:       media,
		Target:      target,
		Extra:       extra,
		Model:       model,
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// LoadFile reads and parses an artifact from disk, returning the raw bytes
// alongside the bundle so callers can derive the content hash without a
// second read.
func LoadFile(path string) (*mmm.Bundle, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading bundle artifact: %w", err)
	}
	b, err := Parse(data)
	if err != nil {
		return nil, nil, err
	}
	return b, data, nil
}

// ContentHash identifies an artifact by its bytes. Two identical uploads
// share one cache entry regardless of file name.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

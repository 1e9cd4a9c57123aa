// Package options resolves the year and fuel combinations offered for one or
// more selected models.
package options

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/DIMO-Network/fipe-quoter/internal/client/fipe"
)

const (
	// ZeroKmPrefix starts the model year of vehicles with no registered year.
	ZeroKmPrefix = "32000"
	// Separator joins the model year and the fuel code of a composite value.
	Separator = "-"
)

// ErrNoCommonOptions is returned when the selected models share no year and fuel label.
var ErrNoCommonOptions = errors.New("no common year/fuel combination between the selected models")

// ZeroKmLabel returns the display label used for zero-km options.
func ZeroKmLabel(year int) string {
	return fmt.Sprintf("Zero Km (%d)", year)
}

// YearFuel is a parsed composite value.
type YearFuel struct {
	ModelYear int
	Fuel      int
}

// ParseYearFuel splits a composite value such as "2023-1".
func ParseYearFuel(value string) (YearFuel, error) {
	parts := strings.Split(value, Separator)
	if len(parts) != 2 {
		return YearFuel{}, fmt.Errorf("invalid year/fuel value %q: expected 2 parts, got %d", value, len(parts))
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return YearFuel{}, fmt.Errorf("invalid model year in %q: %w", value, err)
	}
	fuel, err := strconv.Atoi(parts[1])
	if err != nil {
		return YearFuel{}, fmt.Errorf("invalid fuel code in %q: %w", value, err)
	}
	return YearFuel{ModelYear: year, Fuel: fuel}, nil
}

// Set maps display labels to composite values for one model, keeping the
// order in which FIPE listed them.
type Set struct {
	labels []string
	values map[string]string
}

// NewSet builds the label set of one model. Options whose model year starts
// with ZeroKmPrefix are relabeled with zeroKmLabel. When two options end up with
// the same label the later value wins.
func NewSet(opts []fipe.YearFuelOption, zeroKmLabel string) Set {
	set := Set{values: make(map[string]string, len(opts))}
	for _, opt := range opts {
		label := opt.Label
		if strings.HasPrefix(opt.Value, ZeroKmPrefix) {
			label = zeroKmLabel
		}
		if _, ok := set.values[label]; !ok {
			set.labels = append(set.labels, label)
		}
		set.values[label] = opt.Value
	}
	return set
}

// Labels returns the labels in listing order.
func (s Set) Labels() []string {
	return slices.Clone(s.labels)
}

// Value returns the composite value of a label.
func (s Set) Value(label string) (string, bool) {
	v, ok := s.values[label]
	return v, ok
}

// Len returns the number of labels.
func (s Set) Len() int {
	return len(s.labels)
}

// Resolution is the outcome of resolving the options of the selected models.
type Resolution struct {
	// Labels are the labels that may be offered.
	Labels []string `json:"labels"`
	// Multi is true when several labels may be chosen at once. It is only
	// the case when a single model is selected.
	Multi bool `json:"multi"`
	// Divergent lists shared labels whose composite value differs between models.
	Divergent []string `json:"divergent,omitempty"`

	sets []Set
}

// Resolve computes the offerable labels for the given per-model sets, in the
// order the models were selected. A single model offers all of its labels for
// multi-choice. Several models offer the sorted intersection of their labels
// for single choice, or ErrNoCommonOptions when it is empty.
func Resolve(sets []Set) (*Resolution, error) {
	switch len(sets) {
	case 0:
		return nil, errors.New("at least one model is required")
	case 1:
		return &Resolution{Labels: sets[0].Labels(), Multi: true, sets: sets}, nil
	}

	var common []string
	var divergent []string
	for _, label := range sets[0].labels {
		first := sets[0].values[label]
		shared := true
		differs := false
		for _, other := range sets[1:] {
			v, ok := other.values[label]
			if !ok {
				shared = false
				break
			}
			if v != first {
				differs = true
			}
		}
		if !shared {
			continue
		}
		common = append(common, label)
		if differs {
			divergent = append(divergent, label)
		}
	}
	if len(common) == 0 {
		return nil, ErrNoCommonOptions
	}
	slices.Sort(common)
	slices.Sort(divergent)
	return &Resolution{Labels: common, Divergent: divergent, sets: sets}, nil
}

// Value returns the composite value of label for the model at index model.
// Each model keeps its own value so divergent labels still query correctly.
func (r *Resolution) Value(model int, label string) (string, bool) {
	if model < 0 || model >= len(r.sets) {
		return "", false
	}
	return r.sets[model].Value(label)
}

// Contains reports whether label may be offered.
func (r *Resolution) Contains(label string) bool {
	return slices.Contains(r.Labels, label)
}

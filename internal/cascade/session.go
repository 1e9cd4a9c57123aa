package cascade

import (
	"slices"
	"sync"

	"github.com/DIMO-Network/fipe-quoter/internal/client/fipe"
)

// Stage is the furthest point a render cycle reached.
type Stage int

const (
	AwaitingType Stage = iota
	AwaitingBrand
	AwaitingModel
	AwaitingYearFuel
	Ready
)

func (s Stage) String() string {
	switch s {
	case AwaitingType:
		return "awaiting_type"
	case AwaitingBrand:
		return "awaiting_brand"
	case AwaitingModel:
		return "awaiting_model"
	case AwaitingYearFuel:
		return "awaiting_year_fuel"
	case Ready:
		return "ready"
	}
	return "unknown"
}

// Selection is the set of choices submitted by one interaction.
type Selection struct {
	VehicleType string
	Brand       string
	Models      []string
	YearFuels   []string
}

// Session holds the choices a user has made so far. Every setter clears the
// choices downstream of the field it changes.
type Session struct {
	ID string

	vehicleType fipe.VehicleType
	table       *fipe.ReferenceTable
	brand       string
	models      []string
	yearFuels   []string

	mu sync.Mutex
}

// NewSession creates a session with the default vehicle type selected.
func NewSession(id string) *Session {
	return &Session{ID: id, vehicleType: fipe.Car}
}

// Lock serializes interactions on the session.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session.
func (s *Session) Unlock() { s.mu.Unlock() }

// Apply records a submitted selection. When an upstream field changes the
// submitted downstream fields are stale and are ignored.
func (s *Session) Apply(sel Selection) {
	if vt, ok := fipe.VehicleTypeFromLabel(sel.VehicleType); ok && s.SetVehicleType(vt) {
		return
	}
	if s.SetBrand(sel.Brand) {
		return
	}
	if s.SetModels(sel.Models) {
		return
	}
	s.SetYearFuels(sel.YearFuels)
}

// Reset clears every choice except the reference table, which lives for the whole session.
func (s *Session) Reset() {
	s.vehicleType = fipe.Car
	s.brand = ""
	s.models = nil
	s.yearFuels = nil
}

// VehicleType returns the selected vehicle type.
func (s *Session) VehicleType() fipe.VehicleType { return s.vehicleType }

// ReferenceTable returns the session's reference table, or nil before it was fetched.
func (s *Session) ReferenceTable() *fipe.ReferenceTable { return s.table }

// Brand returns the selected brand label.
func (s *Session) Brand() string { return s.brand }

// Models returns the selected model labels in selection order.
func (s *Session) Models() []string { return slices.Clone(s.models) }

// YearFuels returns the selected year/fuel labels in selection order.
func (s *Session) YearFuels() []string { return slices.Clone(s.yearFuels) }

// SetReferenceTable stores the reference table. It is only set once.
func (s *Session) SetReferenceTable(table fipe.ReferenceTable) {
	if s.table == nil {
		s.table = &table
	}
}

// SetVehicleType selects the vehicle type and reports whether it changed.
func (s *Session) SetVehicleType(vt fipe.VehicleType) bool {
	if vt == s.vehicleType {
		return false
	}
	s.vehicleType = vt
	s.brand = ""
	s.models = nil
	s.yearFuels = nil
	return true
}

// SetBrand selects the brand and reports whether it changed.
func (s *Session) SetBrand(brand string) bool {
	if brand == s.brand {
		return false
	}
	s.brand = brand
	s.models = nil
	s.yearFuels = nil
	return true
}

// SetModels selects the models and reports whether the selection changed.
func (s *Session) SetModels(models []string) bool {
	if slices.Equal(models, s.models) {
		return false
	}
	s.models = slices.Clone(models)
	s.yearFuels = nil
	return true
}

// SetYearFuels selects the year/fuel labels.
func (s *Session) SetYearFuels(labels []string) {
	s.yearFuels = slices.Clone(labels)
}

// Stage reports how far the recorded choices go.
func (s *Session) Stage() Stage {
	switch {
	case !s.vehicleType.Valid():
		return AwaitingType
	case s.brand == "":
		return AwaitingBrand
	case len(s.models) == 0:
		return AwaitingModel
	case len(s.yearFuels) == 0:
		return AwaitingYearFuel
	}
	return Ready
}

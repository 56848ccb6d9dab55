package interval

import (
	"errors"
	"time"
)

var (
	ErrInvalidTimeRange = errors.New("interval: invalid time range")
	ErrBillingUnit      = errors.New("interval: billing unit must be positive")
)

// TimeRange представляет временной интервал [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// NewTimeRange создаёт интервал и делает простую валидацию:
// границы заданы, Start строго раньше End.
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if start.IsZero() || end.IsZero() {
		return TimeRange{}, ErrInvalidTimeRange
	}
	if !end.After(start) {
		return TimeRange{}, ErrInvalidTimeRange
	}
	return TimeRange{Start: start.UTC(), End: end.UTC()}, nil
}

// Duration возвращает длительность интервала.
func (tr TimeRange) Duration() time.Duration {
	return tr.End.Sub(tr.Start)
}

// Overlaps проверяет пересечение полуоткрытых интервалов:
// [s1,e1) и [s2,e2) пересекаются, если s1 < e2 && s2 < e1.
// Касание концами (e1 == s2) пересечением не считается.
func (tr TimeRange) Overlaps(other TimeRange) bool {
	return tr.Start.Before(other.End) && other.Start.Before(tr.End)
}

// HasOverlap проверяет, пересекается ли newRange с existing,
// и возвращает список конфликтующих интервалов.
func HasOverlap(newRange TimeRange, existing []TimeRange) (bool, []TimeRange) {
	var conflicts []TimeRange
	for _, tr := range existing {
		if newRange.Overlaps(tr) {
			conflicts = append(conflicts, tr)
		}
	}
	return len(conflicts) > 0, conflicts
}

// BillableUnits возвращает число тарифицируемых единиц интервала:
// округление вверх до ближайшей полной единицы (неполный час
// оплачивается как полный).
func BillableUnits(tr TimeRange, unit time.Duration) (int, error) {
	if unit <= 0 {
		return 0, ErrBillingUnit
	}
	d := tr.Duration()
	units := int(d / unit)
	if d%unit != 0 {
		units++
	}
	return units, nil
}

// Cost считает стоимость интервала в токенах по часовой ставке ресурса.
func Cost(tr TimeRange, hourlyCost int, unit time.Duration) (int, error) {
	units, err := BillableUnits(tr, unit)
	if err != nil {
		return 0, err
	}
	return units * hourlyCost, nil
}

package query

import (
	"errors"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

var ErrInvalidTimeRange = errors.New("invalid time range")

// Resolve превращает декларативное окно в конкретные даты включительно.
// Функция детерминирована относительно переданного "сегодня".
func Resolve(tr TimeRange, today time.Time) (time.Time, time.Time, error) {
	day := truncateToDay(today)

	switch tr.Mode {
	case ModePreset:
		return resolvePreset(tr.Preset, day)
	case ModeRelative:
		return resolveRelative(tr, day)
	case ModeCustom:
		return resolveCustom(tr)
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("%w: unknown mode %q", ErrInvalidTimeRange, tr.Mode)
	}
}

// MonthBounds возвращает первый и последний день месяца указанной даты.
func MonthBounds(day time.Time) (time.Time, time.Time) {
	first := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
	last := first.AddDate(0, 1, -1)
	return first, last
}

func resolvePreset(preset string, today time.Time) (time.Time, time.Time, error) {
	switch preset {
	case "ytd":
		start := time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, today.Location())
		return start, today, nil
	case "last_month":
		// Шаг на день назад от первого числа текущего месяца, чтобы
		// не промахнуться на месяцах разной длины.
		thisFirst, _ := MonthBounds(today)
		prevLastDay := thisFirst.AddDate(0, 0, -1)
		start, end := MonthBounds(prevLastDay)
		return start, end, nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("%w: unknown preset %q", ErrInvalidTimeRange, preset)
	}
}

func resolveRelative(tr TimeRange, today time.Time) (time.Time, time.Time, error) {
	if tr.Last <= 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: relative range requires positive last", ErrInvalidTimeRange)
	}

	// Месяцы и годы считаются календарно, без фиксированных множителей дней.
	var start time.Time
	switch tr.Unit {
	case UnitDays:
		start = today.AddDate(0, 0, -tr.Last)
	case UnitWeeks:
		start = today.AddDate(0, 0, -tr.Last*7)
	case UnitMonths:
		start = today.AddDate(0, -tr.Last, 0)
	case UnitYears:
		start = today.AddDate(-tr.Last, 0, 0)
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("%w: unknown unit %q", ErrInvalidTimeRange, tr.Unit)
	}

	return start, today, nil
}

func resolveCustom(tr TimeRange) (time.Time, time.Time, error) {
	if tr.Start == "" || tr.End == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: custom range requires start and end", ErrInvalidTimeRange)
	}

	start, err := time.Parse(dateLayout, tr.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: bad start date %q", ErrInvalidTimeRange, tr.Start)
	}

	end, err := time.Parse(dateLayout, tr.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: bad end date %q", ErrInvalidTimeRange, tr.End)
	}

	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start is after end", ErrInvalidTimeRange)
	}

	return start, end, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

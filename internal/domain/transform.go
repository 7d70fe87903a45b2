package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidRecord marks records that can never be applied. The pipeline
// skips them instead of retrying.
var ErrInvalidRecord = errors.New("invalid observation record")

// dateOnly is accepted alongside RFC 3339 for daily series.
const dateOnly = "2006-01-02"

// ParseRawEvent deserializes a RawEvent's value into a validated Observation.
func ParseRawEvent(raw RawEvent) (Observation, error) {
	var rec RawRecord
	if err := json.Unmarshal(raw.Value, &rec); err != nil {
		return Observation{}, fmt.Errorf("parse raw event: %w", err)
	}
	obs, err := NormalizeRecord(rec)
	if err != nil {
		return Observation{}, fmt.Errorf("parse raw event: %w", err)
	}
	return obs, nil
}

// NormalizeRecord trims and validates rec, derives its ID and stamps
// ReceivedAt.
func NormalizeRecord(rec RawRecord) (Observation, error) {
	obs := Observation{
		Type:      ObservationType(strings.ToLower(strings.TrimSpace(rec.Type))),
		Indicator: strings.TrimSpace(rec.Indicator),
		Station:   strings.TrimSpace(rec.Station),
		Series:    Series(strings.ToLower(strings.TrimSpace(rec.Series))),
		Gauge:     strings.TrimSpace(rec.Gauge),
		Parameter: strings.TrimSpace(rec.Parameter),
		Class:     strings.TrimSpace(rec.Class),
		Question:  strings.TrimSpace(rec.Question),
		User:      strings.TrimSpace(rec.User),
		Comment:   strings.TrimSpace(rec.Comment),
		Value:     rec.Value,
		Area:      rec.Area,
		Weight:    rec.Weight,
	}

	var err error
	switch obs.Type {
	case TypeDischarge:
		err = validateDischarge(&obs, rec.Time)
	case TypeWaterQuality:
		err = validateWaterQuality(&obs, rec.Time)
	case TypeLandCover:
		err = validateLandCover(&obs)
	case TypeSurveyAnswer:
		err = validateSurveyAnswer(&obs)
	case TypeManualScore:
		err = validateManualScore(&obs)
	default:
		err = fmt.Errorf("%w: unknown type %q", ErrInvalidRecord, rec.Type)
	}
	if err != nil {
		return Observation{}, err
	}

	obs.ID = generateID(obs)
	obs.ReceivedAt = clock.Now()
	return obs, nil
}

func validateDischarge(obs *Observation, ts string) error {
	if obs.Station == "" {
		return missing("station")
	}
	if obs.Series != SeriesRegulated && obs.Series != SeriesUnregulated {
		return fmt.Errorf("%w: series must be %q or %q, got %q", ErrInvalidRecord, SeriesRegulated, SeriesUnregulated, obs.Series)
	}
	return requireTimedValue(obs, ts)
}

func validateWaterQuality(obs *Observation, ts string) error {
	if obs.Gauge == "" {
		return missing("gauge")
	}
	if obs.Parameter == "" {
		return missing("parameter")
	}
	return requireTimedValue(obs, ts)
}

func validateLandCover(obs *Observation) error {
	if obs.Class == "" {
		return missing("class")
	}
	if obs.Area != nil && (*obs.Area < 0 || !finite(*obs.Area)) {
		return fmt.Errorf("%w: area must be a non-negative number", ErrInvalidRecord)
	}
	if obs.Weight != nil && !finite(*obs.Weight) {
		return fmt.Errorf("%w: weight must be a number", ErrInvalidRecord)
	}
	return nil
}

// validateSurveyAnswer accepts a missing value (skipped question) but
// otherwise requires an integer on the 1-5 scale.
func validateSurveyAnswer(obs *Observation) error {
	if obs.Indicator == "" {
		return missing("indicator")
	}
	if obs.Question == "" {
		return missing("question")
	}
	if obs.Value == nil {
		return nil
	}
	v := *obs.Value
	if v != math.Trunc(v) || v < 1 || v > 5 {
		return fmt.Errorf("%w: survey answer must be an integer from 1 to 5, got %g", ErrInvalidRecord, v)
	}
	return nil
}

func validateManualScore(obs *Observation) error {
	if obs.Indicator == "" {
		return missing("indicator")
	}
	if obs.Value == nil {
		return missing("value")
	}
	v := *obs.Value
	if v != math.Trunc(v) || v < 0 || v > 100 {
		return fmt.Errorf("%w: manual score must be an integer from 0 to 100, got %g", ErrInvalidRecord, v)
	}
	return nil
}

func requireTimedValue(obs *Observation, ts string) error {
	t, err := parseTime(ts)
	if err != nil {
		return err
	}
	obs.Time = t
	if obs.Value == nil {
		return missing("value")
	}
	if !finite(*obs.Value) {
		return fmt.Errorf("%w: value must be a finite number", ErrInvalidRecord)
	}
	return nil
}

// parseTime accepts RFC 3339 timestamps or bare dates, both in UTC.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, missing("time")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: time %q is neither RFC 3339 nor YYYY-MM-DD", ErrInvalidRecord, s)
	}
	return t, nil
}

func missing(field string) error {
	return fmt.Errorf("%w: %s is required", ErrInvalidRecord, field)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// generateID produces a deterministic ID from the observation's key fields so
// that replayed messages can be recognized downstream.
func generateID(obs Observation) string {
	fields := []string{
		string(obs.Type), obs.Indicator, obs.Station, string(obs.Series),
		obs.Gauge, obs.Parameter, obs.Class, obs.Question, obs.User,
		formatTime(obs.Time), formatFloat(obs.Value), formatFloat(obs.Area), formatFloat(obs.Weight),
	}
	hash := sha256.Sum256([]byte(strings.Join(fields, "|")))
	return string(obs.Type) + "-" + hex.EncodeToString(hash[:8])
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

package domain

import (
	"context"
	"time"
)

// ObservationType names the kind of raw data an ingest record carries.
type ObservationType string

const (
	TypeDischarge    ObservationType = "discharge"
	TypeWaterQuality ObservationType = "water_quality"
	TypeLandCover    ObservationType = "land_cover"
	TypeSurveyAnswer ObservationType = "survey_answer"
	TypeManualScore  ObservationType = "manual_score"
)

// Series distinguishes the two discharge series of a flow station.
type Series string

const (
	SeriesRegulated   Series = "regulated"
	SeriesUnregulated Series = "unregulated"
)

// RawRecord is the flat JSON produced by upstream collectors. Which fields are
// meaningful depends on Type.
type RawRecord struct {
	Type      string   `json:"type"`
	Indicator string   `json:"indicator,omitempty"`
	Station   string   `json:"station,omitempty"`
	Series    string   `json:"series,omitempty"`
	Gauge     string   `json:"gauge,omitempty"`
	Parameter string   `json:"parameter,omitempty"`
	Class     string   `json:"class,omitempty"`
	Question  string   `json:"question,omitempty"`
	User      string   `json:"user,omitempty"`
	Comment   string   `json:"comment,omitempty"`
	Time      string   `json:"time,omitempty"`
	Value     *float64 `json:"value,omitempty"`
	Area      *float64 `json:"area,omitempty"`
	Weight    *float64 `json:"weight,omitempty"`
}

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Observation is a validated ingest record ready to be applied to a basin
// model.
type Observation struct {
	ID   string          `json:"id"`
	Type ObservationType `json:"type"`

	// Indicator names the target leaf. Optional for discharge, water quality
	// and land cover, which default to the basin's single leaf of that kind.
	Indicator string `json:"indicator,omitempty"`

	Station   string `json:"station,omitempty"`
	Series    Series `json:"series,omitempty"`
	Gauge     string `json:"gauge,omitempty"`
	Parameter string `json:"parameter,omitempty"`

	Class  string   `json:"class,omitempty"`
	Area   *float64 `json:"area,omitempty"`
	Weight *float64 `json:"weight,omitempty"`

	Question string `json:"question,omitempty"`
	User     string `json:"user,omitempty"`
	Comment  string `json:"comment,omitempty"`

	Time time.Time `json:"time,omitzero"`
	// Value is nil only for skipped survey answers.
	Value *float64 `json:"value,omitempty"`

	ReceivedAt time.Time `json:"received_at"`
}

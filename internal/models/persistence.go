package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// StatsKey is the storage key the stats blob lives under.
const StatsKey = "poetryGameStats"

var validate = validator.New()

// wireStats mirrors Stats with pointers so missing fields are detectable.
type wireStats struct {
	CompletedRounds   *int `json:"completedRounds" validate:"required,gte=0"`
	WonRounds         *int `json:"wonRounds" validate:"required,gte=0"`
	BestResponseTime  *int `json:"bestResponseTime" validate:"required,gte=0"`
	TotalResponseTime *int `json:"totalResponseTime" validate:"required,gte=0"`
	TotalResponses    *int `json:"totalResponses" validate:"required,gte=0"`
}

// MarshalStats encodes the stats record as stored.
func MarshalStats(s Stats) ([]byte, error) {
	return json.Marshal(s)
}

// UnmarshalStats decodes a stored blob. Any blob that is not exactly the
// five non-negative counters is rejected.
func UnmarshalStats(data []byte) (Stats, error) {
	var w wireStats
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&w); err != nil {
		return Stats{}, fmt.Errorf("decode stats: %w", err)
	}
	if dec.More() {
		return Stats{}, errors.New("decode stats: trailing data after record")
	}
	if err := validate.Struct(w); err != nil {
		return Stats{}, fmt.Errorf("invalid stats: %w", err)
	}
	return Stats{
		CompletedRounds:   *w.CompletedRounds,
		WonRounds:         *w.WonRounds,
		BestResponseTime:  *w.BestResponseTime,
		TotalResponseTime: *w.TotalResponseTime,
		TotalResponses:    *w.TotalResponses,
	}, nil
}

package models

import (
	"time"
)

// Sample is a single timestamped reading of one parameter.
type Sample struct {
	Time  time.Time `json:"time"`
	Value float32   `json:"value"`
}

// ParameterStream holds the samples of one parameter, ascending by time.
type ParameterStream struct {
	Parameter Parameter
	Samples   []Sample
}

// Empty reports whether the stream recorded nothing.
func (s ParameterStream) Empty() bool {
	return len(s.Samples) == 0
}

// Position pairs a longitude and latitude sampled at the same instant.
type Position struct {
	Time      time.Time `json:"time"`
	Longitude float32   `json:"longitude"`
	Latitude  float32   `json:"latitude"`
}

// Vessel is a vessel known to the data hub.
type Vessel struct {
	VesselID string `json:"vessel_id"`
}

func (v Vessel) String() string {
	return v.VesselID
}

package processor

import (
	"sort"

	"pontosflow/models"
)

// PairPositions joins longitude and latitude samples that share a timestamp.
// Both inputs must already be ascending by time. A sample without a partner
// at the same instant is dropped, as is whatever remains of one stream once
// the other is exhausted. Repeated timestamps pair up in arrival order.
func PairPositions(longitude, latitude []models.Sample) []models.Position {
	n := len(longitude)
	if len(latitude) < n {
		n = len(latitude)
	}
	positions := make([]models.Position, 0, n)

	i, j := 0, 0
	for i < len(longitude) && j < len(latitude) {
		lng, lat := longitude[i], latitude[j]
		switch {
		case lng.Time.Before(lat.Time):
			i++
		case lng.Time.Equal(lat.Time):
			positions = append(positions, models.Position{
				Time:      lng.Time,
				Longitude: lng.Value,
				Latitude:  lat.Value,
			})
			i++
			j++
		default:
			j++
		}
	}
	return positions
}

// sortSamples orders samples by time in place, keeping the arrival order of
// equal timestamps.
func sortSamples(samples []models.Sample) {
	sort.SliceStable(samples, func(a, b int) bool {
		return samples[a].Time.Before(samples[b].Time)
	})
}

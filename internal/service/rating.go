package service

import (
	"math"

	"github.com/sakif/yamdb/internal/model"
)

// RoundRating rounds a mean score to one decimal place. nil stays nil: a
// title with no reviews has no rating, which is not the same as 0.
func RoundRating(mean *float64) *float64 {
	if mean == nil {
		return nil
	}
	r := math.Round(*mean*10) / 10
	return &r
}

func withRating(t *model.Title) *model.Title {
	t.Rating = RoundRating(t.Rating)
	return t
}

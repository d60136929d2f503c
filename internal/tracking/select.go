package tracking

import "github.com/prodline-labs/prodline-go/internal/domain"

// SelectForStart returns the index of the in-progress track with the lowest
// product id that may start position.
func SelectForStart(tracks []Track, position int) (int, bool) {
	return lowest(tracks, func(t Track) bool {
		return t.Product.Status == domain.ProductInProgress && t.CanStart(position)
	})
}

// SelectForStop returns the index of the track with the lowest product id
// currently occupying position.
func SelectForStop(tracks []Track, position int) (int, bool) {
	return lowest(tracks, func(t Track) bool {
		return t.Occupies(position)
	})
}

func lowest(tracks []Track, match func(Track) bool) (int, bool) {
	best := -1
	for i, t := range tracks {
		if !match(t) {
			continue
		}
		if best < 0 || t.Product.ID < tracks[best].Product.ID {
			best = i
		}
	}
	return best, best >= 0
}

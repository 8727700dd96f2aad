package planning

import (
	"fmt"
	"time"

	"github.com/mamadbah2/lineplan/internal/domain/models"
	"github.com/mamadbah2/lineplan/internal/store"
)

var lineSeries = []string{"A", "B", "C", "D"}

// NextLineID returns the first free LINE-{A..D}{01..99} identifier.
func NextLineID(state store.State) (models.LineID, error) {
	for _, series := range lineSeries {
		for n := 1; n < 100; n++ {
			id := models.LineID(fmt.Sprintf("LINE-%s%02d", series, n))
			if _, taken := state.Line(id); !taken {
				return id, nil
			}
		}
	}
	return "", fmt.Errorf("%w: line identifier space exhausted", models.ErrDuplicateID)
}

// NextOrderID returns the first free ORD-{year}-{NNN} identifier for now's year.
func NextOrderID(state store.State, now time.Time) (models.OrderID, error) {
	for n := 1; n < 10000; n++ {
		id := models.OrderID(fmt.Sprintf("ORD-%d-%03d", now.Year(), n))
		if _, taken := state.Order(id); !taken {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: order identifier space exhausted for %d", models.ErrDuplicateID, now.Year())
}

// Package collision detects intersections between moving gatherers and
// static items within a single simulation tick.
//
// A gatherer is modeled as the segment between its position at the start
// and at the end of the tick plus a capture half-width; an item is a point
// with its own half-width. Events are reported in the order they occur
// along the tick, with time expressed as a fraction of the displacement
// (0 at the segment start, 1 at its end).
package collision

import (
	"sort"

	"github.com/skoryh/dogtown/internal/geom"
)

// Item is a static collision target.
type Item struct {
	Position geom.Position
	Width    float64
}

// Gatherer is a moving entity that collects items it passes.
type Gatherer struct {
	StartPos geom.Position
	EndPos   geom.Position
	Width    float64
}

// ItemGathererProvider exposes the items and gatherers of one detection
// pass. Indices returned in events refer to this provider's ordering.
type ItemGathererProvider interface {
	ItemsCount() int
	Item(idx int) Item
	GatherersCount() int
	Gatherer(idx int) Gatherer
}

// GatheringEvent reports that a gatherer passed within capture distance of
// an item. Time is the fraction of the gatherer's displacement at the
// closest approach.
type GatheringEvent struct {
	ItemID     int
	GathererID int
	SqDistance float64
	Time       float64
}

// collectResult holds the projection of an item onto a gatherer segment.
type collectResult struct {
	sqDistance float64
	projRatio  float64
}

// tryCollectPoint projects point c onto the segment a->b. The displacement
// must be non-zero; callers skip stationary gatherers.
func tryCollectPoint(a, b, c geom.Position) collectResult {
	ux := c.X - a.X
	uy := c.Y - a.Y
	vx := b.X - a.X
	vy := b.Y - a.Y
	uDotV := ux*vx + uy*vy
	uLen2 := ux*ux + uy*uy
	vLen2 := vx*vx + vy*vy

	return collectResult{
		sqDistance: uLen2 - (uDotV*uDotV)/vLen2,
		projRatio:  uDotV / vLen2,
	}
}

// FindGatherEvents computes every (gatherer, item) intersection for the
// provider and returns the events sorted ascending by time. The sort is
// stable, so simultaneous events keep provider order. Gatherers with zero
// displacement produce no events.
//
// The capture predicate compares the perpendicular distance against the
// gatherer's width only; an item's own width does not take part, so a
// provider whose items have their own reach has to fold it into the
// gatherer width it reports.
func FindGatherEvents(provider ItemGathererProvider) []GatheringEvent {
	var events []GatheringEvent

	for g := 0; g < provider.GatherersCount(); g++ {
		gatherer := provider.Gatherer(g)
		if gatherer.StartPos == gatherer.EndPos {
			continue
		}

		for i := 0; i < provider.ItemsCount(); i++ {
			item := provider.Item(i)
			result := tryCollectPoint(gatherer.StartPos, gatherer.EndPos, item.Position)

			if result.projRatio >= 0 && result.projRatio <= 1 &&
				result.sqDistance <= gatherer.Width*gatherer.Width {
				events = append(events, GatheringEvent{
					ItemID:     i,
					GathererID: g,
					SqDistance: result.sqDistance,
					Time:       result.projRatio,
				})
			}
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Time < events[j].Time
	})

	return events
}

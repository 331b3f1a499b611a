package percentile

import (
	"fmt"
	"sort"
)

// ZoneAll is the zone containing every bin; its statistics must equal
// the global unfiltered statistics for every horizon.
const ZoneAll = "all"

// ZoneEntry is the default low-percentile entry zone.
const ZoneEntry = "entry_zone"

// ZoneSet maps zone names to the bin indices they contain.
type ZoneSet map[string][]int

// DefaultZones returns the documented default zone layout for K bins:
// "entry_zone" covering the lowest two bins and "all" covering every bin.
func DefaultZones(k int) ZoneSet {
	all := make([]int, k)
	for i := range all {
		all[i] = i
	}
	entry := []int{0}
	if k > 1 {
		entry = []int{0, 1}
	}
	return ZoneSet{ZoneEntry: entry, ZoneAll: all}
}

// WithAll returns a copy of the set guaranteed to contain the "all"
// zone covering every bin. Configured zone sets may omit it; the zone
// is required so "all" statistics always reproduce the global ones.
func (z ZoneSet) WithAll(k int) ZoneSet {
	if _, ok := z[ZoneAll]; ok {
		return z
	}
	out := make(ZoneSet, len(z)+1)
	for name, bins := range z {
		out[name] = bins
	}
	all := make([]int, k)
	for i := range all {
		all[i] = i
	}
	out[ZoneAll] = all
	return out
}

// Validate checks every zone references bins inside [0, k).
func (z ZoneSet) Validate(k int) error {
	for name, bins := range z {
		if len(bins) == 0 {
			return fmt.Errorf("zone %q has no bins", name)
		}
		for _, b := range bins {
			if b < 0 || b >= k {
				return fmt.Errorf("zone %q references bin %d outside [0,%d)", name, b, k)
			}
		}
	}
	return nil
}

// Names returns the zone names in sorted order for deterministic output.
func (z ZoneSet) Names() []string {
	names := make([]string, 0, len(z))
	for name := range z {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ZoneStats is the per-horizon statistics of one zone, pooled from the
// raw forward returns of its member bins rather than averaged across
// per-bin cells.
type ZoneStats struct {
	Bins     []int             `json:"bins"`
	Horizons map[int]CellStats `json:"horizons"`
}

// AggregateZones computes zone statistics from the aggregator's pools.
func AggregateZones(agg *Aggregator, zones ZoneSet) map[string]ZoneStats {
	out := make(map[string]ZoneStats, len(zones))
	for _, name := range zones.Names() {
		bins := append([]int(nil), zones[name]...)
		sort.Ints(bins)
		out[name] = ZoneStats{Bins: bins, Horizons: agg.Pool(bins)}
	}
	return out
}

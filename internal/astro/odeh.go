package astro

// Classification is the visibility verdict for one observer and evening.
// The order is meaningful: higher values are easier sightings, and the two
// lowest values are the non-geometric outcomes.
type Classification int

const (
	// Undetermined means the geometry could not be resolved (no sunset or no
	// moonset within the search window, typically polar conditions).
	Undetermined Classification = iota
	// Impossible means no crescent can exist that evening: the moon sets at
	// or before sunset, or the conjunction falls within the night itself.
	Impossible
	NotVisible
	VisibleWithOpticalAid
	VisibleUnderPerfectConditions
	EasilyVisible
)

// Visibility tier thresholds on the Odeh V value, inclusive on the higher tier.
const (
	easilyVisibleMin     = 5.65
	perfectConditionsMin = 2.0
	opticalAidMin        = -0.96
)

func (c Classification) String() string {
	switch c {
	case EasilyVisible:
		return "easily_visible"
	case VisibleUnderPerfectConditions:
		return "visible_perfect_conditions"
	case VisibleWithOpticalAid:
		return "visible_optical_aid"
	case NotVisible:
		return "not_visible"
	case Impossible:
		return "impossible"
	default:
		return "undetermined"
	}
}

// MarshalText makes classifications render as their names in JSON payloads.
func (c Classification) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Visible reports whether the crescent can be sighted at all, with or without
// optical aid. This is the predicate month inheritance uses.
func (c Classification) Visible() bool {
	return c >= VisibleWithOpticalAid
}

// ClassifyV maps an Odeh V value onto its visibility tier. Boundary values
// belong to the higher tier.
func ClassifyV(v float64) Classification {
	switch {
	case v >= easilyVisibleMin:
		return EasilyVisible
	case v >= perfectConditionsMin:
		return VisibleUnderPerfectConditions
	case v >= opticalAidMin:
		return VisibleWithOpticalAid
	default:
		return NotVisible
	}
}

// odehLimit is the empirical minimum ARCV at which a crescent of width w
// arcminutes becomes visible.
func odehLimit(w float64) float64 {
	return -0.1018*w*w*w + 0.7319*w*w - 6.3226*w + 7.1651
}

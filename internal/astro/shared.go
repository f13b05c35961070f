package astro

// SharedNightResult describes the overlap between two night windows.
type SharedNightResult struct {
	Overlaps       bool
	OverlapMinutes float64
}

// SharedNight reports whether two night windows overlap and by how much.
// Commutative: SharedNight(a, b) == SharedNight(b, a).
func SharedNight(a, b NightWindow) SharedNightResult {
	start := a.Start
	if b.Start.After(start) {
		start = b.Start
	}
	end := a.End
	if b.End.Before(end) {
		end = b.End
	}
	if !start.Before(end) {
		return SharedNightResult{}
	}
	return SharedNightResult{
		Overlaps:       true,
		OverlapMinutes: end.Sub(start).Minutes(),
	}
}

// EarlierOrSameNight reports whether candidate's night begins no later than
// target's: the sunset-order donor rule. Only a location at or east of the
// target (by night start) may donate a sighting to it.
func EarlierOrSameNight(target, candidate NightWindow) bool {
	return !candidate.Start.After(target.Start)
}

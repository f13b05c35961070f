// Package astro implements the crescent-visibility geometry: sunset/moonset
// lag, the Odeh visibility criterion, night windows, and shared-night overlap.
//
// # Conventions
//
// Angles are degrees unless a name says otherwise (crescent width is
// arcminutes). Altitudes are topocentric and airless: no atmospheric
// refraction is applied, matching the criterion's calibration data.
// Distances are astronomical units at the ephemeris boundary and kilometres
// internally.
//
// An input date always means "the local evening of that calendar date". The
// calendar date is taken from the given time.Time and re-anchored to midnight
// in a longitude-derived zone of round(longitude/15) hours. That zone exists
// only to pick the right evening for an arbitrary point on Earth; it is never
// a civil timezone. See [LongitudeZone].
//
// # Odeh Criterion
//
// Classification follows M. Odeh, "New Criterion for Lunar Crescent
// Visibility", Experimental Astronomy 18 (2004). At the best observation time
// (sunset + 4/9 of the sunset-to-moonset lag):
//
//	ARCV = altitude(Moon) - altitude(Sun)      (degrees, topocentric, airless)
//	W    = s * (1 - cos e)                     (arcminutes, e the elongation)
//	V    = ARCV - (-0.1018*W^3 + 0.7319*W^2 - 6.3226*W + 7.1651)
//
// where e is the geocentric Sun-Moon elongation and s the lunar semidiameter
// derived from the geocentric distance (s = 0.272481*pi, pi the equatorial
// horizontal parallax). Tiers, inclusive on the higher tier:
//
//	V >= 5.65           easily visible to the naked eye
//	2 <= V < 5.65       visible under perfect atmospheric conditions
//	-0.96 <= V < 2      visible with optical aid only
//	V < -0.96           not visible
//
// Two outcomes bypass the optical criterion entirely: Impossible (the moon
// sets at or before sunset, or the conjunction falls between sunset and the
// following sunrise, so no crescent exists that evening) and Undetermined
// (sunset or moonset could not be resolved, typically polar conditions).
// Callers treat both as "not directly visible".
//
// # Night Windows and Shared Nights
//
// A night window is [sunset, astronomical dawn): it ends at the first instant
// after sunset at which the Sun, moving upward, reaches -18 degrees, the
// morning boundary of astronomical darkness. When the sky never gets
// astronomically dark the window falls back to the next sunrise, and when
// that does not exist either (polar day/night) the window is undefined and
// the location drops out of shared-night reasoning for the date. Two locations "share the
// night" when their windows overlap; a location that cannot see the crescent
// itself may inherit the month start from one that can, provided their nights
// overlap and the donor's night begins no later than the target's.
package astro

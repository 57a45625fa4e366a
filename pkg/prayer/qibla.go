package prayer

import "math"

// Kaaba is the reference point of the Qibla bearing.
var Kaaba = Coordinates{Latitude: 21.4225241, Longitude: 39.8261818, Label: "Kaaba, Makkah"}

// Qibla returns the initial great-circle bearing from c to the Kaaba in
// degrees clockwise from true north, in [0, 360).
func Qibla(c Coordinates) (float64, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	dLng := Kaaba.Longitude - c.Longitude
	y := sinDeg(dLng)
	x := cosDeg(c.Latitude)*tanDeg(Kaaba.Latitude) - sinDeg(c.Latitude)*cosDeg(dLng)
	return fixAngle(arctan2Deg(y, x)), nil
}

// CompassPoint names the 16-wind compass sector of a bearing.
func CompassPoint(bearing float64) string {
	points := [...]string{"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE", "S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW"}
	i := int(math.Floor(fixAngle(bearing)/22.5+0.5)) % len(points)
	return points[i]
}

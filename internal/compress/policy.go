package compress

import "math"

const (
	kilobyte = 1024

	// AbsoluteFloor is the lowest quality ever used, whatever the band says.
	AbsoluteFloor = 0.75
	// Tolerance is how far (in bytes) a probe may land from the target and still be accepted.
	Tolerance = 25 * kilobyte
	// MaxProbes bounds the binary search after the first attempt at the ceiling.
	MaxProbes = 6
)

// Band is one row of the size policy. Smaller originals keep more quality
// and are reduced less than larger ones.
type Band struct {
	// MaxKB is the inclusive upper bound of the band, 0 for unbounded.
	MaxKB       float64
	Ratio       float64
	MinTargetKB float64
	Ceiling     float64
	Floor       float64
}

// Bands lists the policy from the smallest originals to the largest.
var Bands = []Band{
	{MaxKB: 100, Ratio: 0.9, MinTargetKB: 80, Ceiling: 0.98, Floor: 0.92},
	{MaxKB: 300, Ratio: 0.7, MinTargetKB: 150, Ceiling: 0.95, Floor: 0.88},
	{MaxKB: 600, Ratio: 0.5, MinTargetKB: 250, Ceiling: 0.92, Floor: 0.82},
	{MaxKB: 0, Ratio: 0.4, MinTargetKB: 350, Ceiling: 0.90, Floor: 0.78},
}

// BandFor selects the band for an original of size bytes.
func BandFor(size int64) Band {
	kb := float64(size) / kilobyte
	for _, band := range Bands {
		if band.MaxKB == 0 || kb <= band.MaxKB {
			return band
		}
	}
	return Bands[len(Bands)-1]
}

// TargetFor returns the target output size in bytes for an original of size bytes.
func TargetFor(size int64) int {
	band := BandFor(size)
	kb := float64(size) / kilobyte
	targetKB := math.Max(band.Ratio*kb, band.MinTargetKB)
	return int(math.Round(targetKB * kilobyte))
}

package trophies

// Band is the performance classification of a member's weekly gain.
type Band int

const (
	BandNone Band = iota
	BandTop
	BandMid
	BandLow
)

const (
	TopBandDelta = 300
	MidBandDelta = 225
)

// Classify maps a weekly delta to a band. A member with no previous value
// is always top band.
func Classify(delta int, hasPrevious bool) Band {
	switch {
	case !hasPrevious:
		return BandTop
	case delta >= TopBandDelta:
		return BandTop
	case delta >= MidBandDelta:
		return BandMid
	default:
		return BandLow
	}
}

func (b Band) String() string {
	switch b {
	case BandTop:
		return "top"
	case BandMid:
		return "mid"
	case BandLow:
		return "low"
	default:
		return "none"
	}
}

// Color is the cell background used to render the band, as RGB hex.
func (b Band) Color() string {
	switch b {
	case BandTop:
		return "00FF00"
	case BandMid:
		return "FFFF00"
	case BandLow:
		return "FF0000"
	default:
		return ""
	}
}

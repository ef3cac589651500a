package schedulerobjects

// Affinity is the per-query commitment level of a node.
// The allocation engine only considers nodes at the level it is asked for.
type Affinity int

const (
	AffinityNone Affinity = iota
	AffinityRequired
	AffinityPositive
	AffinityNeutral
	AffinityNegative
	AffinityPreemptible
	// AffinityUnavailable marks a node consumed earlier in the same query.
	AffinityUnavailable
)

// AffinitySearchOrder is the order in which affinity levels are tried when allocating a request.
var AffinitySearchOrder = []Affinity{
	AffinityRequired,
	AffinityPositive,
	AffinityNeutral,
	AffinityNone,
	AffinityNegative,
	AffinityPreemptible,
}

var affinityNames = map[Affinity]string{
	AffinityNone:        "None",
	AffinityRequired:    "Required",
	AffinityPositive:    "Positive",
	AffinityNeutral:     "Neutral",
	AffinityNegative:    "Negative",
	AffinityPreemptible: "Preemptible",
	AffinityUnavailable: "Unavailable",
}

func (a Affinity) String() string {
	if name, ok := affinityNames[a]; ok {
		return name
	}
	return "Invalid"
}

// Priority is the contribution of the affinity level to the default node priority.
func (a Affinity) Priority() float64 {
	switch a {
	case AffinityPositive:
		return 1
	case AffinityNegative:
		return -1
	case AffinityPreemptible:
		return 5
	default:
		return 0
	}
}

package entities

// Tier identifies which resolution tier produced a configuration tool path
type Tier int

const (
	// TierNone means nothing was found and no fallback was configured
	TierNone Tier = iota
	// TierCandidate is a version-tagged installation
	TierCandidate
	// TierSearchPath is a match on the process search path
	TierSearchPath
	// TierFallback is the fixed fallback path, returned without a check
	TierFallback
)

func (t Tier) String() string {
	switch t {
	case TierCandidate:
		return "candidate"
	case TierSearchPath:
		return "search-path"
	case TierFallback:
		return "fallback"
	default:
		return "none"
	}
}

// Candidate is a version-tagged, conventionally located database installation
type Candidate struct {
	Tag     string // "16"
	Formula string // "postgresql@16"
	BinDir  string // marker directory probed for existence
}

// Resolution is the configuration tool chosen for one run.
type Resolution struct {
	Path      string
	Tier      Tier
	Candidate *Candidate
	Found     bool
}

// Formula returns the formula name the resolution refers to, or def when
// the path did not come from a tagged candidate.
func (r Resolution) Formula(def string) string {
	if r.Candidate != nil {
		return r.Candidate.Formula
	}
	return def
}

package install

// State is a stage of an install run.
type State int

const (
	StateIdle State = iota
	StateChecked
	StateResolved
	StateDownloaded
	StateVerified
	StateExtracted
	StatePruned
	StateCleaned
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:       "idle",
	StateChecked:    "checked",
	StateResolved:   "resolved",
	StateDownloaded: "downloaded",
	StateVerified:   "verified",
	StateExtracted:  "extracted",
	StatePruned:     "pruned",
	StateCleaned:    "cleaned",
	StateDone:       "done",
	StateFailed:     "failed",
}

// String returns the lowercase state name.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// stage names the work done to reach s, for error messages.
func (s State) stage() string {
	switch s {
	case StateChecked:
		return "check destination"
	case StateResolved:
		return "resolve artifact"
	case StateDownloaded:
		return "download"
	case StateVerified:
		return "verify"
	case StateExtracted:
		return "extract"
	case StatePruned:
		return "finalize"
	default:
		return s.String()
	}
}

// Check is the outcome of the destination check.
type Check int

const (
	NeedsInstall Check = iota
	AlreadyInstalled
)

func (c Check) String() string {
	if c == AlreadyInstalled {
		return "already installed"
	}
	return "needs install"
}

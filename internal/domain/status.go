package domain

// Status is the employment contract status code.
// The vocabulary is fixed; whether a status occupies a seat is decided by
// classification (IsActive), not by a transition graph.
type Status string

const (
	// Active-like statuses: these occupy a seat on the position.
	StatusActive    Status = "ACT" // working normally
	StatusSuspended Status = "SUS" // suspended, contract still open
	StatusOnLeave   Status = "PER" // authorized leave (permiso)
	StatusOnRest    Status = "REP" // medical rest (reposo)

	// Terminal-like statuses: these release the seat.
	StatusTerminated Status = "FIN" // contract ended
	StatusResigned   Status = "REN" // employee resigned
	StatusDismissed  Status = "DES" // dismissed
	StatusAnnulled   Status = "ANU" // contract annulled
)

var statusNames = map[Status]string{
	StatusActive:     "Active",
	StatusSuspended:  "Suspended",
	StatusOnLeave:    "On Leave",
	StatusOnRest:     "On Rest",
	StatusTerminated: "Terminated",
	StatusResigned:   "Resigned",
	StatusDismissed:  "Dismissed",
	StatusAnnulled:   "Annulled",
}

// IsActive reports whether the status occupies a seat.
func (s Status) IsActive() bool {
	switch s {
	case StatusActive, StatusSuspended, StatusOnLeave, StatusOnRest:
		return true
	}
	return false
}

// Valid reports whether s is part of the status vocabulary.
func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// Name returns the human-readable status name.
func (s Status) Name() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return string(s)
}

// AllStatuses lists the full status vocabulary.
func AllStatuses() []Status {
	return []Status{
		StatusActive, StatusSuspended, StatusOnLeave, StatusOnRest,
		StatusTerminated, StatusResigned, StatusDismissed, StatusAnnulled,
	}
}

// ExitReason qualifies a move to a terminal-like status.
type ExitReason string

const (
	ExitResignation ExitReason = "REN"
	ExitDismissal   ExitReason = "DES"
	ExitContractEnd ExitReason = "FIN"
	ExitAnnulment   ExitReason = "ANU"
)

var exitLabels = map[ExitReason]string{
	ExitResignation: "Resignation",
	ExitDismissal:   "Dismissal",
	ExitContractEnd: "End of contract",
	ExitAnnulment:   "Annulment",
}

// Valid reports whether the exit reason is known.
func (r ExitReason) Valid() bool {
	_, ok := exitLabels[r]
	return ok
}

// Label returns the human-readable reason used in audit entries.
func (r ExitReason) Label() string {
	if label, ok := exitLabels[r]; ok {
		return label
	}
	return string(r)
}

// HierarchicalRole tags a person's standing within a department,
// independent of any contract.
type HierarchicalRole string

const (
	RoleManager  HierarchicalRole = "MGR"
	RoleEmployee HierarchicalRole = "EMP"
)

// Valid reports whether the role is known.
func (r HierarchicalRole) Valid() bool {
	return r == RoleManager || r == RoleEmployee
}

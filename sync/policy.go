package sync

import "github.com/pkg/errors"

// StatusApproved is the only moderation status served by search in
// filtered mode
const StatusApproved = "Approved"

// Action is the downstream operation a policy decides on for one event
type Action int

const (
	ActionNone Action = iota
	ActionUpsert
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionUpsert:
		return "upsert"
	case ActionDelete:
		return "delete"
	default:
		return "none"
	}
}

// Policy maps a (old status, new status) transition to an index action.
// Create events pass an empty old status. Delete events never consult the
// policy - a deleted row is always removed from the index.
type Policy func(oldStatus, newStatus string) Action

// ApprovedOnlyPolicy materializes only approved listings: transitions into
// Approved upsert, transitions out of Approved delete, refreshes while
// Approved upsert, everything else never touches the index.
func ApprovedOnlyPolicy(oldStatus, newStatus string) Action {
	if newStatus == StatusApproved {
		return ActionUpsert
	}

	if oldStatus == StatusApproved {
		return ActionDelete
	}

	return ActionNone
}

// IndexAllPolicy upserts every create/update regardless of status; the
// status is carried as a filterable field instead. Used during bring-up.
func IndexAllPolicy(_, _ string) Action {
	return ActionUpsert
}

// Policy names accepted on the config surface
const (
	PolicyNameApprovedOnly = "approved-only"
	PolicyNameAll          = "all"
)

// PolicyFromName resolves a configured policy name
func PolicyFromName(name string) (Policy, error) {
	switch name {
	case PolicyNameApprovedOnly:
		return ApprovedOnlyPolicy, nil
	case PolicyNameAll:
		return IndexAllPolicy, nil
	default:
		return nil, errors.Errorf("unrecognized policy '%s'", name)
	}
}

package goLMS

import (
	"github.com/MrEthical07/goLMS/permission"
	"github.com/MrEthical07/goLMS/session"
)

// LMS roles, highest privilege first.
const (
	RoleAdmin             = "admin"
	RoleInstructor        = "instructor"
	RoleTeachingAssistant = "teaching_assistant"
	RoleStudent           = "student"
)

// Actions understood by DefaultPolicy.
const (
	ActionRead   = "read"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionGrade  = "grade"
)

// Resources understood by DefaultPolicy.
const (
	ResourceCourse       = "course"
	ResourceAssignment   = "assignment"
	ResourceSubmission   = "submission"
	ResourceGrade        = "grade"
	ResourceAnnouncement = "announcement"
	ResourceEnrollment   = "enrollment"
	ResourceNotification = "notification"
	ResourcePreference   = "notification_preference"
)

func pairs(action string, resources ...string) []permission.Pair {
	out := make([]permission.Pair, 0, len(resources))
	for _, r := range resources {
		out = append(out, permission.Pair{Action: action, Resource: r})
	}
	return out
}

func concat(groups ...[]permission.Pair) []permission.Pair {
	var out []permission.Pair
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// DefaultPolicy is the LMS rule table: admin holds the root bit, instructor
// and teaching_assistant hold enumerated grants, and student reads course
// material plus a narrow set of writes on its own work and inbox.
func DefaultPolicy() permission.Policy {
	inbox := concat(
		pairs(ActionRead, ResourceNotification, ResourcePreference),
		pairs(ActionUpdate, ResourceNotification, ResourcePreference),
	)

	return permission.Policy{
		Width: 64,
		Rules: []permission.RoleRule{
			{Role: RoleAdmin, All: true},
			{Role: RoleInstructor, Allow: concat(
				pairs(ActionRead, ResourceCourse, ResourceAssignment, ResourceSubmission, ResourceGrade, ResourceAnnouncement, ResourceEnrollment),
				pairs(ActionCreate, ResourceCourse, ResourceAssignment, ResourceAnnouncement),
				pairs(ActionUpdate, ResourceCourse, ResourceAssignment, ResourceGrade, ResourceAnnouncement, ResourceEnrollment),
				pairs(ActionDelete, ResourceAssignment, ResourceAnnouncement),
				pairs(ActionGrade, ResourceSubmission),
				inbox,
			)},
			{Role: RoleTeachingAssistant, Allow: concat(
				pairs(ActionRead, ResourceCourse, ResourceAssignment, ResourceSubmission, ResourceGrade, ResourceAnnouncement),
				pairs(ActionCreate, ResourceAnnouncement),
				pairs(ActionUpdate, ResourceGrade),
				pairs(ActionGrade, ResourceSubmission),
				inbox,
			)},
			{Role: RoleStudent, Allow: concat(
				pairs(ActionRead, ResourceCourse, ResourceAssignment, ResourceGrade, ResourceAnnouncement),
				pairs(ActionCreate, ResourceSubmission),
				pairs(ActionUpdate, ResourceSubmission),
				inbox,
			)},
		},
	}
}

func subjectOf(s session.State) permission.Subject {
	return permission.Subject{Authenticated: s.IsAuthenticated, Roles: s.Roles()}
}

// HasRole reports whether the session is authenticated and its user holds
// at least one of roles.
func (c *Client) HasRole(roles ...string) bool {
	if c == nil || c.gate == nil {
		return false
	}
	return c.gate.HasRole(subjectOf(c.sessions.State()), roles...)
}

// Can reports whether the current user may perform action on resource.
// It never performs I/O.
func (c *Client) Can(action, resource string) bool {
	if c == nil || c.gate == nil {
		return false
	}
	return c.gate.Can(subjectOf(c.sessions.State()), action, resource)
}

// Gate exposes the frozen access gate for callers that evaluate a session
// snapshot they already hold.
func (c *Client) Gate() *permission.Gate {
	if c == nil {
		return nil
	}
	return c.gate
}

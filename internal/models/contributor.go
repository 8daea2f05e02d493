package models

import "time"

// AssignmentRole is the part a contributor plays in a scheduled item.
type AssignmentRole string

const (
	AssignmentRoleHost     AssignmentRole = "Host"
	AssignmentRoleCoHost   AssignmentRole = "CoHost"
	AssignmentRoleGuest    AssignmentRole = "Guest"
	AssignmentRoleReporter AssignmentRole = "Reporter"
)

// Contributor is a paid host, guest or reporter.
type Contributor struct {
	ID          int64     `db:"id" json:"id"`
	UserID      *string   `db:"user_id" json:"user_id,omitempty"`
	FirstName   string    `db:"first_name" json:"first_name"`
	LastName    string    `db:"last_name" json:"last_name"`
	Email       string    `db:"email" json:"email"`
	PhoneNumber string    `db:"phone_number" json:"phone_number"`
	Address     string    `db:"address" json:"address"`
	PhotoURL    string    `db:"photo_url" json:"photo_url"`
	Biography   string    `db:"biography" json:"biography"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// FullName joins first and last name.
func (c Contributor) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// ContributorFilter captures filtering criteria for listing contributors.
type ContributorFilter struct {
	Search   string
	Page     int
	PageSize int
}

// ContributorAssignment links a contributor to a scheduled content item.
type ContributorAssignment struct {
	ID                 int64          `db:"id" json:"id"`
	ContributorID      int64          `db:"contributor_id" json:"contributor_id"`
	ScheduledContentID int64          `db:"scheduled_content_id" json:"scheduled_content_id"`
	Role               AssignmentRole `db:"role" json:"role"`
	AssignedAt         time.Time      `db:"assigned_at" json:"assigned_at"`
}

// AssignmentTotals aggregates a contributor's airtime within a period.
type AssignmentTotals struct {
	TotalSeconds int64 `db:"total_seconds"`
	TotalEvents  int   `db:"total_events"`
}

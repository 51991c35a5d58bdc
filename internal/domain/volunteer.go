package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// VolunteerStatus is the review lifecycle state of a registration.
type VolunteerStatus string

const (
	StatusPending  VolunteerStatus = "pending"
	StatusApproved VolunteerStatus = "approved"
	StatusRejected VolunteerStatus = "rejected"
)

// Valid reports whether s is one of the three lifecycle states.
func (s VolunteerStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Districts are the 25 administrative district codes a volunteer can serve in.
var Districts = []string{
	"colombo",
	"gampaha",
	"kalutara",
	"kandy",
	"matale",
	"nuwara_eliya",
	"galle",
	"matara",
	"hambantota",
	"jaffna",
	"kilinochchi",
	"mannar",
	"vavuniya",
	"mullaitivu",
	"batticaloa",
	"ampara",
	"trincomalee",
	"kurunegala",
	"puttalam",
	"anuradhapura",
	"polonnaruwa",
	"badulla",
	"moneragala",
	"ratnapura",
	"kegalle",
}

// VolunteerTypes are the kinds of work a volunteer can sign up for.
var VolunteerTypes = []string{
	"cleaning",
	"supplies",
	"counseling",
	"entertainment",
	"transportation",
	"medical",
	"appliances",
	"wellCleaning",
	"medicine",
	"technical",
	"social",
}

var (
	AgeRanges       = []string{"18-20", "20-30", "30-40"}
	SexOptions      = []string{"female", "male", "other"}
	DurationOptions = []string{"1", "2", "3", "4", "full"}
)

// IsDistrict reports whether code is one of the fixed district codes.
func IsDistrict(code string) bool {
	return slices.Contains(Districts, code)
}

// IsVolunteerType reports whether t is one of the fixed volunteer types.
func IsVolunteerType(t string) bool {
	return slices.Contains(VolunteerTypes, t)
}

// Volunteer represents a volunteers row.
type Volunteer struct {
	ID                 uuid.UUID       `json:"id"`
	Seq                int64           `json:"seq"`
	Name               string          `json:"name"`
	Email              string          `json:"email"`
	WhatsApp           string          `json:"whatsapp"`
	AgeRange           string          `json:"ageRange"`
	Sex                string          `json:"sex"`
	District           string          `json:"district"`
	CurrentDistrict    string          `json:"currentDistrict,omitempty"`
	VolunteerType      string          `json:"volunteerType"`
	StartDate          time.Time       `json:"startDate"`
	Duration           string          `json:"duration"`
	AvailableDistricts []string        `json:"availableDistricts"`
	Status             VolunteerStatus `json:"status"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// VolunteerFilter narrows a volunteer listing. Empty fields and "all" mean no constraint.
type VolunteerFilter struct {
	Search        string
	District      string
	VolunteerType string
	Status        string
}

// Normalize replaces "all" with the empty string so callers only test for "".
func (f VolunteerFilter) Normalize() VolunteerFilter {
	norm := func(s string) string {
		if s == "all" {
			return ""
		}
		return s
	}
	return VolunteerFilter{
		Search:        f.Search,
		District:      norm(f.District),
		VolunteerType: norm(f.VolunteerType),
		Status:        norm(f.Status),
	}
}

// IsFiltered reports whether any constraint is active.
func (f VolunteerFilter) IsFiltered() bool {
	n := f.Normalize()
	return n.Search != "" || n.District != "" || n.VolunteerType != "" || n.Status != ""
}

// Pagination describes a page of a filtered listing.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// VolunteerPage is one page of volunteers plus its pagination metadata.
type VolunteerPage struct {
	Volunteers []Volunteer `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

// TotalPages returns ceil(total / limit), or 0 when limit is not positive.
func TotalPages(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// DurationLabel renders a duration code for display.
// "full" becomes "Full session (5 days)", "1" becomes "1 day", other codes "N days".
func DurationLabel(code string) string {
	if code == "full" {
		return "Full session (5 days)"
	}
	if code == "1" {
		return "1 day"
	}
	return code + " days"
}

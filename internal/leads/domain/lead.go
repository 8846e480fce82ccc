// Package domain holds the lead entity and its enumerations.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// BusinessType is the prospect's business category.
type BusinessType string

const (
	BusinessSalon      BusinessType = "salon"
	BusinessRestaurant BusinessType = "restaurant"
	BusinessClinic     BusinessType = "clinic"
	BusinessDentist    BusinessType = "dentist"
	BusinessSpa        BusinessType = "spa"
	BusinessGym        BusinessType = "gym"
	BusinessRetail     BusinessType = "retail"
	BusinessOther      BusinessType = "other"
)

// BusinessTypes lists every accepted category in form order.
var BusinessTypes = []BusinessType{
	BusinessSalon, BusinessRestaurant, BusinessClinic, BusinessDentist,
	BusinessSpa, BusinessGym, BusinessRetail, BusinessOther,
}

// Status is a lead's position in the sales lifecycle.
type Status string

const (
	StatusNew           Status = "new"
	StatusContacted     Status = "contacted"
	StatusDemoScheduled Status = "demo_scheduled"
	StatusDemoCompleted Status = "demo_completed"
	StatusProposalSent  Status = "proposal_sent"
	StatusWon           Status = "won"
	StatusLost          Status = "lost"
	StatusNurturing     Status = "nurturing"
)

const (
	// SourceWebsite marks leads captured by the public form.
	SourceWebsite = "website"
	// DefaultUTMSource applies when neither the body nor the query names a source.
	DefaultUTMSource = "direct"
)

// Lead is a persisted prospect. LeadScore is written once at creation.
type Lead struct {
	ID           uuid.UUID
	Name         string
	Email        string
	Company      *string
	Phone        string
	BusinessType BusinessType
	City         string
	Message      *string
	Status       Status
	Source       string
	UTMSource    string
	UTMMedium    *string
	UTMCampaign  *string
	LeadScore    int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UTM holds campaign attribution.
type UTM struct {
	Source   string
	Medium   string
	Campaign string
}

// Merge returns u with empty fields filled from fallback.
func (u UTM) Merge(fallback UTM) UTM {
	if u.Source == "" {
		u.Source = fallback.Source
	}
	if u.Medium == "" {
		u.Medium = fallback.Medium
	}
	if u.Campaign == "" {
		u.Campaign = fallback.Campaign
	}
	return u
}

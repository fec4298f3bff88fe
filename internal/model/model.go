// Package model defines the entities the aggregation engine reads and the
// envelope types every report returns. All entities are created and edited
// by the surrounding CRUD application; the engine only consumes them.
package model

import (
	"encoding/json"
	"time"
)

// ApprovalStatus is the workflow state of a disaster record or event,
// gating its visibility to a given caller.
type ApprovalStatus string

const (
	StatusDraft     ApprovalStatus = "draft"
	StatusPublished ApprovalStatus = "published"
	StatusApproved  ApprovalStatus = "approved"
)

// DisasterEvent is a disaster with national/global naming and a link to
// the hazardous event that caused it. Start/end dates are free text and
// may carry year, year-month, or full-date precision.
type DisasterEvent struct {
	ID               int64          `json:"id"`
	TenantID         int64          `json:"countryAccountsId"`
	ApprovalStatus   ApprovalStatus `json:"approvalStatus"`
	NameNational     string         `json:"nameNational"`
	NameGlobal       string         `json:"nameGlobal"`
	StartDate        string         `json:"startDate"`
	EndDate          string         `json:"endDate"`
	HazardousEventID *int64         `json:"hazardousEventId,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
}

// HazardousEvent carries the hazard taxonomy references for a disaster.
type HazardousEvent struct {
	ID               int64          `json:"id"`
	HazardTypeID     *int64         `json:"hazardTypeId,omitempty"`
	HazardClusterID  *int64         `json:"hazardClusterId,omitempty"`
	SpecificHazardID *int64         `json:"specificHazardId,omitempty"`
	ApprovalStatus   ApprovalStatus `json:"approvalStatus"`
}

// DisasterRecord ties effect/damage/loss rows to a disaster event within
// one sector.
type DisasterRecord struct {
	ID              int64          `json:"id"`
	TenantID        int64          `json:"countryAccountsId"`
	DisasterEventID int64          `json:"disasterEventId"`
	SectorID        int64          `json:"sectorId"`
	ApprovalStatus  ApprovalStatus `json:"approvalStatus"`
	StartDate       string         `json:"startDate"`
	EndDate         string         `json:"endDate"`
	Location        string         `json:"location,omitempty"`
}

// Sector is a node in the sector taxonomy. A nil ParentID marks a root.
type Sector struct {
	ID       int64  `json:"id"`
	ParentID *int64 `json:"parentId,omitempty"`
	Name     string `json:"name"`
}

// Damage holds one sector-scoped damage assessment for a record. Nullable
// numeric fields are pointers; nil means "not entered" and counts as zero
// in every formula.
type Damage struct {
	ID       int64 `json:"id"`
	RecordID int64 `json:"recordId"`
	SectorID int64 `json:"sectorId"`
	AssetID  int64 `json:"assetId"`

	PartialDamageAmount      *float64 `json:"partialDamageAmount,omitempty"`
	PartialRepairCostUnit    *float64 `json:"partialRepairCostUnit,omitempty"`
	TotalDamageAmount        *float64 `json:"totalDamageAmount,omitempty"`
	TotalReplacementCostUnit *float64 `json:"totalReplacementCostUnit,omitempty"`

	TotalRepairReplacementOverride bool     `json:"totalRepairReplacementOverride"`
	TotalRepairReplacement         *float64 `json:"totalRepairReplacement,omitempty"`

	PartialRecoveryCostUnit *float64 `json:"partialRecoveryCostUnit,omitempty"`
	TotalRecoveryCostUnit   *float64 `json:"totalRecoveryCostUnit,omitempty"`
	TotalRecoveryOverride   bool     `json:"totalRecoveryOverride"`
	TotalRecovery           *float64 `json:"totalRecovery,omitempty"`

	Attachments json.RawMessage `json:"attachments,omitempty"`
	Footprint   json.RawMessage `json:"spatialFootprint,omitempty"`
}

// Loss holds one sector-scoped loss assessment, split into public and
// private categories that each follow the override-or-formula rule.
type Loss struct {
	ID       int64  `json:"id"`
	RecordID int64  `json:"recordId"`
	SectorID int64  `json:"sectorId"`
	Type     string `json:"type"`

	PublicUnits             *float64 `json:"publicUnits,omitempty"`
	PublicCostPerUnit       *float64 `json:"publicCostPerUnit,omitempty"`
	PublicCostTotalOverride bool     `json:"publicCostTotalOverride"`
	PublicCostTotal         *float64 `json:"publicCostTotal,omitempty"`

	PrivateUnits             *float64 `json:"privateUnits,omitempty"`
	PrivateCostPerUnit       *float64 `json:"privateCostPerUnit,omitempty"`
	PrivateCostTotalOverride bool     `json:"privateCostTotalOverride"`
	PrivateCostTotal         *float64 `json:"privateCostTotal,omitempty"`

	Attachments json.RawMessage `json:"attachments,omitempty"`
	Footprint   json.RawMessage `json:"spatialFootprint,omitempty"`
}

// Disruption records a service disruption against a sector.
type Disruption struct {
	ID             int64           `json:"id"`
	RecordID       int64           `json:"recordId"`
	SectorID       int64           `json:"sectorId"`
	DurationDays   *float64        `json:"durationDays,omitempty"`
	PeopleAffected *int64          `json:"peopleAffected,omitempty"`
	UsersAffected  *int64          `json:"usersAffected,omitempty"`
	ResponseCost   *float64        `json:"responseCost,omitempty"`
	Attachments    json.RawMessage `json:"attachments,omitempty"`
	Footprint      json.RawMessage `json:"spatialFootprint,omitempty"`
}

// Pagination is the envelope attached to every paginated report.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes the envelope for a result set. A zero total
// yields zero pages.
func NewPagination(total, page, pageSize int) Pagination {
	totalPages := 0
	if total > 0 && pageSize > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}
	return Pagination{Total: total, Page: page, PageSize: pageSize, TotalPages: totalPages}
}

// Metadata is the assessment envelope stamped onto every report.
type Metadata struct {
	AssessmentType  string    `json:"assessmentType"`
	ConfidenceLevel string    `json:"confidenceLevel"`
	Currency        string    `json:"currency"`
	AssessmentDate  time.Time `json:"assessmentDate"`
	AssessedBy      string    `json:"assessedBy,omitempty"`
	Notes           string    `json:"notes,omitempty"`
}

// KV is one flattened breakdown entry: a dimension value and its summed
// effect count.
type KV struct {
	K string `json:"k"`
	V int64  `json:"v"`
}

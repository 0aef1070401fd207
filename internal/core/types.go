package core

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// TunnelSlots is the fixed number of tunnel endpoint fields on a branch.
const TunnelSlots = 7

// EntityKind names the kind of record an ingested row was written to.
type EntityKind string

const (
	KindBranch  EntityKind = "Branch"
	KindContact EntityKind = "ContactPerson"
	KindATM     EntityKind = "ATM"
)

// Connection types accepted for branches and ATMs.
const (
	ConnFiber = "FIBER"
	ConnADSL  = "ADSL"
	ConnVSAT  = "VSAT"
	ConnVDSL  = "VDSL"
	Conn3G    = "3G"
	ConnOther = "other"
)

// ConnectionTypes lists the canonical connection type values.
var ConnectionTypes = []string{ConnFiber, ConnADSL, ConnVSAT, ConnVDSL, Conn3G, ConnOther}

// ATM deployment states.
const (
	StatusDeployed      = "DEPLOYED"
	StatusNotDeployed   = "NOT_DEPLOYED"
	StatusInMaintenance = "IN_MAINTENANCE"
)

// DeploymentStatuses lists the canonical deployment status values.
var DeploymentStatuses = []string{StatusDeployed, StatusNotDeployed, StatusInMaintenance}

// LocationOther is the location type for sites outside the known kinds.
const LocationOther = "other"

// LocationTypes lists the canonical ATM location types.
var LocationTypes = []string{
	"Industrial_Park", "Financial_Institution", "University", "Hotel",
	"Military_Base", "Office_Building", "Hospital", LocationOther,
}

// Defaults applied when an ATM is first created.
const (
	DefaultATMBrand  = "NCR"
	DefaultATMStatus = StatusDeployed
)

// Region is the top of the location taxonomy.
type Region struct {
	ID   int64
	Name string
	Code pgtype.Text
}

// District belongs to a region and groups branches.
type District struct {
	ID       int64
	Name     string
	RegionID int64
}

// Branch is a physical bank branch and its WAN link details.
// Name holds the branch identity (see BranchIdentity).
type Branch struct {
	ID             uuid.UUID
	Name           string
	DistrictID     *int64
	ConnectionType pgtype.Text
	ServiceNumber  pgtype.Text
	AccountNumber  pgtype.Text
	WANAddress     pgtype.Text
	LANAddress     pgtype.Text
	DefaultGateway pgtype.Text
	HostName       pgtype.Text
	VSATIP         pgtype.Text
	Tunnels        [TunnelSlots]pgtype.Text
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ContactPerson is unique per (BranchID, FullName).
type ContactPerson struct {
	ID               int64
	BranchID         uuid.UUID
	FullName         string
	Role             pgtype.Text
	Phone            pgtype.Text
	AlternativePhone pgtype.Text
	Email            pgtype.Text
	Department       pgtype.Text
}

// ATM is a terminal keyed by its normalized TID.
type ATM struct {
	ID                          int64
	TID                         string
	BranchID                    *uuid.UUID
	Name                        string
	IPAddress                   pgtype.Text
	Port                        pgtype.Text
	LocationType                pgtype.Text
	Brand                       string
	DispenserType               pgtype.Text
	ATMType                     pgtype.Text
	SerialNumber                pgtype.Text
	TagNumber                   pgtype.Text
	DeploymentStatus            string
	PlacementType               pgtype.Text
	ServiceNumber               pgtype.Text
	ConnectionType              pgtype.Text
	ReserveCassetteAvailability pgtype.Text
	ReserveCassetteQuantity     pgtype.Text
	CreatedAt                   time.Time
	UpdatedAt                   time.Time
}

// AuditRecord is one line of an import journal.
type AuditRecord struct {
	Timestamp  time.Time         `json:"timestamp"`
	SourceFile string            `json:"source_file"`
	EntityKind EntityKind        `json:"entity_kind"`
	EntityID   *string           `json:"entity_id"`
	Row        map[string]string `json:"row"`
}

// Counts is a snapshot of how many records of each kind are stored.
type Counts struct {
	Regions   int `json:"regions"`
	Districts int `json:"districts"`
	Branches  int `json:"branches"`
	Contacts  int `json:"contacts"`
	ATMs      int `json:"atms"`
}

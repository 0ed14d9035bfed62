package model

import "time"

// DateLayout is the calendar-day format used for batch windows throughout the
// system. All batch dates are plain days, no time-of-day component.
const DateLayout = "2006-01-02"

// VehicleRecord is one tracked asset's snapshot as of fetch time.
//
// FetchedAt, StartDate and EndDate are provenance fields stamped by the record
// store at ingestion. The upstream API never supplies them.
type VehicleRecord struct {
	DeviceIMEI       string `json:"deviceImei"`
	VehicleNumber    string `json:"vehicleNumber"`
	VehicleName      string `json:"vehicleName,omitempty"`
	Company          string `json:"company,omitempty"`
	Branch           string `json:"branch,omitempty"`
	Project          string `json:"project,omitempty"`
	Region           string `json:"region,omitempty"`
	Reseller         string `json:"reseller,omitempty"`
	Admin            string `json:"admin,omitempty"`
	Username         string `json:"username,omitempty"`
	ServerIP         string `json:"serverIp,omitempty"`
	InactiveDays     int    `json:"inactiveDays"`
	InstallationDate string `json:"installationDate,omitempty"`

	FetchedAt time.Time `json:"fetchedAt"`
	StartDate string    `json:"startDate"`
	EndDate   string    `json:"endDate"`
}

// BatchKey identifies the query window a record was fetched under. Records
// sharing a key form one batch; the store replaces batches wholesale.
type BatchKey struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// DayKey returns the batch key for a single calendar day.
func DayKey(day time.Time) BatchKey {
	d := day.Format(DateLayout)
	return BatchKey{StartDate: d, EndDate: d}
}

// Matches reports whether the record belongs to this batch.
func (k BatchKey) Matches(r VehicleRecord) bool {
	return r.StartDate == k.StartDate && r.EndDate == k.EndDate
}

// FetchParams are the upstream query parameters of the most recent fetch,
// persisted alongside the records so a restart knows what the data covers.
type FetchParams struct {
	AdminCode  string   `json:"adminCode"`
	ProjectIDs []string `json:"projectIds,omitempty"`
	StartDate  string   `json:"startDate"`
	EndDate    string   `json:"endDate"`
}

// Dataset is the full persisted collection. Record order carries no meaning.
type Dataset struct {
	Records      []VehicleRecord `json:"records"`
	LastUpdated  time.Time       `json:"lastUpdated"`
	TotalRecords int             `json:"totalRecords"`
	Metadata     FetchParams     `json:"metadata"`
}

// BatchDate returns the start date of the most recently fetched batch, or ""
// for an empty dataset. The store stamps every record of a batch with the same
// window, so the metadata window is authoritative.
func (d *Dataset) BatchDate() string {
	if d == nil {
		return ""
	}
	return d.Metadata.StartDate
}

package upstream

import (
	"fmt"

	"github.com/fleetsync-io/fleetsync/internal/model"
)

// APIError carries the upstream HTTP status and a body excerpt so a failed
// call can be diagnosed from the logs alone.
type APIError struct {
	Op     string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream %s failed: status %d: %s", e.Op, e.Status, e.Body)
}

// ErrTooManyPages is wrapped into the fetch error when the pagination safety
// valve trips.
type ErrTooManyPages struct {
	Pages   int
	Records int
}

func (e *ErrTooManyPages) Error() string {
	return fmt.Sprintf("pagination safety valve tripped after %d pages / %d records; upstream may be repeating full pages", e.Pages, e.Records)
}

// DateWindow is the query window for a fetch.
type DateWindow struct {
	StartDate string
	EndDate   string
}

// rawRecord mirrors the upstream payload field names. Normalization into
// model.VehicleRecord is renaming only; no values are transformed.
type rawRecord struct {
	IMEINo       string `json:"imeiNo"`
	VehicleNo    string `json:"vehicleNo"`
	VehicleName  string `json:"vehicleName"`
	CompanyName  string `json:"companyName"`
	BranchName   string `json:"branchName"`
	ProjectName  string `json:"projectName"`
	RegionName   string `json:"regionName"`
	ResellerName string `json:"resellerName"`
	AdminName    string `json:"adminName"`
	UserName     string `json:"userName"`
	ServerIP     string `json:"serverIp"`
	InactiveDays int    `json:"inactiveDays"`
	InstallDate  string `json:"installationDate"`
}

func (r rawRecord) normalize() model.VehicleRecord {
	return model.VehicleRecord{
		DeviceIMEI:       r.IMEINo,
		VehicleNumber:    r.VehicleNo,
		VehicleName:      r.VehicleName,
		Company:          r.CompanyName,
		Branch:           r.BranchName,
		Project:          r.ProjectName,
		Region:           r.RegionName,
		Reseller:         r.ResellerName,
		Admin:            r.AdminName,
		Username:         r.UserName,
		ServerIP:         r.ServerIP,
		InactiveDays:     r.InactiveDays,
		InstallationDate: r.InstallDate,
	}
}

// identifiable rejects records that carry neither a device IMEI nor a vehicle
// number; such rows cannot be keyed to anything and are quarantined.
func (r rawRecord) identifiable() bool {
	return r.IMEINo != "" || r.VehicleNo != ""
}

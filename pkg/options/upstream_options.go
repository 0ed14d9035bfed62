package options

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*UpstreamOptions)(nil)

// Upstream fetch modes.
const (
	UpstreamModeAdmin = "admin"
	UpstreamModeERP   = "erp"
)

// UpstreamOptions configures the client for the external tracking API.
type UpstreamOptions struct {
	// BaseURL is the root of the tracking API.
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// Username and Password are exchanged for a short-lived access token.
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`

	// AdminCode and ProjectIDs scope the getAdminData query.
	AdminCode  string   `json:"admin-code" mapstructure:"admin-code"`
	ProjectIDs []string `json:"project-ids" mapstructure:"project-ids"`

	// Mode selects the fetch endpoint: 'admin' (paged) or 'erp' (unpaged).
	Mode string `json:"mode" mapstructure:"mode"`

	// PageSize is the page size for the paged endpoint.
	PageSize int `json:"page-size" mapstructure:"page-size"`

	// MaxPages and MaxRecords bound the pagination loop. Exceeding either
	// aborts the fetch rather than looping on a misbehaving upstream.
	MaxPages   int `json:"max-pages" mapstructure:"max-pages"`
	MaxRecords int `json:"max-records" mapstructure:"max-records"`

	// RequestTimeout bounds each HTTP call to the upstream.
	RequestTimeout time.Duration `json:"request-timeout" mapstructure:"request-timeout"`
}

// NewUpstreamOptions creates an UpstreamOptions object with default parameters.
func NewUpstreamOptions() *UpstreamOptions {
	return &UpstreamOptions{
		Mode:           UpstreamModeAdmin,
		PageSize:       1000,
		MaxPages:       500,
		MaxRecords:     200000,
		RequestTimeout: 30 * time.Second,
	}
}

func (o *UpstreamOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}

	if o.BaseURL == "" {
		errors = append(errors, fmt.Errorf("upstream.base-url is required"))
	} else if _, err := url.Parse(o.BaseURL); err != nil {
		errors = append(errors, fmt.Errorf("upstream.base-url is not a valid URL: %w", err))
	}
	switch o.Mode {
	case UpstreamModeAdmin, UpstreamModeERP:
	default:
		errors = append(errors, fmt.Errorf("unknown upstream mode %q (want 'admin' or 'erp')", o.Mode))
	}
	if o.PageSize <= 0 {
		errors = append(errors, fmt.Errorf("upstream.page-size must be positive, got %d", o.PageSize))
	}
	if o.MaxPages <= 0 {
		errors = append(errors, fmt.Errorf("upstream.max-pages must be positive, got %d", o.MaxPages))
	}
	if o.MaxRecords <= 0 {
		errors = append(errors, fmt.Errorf("upstream.max-records must be positive, got %d", o.MaxRecords))
	}

	return errors
}

// AddFlags adds flags for UpstreamOptions to the specified FlagSet.
func (o *UpstreamOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.BaseURL, "upstream.base-url", o.BaseURL, "Base URL of the vehicle tracking API.")
	fs.StringVar(&o.Username, "upstream.username", o.Username, "Username for the tracking API token exchange.")
	fs.StringVar(&o.Password, "upstream.password", o.Password, "Password for the tracking API token exchange.")
	fs.StringVar(&o.AdminCode, "upstream.admin-code", o.AdminCode, "Admin code scoping the vehicle query.")
	fs.StringSliceVar(&o.ProjectIDs, "upstream.project-ids", o.ProjectIDs, "Project IDs scoping the vehicle query.")
	fs.StringVar(&o.Mode, "upstream.mode", o.Mode, "Fetch endpoint to use ('admin' or 'erp').")
	fs.IntVar(&o.PageSize, "upstream.page-size", o.PageSize, "Page size for the paged admin-data endpoint.")
	fs.IntVar(&o.MaxPages, "upstream.max-pages", o.MaxPages, "Hard cap on pages fetched per sync.")
	fs.IntVar(&o.MaxRecords, "upstream.max-records", o.MaxRecords, "Hard cap on records fetched per sync.")
	fs.DurationVar(&o.RequestTimeout, "upstream.request-timeout", o.RequestTimeout, "Timeout for each upstream HTTP call.")
}

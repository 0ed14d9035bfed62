package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*SyncOptions)(nil)

// SyncOptions configures the freshness policy and the scheduler.
type SyncOptions struct {
	// FreshFor is the intra-day window during which stored data is considered
	// fresh and no network call is made.
	FreshFor time.Duration `json:"fresh-for" mapstructure:"fresh-for"`

	// DailyHour is the local hour (0-23) of the scheduled daily refresh.
	DailyHour int `json:"daily-hour" mapstructure:"daily-hour"`

	// BootCheck runs one freshness evaluation shortly after startup, guarding
	// against the daily timer having missed a run during downtime.
	BootCheck bool `json:"boot-check" mapstructure:"boot-check"`

	// BootCheckDelay is how long after startup the boot check fires.
	BootCheckDelay time.Duration `json:"boot-check-delay" mapstructure:"boot-check-delay"`
}

// NewSyncOptions creates a SyncOptions object with default parameters.
func NewSyncOptions() *SyncOptions {
	return &SyncOptions{
		FreshFor:       time.Hour,
		DailyHour:      6,
		BootCheck:      true,
		BootCheckDelay: 10 * time.Second,
	}
}

func (o *SyncOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}

	if o.FreshFor <= 0 {
		errors = append(errors, fmt.Errorf("sync.fresh-for must be positive, got %s", o.FreshFor))
	}
	if o.DailyHour < 0 || o.DailyHour > 23 {
		errors = append(errors, fmt.Errorf("sync.daily-hour must be between 0 and 23, got %d", o.DailyHour))
	}

	return errors
}

// AddFlags adds flags for SyncOptions to the specified FlagSet.
func (o *SyncOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.DurationVar(&o.FreshFor, "sync.fresh-for", o.FreshFor, "Intra-day window during which stored data is served without refetching.")
	fs.IntVar(&o.DailyHour, "sync.daily-hour", o.DailyHour, "Local hour (0-23) of the scheduled daily refresh.")
	fs.BoolVar(&o.BootCheck, "sync.boot-check", o.BootCheck, "Run a freshness check shortly after startup.")
	fs.DurationVar(&o.BootCheckDelay, "sync.boot-check-delay", o.BootCheckDelay, "Delay before the startup freshness check.")
}

package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*CacheOptions)(nil)

// CacheOptions configures the in-process compressed cache.
type CacheOptions struct {
	// DefaultTTL applies when a Set call does not specify a TTL.
	DefaultTTL time.Duration `json:"default-ttl" mapstructure:"default-ttl"`

	// CleanupInterval is how often expired entries are swept.
	CleanupInterval time.Duration `json:"cleanup-interval" mapstructure:"cleanup-interval"`

	// CompressThreshold is the payload size in bytes above which entries are
	// gzip-compressed. Zero compresses everything.
	CompressThreshold int `json:"compress-threshold" mapstructure:"compress-threshold"`
}

// NewCacheOptions creates a CacheOptions object with default parameters.
func NewCacheOptions() *CacheOptions {
	return &CacheOptions{
		DefaultTTL:        24 * time.Hour,
		CleanupInterval:   10 * time.Minute,
		CompressThreshold: 4096,
	}
}

func (o *CacheOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}

	if o.DefaultTTL <= 0 {
		errors = append(errors, fmt.Errorf("cache.default-ttl must be positive, got %s", o.DefaultTTL))
	}
	if o.CleanupInterval <= 0 {
		errors = append(errors, fmt.Errorf("cache.cleanup-interval must be positive, got %s", o.CleanupInterval))
	}

	return errors
}

// AddFlags adds flags for CacheOptions to the specified FlagSet.
func (o *CacheOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.DurationVar(&o.DefaultTTL, "cache.default-ttl", o.DefaultTTL, "Default TTL for cache entries.")
	fs.DurationVar(&o.CleanupInterval, "cache.cleanup-interval", o.CleanupInterval, "Sweep interval for expired cache entries.")
	fs.IntVar(&o.CompressThreshold, "cache.compress-threshold", o.CompressThreshold, "Payload size in bytes above which entries are compressed.")
}

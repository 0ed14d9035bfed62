package options

import (
	"fmt"

	"github.com/spf13/pflag"
)

var _ IOptions = (*StoreOptions)(nil)

// Store backend kinds.
const (
	StoreBackendFile = "file"
	StoreBackendS3   = "s3"
)

// StoreOptions configures the durable record store.
type StoreOptions struct {
	// Backend selects the persistence backend: 'file' or 's3'.
	Backend string `json:"backend" mapstructure:"backend"`

	// DataDir is the directory holding the dataset artifact (file backend).
	DataDir string `json:"data-dir" mapstructure:"data-dir"`

	// ObjectKey is the object name holding the dataset artifact (s3 backend).
	ObjectKey string `json:"object-key" mapstructure:"object-key"`

	// RetentionDays is how long records are kept before pruning.
	RetentionDays int `json:"retention-days" mapstructure:"retention-days"`

	// WatchFile enables fsnotify-based cache invalidation when the dataset
	// file is replaced out-of-band (file backend only).
	WatchFile bool `json:"watch-file" mapstructure:"watch-file"`
}

// NewStoreOptions creates a StoreOptions object with default parameters.
func NewStoreOptions() *StoreOptions {
	return &StoreOptions{
		Backend:       StoreBackendFile,
		DataDir:       "data",
		ObjectKey:     "vehicles/dataset.json",
		RetentionDays: 30,
		WatchFile:     true,
	}
}

func (o *StoreOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}

	switch o.Backend {
	case StoreBackendFile, StoreBackendS3:
	default:
		errors = append(errors, fmt.Errorf("unknown store backend %q (want 'file' or 's3')", o.Backend))
	}
	if o.RetentionDays <= 0 {
		errors = append(errors, fmt.Errorf("store.retention-days must be positive, got %d", o.RetentionDays))
	}

	return errors
}

// AddFlags adds flags for StoreOptions to the specified FlagSet.
func (o *StoreOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Backend, "store.backend", o.Backend, "Persistence backend for the record store ('file' or 's3').")
	fs.StringVar(&o.DataDir, "store.data-dir", o.DataDir, "Directory holding the dataset artifact (file backend).")
	fs.StringVar(&o.ObjectKey, "store.object-key", o.ObjectKey, "Object key holding the dataset artifact (s3 backend).")
	fs.IntVar(&o.RetentionDays, "store.retention-days", o.RetentionDays, "Days of record history to retain after each refresh.")
	fs.BoolVar(&o.WatchFile, "store.watch-file", o.WatchFile, "Invalidate caches when the dataset file changes on disk.")
}

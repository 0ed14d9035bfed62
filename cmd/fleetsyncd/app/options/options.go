package options

import (
	"errors"

	"github.com/spf13/pflag"

	"github.com/fleetsync-io/fleetsync/internal/server"
	"github.com/fleetsync-io/fleetsync/pkg/log"
	"github.com/fleetsync-io/fleetsync/pkg/options"
)

// ServerOptions aggregates every option group of the daemon.
type ServerOptions struct {
	HttpOptions     *options.HttpOptions     `json:"http" mapstructure:"http"`
	StoreOptions    *options.StoreOptions    `json:"store" mapstructure:"store"`
	S3Options       *options.S3Options       `json:"s3" mapstructure:"s3"`
	CacheOptions    *options.CacheOptions    `json:"cache" mapstructure:"cache"`
	UpstreamOptions *options.UpstreamOptions `json:"upstream" mapstructure:"upstream"`
	SyncOptions     *options.SyncOptions     `json:"sync" mapstructure:"sync"`
	MqttOptions     *options.MqttOptions     `json:"mqtt" mapstructure:"mqtt"`
	Log             *log.Options             `json:"log" mapstructure:"log"`
}

// NewServerOptions creates a ServerOptions with all defaults applied.
func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		HttpOptions:     options.NewHttpOptions(),
		StoreOptions:    options.NewStoreOptions(),
		S3Options:       options.NewS3Options(),
		CacheOptions:    options.NewCacheOptions(),
		UpstreamOptions: options.NewUpstreamOptions(),
		SyncOptions:     options.NewSyncOptions(),
		MqttOptions:     options.NewMqttOptions(),
		Log:             log.NewOptions(),
	}
}

// AddFlags registers every option group on the command's flag set.
func (o *ServerOptions) AddFlags(fs *pflag.FlagSet) {
	o.HttpOptions.AddFlags(fs)
	o.StoreOptions.AddFlags(fs)
	o.S3Options.AddFlags(fs)
	o.CacheOptions.AddFlags(fs)
	o.UpstreamOptions.AddFlags(fs)
	o.SyncOptions.AddFlags(fs)
	o.MqttOptions.AddFlags(fs)
	o.Log.AddFlags(fs)
}

// Complete fills in derived defaults after flag and config parsing.
func (o *ServerOptions) Complete() error {
	return nil
}

// Validate checks every option group and joins their failures.
func (o *ServerOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.StoreOptions.Validate()...)
	errs = append(errs, o.S3Options.Validate()...)
	errs = append(errs, o.CacheOptions.Validate()...)
	errs = append(errs, o.UpstreamOptions.Validate()...)
	errs = append(errs, o.SyncOptions.Validate()...)
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return errors.Join(errs...)
}

// Config produces the server configuration from validated options.
func (o *ServerOptions) Config() (*server.Config, error) {
	return &server.Config{
		Http:     o.HttpOptions,
		Store:    o.StoreOptions,
		S3:       o.S3Options,
		Cache:    o.CacheOptions,
		Upstream: o.UpstreamOptions,
		Sync:     o.SyncOptions,
		Mqtt:     o.MqttOptions,
		Logger:   log.Std(),
	}, nil
}

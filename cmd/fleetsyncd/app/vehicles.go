package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	appoptions "github.com/fleetsync-io/fleetsync/cmd/fleetsyncd/app/options"
	"github.com/fleetsync-io/fleetsync/internal/store"
	"github.com/fleetsync-io/fleetsync/pkg/options"
)

// newVehiclesCommand groups read-only inspection subcommands.
func newVehiclesCommand(opts *appoptions.ServerOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vehicles",
		Short: "Inspect the stored vehicle dataset",
	}
	cmd.AddCommand(newVehiclesListCommand(opts))
	return cmd
}

func newVehiclesListCommand(opts *appoptions.ServerOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print stored vehicle records as a table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVehiclesList(cmd, opts, limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of records to print. 0 prints all.")
	return cmd
}

func runVehiclesList(cmd *cobra.Command, opts *appoptions.ServerOptions, limit int) error {
	ctx := context.Background()

	var backend store.Backend
	switch opts.StoreOptions.Backend {
	case options.StoreBackendFile:
		fb, err := store.NewFileBackend(opts.StoreOptions.DataDir)
		if err != nil {
			return err
		}
		backend = fb
	case options.StoreBackendS3:
		sb, err := store.NewS3Backend(ctx, opts.S3Options, opts.StoreOptions.ObjectKey)
		if err != nil {
			return err
		}
		backend = sb
	default:
		return fmt.Errorf("unknown store backend %q", opts.StoreOptions.Backend)
	}

	ds, err := store.New(backend).Read(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			cmd.Println("No dataset persisted yet.")
			return nil
		}
		return err
	}

	table := uitable.New()
	table.MaxColWidth = 40
	table.AddRow("IMEI", "VEHICLE", "COMPANY", "BRANCH", "REGION", "INACTIVE DAYS", "BATCH")
	for i, r := range ds.Records {
		if limit > 0 && i >= limit {
			break
		}
		table.AddRow(r.DeviceIMEI, r.VehicleNumber, r.Company, r.Branch, r.Region, r.InactiveDays, r.StartDate)
	}
	cmd.Println(table)
	cmd.Printf("\n%d records, last updated %s\n", ds.TotalRecords, ds.LastUpdated.Format("2006-01-02 15:04:05 MST"))
	return nil
}

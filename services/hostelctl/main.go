// Command hostelctl runs operator tasks against the hostel database without
// going through the HTTP services.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/pavitra93/go-hostel-management-system/shared/config"
	"github.com/pavitra93/go-hostel-management-system/shared/hostel"
	"github.com/pavitra93/go-hostel-management-system/shared/store"
)

// runtime is what every subcommand works against
type runtime struct {
	db       *gorm.DB
	svc      *hostel.Service
	findings *store.FindingStore
}

type opener func(cmd *cobra.Command) (*runtime, error)

// openFromConfig connects with the environment's database settings. The
// --sqlite flag switches to a local sqlite file.
func openFromConfig(cmd *cobra.Command) (*runtime, error) {
	dbConfig := config.GetDatabaseConfig()
	if path, _ := cmd.Flags().GetString("sqlite"); path != "" {
		dbConfig.Driver = config.DriverSQLite
		dbConfig.SQLitePath = path
	}

	db, err := config.ConnectDatabase(dbConfig)
	if err != nil {
		return nil, err
	}
	st, err := config.OpenStore(db)
	if err != nil {
		return nil, err
	}
	findings := store.NewFindingStore(db)
	if err := findings.AutoMigrate(); err != nil {
		return nil, err
	}
	return &runtime{db: db, svc: hostel.New(st), findings: findings}, nil
}

func newRootCmd(open opener) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "hostelctl",
		Short:         "Hostel occupancy and billing operations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("sqlite", "", "Use a sqlite database file instead of STORE_DRIVER settings")

	rootCmd.AddCommand(
		MigrateCmd(open),
		StatsCmd(open),
		ReconcileCmd(open),
		PaymentsCmd(open),
	)
	return rootCmd
}

func main() {
	config.LoadEnv()

	if err := newRootCmd(openFromConfig).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

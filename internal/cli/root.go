// Package cli wires the optics commands: serve, migrate and create-superuser.
package cli

import (
	"fmt"

	"github.com/opticshop/optics/pkg/config"
	"github.com/opticshop/optics/pkg/database"
	"github.com/opticshop/optics/pkg/jwtutil"
	"github.com/opticshop/optics/pkg/logger"
	"github.com/opticshop/optics/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const serviceName = "optics"

// NewRootCommand creates the root command for the optics CLI
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "optics",
		Short:         "Optical shop management API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(NewServeCommand())
	cmd.AddCommand(NewMigrateCommand())
	cmd.AddCommand(NewCreateSuperuserCommand())

	return cmd
}

// bootstrap loads configuration, then initializes logging, JWT, metrics and the database
func bootstrap() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(serviceName)
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}

	if err := logger.InitLogger(cfg); err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	log := logger.GetLogger()
	log.Info("Configuration loaded", cfg.LogConfig()...)

	jwtutil.Initialize(&cfg.JWT)
	prometheus.InitMetrics(cfg)
	log.Info("Prometheus metrics initialized", zap.String("metrics_prefix", cfg.Metrics.Prefix))

	db, err := database.InitDB(&cfg.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("init database: %w", err)
	}
	log.Info("Database connection established")

	return cfg, db, nil
}

package app

import (
	"github.com/spf13/cobra"

	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/config"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/daemon"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/logger"
)

func init() { //nolint: gochecknoinits
	startCmd.Flags().BoolVar(&devMode, "dev", false, "Enable dev mode")

	startCmd.Flags().StringVar(
		&configPath,
		"config",
		"",
		"Path to the configuration directory (default ./etc/)",
	)

	rootCmd.AddCommand(startCmd)
}

var (
	configPath string // Path to the configuration directory

	cfg     config.Config
	err     error
	devMode bool

	startCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the GoSGQ-Admin web service",
		PreRun: func(_ *cobra.Command, _ []string) {
			if cfg, err = config.ReadConfig(configPath); err != nil {
				panic(err)
			}

			if devMode {
				cfg.DevMode = true
			}

			if err = logger.Init(cfg.Log); err != nil {
				panic(err)
			}
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			service := daemon.New(&cfg)

			go service.WaitShutdown()

			return service.Start()
		},
	}
)

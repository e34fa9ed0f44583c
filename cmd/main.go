package main

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ukydev/fleet-live/internal/config"
)

// app carries what every subcommand shares once the root has loaded the
// configuration.
type app struct {
	v          *viper.Viper
	configFile string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:          "fleetd",
		Short:        "Live fleet tracking service and console",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.v, a.configFile)
			if err != nil {
				return err
			}
			if err := cfg.ConfigureLogging(); err != nil {
				return err
			}
			a.cfg = cfg
			log.WithFields(log.Fields{
				"mode":      cfg.Mode,
				"transport": cfg.Realtime.Transport,
			}).Debug("Configuration loaded")
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configFile, "config", "c", "", "Path to configuration file")
	flags.String("mode", "", "Data backing: demo or remote")
	flags.String("log-level", "", "Log level")
	_ = a.v.BindPFlag("mode", flags.Lookup("mode"))
	_ = a.v.BindPFlag("log.level", flags.Lookup("log-level"))

	root.AddCommand(newServeCmd(a), newWatchCmd(a))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.WithError(err).Fatal("fleetd failed")
	}
}

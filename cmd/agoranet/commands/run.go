package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/InterCooperative-Network/icn-agoranet/src/federation"
	"github.com/InterCooperative-Network/icn-agoranet/src/service"
)

// NewRunCmd returns the command that starts a federation node
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run node",
		PreRunE: loadConfig,
		RunE:    runAgoraNet,
	}
	AddRunFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runAgoraNet(cmd *cobra.Command, args []string) error {
	fed := federation.NewFederation(_config)

	if err := fed.Init(); err != nil {
		_config.Logger().Error("Cannot initialize federation:", err)
		return err
	}

	if !_config.NoService {
		serviceServer := service.NewService(_config.ServiceAddr, fed, _config.Logger())
		go serviceServer.Serve()
	}

	if err := fed.Start(); err != nil {
		_config.Logger().Error("Cannot start federation:", err)
		return err
	}

	// Block until a shutdown signal comes in.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fed.Stop()

	return fed.Store.Close()
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

// AddRunFlags adds flags to the Run command
func AddRunFlags(cmd *cobra.Command) {

	cmd.Flags().String("datadir", _config.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("moniker", _config.Moniker, "Optional name")
	cmd.Flags().String("did", _config.NodeDID, "DID under which this node originates announcements")

	// Network
	cmd.Flags().StringSliceP("listen", "l", _config.ListenAddrs, "Listen multiaddrs for the overlay host")
	cmd.Flags().StringSlice("bootstrap-peers", _config.BootstrapPeers, "Multiaddrs of bootstrap peers")
	cmd.Flags().Duration("discovery-interval", _config.DiscoveryInterval, "Time between bootstrap redials")
	cmd.Flags().Duration("sync-interval", _config.SyncInterval, "Period of the sync engine housekeeping timer")

	// Service
	cmd.Flags().Bool("no-service", _config.NoService, "Disable the HTTP API service")
	cmd.Flags().StringP("service-listen", "s", _config.ServiceAddr, "Listen IP:Port for HTTP service")

	// Store
	cmd.Flags().Bool("store", _config.Store, "Use badgerDB instead of in-mem DB")
	cmd.Flags().String("db", _config.DatabaseDir, "Database directory")
}

func loadConfig(cmd *cobra.Command, args []string) error {

	err := bindFlagsLoadViper(cmd)
	if err != nil {
		return err
	}

	// If --datadir was explicitely set, but not --db, this will update the
	// default database dir to be inside the new datadir
	_config.SetDataDir(_config.DataDir)

	logFields := logrus.Fields{
		"DataDir":           _config.DataDir,
		"ListenAddrs":       _config.ListenAddrs,
		"BootstrapPeers":    _config.BootstrapPeers,
		"NodeDID":           _config.NodeDID,
		"ServiceAddr":       _config.ServiceAddr,
		"NoService":         _config.NoService,
		"Store":             _config.Store,
		"LogLevel":          _config.LogLevel,
		"Moniker":           _config.Moniker,
		"DiscoveryInterval": _config.DiscoveryInterval,
		"SyncInterval":      _config.SyncInterval,
	}

	if _config.Store {
		logFields["DatabaseDir"] = _config.DatabaseDir
	}

	_config.Logger().WithFields(logFields).Debug("RUN")

	return nil
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	// Register flags with viper. Include flags from this command and all other
	// persistent flags from the parent
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [datadir]/agoranet.toml (.json, .yaml also work)
	viper.SetConfigName("agoranet")      // name of config file (without extension)
	viper.AddConfigPath(_config.DataDir) // search root directory

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		_config.Logger().Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		_config.Logger().Debugf("No config file found in: %s", _config.DataDir)
	} else {
		return err
	}

	// second unmarshal to read from config file
	return viper.Unmarshal(_config)
}

package commands

import (
	"github.com/spf13/cobra"

	"github.com/InterCooperative-Network/icn-agoranet/src/config"
)

var (
	_config = config.NewDefaultConfig()
)

// RootCmd is the root command for the agoranet federation node
var RootCmd = &cobra.Command{
	Use:              "agoranet",
	Short:            "agoranet federation node",
	TraverseChildren: true,
}

package commands

import (
	"fmt"
	"os"
	"path"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/spf13/cobra"

	"github.com/InterCooperative-Network/icn-agoranet/src/keys"
)

var (
	privKeyFile           string
	defaultPrivateKeyFile = fmt.Sprintf("%s/priv_key", _config.DataDir)
)

// NewKeygenCmd produces a KeygenCmd which creates a new identity key
func NewKeygenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Create new identity key",
		RunE:  keygen,
	}

	AddKeygenFlags(cmd)

	return cmd
}

// AddKeygenFlags adds flags to the keygen command
func AddKeygenFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&privKeyFile, "priv", defaultPrivateKeyFile, "File where the private key will be written")
}

func keygen(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(privKeyFile); err == nil {
		return fmt.Errorf("A key already lives under: %s", path.Dir(privKeyFile))
	}

	key, err := keys.GenerateKey()
	if err != nil {
		return fmt.Errorf("Error generating key")
	}

	keyfile := keys.NewSimpleKeyfile(privKeyFile)

	if err := keyfile.WriteKey(key); err != nil {
		return fmt.Errorf("Writing private key: %s", err)
	}

	fmt.Printf("Your private key has been saved to: %s\n", privKeyFile)

	pid, err := peer.IDFromPrivateKey(key)
	if err != nil {
		return fmt.Errorf("Deriving peer id: %s", err)
	}

	fmt.Printf("Your peer id is: %s\n", pid)

	return nil
}

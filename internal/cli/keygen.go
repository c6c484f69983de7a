package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sultan-labs/sultand/internal/crypto"
)

var keygenSeed string

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an Ed25519 keypair and its bech32 address",
	Long: `Generate a fresh Ed25519 keypair, or re-derive one from an existing
32-byte hex seed with --seed. The seed is the only secret; anyone holding
it controls the address.`,
	RunE: runKeygen,
}

func init() {
	rootCmd.AddCommand(keygenCmd)
	keygenCmd.Flags().StringVar(&keygenSeed, "seed", "", "64-hex-char seed to re-derive instead of generating")
}

func runKeygen(cmd *cobra.Command, args []string) error {
	var (
		kp  *crypto.Keypair
		err error
	)
	if keygenSeed != "" {
		kp, err = crypto.KeypairFromSeedHex(keygenSeed)
	} else {
		kp, err = crypto.GenerateKeypair()
	}
	if err != nil {
		return err
	}

	address, err := kp.Address()
	if err != nil {
		return err
	}

	fmt.Printf("address:    %s\n", address)
	fmt.Printf("public_key: %s\n", kp.PublicKeyHex())
	fmt.Printf("seed:       %s\n", kp.SeedHex())
	return nil
}

package bridged

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/mukundsahu017-ux/AuroraBridge/pkg/common"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/guardiansigner"
)

var (
	keyDescription *string
	blockType      *string
	unsafeKeyPrint *bool
)

func init() {
	keyDescription = KeygenCmd.Flags().String("desc", "", "Human-readable key description (optional)")
	blockType = KeygenCmd.Flags().String("block-type", common.GuardianKeyArmoredBlock, "block type of armored file (optional)")
	unsafeKeyPrint = KeyprintCmd.Flags().Bool("unsafe", false, "Also print the private key seed")
}

var KeygenCmd = &cobra.Command{
	Use:   "keygen [KEYFILE]",
	Short: "Create guardian key at the specified path",
	Run:   runKeygen,
	Args:  cobra.ExactArgs(1),
}

func runKeygen(cmd *cobra.Command, args []string) {
	if err := common.LockMemory(); err != nil {
		log.Print(err)
	}
	common.SetRestrictiveUmask()

	log.Print("Creating new key at ", args[0])

	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		log.Fatalf("failed to generate key: %v", err)
	}

	err = common.WriteArmoredKey(key, *keyDescription, args[0], *blockType, false)
	if err != nil {
		log.Fatalf("failed to write key: %v", err)
	}
	fmt.Println("Public key:", hex.EncodeToString(key.Public().(ed25519.PublicKey)))
}

var KeyprintCmd = &cobra.Command{
	Use:   "keyprint [KEYFILE]",
	Short: "Print the public key of an armored guardian key",
	Run:   runKeyprint,
	Args:  cobra.ExactArgs(1),
}

func runKeyprint(cmd *cobra.Command, args []string) {
	keyFile := args[0]

	fmt.Println("Reading key from", keyFile)

	key, err := common.LoadArmoredKey(keyFile, common.GuardianKeyArmoredBlock, true)
	if err != nil {
		log.Fatalf("failed to load key: %v", err)
	}
	pub := key.Public().(ed25519.PublicKey)

	fmt.Printf("Guardian key:\n")
	fmt.Printf("\tPublic key: %s\n", hex.EncodeToString(pub))
	fmt.Printf("\tNEAR format: %s\n", guardiansigner.FormatNearKey(pub))
	if *unsafeKeyPrint {
		fmt.Printf("\tPrivatekey: %s\n", hex.EncodeToString(key.Seed()))
	}
}

package bridged

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/mukundsahu017-ux/AuroraBridge/pkg/vaa"
)

var (
	verifyGuardians *[]string
	verifyQuorum    *int
)

func init() {
	verifyGuardians = VerifyVAACmd.Flags().StringSlice("guardians", nil, "Hex encoded guardian public keys")
	verifyQuorum = VerifyVAACmd.Flags().Int("quorum", 0, "Signatures required (0 = two thirds of the guardians plus one)")
}

var VerifyVAACmd = &cobra.Command{
	Use:   "verify-vaa [FILENAME]",
	Short: "Decode a message (hex binary or JSON) and verify its signatures against a guardian roster (offline)",
	Run:   runVerifyVAA,
	Args:  cobra.ExactArgs(1),
}

var DigestCmd = &cobra.Command{
	Use:   "digest [FILENAME]",
	Short: "Print the signing digest of a message (hex binary or JSON)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		v := readVAA(args[0])
		fmt.Println(v.HexDigest())
	},
}

func readVAA(path string) *vaa.VAA {
	b, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("failed to read file: %v", err)
	}
	v, err := decodeVAA(b)
	if err != nil {
		log.Fatalf("failed to decode message: %v", err)
	}
	return v
}

// decodeVAA accepts the JSON encoding or the hex encoded binary encoding of a message.
func decodeVAA(b []byte) (*vaa.VAA, error) {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '{' {
		var v vaa.VAA
		if err := json.Unmarshal(b, &v); err != nil {
			return nil, err
		}
		return &v, nil
	}

	raw, err := hex.DecodeString(string(bytes.TrimPrefix(b, []byte("0x"))))
	if err != nil {
		return nil, fmt.Errorf("neither JSON nor hex: %w", err)
	}
	return vaa.Unmarshal(raw)
}

func parseGuardianKeys(keys []string) ([]vaa.PubKey, error) {
	out := make([]vaa.PubKey, 0, len(keys))
	for _, k := range keys {
		var pk vaa.PubKey
		if err := pk.UnmarshalJSON([]byte(k)); err != nil {
			return nil, fmt.Errorf("invalid guardian key %q: %w", k, err)
		}
		out = append(out, pk)
	}
	return out, nil
}

func runVerifyVAA(cmd *cobra.Command, args []string) {
	v := readVAA(args[0])

	log.Printf("VAA with digest %s: %+v", v.HexDigest(), spew.Sdump(v))

	keys, err := parseGuardianKeys(*verifyGuardians)
	if err != nil {
		log.Fatal(err)
	}
	if len(keys) == 0 {
		log.Fatal("Please specify --guardians")
	}
	quorum := *verifyQuorum
	if quorum == 0 {
		quorum = vaa.CalculateQuorum(len(keys))
	}

	if err := v.Verify(keys, quorum); err != nil {
		log.Fatalf("verification failed: %v", err)
	}
	log.Printf("message %s carries a quorum of %d", v.MessageID(), quorum)
}

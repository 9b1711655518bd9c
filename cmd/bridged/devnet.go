package bridged

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mukundsahu017-ux/AuroraBridge/pkg/db"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/devnet"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/guardiansigner"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/readiness"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/relayer"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/vaa"
)

const devwarning = `
        +++++++++++++++++++++++++++++++++++++++++++++++++++
        |  RELAYER IS RUNNING IN INSECURE DEVELOPMENT MODE |
        |                                                 |
        |         Do not use --env=devnet in prod.        |
        +++++++++++++++++++++++++++++++++++++++++++++++++++

`

var (
	devnetGuardians *int
	devnetQuorum    *int
	devnetAmount    *uint64
	devnetLogLevel  *string
)

func init() {
	devnetGuardians = DevnetCmd.Flags().Int("guardians", 3, "Number of guardians")
	devnetQuorum = DevnetCmd.Flags().Int("quorum", 0, "Signatures required (0 = two thirds of the guardians plus one)")
	devnetAmount = DevnetCmd.Flags().Uint64("amount", 1000, "Amount locked and bridged back")
	devnetLogLevel = DevnetCmd.Flags().String("logLevel", "warn", "Logging level")
}

var DevnetCmd = &cobra.Command{
	Use:   "devnet",
	Short: "Run a lock, mint, burn and release round trip against in-process ledgers",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		logger, err := newLogger(*devnetLogLevel, "console")
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		quorum := *devnetQuorum
		if quorum == 0 && *devnetGuardians > 0 {
			quorum = vaa.CalculateQuorum(*devnetGuardians)
		}
		if err := runDevnet(cmd.Context(), logger, cmd.OutOrStdout(), *devnetGuardians, quorum, *devnetAmount); err != nil {
			logger.Fatal("devnet round trip failed", zap.Error(err))
		}
	},
}

func devAccount(name string) vaa.Address {
	a, err := vaa.AccountToAddress(name)
	if err != nil {
		panic(err)
	}
	return a
}

// runDevnet bridges amount from a Stellar account to NEAR and back, with every guardian running its own relayer.
func runDevnet(ctx context.Context, logger *zap.Logger, out io.Writer, guardians int, quorum int, amount uint64) error {
	if guardians <= 0 {
		return fmt.Errorf("need at least one guardian")
	}

	var (
		owner   = devAccount("owner.devnet")
		alice   = devAccount("GALICE")
		bob     = devAccount("bob.devnet")
		asset   = devAccount("CNATIVE")
		signers []guardiansigner.GuardianSigner
		keys    []vaa.PubKey
	)
	for i := 0; i < guardians; i++ {
		s, err := guardiansigner.NewGeneratedSigner(nil)
		if err != nil {
			return err
		}
		signers = append(signers, s)
		keys = append(keys, s.PublicKey(ctx))
	}

	n, err := devnet.NewNetwork(logger, devnet.Config{
		Owner:           owner,
		StellarContract: devAccount("CBRIDGE"),
		NearContract:    devAccount("bridge.devnet"),
		Guardians:       keys,
		Quorum:          quorum,
	})
	if err != nil {
		return err
	}

	relayers := make([]*relayer.Relayer, len(signers))
	for i, s := range signers {
		database, err := db.OpenInMemory()
		if err != nil {
			return err
		}
		defer database.Close()

		relayers[i], err = relayer.NewRelayer(logger.With(zap.Int("guardian", i)), database, s, n.Chains(), relayer.Config{}, readiness.NewRegistry())
		if err != nil {
			return err
		}
	}
	pollAll := func(chain vaa.ChainID) error {
		for _, r := range relayers {
			if err := r.PollOnce(ctx, chain); err != nil {
				return err
			}
		}
		return nil
	}
	printBalances := func(step string) {
		custody := n.Custody.CustodyBalance(asset)
		aliceBal := n.Custody.BalanceOf(asset, alice)
		bobBal := n.Wrapped.BalanceOf(asset, bob)
		supply := n.Wrapped.TotalSupply(asset)
		fmt.Fprintf(out, "%-10s alice(stellar)=%s custody(stellar)=%s bob(near)=%s supply(near)=%s\n",
			step, aliceBal.Dec(), custody.Dec(), bobBal.Dec(), supply.Dec())
	}

	fmt.Fprintf(out, "devnet with %d guardians, quorum %d\n", guardians, quorum)
	if err := n.Custody.Fund(owner, asset, alice, vaa.NewAmount(amount)); err != nil {
		return err
	}
	printBalances("funded")

	nonce, err := n.Custody.Lock(alice, asset, vaa.NewAmount(amount), vaa.ChainIDNear, bob)
	if err != nil {
		return err
	}
	printBalances("locked")

	if err := pollAll(vaa.ChainIDStellar); err != nil {
		return err
	}
	if !n.Wrapped.IsProcessed(vaa.ChainIDStellar, nonce) {
		return fmt.Errorf("lock %d was not minted", nonce)
	}
	printBalances("minted")

	minted, ok := n.Wrapped.MintRecord(nonce)
	if !ok {
		return fmt.Errorf("no mint recorded for lock %d", nonce)
	}
	if err := n.Wrapped.Burn(bob, minted.Asset, &minted.Amount, vaa.ChainIDStellar, alice, nonce); err != nil {
		return err
	}
	printBalances("burned")

	if err := pollAll(vaa.ChainIDNear); err != nil {
		return err
	}
	if !n.Custody.IsProcessed(vaa.ChainIDNear, nonce) {
		return fmt.Errorf("burn of lock %d was not released", nonce)
	}
	printBalances("released")

	stats := n.Custody.Stats()
	fmt.Fprintf(out, "locks=%d releases=%d last_nonce=%d\n", stats.Locks, stats.Releases, n.Custody.LastNonce())
	return nil
}

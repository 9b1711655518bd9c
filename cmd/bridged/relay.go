package bridged

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/stellar/go/network"
	"go.uber.org/zap"

	"github.com/mukundsahu017-ux/AuroraBridge/pkg/common"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/config"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/db"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/guardiansigner"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/readiness"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/relayer"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/vaa"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/version"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/watchers/jsonrpc"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/watchers/near"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/watchers/stellar"
)

var (
	configFilename *string
	dataDir        *string
	statusAddr     *string
	environment    *string

	logLevel  *string
	logFormat *string

	guardianKey    *string
	guardianKeyHex *string

	stellarRPC         *string
	stellarContract    *string
	stellarStartLedger *uint32
	stellarAccountKey  *string
	stellarNetwork     *string

	nearRPC         *string
	nearContract    *string
	nearStartHeight *uint64
	nearAccount     *string
	nearAccountKey  *string

	pollIntervalSecs   *uint
	rpcRequestsPerSec  *float64
	rpcTimeout         *time.Duration
	deliveredCacheSize *int
)

// legacyEnv are the environment variables the first relayer release was configured with.
var legacyEnv = map[string]string{
	"stellarContract":  "STELLAR_BRIDGE_CONTRACT",
	"nearContract":     "NEAR_BRIDGE_CONTRACT",
	"guardianKeyHex":   "GUARDIAN_PRIVATE_KEY",
	"pollIntervalSecs": "POLL_INTERVAL_SECS",
	"stellarRPC":       "STELLAR_RPC_URL",
	"nearRPC":          "NEAR_RPC_URL",
}

func init() {
	configFilename = RelayCmd.Flags().String("config", "", "Config file path (.yaml, .json or any format supported by viper)")
	dataDir = RelayCmd.Flags().String("dataDir", "", "Data directory")
	statusAddr = RelayCmd.Flags().String("statusAddr", "[::]:6060", "Listen address for status server (disabled if blank)")
	environment = RelayCmd.Flags().String("env", "testnet", "Environment (prod, testnet, devnet)")

	logLevel = RelayCmd.Flags().String("logLevel", "info", "Logging level (debug, info, warn, error, dpanic, panic, fatal)")
	logFormat = RelayCmd.Flags().String("logFormat", "json", "Log format (json or console)")

	guardianKey = RelayCmd.Flags().String("guardianKey", "", "Guardian signer URI (file://<path>, hex://<key>, near://ed25519:<key>)")
	guardianKeyHex = RelayCmd.Flags().String("guardianKeyHex", "", "Hex encoded guardian private key (alternative to --guardianKey)")

	stellarRPC = RelayCmd.Flags().String("stellarRPC", "https://soroban-testnet.stellar.org", "Soroban RPC URL")
	stellarContract = RelayCmd.Flags().String("stellarContract", "", "Custody contract id (C... strkey)")
	stellarStartLedger = RelayCmd.Flags().Uint32("stellarStartLedger", 0, "Ledger to start scanning at when no cursor is stored (0 = latest)")
	stellarAccountKey = RelayCmd.Flags().String("stellarAccountKey", "", "Secret seed (S...) of the Stellar account paying for release transactions")
	stellarNetwork = RelayCmd.Flags().String("stellarNetworkPassphrase", network.TestNetworkPassphrase, "Stellar network passphrase release transactions are signed for")

	nearRPC = RelayCmd.Flags().String("nearRPC", "https://rpc.testnet.near.org", "NEAR RPC URL")
	nearContract = RelayCmd.Flags().String("nearContract", "", "Wrapped-asset contract account id")
	nearStartHeight = RelayCmd.Flags().Uint64("nearStartHeight", 0, "Block height to start scanning at when no cursor is stored (0 = final block)")
	nearAccount = RelayCmd.Flags().String("nearAccount", "", "NEAR account paying for mint transactions")
	nearAccountKey = RelayCmd.Flags().String("nearAccountKey", "", "Full access key of --nearAccount (ed25519:<base58>)")

	pollIntervalSecs = RelayCmd.Flags().Uint("pollIntervalSecs", uint(relayer.DefaultPollInterval/time.Second), "Seconds between polls of each chain")
	rpcRequestsPerSec = RelayCmd.Flags().Float64("rpcRequestsPerSecond", jsonrpc.DefaultRequestsPerSecond, "Request rate limit per RPC endpoint")
	rpcTimeout = RelayCmd.Flags().Duration("rpcTimeout", jsonrpc.DefaultTimeout, "Timeout of a single RPC request")
	deliveredCacheSize = RelayCmd.Flags().Int("deliveredCacheSize", relayer.DefaultDeliveredCacheSize, "Number of delivered message ids kept in memory")
}

// RelayCmd represents the relay command
var RelayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run the bridge relayer",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.InitFileConfig(cmd, config.ConfigOptions{
			FilePath:   *configFilename,
			EnvPrefix:  "BRIDGED",
			EnvAliases: legacyEnv,
		})
	},
	Run: runRelay,
}

func runRelay(cmd *cobra.Command, args []string) {
	env, err := common.ParseEnvironment(*environment)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if env == common.UnsafeDevNet {
		fmt.Print(devwarning)
	}

	common.SetRestrictiveUmask()

	logger, err := newLogger(*logLevel, *logFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	logger = logger.With(zap.String("env", string(env)))

	if err := common.LockMemory(); err != nil {
		if !env.AllowsUnsafeKeys() {
			logger.Fatal("refusing to hold the guardian key in swappable memory", zap.Error(err))
		}
		logger.Warn("running with swappable memory", zap.Error(err))
	}

	if *dataDir == "" {
		logger.Fatal("Please specify --dataDir")
	}
	if *guardianKey == "" && *guardianKeyHex == "" {
		logger.Fatal("Please specify --guardianKey or --guardianKeyHex")
	}
	if *guardianKey != "" && *guardianKeyHex != "" {
		logger.Fatal("--guardianKey and --guardianKeyHex are mutually exclusive")
	}
	if *stellarContract == "" {
		logger.Fatal("Please specify --stellarContract")
	}
	if *stellarAccountKey == "" {
		logger.Fatal("Please specify --stellarAccountKey")
	}
	if *nearContract == "" {
		logger.Fatal("Please specify --nearContract")
	}
	if *nearAccount == "" {
		logger.Fatal("Please specify --nearAccount")
	}
	if *nearAccountKey == "" {
		logger.Fatal("Please specify --nearAccountKey")
	}
	if *pollIntervalSecs == 0 {
		logger.Fatal("--pollIntervalSecs must be positive")
	}

	var signer guardiansigner.GuardianSigner
	if *guardianKey != "" {
		signer, err = guardiansigner.NewGuardianSignerFromUri(*guardianKey, env.AllowsUnsafeKeys())
	} else {
		if !env.AllowsUnsafeKeys() {
			logger.Warn("guardian key passed in plaintext, prefer an armored key file")
		}
		signer, err = guardiansigner.NewHexSigner(*guardianKeyHex)
	}
	if err != nil {
		logger.Fatal("failed to load guardian key", zap.Error(err))
	}
	pub := signer.PublicKey(context.Background())
	logger.Info("loaded guardian key",
		zap.String("version", version.Version()),
		zap.String("signer", signer.TypeAsString()),
		zap.String("publicKey", pub.String()),
	)

	rpcOptions := jsonrpc.Options{Timeout: *rpcTimeout, RequestsPerSecond: *rpcRequestsPerSec}

	chains, err := relayChains(logger, rpcOptions)
	if err != nil {
		logger.Fatal("invalid chain configuration", zap.Error(err))
	}

	database := db.OpenDb(logger, *dataDir)
	defer database.Close()

	if err := readiness.RegisterComponent(common.ReadinessRelayerStarted); err != nil {
		logger.Fatal("failed to register readiness component", zap.Error(err))
	}

	if *statusAddr != "" {
		// Use a custom routing instead of using http.DefaultServeMux directly to avoid accidentally exposing packages
		// that register themselves with it by default.
		router := mux.NewRouter()

		// Simple endpoint exposing relayer readiness (safe to expose to untrusted clients)
		router.HandleFunc("/readyz", readiness.Handler)

		// Prometheus metrics (safe to expose to untrusted clients)
		router.Handle("/metrics", promhttp.Handler())

		go func() {
			logger.Info("status server listening", zap.String("addr", *statusAddr))
			logger.Error("status server crashed", zap.Error(http.ListenAndServe(*statusAddr, router))) // #nosec G114 local status endpoint
		}()
	}

	r, err := relayer.NewRelayer(logger, database, signer, chains, relayer.Config{
		PollInterval:       time.Duration(*pollIntervalSecs) * time.Second,
		DeliveredCacheSize: *deliveredCacheSize,
	}, readiness.Default())
	if err != nil {
		logger.Fatal("failed to create relayer", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	readiness.SetReady(common.ReadinessRelayerStarted)
	logger.Info("relayer started",
		zap.String("stellarContract", *stellarContract),
		zap.String("nearContract", *nearContract),
	)

	if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("relayer exited", zap.Error(err))
		return
	}
	logger.Info("relayer stopped")
}

func relayChains(logger *zap.Logger, rpcOptions jsonrpc.Options) ([]*relayer.Chain, error) {
	stellarCfg := stellar.WatcherConfig{
		RPC:         *stellarRPC,
		Contract:    *stellarContract,
		StartLedger: *stellarStartLedger,
		RPCOptions:  rpcOptions,
	}
	stellarAddr, err := stellarCfg.ContractAddress()
	if err != nil {
		return nil, err
	}
	stellarWatcher, err := stellar.NewWatcher(logger, stellarCfg)
	if err != nil {
		return nil, err
	}
	stellarSubmitter, err := stellar.NewSubmitter(logger, stellar.SubmitterConfig{
		RPC:               *stellarRPC,
		Contract:          *stellarContract,
		AccountSecret:     *stellarAccountKey,
		NetworkPassphrase: *stellarNetwork,
		RPCOptions:        rpcOptions,
	})
	if err != nil {
		return nil, err
	}

	nearCfg := near.WatcherConfig{
		RPC:         *nearRPC,
		Contract:    *nearContract,
		StartHeight: *nearStartHeight,
		RPCOptions:  rpcOptions,
	}
	nearAddr, err := nearCfg.ContractAddress()
	if err != nil {
		return nil, err
	}
	nearWatcher, err := near.NewWatcher(logger, nearCfg)
	if err != nil {
		return nil, err
	}
	nearSubmitter, err := near.NewSubmitter(logger, near.SubmitterConfig{
		RPC:        *nearRPC,
		Contract:   *nearContract,
		Account:    *nearAccount,
		AccountKey: *nearAccountKey,
		RPCOptions: rpcOptions,
	})
	if err != nil {
		return nil, err
	}

	return []*relayer.Chain{
		{ID: vaa.ChainIDStellar, Contract: stellarAddr, Source: stellarWatcher, Submitter: stellarSubmitter},
		{ID: vaa.ChainIDNear, Contract: nearAddr, Source: nearWatcher, Submitter: nearSubmitter},
	}, nil
}

package common

import (
	"fmt"
	"strings"
)

type Environment string

const (
	MainNet      Environment = "prod"
	UnsafeDevNet Environment = "dev"  // local devnet; keys may be deterministic and hex keys on the command line are allowed
	TestNet      Environment = "test" // public testnets (Stellar testnet, NEAR testnet)
	GoTest       Environment = "unit-test"
)

// ParseEnvironment parses a string into the corresponding Environment value, allowing various reasonable variations.
func ParseEnvironment(str string) (Environment, error) {
	switch strings.ToLower(str) {
	case "prod", "mainnet":
		return MainNet, nil
	case "test", "testnet":
		return TestNet, nil
	case "dev", "devnet", "unsafedevnet":
		return UnsafeDevNet, nil
	case "unit-test", "gotest":
		return GoTest, nil
	}
	return UnsafeDevNet, fmt.Errorf("invalid environment string: %s", str)
}

// AllowsUnsafeKeys reports whether key material may come from deterministic or plaintext sources.
func (e Environment) AllowsUnsafeKeys() bool {
	return e == UnsafeDevNet || e == GoTest
}

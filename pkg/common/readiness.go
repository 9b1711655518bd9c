package common

import (
	"fmt"

	"github.com/mukundsahu017-ux/AuroraBridge/pkg/readiness"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/vaa"
)

const ReadinessRelayerStarted readiness.Component = "relayerStarted"

// ReadinessSyncingComponent returns the readiness component of the event source polling chainID.
func ReadinessSyncingComponent(chainID vaa.ChainID) (readiness.Component, error) {
	if _, err := vaa.KnownChainIDFromNumber(chainID); err != nil {
		return "", err
	}
	return readiness.Component(fmt.Sprintf("%sSyncing", chainID)), nil
}

// MustRegisterReadinessSyncing registers the syncing component of chainID with r. It panics on an unknown chain or
// a duplicate registration.
func MustRegisterReadinessSyncing(r *readiness.Registry, chainID vaa.ChainID) readiness.Component {
	component, err := ReadinessSyncingComponent(chainID)
	if err != nil {
		panic(err)
	}
	if err := r.RegisterComponent(component); err != nil {
		panic(err)
	}
	return component
}

package bridged

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRunDevnet(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runDevnet(context.Background(), zap.NewNop(), &out, 4, 3, 250))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "devnet with 4 guardians, quorum 3", lines[0])
	assert.Contains(t, lines[2], "custody(stellar)=250")
	assert.Contains(t, lines[3], "bob(near)=250 supply(near)=250")
	assert.Contains(t, lines[5], "alice(stellar)=250 custody(stellar)=0 bob(near)=0 supply(near)=0")
	assert.Equal(t, "locks=1 releases=1 last_nonce=1", lines[6])
}

func TestRunDevnetRejectsNoGuardians(t *testing.T) {
	assert.Error(t, runDevnet(context.Background(), zap.NewNop(), &bytes.Buffer{}, 0, 1, 1))
}

package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/nftwallet/internal/domain"
)

func TestDefault(t *testing.T) {
	s := Default()
	require.NotNil(t, s)
	assert.Equal(t, "nft-wallet", s.Name)
	require.NotEmpty(t, s.Steps)
	assert.Equal(t, domain.StepMint, s.Steps[0].Kind)
	assert.Equal(t, "deployer", s.Steps[0].From)
}

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: transfer-then-use
chain_id: 1337
steps:
  - kind: mint
    from: deployer
    to: caller1
  - kind: erc20_mint
    from: caller1
    via: 0
  - kind: expect_balance
    to: account:0
    amount: "10000"
`), 0644))

	s, err := NewLoader().Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(1337), s.ChainID)
	require.Len(t, s.Steps, 3)
	assert.Equal(t, "caller1", s.Steps[0].To)
	require.NotNil(t, s.Steps[1].Via)
	assert.Equal(t, int64(0), *s.Steps[1].Via)

	_, err = NewLoader().Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr []string
	}{
		{
			name:    "unknown field",
			yaml:    "name: x\nsteps:\n  - kind: mint\n    from: deployer\n    colour: red\n",
			wantErr: []string{"field colour not found"},
		},
		{
			name:    "empty",
			yaml:    "description: nothing\n",
			wantErr: []string{"scenario has no name", "scenario has no steps"},
		},
		{
			name: "every step problem at once",
			yaml: `
name: broken
steps:
  - kind: teleport
    from: deployer
  - kind: burn
    from: deployer
  - kind: relay
    from: deployer
    expect_error: gremlins
  - kind: erc20_transfer
    from: deployer
    amount: "1.5.5"
`,
			wantErr: []string{
				"step 1 (teleport): unknown kind",
				"step 2 (burn): token is required",
				"step 3 (relay): via is required",
				`step 3 (relay): unknown expect_error "gremlins"`,
				"step 4 (erc20_transfer): to is required",
				`invalid amount "1.5.5"`,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.ErrorContains(t, err, want)
			}
		})
	}
}

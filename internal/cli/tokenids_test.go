package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTokenIDs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    []string
		wantErr string
	}{
		{name: "single", args: []string{"7"}, want: []string{"7"}},
		{name: "hex", args: []string{"0x10"}, want: []string{"16"}},
		{name: "range", args: []string{"2-4"}, want: []string{"2", "3", "4"}},
		{name: "mixed", args: []string{"0", "5-6"}, want: []string{"0", "5", "6"}},
		{name: "uint256 max", args: []string{"115792089237316195423570985008687907853269984665640564039457584007913129639935"},
			want: []string{"115792089237316195423570985008687907853269984665640564039457584007913129639935"}},
		{name: "reversed range", args: []string{"4-2"}, wantErr: "invalid token range"},
		{name: "huge range", args: []string{"0-5000"}, wantErr: "exceeds"},
		{name: "garbage", args: []string{"abc"}, wantErr: `invalid token id "abc"`},
		{name: "negative", args: []string{"-1"}, wantErr: "invalid token id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, err := parseTokenIDs(tt.args)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			got := make([]string, len(ids))
			for i, id := range ids {
				got[i] = id.String()
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

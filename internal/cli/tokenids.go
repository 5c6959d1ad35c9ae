package cli

import (
	"fmt"
	"math/big"
	"strings"
)

// maxTokenRange caps how many ids a single "a-b" argument may expand to
const maxTokenRange = 1000

// parseTokenIDs accepts decimal or 0x ids and inclusive ranges like "0-9".
func parseTokenIDs(args []string) ([]*big.Int, error) {
	var ids []*big.Int
	for _, arg := range args {
		if lo, hi, ok := strings.Cut(arg, "-"); ok && lo != "" {
			start, err := parseTokenID(lo)
			if err != nil {
				return nil, err
			}
			end, err := parseTokenID(hi)
			if err != nil {
				return nil, err
			}
			if end.Cmp(start) < 0 {
				return nil, fmt.Errorf("invalid token range %q", arg)
			}
			span := new(big.Int).Sub(end, start)
			if span.Cmp(big.NewInt(maxTokenRange)) >= 0 {
				return nil, fmt.Errorf("token range %q exceeds %d ids", arg, maxTokenRange)
			}
			for id := new(big.Int).Set(start); id.Cmp(end) <= 0; id = new(big.Int).Add(id, big.NewInt(1)) {
				ids = append(ids, id)
			}
			continue
		}
		id, err := parseTokenID(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseTokenID(s string) (*big.Int, error) {
	id, ok := new(big.Int).SetString(strings.TrimSpace(s), 0)
	if !ok || id.Sign() < 0 {
		return nil, fmt.Errorf("invalid token id %q", s)
	}
	return id, nil
}

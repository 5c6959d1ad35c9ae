package evm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Slot returns a namespaced storage slot, keccak256(label).
func Slot(label string) common.Hash {
	return crypto.Keccak256Hash([]byte(label))
}

// MappingSlot locates mapping[key] for a mapping rooted at base, following
// Solidity's keccak256(key ++ slot) layout. Several keys address nested
// mappings.
func MappingSlot(base common.Hash, keys ...common.Hash) common.Hash {
	slot := base
	for _, k := range keys {
		slot = crypto.Keccak256Hash(k.Bytes(), slot.Bytes())
	}
	return slot
}

// OffsetSlot returns base+n, used for struct fields and dynamic data.
func OffsetSlot(base common.Hash, n int64) common.Hash {
	return common.BigToHash(new(big.Int).Add(base.Big(), big.NewInt(n)))
}

func AddressKey(a common.Address) common.Hash { return common.BytesToHash(a.Bytes()) }

func BigKey(v *big.Int) common.Hash { return common.BigToHash(v) }

func (e *Env) GetAddress(slot common.Hash) common.Address {
	return common.BytesToAddress(e.GetState(slot).Bytes())
}

func (e *Env) SetAddress(slot common.Hash, a common.Address) error {
	return e.SetState(slot, AddressKey(a))
}

func (e *Env) GetBig(slot common.Hash) *big.Int {
	return e.GetState(slot).Big()
}

func (e *Env) SetBig(slot common.Hash, v *big.Int) error {
	return e.SetState(slot, common.BigToHash(v))
}

func (e *Env) GetBool(slot common.Hash) bool {
	return e.GetState(slot) != (common.Hash{})
}

func (e *Env) SetBool(slot common.Hash, v bool) error {
	var h common.Hash
	if v {
		h[common.HashLength-1] = 1
	}
	return e.SetState(slot, h)
}

// GetString reads a string stored as a length word at slot followed by
// 32-byte chunks starting at keccak256(slot).
func (e *Env) GetString(slot common.Hash) string {
	n := e.GetBig(slot).Int64()
	if n == 0 {
		return ""
	}
	data := crypto.Keccak256Hash(slot.Bytes())
	buf := make([]byte, 0, n)
	for i := int64(0); int64(len(buf)) < n; i++ {
		chunk := e.GetState(OffsetSlot(data, i))
		buf = append(buf, chunk.Bytes()...)
	}
	return string(buf[:n])
}

func (e *Env) SetString(slot common.Hash, s string) error {
	old := e.GetBig(slot).Int64()
	if err := e.SetBig(slot, big.NewInt(int64(len(s)))); err != nil {
		return err
	}
	data := crypto.Keccak256Hash(slot.Bytes())
	raw := []byte(s)
	var i int64
	for ; i*common.HashLength < int64(len(raw)); i++ {
		end := min((i+1)*common.HashLength, int64(len(raw)))
		var chunk common.Hash
		copy(chunk[:], raw[i*common.HashLength:end])
		if err := e.SetState(OffsetSlot(data, i), chunk); err != nil {
			return err
		}
	}
	for ; i*common.HashLength < old; i++ {
		if err := e.SetState(OffsetSlot(data, i), common.Hash{}); err != nil {
			return err
		}
	}
	return nil
}

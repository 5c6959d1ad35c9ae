package evm

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

type stateObject struct {
	balance  *uint256.Int
	nonce    uint64
	code     []byte
	contract Contract
	storage  map[common.Hash]common.Hash
}

// StateDB is the host's world state. Every mutation records an undo entry so
// that a failed frame can be rolled back to a snapshot.
type StateDB struct {
	objects map[common.Address]*stateObject
	logs    []*types.Log
	journal []func()
}

// NewStateDB returns an empty world state.
func NewStateDB() *StateDB {
	return &StateDB{objects: make(map[common.Address]*stateObject)}
}

// Snapshot returns an identifier for the current revision of the state.
func (s *StateDB) Snapshot() int {
	return len(s.journal)
}

// RevertToSnapshot undoes every change made after the snapshot was taken.
func (s *StateDB) RevertToSnapshot(id int) {
	for i := len(s.journal) - 1; i >= id; i-- {
		s.journal[i]()
	}
	s.journal = s.journal[:id]
}

// Finalise drops the journal. Changes made before it can no longer be reverted.
func (s *StateDB) Finalise() {
	s.journal = s.journal[:0]
}

func (s *StateDB) getOrNew(addr common.Address) *stateObject {
	obj, ok := s.objects[addr]
	if ok {
		return obj
	}
	obj = &stateObject{balance: new(uint256.Int), storage: make(map[common.Hash]common.Hash)}
	s.objects[addr] = obj
	s.journal = append(s.journal, func() { delete(s.objects, addr) })
	return obj
}

func (s *StateDB) Exist(addr common.Address) bool {
	_, ok := s.objects[addr]
	return ok
}

func (s *StateDB) GetBalance(addr common.Address) *uint256.Int {
	if obj, ok := s.objects[addr]; ok {
		return new(uint256.Int).Set(obj.balance)
	}
	return new(uint256.Int)
}

func (s *StateDB) setBalance(addr common.Address, amount *uint256.Int) {
	obj := s.getOrNew(addr)
	prev := obj.balance
	obj.balance = new(uint256.Int).Set(amount)
	s.journal = append(s.journal, func() { obj.balance = prev })
}

func (s *StateDB) AddBalance(addr common.Address, amount *uint256.Int) {
	s.setBalance(addr, new(uint256.Int).Add(s.GetBalance(addr), amount))
}

// SubBalance debits addr. Callers must check the balance first.
func (s *StateDB) SubBalance(addr common.Address, amount *uint256.Int) {
	s.setBalance(addr, new(uint256.Int).Sub(s.GetBalance(addr), amount))
}

func (s *StateDB) GetNonce(addr common.Address) uint64 {
	if obj, ok := s.objects[addr]; ok {
		return obj.nonce
	}
	return 0
}

func (s *StateDB) SetNonce(addr common.Address, nonce uint64) {
	obj := s.getOrNew(addr)
	prev := obj.nonce
	obj.nonce = nonce
	s.journal = append(s.journal, func() { obj.nonce = prev })
}

func (s *StateDB) GetCode(addr common.Address) []byte {
	if obj, ok := s.objects[addr]; ok {
		return common.CopyBytes(obj.code)
	}
	return nil
}

func (s *StateDB) contract(addr common.Address) Contract {
	if obj, ok := s.objects[addr]; ok {
		return obj.contract
	}
	return nil
}

// SetCode installs runtime code together with the native contract executing it.
func (s *StateDB) SetCode(addr common.Address, code []byte, c Contract) {
	obj := s.getOrNew(addr)
	prevCode, prevContract := obj.code, obj.contract
	obj.code, obj.contract = common.CopyBytes(code), c
	s.journal = append(s.journal, func() { obj.code, obj.contract = prevCode, prevContract })
}

func (s *StateDB) GetState(addr common.Address, key common.Hash) common.Hash {
	if obj, ok := s.objects[addr]; ok {
		return obj.storage[key]
	}
	return common.Hash{}
}

func (s *StateDB) SetState(addr common.Address, key, value common.Hash) {
	obj := s.getOrNew(addr)
	prev, existed := obj.storage[key]
	if value == (common.Hash{}) {
		delete(obj.storage, key)
	} else {
		obj.storage[key] = value
	}
	s.journal = append(s.journal, func() {
		if existed {
			obj.storage[key] = prev
		} else {
			delete(obj.storage, key)
		}
	})
}

func (s *StateDB) AddLog(l *types.Log) {
	s.logs = append(s.logs, l)
	n := len(s.logs) - 1
	s.journal = append(s.journal, func() { s.logs = s.logs[:n] })
}

// TakeLogs returns and clears the logs collected since the last call.
func (s *StateDB) TakeLogs() []*types.Log {
	logs := s.logs
	s.logs = nil
	return logs
}

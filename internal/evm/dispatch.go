package evm

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// MustParseABI parses a JSON ABI definition and panics on malformed input.
func MustParseABI(definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(fmt.Errorf("parse abi: %w", err))
	}
	return parsed
}

// Handler implements one ABI method. args are the decoded inputs and the
// returned values are packed as the method outputs.
type Handler func(env *Env, args []interface{}) ([]interface{}, error)

// RawHandler receives undecoded call data.
type RawHandler func(env *Env, input []byte) ([]byte, error)

type route struct {
	method abi.Method
	fn     Handler
}

// Dispatcher routes call data to handlers by 4-byte selector.
type Dispatcher struct {
	abi      abi.ABI
	routes   map[[4]byte]route
	receive  func(env *Env) error
	fallback RawHandler
}

func NewDispatcher(parsed abi.ABI) *Dispatcher {
	return &Dispatcher{abi: parsed, routes: make(map[[4]byte]route)}
}

// On binds fn to the named method. Binding a name missing from the ABI is a
// programming error and panics.
func (d *Dispatcher) On(name string, fn Handler) *Dispatcher {
	method, ok := d.abi.Methods[name]
	if !ok {
		panic(fmt.Errorf("method %s does not exist in the ABI", name))
	}
	d.routes[[4]byte(method.ID)] = route{method: method, fn: fn}
	return d
}

// OnReceive handles calls with empty call data.
func (d *Dispatcher) OnReceive(fn func(env *Env) error) *Dispatcher {
	d.receive = fn
	return d
}

// OnFallback handles call data that matches no bound method.
func (d *Dispatcher) OnFallback(fn RawHandler) *Dispatcher {
	d.fallback = fn
	return d
}

// Handles reports whether input targets a bound method.
func (d *Dispatcher) Handles(input []byte) bool {
	if len(input) < 4 {
		return false
	}
	_, ok := d.routes[[4]byte(input[:4])]
	return ok
}

func (d *Dispatcher) ABI() abi.ABI { return d.abi }

// Dispatch executes input against the bound handlers.
func (d *Dispatcher) Dispatch(env *Env, input []byte) ([]byte, error) {
	if len(input) == 0 && d.receive != nil {
		return nil, d.receive(env)
	}
	if len(input) < 4 {
		if d.fallback != nil {
			return d.fallback(env, input)
		}
		return nil, fmt.Errorf("%w: call data too short", ErrUnknownSelector)
	}
	r, ok := d.routes[[4]byte(input[:4])]
	if !ok {
		if d.fallback != nil {
			return d.fallback(env, input)
		}
		return nil, fmt.Errorf("%w: %#x", ErrUnknownSelector, input[:4])
	}
	if !r.method.IsPayable() && !env.value.IsZero() {
		return nil, fmt.Errorf("%w: %s", ErrNonPayable, r.method.Name)
	}
	if r.method.IsConstant() {
		env = env.readOnly()
	}
	args, err := r.method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidInput, r.method.Name, err)
	}
	out, err := r.fn(env, args)
	if err != nil {
		return nil, err
	}
	return r.method.Outputs.Pack(out...)
}

// EmitEvent packs args in declaration order, routing indexed inputs to
// topics.
func EmitEvent(env *Env, event abi.Event, args ...interface{}) error {
	if len(args) != len(event.Inputs) {
		return fmt.Errorf("event %s: expected %d arguments, got %d", event.Name, len(event.Inputs), len(args))
	}
	topics := []common.Hash{event.ID}
	var data []interface{}
	for i, input := range event.Inputs {
		if !input.Indexed {
			data = append(data, args[i])
			continue
		}
		t, err := abi.MakeTopics([]interface{}{args[i]})
		if err != nil {
			return fmt.Errorf("event %s: topic %s: %w", event.Name, input.Name, err)
		}
		topics = append(topics, t[0][0])
	}
	packed, err := event.Inputs.NonIndexed().Pack(data...)
	if err != nil {
		return fmt.Errorf("event %s: %w", event.Name, err)
	}
	return env.Emit(topics, packed)
}

// CallMethod performs a high-level call: the target must have code and its
// return data must decode as the method outputs.
func CallMethod(env *Env, to common.Address, value *uint256.Int, method abi.Method, args ...interface{}) ([]interface{}, error) {
	return invoke(env, to, method, args, func(input []byte) ([]byte, error) {
		return env.Call(to, value, input)
	})
}

// StaticCallMethod is CallMethod under STATICCALL.
func StaticCallMethod(env *Env, to common.Address, method abi.Method, args ...interface{}) ([]interface{}, error) {
	return invoke(env, to, method, args, func(input []byte) ([]byte, error) {
		return env.StaticCall(to, input)
	})
}

func invoke(env *Env, to common.Address, method abi.Method, args []interface{}, do func([]byte) ([]byte, error)) ([]interface{}, error) {
	if !env.HasCode(to) {
		return nil, fmt.Errorf("%w: %s", ErrNoCode, to.Hex())
	}
	packed, err := method.Inputs.Pack(args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method.Name, err)
	}
	ret, err := do(append(bytes.Clone(method.ID), packed...))
	if err != nil {
		return nil, err
	}
	out, err := method.Outputs.Unpack(ret)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method.Name, err)
	}
	return out, nil
}

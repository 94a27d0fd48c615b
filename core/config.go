package core

import (
	"encoding/json"
	"reflect"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
)

const typeKey = "@type"

// ChainConfigRegistry resolves the "@type" field of a chain config to the
// ChainConfig implementation registered by a chain module.
type ChainConfigRegistry struct {
	mu    sync.RWMutex
	types map[string]reflect.Type
	names map[reflect.Type]string
}

func NewChainConfigRegistry() *ChainConfigRegistry {
	return &ChainConfigRegistry{
		types: make(map[string]reflect.Type),
		names: make(map[reflect.Type]string),
	}
}

// Register registers the type of cfg, which must be a pointer, under typeName.
func (r *ChainConfigRegistry) Register(typeName string, cfg ChainConfig) {
	rt := reflect.TypeOf(cfg)
	if rt.Kind() != reflect.Ptr {
		panic("chain config must be registered as a pointer: " + typeName)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[typeName]; ok {
		panic("chain config type already registered: " + typeName)
	}
	r.types[typeName] = rt.Elem()
	r.names[rt] = typeName
}

// TypeNames returns the registered type names in order.
func (r *ChainConfigRegistry) TypeNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Unmarshal decodes a chain config tagged with its type name.
func (r *ChainConfigRegistry) Unmarshal(bz []byte) (ChainConfig, error) {
	var tagged struct {
		Type string `json:"@type"`
	}
	if err := json.Unmarshal(bz, &tagged); err != nil {
		return nil, errors.Wrap(err, "failed to decode chain config")
	}
	r.mu.RLock()
	rt, ok := r.types[tagged.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.Newf("unknown chain config type %q", tagged.Type)
	}
	cfg := reflect.New(rt).Interface().(ChainConfig)
	if err := json.Unmarshal(bz, cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", tagged.Type)
	}
	return cfg, nil
}

// Marshal encodes cfg with its type name.
func (r *ChainConfigRegistry) Marshal(cfg ChainConfig) (json.RawMessage, error) {
	r.mu.RLock()
	name, ok := r.names[reflect.TypeOf(cfg)]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.Newf("chain config type %T is not registered", cfg)
	}
	bz, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(bz, &fields); err != nil {
		return nil, err
	}
	fields[typeKey], _ = json.Marshal(name)
	return json.Marshal(fields)
}

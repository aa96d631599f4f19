// Package consul provides a kvstore.Store backed by HashiCorp Consul KV,
// for sandboxes whose origin store lives in a shared cluster rather than a
// single process.
//
// Limitations:
// - Consul KV has a 512KB limit per value
// - Best suited for settings-sized entries, not bulk data
package consul

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/consul/api"
)

// MaxValueSize is the largest value accepted by a single Consul KV entry,
// set slightly below the server limit to leave room for overhead.
const MaxValueSize = 500 * 1024

// Config contains configuration options for the Consul store.
type Config struct {
	// Address of the Consul server (default: "127.0.0.1:8500")
	Address string

	// Token for Consul ACL authentication (optional)
	Token string

	// Datacenter to use (optional)
	Datacenter string

	// Namespace for Consul Enterprise (optional)
	Namespace string

	// Prefix scopes every entry under a KV path (optional). This allows
	// several sandboxes to share one cluster without colliding.
	Prefix string
}

// ConsulStore is a kvstore.Store holding every entry as one Consul KV pair.
type ConsulStore struct {
	client *api.Client
	kv     *api.KV

	prefix string
}

// NewConsulStore creates a new Consul-backed store.
func NewConsulStore(config *Config) (*ConsulStore, error) {
	if config == nil {
		config = &Config{}
	}

	if config.Address == "" {
		config.Address = "127.0.0.1:8500"
	}

	clientConfig := api.DefaultConfig()
	clientConfig.Address = config.Address
	if config.Token != "" {
		clientConfig.Token = config.Token
	}
	if config.Datacenter != "" {
		clientConfig.Datacenter = config.Datacenter
	}
	if config.Namespace != "" {
		clientConfig.Namespace = config.Namespace
	}

	client, err := api.NewClient(clientConfig)
	if err != nil {
		return nil, err
	}

	prefix := strings.Trim(config.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}

	return &ConsulStore{
		client: client,
		kv:     client.KV(),
		prefix: prefix,
	}, nil
}

func (cs *ConsulStore) GetItem(ctx context.Context, key string) (string, bool, error) {
	q := (&api.QueryOptions{}).WithContext(ctx)

	pair, _, err := cs.kv.Get(cs.prefix+key, q)
	if err != nil {
		return "", false, err
	}
	if pair == nil {
		return "", false, nil
	}

	return string(pair.Value), true, nil
}

func (cs *ConsulStore) SetItem(ctx context.Context, key, value string) error {
	if len(value) > MaxValueSize {
		return fmt.Errorf("value of %d bytes exceeds the %d byte Consul KV limit", len(value), MaxValueSize)
	}

	w := (&api.WriteOptions{}).WithContext(ctx)
	pair := &api.KVPair{
		Key:   cs.prefix + key,
		Value: []byte(value),
	}

	_, err := cs.kv.Put(pair, w)
	return err
}

func (cs *ConsulStore) RemoveItem(ctx context.Context, key string) error {
	w := (&api.WriteOptions{}).WithContext(ctx)

	_, err := cs.kv.Delete(cs.prefix+key, w)
	return err
}

func (cs *ConsulStore) Keys(ctx context.Context) ([]string, error) {
	q := (&api.QueryOptions{}).WithContext(ctx)

	consulKeys, _, err := cs.kv.Keys(cs.prefix, "", q)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(consulKeys))
	for _, k := range consulKeys {
		keys = append(keys, strings.TrimPrefix(k, cs.prefix))
	}

	return keys, nil
}

func (cs *ConsulStore) Len(ctx context.Context) (int, error) {
	keys, err := cs.Keys(ctx)
	if err != nil {
		return 0, err
	}

	return len(keys), nil
}

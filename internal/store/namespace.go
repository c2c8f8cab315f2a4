package store

import "context"

// Namespace returns a Store that transparently prefixes every key with
// prefix. Closing the namespaced store does not close the parent.
func Namespace(s Store, prefix string) Store {
	return &namespaced{parent: s, prefix: prefix}
}

type namespaced struct {
	parent Store
	prefix string
}

func (n *namespaced) key(k string) string { return n.prefix + k }

func (n *namespaced) keys(ks []string) []string {
	out := make([]string, len(ks))
	for i, k := range ks {
		out[i] = n.prefix + k
	}
	return out
}

func (n *namespaced) Get(ctx context.Context, key string) ([]byte, error) {
	return n.parent.Get(ctx, n.key(key))
}

func (n *namespaced) ZCount(ctx context.Context, key string, min, max int64) (int64, error) {
	return n.parent.ZCount(ctx, n.key(key), min, max)
}

func (n *namespaced) ZRangeByScore(ctx context.Context, key string, min, max int64) ([]Member, error) {
	return n.parent.ZRangeByScore(ctx, n.key(key), min, max)
}

func (n *namespaced) Set(ctx context.Context, key string, value []byte) error {
	return n.parent.Set(ctx, n.key(key), value)
}

func (n *namespaced) Del(ctx context.Context, keys ...string) error {
	return n.parent.Del(ctx, n.keys(keys)...)
}

func (n *namespaced) ZAdd(ctx context.Context, key string, score int64, member string) error {
	return n.parent.ZAdd(ctx, n.key(key), score, member)
}

func (n *namespaced) Update(ctx context.Context, fn func(tx Tx) error) error {
	return n.parent.Update(ctx, func(tx Tx) error {
		return fn(&namespacedTx{tx: tx, ns: n})
	})
}

func (n *namespaced) Close() error { return nil }

type namespacedTx struct {
	tx Tx
	ns *namespaced
}

func (t *namespacedTx) Get(ctx context.Context, key string) ([]byte, error) {
	return t.tx.Get(ctx, t.ns.key(key))
}

func (t *namespacedTx) ZCount(ctx context.Context, key string, min, max int64) (int64, error) {
	return t.tx.ZCount(ctx, t.ns.key(key), min, max)
}

func (t *namespacedTx) ZRangeByScore(ctx context.Context, key string, min, max int64) ([]Member, error) {
	return t.tx.ZRangeByScore(ctx, t.ns.key(key), min, max)
}

func (t *namespacedTx) Set(ctx context.Context, key string, value []byte) error {
	return t.tx.Set(ctx, t.ns.key(key), value)
}

func (t *namespacedTx) Del(ctx context.Context, keys ...string) error {
	return t.tx.Del(ctx, t.ns.keys(keys)...)
}

func (t *namespacedTx) ZAdd(ctx context.Context, key string, score int64, member string) error {
	return t.tx.ZAdd(ctx, t.ns.key(key), score, member)
}

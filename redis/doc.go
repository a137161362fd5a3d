// Package redis wraps go-redis with the cache's logging, configuration and
// component lifecycle. The cache layer uses it as a shared backend for entity rows and KV records
// (see store/rediskv), so the wrapper exposes the hash commands those need.
//
//	cfg := redis.Config{Enabled: true, Addr: "localhost:6379"}
//	client, err := redis.New(cfg, log)
package redis

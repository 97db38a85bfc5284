// Package memkv provides an in-memory key-value store that speaks the Redis
// serialization protocol (RESP).
//
// Clients send SET, GET and DEL as RESP arrays of bulk strings. Requests on
// one connection are answered in order; several connections share one store
// whose operations are atomic per key.
//
// Basic usage:
//
//	kv, err := memkv.New(
//		memkv.WithAddr("127.0.0.1:8080"),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer kv.Close()
//
//	if err := kv.Start(context.Background()); err != nil {
//		log.Fatal(err)
//	}
//
// Any RESP client works, for example with github.com/redis/go-redis:
//
//	client := redis.NewClient(&redis.Options{Addr: kv.Addr()})
//	client.Do(ctx, "SET", "greeting", "hello")
//
// Command names are matched exactly, so they must be sent upper case.
//
// The packages underneath can be used on their own: protocol holds the RESP
// codec and command model, storage the sharded map and server the
// per-connection dispatcher and TCP supervisor.
package memkv

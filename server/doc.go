// Package server runs the RESP request/response loop for the key-value store.
//
// Each accepted connection gets its own Dispatcher, a small state machine
// that buffers incoming bytes, parses every complete value, executes the
// resulting command against the shared storage.Storage and writes the
// replies back in the order the requests arrived:
//
//	AwaitingData -> TryParse -> Dispatch -> Reply -> TryParse ...
//	                    |                     ^
//	                    +---- syntax error ---+--> Closed
//
// Command errors (unknown name, wrong arity) produce an error reply and the
// connection stays open. A framing error produces "-ERR protocol error" and
// closes the connection, since the stream cannot be re-synchronized.
//
// The server is compatible with Redis clients like github.com/redis/go-redis
// for the SET, GET and DEL commands.
package server

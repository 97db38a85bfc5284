// Package protocol implements the subset of the Redis Serialization
// Protocol (RESP) used by memkv, and the command model built on top of it.
//
// Parsing works on byte slices that may hold an incomplete value. Parse
// reports ErrIncomplete for a valid prefix so the caller can read more and
// retry, and a *SyntaxError for framing that can never become valid:
//
//	r := protocol.NewReader()
//	for {
//		if _, err := r.ReadFrom(conn); err != nil {
//			break
//		}
//		for {
//			v, err := r.Next()
//			if errors.Is(err, protocol.ErrIncomplete) {
//				break
//			}
//			// handle v or err
//		}
//	}
//
// Parsed values alias the buffer they came from. ParseCommand turns an
// array into a SET, GET or DEL Command; Clone detaches it from the buffer.
//
// The package supports these RESP types:
//   - Simple Strings
//   - Errors
//   - Integers
//   - Bulk Strings (including null)
//   - Arrays (including null, arbitrarily typed elements, bounded nesting)
package protocol

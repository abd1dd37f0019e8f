// Package jrpc provides a JSON-RPC 2.0 client for Go.
//   - Builds request, notification and batch envelopes, with IDs reserved from a [Generator].
//   - Sends them through a pluggable [Transport], see the httptransport package for HTTP.
//   - Validates every reply and reports failures with a closed set of errors, see [Error].
//
// To create a new client, use the NewClient function:
//
//	c := jrpc.NewClient(httptransport.New(
//		httptransport.WithTokenSource(src), // Optional, sets the Authorization header of every call.
//	))
//
//	result, err := c.Call(ctx, "http://localhost:8080/rpc", jrpc.Call("echo").Args([]string{"hello"}))
//	if err != nil {
//		log.Printf("error: %v", err)
//		return
//	}
//
//	var echo string
//	_ = json.Unmarshal(result, &echo)
//
// Notifications don't reserve an ID, a successful notification has an empty reply:
//
//	if err := c.Notify(ctx, url, jrpc.Call("log").Args([]string{"hello"})); err != nil {
//		log.Printf("error: %v", err)
//	}
//
// Batch calls send several requests and notifications at once, each request gets its own [CallResult]:
//
//	results, err := c.Batch(url).
//		Request("math.add", []int{1, 2}).
//		Notify("log", []string{"adding"}).
//		Request("math.sub", []int{3, 1}).
//		Exec(ctx)
//	if err != nil {
//		log.Printf("batch failed: %v", err)
//		return
//	}
//
//	for _, res := range results {
//		var n int
//		if err := res.Decode(&n); err != nil {
//			log.Printf("request %s failed: %v", res.ID, err)
//			continue
//		}
//
//		log.Printf("request %s: %d", res.ID, n)
//	}
//
// Errors are one of [*TransportError] (the transport failed or the status is not 2xx), [*ProtocolError] (the reply is
// not JSON, [CodeParseError], or not a valid response, [CodeInvalidResponse]) and [*ApplicationError] (the server
// replied with an error object). All of them implement [Error]:
//
//	var rpcErr jrpc.Error
//	if errors.As(err, &rpcErr) {
//		log.Printf("%v error: %s", rpcErr.Kind(), rpcErr) // e.g. "transport error: (404) Not found"
//	}
//
//	if errors.Is(err, jrpc.ErrMethodNotFound) {
//		// The server doesn't know the method.
//	}
package jrpc

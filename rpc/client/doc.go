// Package client provides a Go client for the vaultkv line protocol.
//
// A Client wraps one TCP connection and exposes the three store operations
// as methods. Transport failures are retried on a fresh connection up to
// the configured retry count; since SET, GET and DELETE are idempotent, a
// resend after a torn connection cannot corrupt state.
//
// Usage:
//
//	c, err := client.Connect(common.ClientConfig{Endpoint: "localhost:6380"})
//	if err != nil {
//		panic(err)
//	}
//	defer c.Close()
//
//	if err := c.Set("greeting", "hello"); err != nil {
//		panic(err)
//	}
//	value, loaded, err := c.Get("greeting")
package client

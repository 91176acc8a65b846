// Package cedar is the Go client for the Cedar authorization decision point.
//
// The client sends authorization requests to POST /v1/authorize and returns
// the decision. Allowed decisions are cached for a short TTL; denied decisions
// are never cached, so a policy or membership change takes effect immediately
// for previously denied requests.
//
// Basic usage:
//
//	client := cedar.NewClient(cedar.WithServerAddr("http://127.0.0.1:8080"))
//	decision, err := client.Authorize(ctx, cedar.Request{
//		Principal: cedar.Principal{Type: "User", ID: "user-1"},
//		Action:    "GetAgent",
//		Resource:  cedar.Resource{Type: "Agent", ID: "agent-1"},
//	})
//
// The zero-configuration path reads CEDAR_SERVER_ADDR and related environment
// variables, mirroring the server's own CEDAR_ prefix.
package cedar

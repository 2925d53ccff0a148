// Package forwarder delivers encoded line protocol points to the
// time-series database HTTP write API.
//
// Each point is sent in its own POST, exactly once. The result is an
// Outcome rather than an error: every outcome is a normal event for the
// caller to audit, and none of them ends a client connection.
//
//	fwd, err := forwarder.New(forwarder.Config{URL: ..., Token: ..., Org: ..., Bucket: ...})
//	out := fwd.Forward(ctx, line)
//	switch out.Kind {
//	case forwarder.Delivered:
//	case forwarder.Rejected:         // out.Status, out.Body
//	case forwarder.TransportFailure: // out.Err
//	}
package forwarder

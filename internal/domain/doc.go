// Package domain holds the wire types shared between the webhook bridge,
// the broadcaster, and the SSE endpoint.
package domain

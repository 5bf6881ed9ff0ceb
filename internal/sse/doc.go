// Package sse implements the Server-Sent-Events delivery side of the
// fragment update pipeline: the process-local table of live stream handles,
// the framed stream writer, and the broadcaster that fans one event out to
// every subscriber the registry knows about.
//
// Ownership split: the registry (see the registry package) holds serializable
// metadata visible to every instance; this package holds the live sinks,
// which never leave the process that accepted the connection. A broadcast
// issued here only writes to sinks in this process's controller table;
// other instances deliver to their own subscribers when the same webhook
// reaches them.
package sse

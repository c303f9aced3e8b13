// Package scsynth is a client-side control plane for SuperCollider's scsynth
// synthesis server, speaking the server's OSC dialect over UDP.
//
// A Client owns the socket, a background receive loop, per-reply-address
// queues with skip accounting, the node registry, and this client's id
// partitions for nodes, buffers and buses. Node, Synth and Group handles
// mirror server state driven by the /n_go, /n_on, /n_off, /n_end and /n_move
// notification stream; enable notifications with NotifyEnable before relying
// on them.
//
// Timed message composition goes through Bundler: relative timestamps are
// resolved against a single wall-clock read at build time, and
// Client.BundleScope redirects plain sends into the bundle being composed.
package scsynth

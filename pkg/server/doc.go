// Package server exposes a graph over HTTP for inspection.
//
// Routes:
//
//	GET  /nodes          snapshot of every node (JSON)
//	GET  /nodes/{name}   value of a Static node at the current time
//	PUT  /nodes/{name}   write a JSON value to a Static input
//	GET  /tree           dependency tree (text), ?root=a,b to pick roots
//	GET  /events         WebSocket stream of ready and change events
//	GET  /metrics        Prometheus metrics, when a Gatherer is configured
//
// Instance nodes are not addressable over HTTP since requests carry no
// graph context.
//
// # Usage
//
//	srv := server.New(g, server.DefaultServerConfig().WithGatherer(reg))
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server

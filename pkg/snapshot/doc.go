// Package snapshot captures the state of a graph for inspection.
//
// A Snapshot lists every bound node with its kind, provider, parameters and
// the latest global value, plus the dependency edges. Taking a snapshot never
// runs a provider. Snapshots render as a dependency tree and export as JSON to
// a directory or an S3 bucket.
//
//	snap := snapshot.Take(g)
//	fmt.Print(snap.Tree())
//
//	exp, _ := snapshot.NewFileExporter("snapshots")
//	path, err := exp.Export(ctx, snap)
package snapshot

// Package config provides configuration parsing for vgraph.
//
// The configuration is stored in vgraph.json, found by walking up from the
// working directory. Every field is optional.
//
// # Configuration File Structure
//
//	{
//	  "manifests": ["graph"],
//	  "log": {
//	    "level": "info",
//	    "format": "text"
//	  },
//	  "graph": {
//	    "inputHistory": 16
//	  },
//	  "metrics": {
//	    "enabled": true,
//	    "namespace": "vgraph"
//	  },
//	  "tracing": {
//	    "enabled": false
//	  },
//	  "server": {
//	    "addr": "localhost:7070"
//	  },
//	  "snapshot": {
//	    "dir": "snapshots",
//	    "bucket": "my-bucket",
//	    "prefix": "vgraph/",
//	    "region": "eu-west-1"
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.LoadFromWorkingDir()
//	if err != nil {
//	    return err
//	}
//	rt, err := vgraph.New(cfg)
package config

// Package config loads and validates bridginghub pipeline configurations.
//
// A configuration is a single mapping with the reserved key "data" plus one
// sub-mapping per pipeline segment. Segment declaration order is execution
// order, so the loader preserves it: JSON files are walked through the token
// stream, YAML files through the yaml.Node tree.
//
// # Configuration Structure
//
//	{
//	  "data": {
//	    "timestamp_name": "ts",
//	    "value_register_map": {
//	      "p1": {"unit": "°C", "location": "cellar"}
//	    }
//	  },
//	  "collect": {
//	    "module_class_name": "StdinCollector",
//	    "module_path": "github.com/ategus/bridginghub/input/stdin",
//	    "module_type": "input"
//	  },
//	  "buffer": {
//	    "module_class_name": "FileCache",
//	    "module_path": "github.com/ategus/bridginghub/storage/filecache",
//	    "module_type": "storage:buffer",
//	    "cache_dir": "/var/lib/bridginghub/cache"
//	  }
//	}
//
// The "data" section carries the field-name overrides (`<field>_name` keys)
// and the value_register_map, the authoritative registry of expected
// record-ids with their default fields.
//
// Every segment carries the descriptor keys module_class_name, module_path
// and module_type (optionally suffixed, e.g. "storage:buffer"), plus any
// stage-specific keys its implementation reads from the Detail map. An
// optional module_subscription list attaches the segment as an observer of
// the named segments instead of placing it on the driving flow.
//
// # File References
//
// A section whose value is a string names another configuration file that is
// loaded recursively in its place. Relative references resolve against the
// referring file's directory:
//
//	{
//	  "data": "common/data.json",
//	  "deliver": "sinks/production.yaml"
//	}
//
// # Reading Stage Detail
//
// Stage implementations read their keys through the typed helpers:
//
//	dir := config.GetString(seg.Detail, "cache_dir", "")
//	sync := config.GetBool(seg.Detail, "fsync", false)
package config

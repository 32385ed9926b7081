// Package filecache implements the durable staging engine: a storage stage
// that parks records as JSON files between pipeline passes and promotes them
// to their final disposition.
//
// # File layout
//
// Each staged record is one file named <ts>_<id>.json, where <ts> is the
// record's timestamp as a decimal nanosecond count and <id> its record-id:
//
//	<cache_dir>/1673785845123000000_p1.json
//
// The cache holds at most one generation per id; writing a new generation
// removes the older ones. Promotion moves delivered records into a
// date-partitioned archive and definitively rejected records into junk:
//
//	<archive_dir>/2023/01/15/1673785845123000000_p1.json   status "done"
//	<junk_dir>/1673785845123000000_p2.json                 status "broken"
//
// # Durability
//
// Every file is published through a temp file in the destination directory
// followed by an atomic rename, so a reader or a crashed pass never sees
// partial content. Promotion writes the destination copy first and removes
// the cache copy second; a crash between the two leaves a duplicate, never a
// lost record. With fsync enabled the contents are additionally synced to
// disk before the rename, extending the guarantee to power loss.
//
// # Configuration
//
//	"buffer": {
//	  "module_class_name": "FileCache",
//	  "module_path": "github.com/ategus/bridginghub/storage/filecache",
//	  "module_type": "storage:buffer",
//	  "cache_dir": "/var/lib/bridginghub/cache",
//	  "archive_dir": "/var/lib/bridginghub/archive",
//	  "junk_dir": "/var/lib/bridginghub/junk",
//	  "fsync": false
//	}
//
// All directories must be absolute paths and are created at configure time.
// archive_dir and junk_dir are optional: with neither, Store is a no-op;
// with exactly one, it serves both dispositions and the stamped status
// tells delivered and rejected records apart.
//
// A cache directory belongs to one process at a time. Concurrent passes
// over the same cache_dir are unsupported.
package filecache

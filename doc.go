// Package bridginghub moves measurement records from collection sources to
// delivery sinks with a durable staging cache in between.
//
// # Overview
//
// A bridginghub process runs exactly one pass of one action over a
// configured pipeline and exits. The four actions split the pipeline at
// the staging cache:
//
//	bridge    collect -> filter -> stage -> deliver   (one shot)
//	input     collect -> filter -> stage              (gather only)
//	output    read stage -> filter -> deliver         (drain only)
//	cleanup   promote staged records to archive/junk
//
// Records are flat string maps keyed by a record-id; a batch maps ids to
// records. Stages stamp a status field as records move: "in" when
// collected, "cached" while staged, "out" when a sink accepted the record,
// "failed" when a sink rejected it, then "done" or "broken" once the
// cleanup action archives or junks it.
//
// # Segments and the dispatch graph
//
// A configuration declares named segments, each referencing a stage
// implementation by module path and class name plus a capability
// (input, filter, output, storage). The engine realizes segments through
// the stage registry, asks each for its callable under the current action,
// and folds a batch through the active ones in declaration order. A
// segment with module_subscription leaves that driving flow and instead
// observes another segment's results through deep clones.
//
// # Package layout
//
//	cmd/bridginghub    single-pass CLI launcher
//	config             configuration loading, file references, validation
//	engine             graph construction and pass execution
//	stage              stage contracts, activation, registry
//	stageregistry      registration of all bundled implementations
//	record             records, batches, statuses, field-name table
//	errors             kinded error wrapping shared by all packages
//	metric             Prometheus pass and record counters
//	input/...          stdin, static and NATS collectors
//	filter/...         field mapping and sandboxed Lua scripting
//	output/...         stdout and HTTP POST senders
//	storage/filecache  file-backed staging cache, archive and junk areas
//	pkg/...            retry and TLS helpers shared by senders
//
// Implementations live behind the stage interfaces, so deployments can
// register their own collectors, filters, senders or storage without
// touching the engine.
package bridginghub

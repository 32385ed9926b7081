package filecache

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ategus/bridginghub/config"
	"github.com/ategus/bridginghub/errors"
	"github.com/ategus/bridginghub/pkg/timestamp"
	"github.com/ategus/bridginghub/record"
	"github.com/ategus/bridginghub/stage"
)

const (
	className = "FileCache"
	location  = "github.com/ategus/bridginghub/storage/filecache"

	stagedSuffix = ".json"
)

// FileCache stages records as one JSON file per record-id in a cache
// directory and promotes them to a date-partitioned archive or a junk
// directory. Files are published with temp-file + rename, so readers never
// see partial content. A cache directory has exactly one writing process at
// a time; concurrent writers are unsupported.
type FileCache struct {
	segment string
	logger  *slog.Logger

	settings   stage.Settings
	config     Config
	configured bool
}

var _ stage.Storage = (*FileCache)(nil)

// New creates an unconfigured FileCache for the given segment.
func New(segment string, deps stage.Dependencies) (stage.Stage, error) {
	return &FileCache{
		segment: segment,
		logger:  deps.GetLoggerWithSegment(segment),
	}, nil
}

// Register adds the FileCache implementation to the registry.
func Register(registry *stage.Registry) error {
	return registry.RegisterFactory(stage.Registration{
		Class:       className,
		Location:    location,
		Type:        config.TypeStorage,
		Description: "File-based staging cache with archive and junk promotion",
		Version:     "1.0.0",
		Factory:     New,
	})
}

// Meta describes this stage instance.
func (f *FileCache) Meta() stage.Metadata {
	return stage.Metadata{
		Segment:     f.segment,
		Class:       className,
		Type:        config.TypeStorage,
		Description: "File-based staging cache with archive and junk promotion",
		Version:     "1.0.0",
	}
}

// Configure resolves the segment settings, validates the directory layout
// and creates every configured directory with intermediate directories.
func (f *FileCache) Configure(cfg *config.Config) error {
	if f.configured {
		return errors.WrapConfig(errors.ErrInvalidConfig, className, "Configure", "configure stage twice")
	}

	settings, err := stage.ResolveSettings(cfg, f.segment, config.TypeStorage)
	if err != nil {
		return err
	}

	fileCfg := parseConfig(settings.Segment.Detail)
	if err := fileCfg.Validate(); err != nil {
		return errors.WrapConfig(err, className, "Configure", "validate directory layout")
	}

	for _, dir := range fileCfg.directories() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.WrapStorage(err, className, "Configure", "create directory")
		}
	}

	f.settings = settings
	f.config = fileCfg
	f.configured = true

	f.logger.Debug("staging directories ready",
		"cache_dir", fileCfg.CacheDir,
		"archive_dir", fileCfg.ArchiveDir,
		"junk_dir", fileCfg.JunkDir,
		"fsync", fileCfg.FSync)
	return nil
}

// Dispatch returns the operation for the run context according to the
// storage activation table and the segment's declared subtype.
func (f *FileCache) Dispatch(rc stage.RunContext) (stage.Callable, error) {
	if !f.configured {
		return nil, errors.WrapConfig(errors.ErrMissingConfig, className, "Dispatch", "dispatch unconfigured stage")
	}
	return stage.DispatchStorage(f, f.settings.Segment.Subtype, rc)
}

// WriteCache stages each record: stamps status cached, normalizes the
// timestamp field, publishes <ts>_<id>.json into the cache directory and
// removes older generations for the same id. Per-record failures are logged
// and skipped; the returned batch is the successfully staged subset.
func (f *FileCache) WriteCache(_ context.Context, batch record.Batch) (record.Batch, error) {
	names := f.settings.Names
	staged := record.Batch{}

	for _, id := range batch.IDs() {
		rec := batch[id]

		ns := timestamp.Parse(names.Get(rec, record.FieldTimestamp))
		if ns == 0 {
			ns = timestamp.Now()
		}
		names.Set(rec, record.FieldTimestamp, timestamp.String(ns))
		names.Set(rec, record.FieldStatus, record.StatusCached)

		data, err := json.Marshal(rec)
		if err != nil {
			f.logger.Warn("staging skipped, record not serializable", "id", id, "error", err)
			continue
		}

		name := stagedName(timestamp.String(ns), id)
		if err := f.publish(filepath.Join(f.config.CacheDir, name), data); err != nil {
			f.logger.Warn("staging skipped, write failed", "id", id, "error", err)
			continue
		}

		f.pruneGenerations(id, name)
		staged[id] = rec
	}

	return staged, nil
}

// ReadCache loads the oldest staged generation of every registered
// record-id. Ids without a staged file are simply absent; a corrupt staged
// file is skipped with a warning and the next generation is tried.
func (f *FileCache) ReadCache(_ context.Context) (record.Batch, error) {
	generations, err := f.stagedGenerations()
	if err != nil {
		return nil, errors.WrapStorage(err, className, "ReadCache", "list cache directory")
	}

	batch := record.Batch{}
	for _, id := range f.settings.RegisterIDs() {
		for _, name := range generations[id] {
			path := filepath.Join(f.config.CacheDir, name)
			data, err := os.ReadFile(path)
			if err != nil {
				f.logger.Warn("staged file unreadable", "id", id, "file", name, "error", err)
				continue
			}
			var rec record.Record
			if err := json.Unmarshal(data, &rec); err != nil {
				f.logger.Warn("staged file corrupt", "id", id, "file", name, "error", err)
				continue
			}
			batch[id] = rec
			break
		}
	}

	return batch, nil
}

// CleanCache removes every staged generation of each given record-id. An
// already-missing file is not an error. Returns the subset of the batch
// whose files were actually removed.
func (f *FileCache) CleanCache(_ context.Context, batch record.Batch) (record.Batch, error) {
	generations, err := f.stagedGenerations()
	if err != nil {
		return nil, errors.WrapStorage(err, className, "CleanCache", "list cache directory")
	}

	cleaned := record.Batch{}
	for _, id := range batch.IDs() {
		removed := false
		for _, name := range generations[id] {
			err := os.Remove(filepath.Join(f.config.CacheDir, name))
			switch {
			case err == nil:
				removed = true
			case os.IsNotExist(err):
				// Already gone, nothing to do.
			default:
				f.logger.Warn("staged file not removable", "id", id, "file", name, "error", err)
			}
		}
		if removed {
			cleaned[id] = batch[id]
		}
	}

	return cleaned, nil
}

// Store promotes each record to its final disposition: status failed goes
// to the junk directory as broken, everything else to the date-partitioned
// archive as done. The destination write completes before the cache copy is
// deleted, so a crash between the two leaves the record recoverable. With
// neither archive nor junk configured Store is a no-op returning an empty
// batch. Per-record failures leave the record cached and omit it from the
// returned batch.
func (f *FileCache) Store(_ context.Context, batch record.Batch) (record.Batch, error) {
	if f.config.ArchiveDir == "" && f.config.JunkDir == "" {
		return record.Batch{}, nil
	}

	generations, err := f.stagedGenerations()
	if err != nil {
		return nil, errors.WrapStorage(err, className, "Store", "list cache directory")
	}

	names := f.settings.Names
	stored := record.Batch{}

	for _, id := range batch.IDs() {
		rec := batch[id]

		ns := timestamp.Parse(names.Get(rec, record.FieldTimestamp))
		if ns == 0 {
			ns = timestamp.Now()
		}

		var destDir string
		if names.Get(rec, record.FieldStatus) == record.StatusFailed {
			destDir = f.junkDir()
			names.Set(rec, record.FieldStatus, record.StatusBroken)
		} else {
			year, month, day := timestamp.DateParts(ns)
			destDir = filepath.Join(f.archiveDir(), year, month, day)
			names.Set(rec, record.FieldStatus, record.StatusDone)
		}

		data, err := json.Marshal(rec)
		if err != nil {
			f.logger.Warn("promotion skipped, record not serializable", "id", id, "error", err)
			continue
		}
		if err := os.MkdirAll(destDir, 0o755); err != nil {
			f.logger.Warn("promotion skipped, destination not creatable", "id", id, "dir", destDir, "error", err)
			continue
		}

		name := stagedName(timestamp.String(ns), id)
		if err := f.publish(filepath.Join(destDir, name), data); err != nil {
			f.logger.Warn("promotion skipped, destination write failed", "id", id, "error", err)
			continue
		}

		// Destination is durable, the cache copy may go. A removal failure
		// leaves a duplicate staged copy, never a lost record.
		for _, staged := range generations[id] {
			if err := os.Remove(filepath.Join(f.config.CacheDir, staged)); err != nil && !os.IsNotExist(err) {
				f.logger.Warn("stored record still staged", "id", id, "file", staged, "error", err)
			}
		}

		stored[id] = rec
	}

	return stored, nil
}

// archiveDir returns the base directory for delivered records, falling back
// to the junk directory when only that one is configured.
func (f *FileCache) archiveDir() string {
	if f.config.ArchiveDir != "" {
		return f.config.ArchiveDir
	}
	return f.config.JunkDir
}

// junkDir returns the directory for rejected records, falling back to the
// archive directory when only that one is configured.
func (f *FileCache) junkDir() string {
	if f.config.JunkDir != "" {
		return f.config.JunkDir
	}
	return f.config.ArchiveDir
}

// publish writes data to path via a temp file in the same directory and an
// atomic rename. With fsync configured the contents are synced before the
// rename becomes visible.
func (f *FileCache) publish(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".staging-*")
	if err != nil {
		return err
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if f.config.FSync {
		if err := tmp.Sync(); err != nil {
			return err
		}
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// pruneGenerations removes every staged file of the id except keep.
func (f *FileCache) pruneGenerations(id, keep string) {
	generations, err := f.stagedGenerations()
	if err != nil {
		f.logger.Warn("older generations not pruned", "id", id, "error", err)
		return
	}
	for _, name := range generations[id] {
		if name == keep {
			continue
		}
		if err := os.Remove(filepath.Join(f.config.CacheDir, name)); err != nil && !os.IsNotExist(err) {
			f.logger.Warn("older generation not removed", "id", id, "file", name, "error", err)
		}
	}
}

// stagedGenerations lists the cache directory and groups staged files by
// record-id, each group in lexical filename order, oldest first.
func (f *FileCache) stagedGenerations() (map[string][]string, error) {
	entries, err := os.ReadDir(f.config.CacheDir)
	if err != nil {
		return nil, err
	}

	generations := make(map[string][]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id, ok := stagedID(entry.Name())
		if !ok {
			continue
		}
		generations[id] = append(generations[id], entry.Name())
	}
	for _, names := range generations {
		sort.Strings(names)
	}
	return generations, nil
}

// stagedName builds the staged filename <ts>_<id>.json. The timestamp part
// is a decimal nanosecond count, so the first underscore always separates
// timestamp from id.
func stagedName(ts, id string) string {
	return ts + "_" + id + stagedSuffix
}

// stagedID extracts the record-id from a staged filename.
func stagedID(name string) (string, bool) {
	if !strings.HasSuffix(name, stagedSuffix) {
		return "", false
	}
	trimmed := strings.TrimSuffix(name, stagedSuffix)
	idx := strings.Index(trimmed, "_")
	if idx < 0 || idx == len(trimmed)-1 {
		return "", false
	}
	return trimmed[idx+1:], true
}

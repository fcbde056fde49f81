package markerbed

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/andreiashu/markerbed/internal/fsutil"
)

// backupTimeLayout sorts lexicographically in time order.
const backupTimeLayout = "20060102T150405.000000000Z"

// Backups writes timestamped snapshots of a dataset file before it is
// mutated. Snapshots are never pruned.
type Backups struct {
	dir string
	now func() time.Time
}

// BackupInfo describes one snapshot on disk.
type BackupInfo struct {
	Path      string
	Operation Operation
	Taken     time.Time
	Size      int64
}

// NewBackups returns a manager writing into dir. now defaults to time.Now.
func NewBackups(dir string, now func() time.Time) *Backups {
	if now == nil {
		now = time.Now
	}
	return &Backups{dir: dir, now: now}
}

// Dir returns the backup directory.
func (b *Backups) Dir() string { return b.dir }

// Snapshot copies src verbatim into the backup directory, naming the copy
// after the current time and op. It returns "" without error when src does not
// exist yet. Any other failure must abort the mutation that asked for it.
//
// The Store calls it while holding the dataset token, so the copy is the file
// the mutation is about to replace.
func (b *Backups) Snapshot(src string, op Operation) (string, error) {
	data, exists, err := fsutil.ReadFileIfExists(src)
	if err != nil {
		return "", fmt.Errorf("reading %s for backup: %w", src, err)
	}
	if !exists {
		return "", nil
	}
	if err := fsutil.EnsureDir(b.dir); err != nil {
		return "", fmt.Errorf("creating backup directory: %w", err)
	}

	dst := b.name(src, op)
	if err := fsutil.WriteFileAtomic(dst, data, fsutil.FilePerm); err != nil {
		return "", fmt.Errorf("writing backup %s: %w", dst, err)
	}
	return dst, nil
}

// name picks a file name that does not exist yet:
// <base>_<timestamp>_<op><ext>, with a -N suffix on collision.
func (b *Backups) name(src string, op Operation) string {
	ext := filepath.Ext(src)
	base := strings.TrimSuffix(filepath.Base(src), ext)
	stamp := b.now().UTC().Format(backupTimeLayout)

	candidate := filepath.Join(b.dir, fmt.Sprintf("%s_%s_%s%s", base, stamp, op, ext))
	for i := 1; fsutil.FileExists(candidate); i++ {
		candidate = filepath.Join(b.dir, fmt.Sprintf("%s_%s_%s-%d%s", base, stamp, op, i, ext))
	}
	return candidate
}

// List returns the snapshots in the backup directory, newest first. Files that
// do not follow the snapshot naming scheme are ignored.
func (b *Backups) List() ([]BackupInfo, error) {
	entries, err := os.ReadDir(b.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	var out []BackupInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		taken, op, ok := parseBackupName(e.Name())
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, BackupInfo{
			Path:      filepath.Join(b.dir, e.Name()),
			Operation: op,
			Taken:     taken,
			Size:      info.Size(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Taken.Equal(out[j].Taken) {
			return out[i].Taken.After(out[j].Taken)
		}
		return out[i].Path > out[j].Path
	})
	return out, nil
}

// parseBackupName extracts the timestamp and operation from a snapshot name.
func parseBackupName(name string) (time.Time, Operation, bool) {
	name = strings.TrimSuffix(name, filepath.Ext(name))
	parts := strings.Split(name, "_")
	if len(parts) < 3 {
		return time.Time{}, "", false
	}
	opPart := parts[len(parts)-1]
	if i := strings.LastIndexByte(opPart, '-'); i > 0 {
		if _, err := strconv.Atoi(opPart[i+1:]); err == nil {
			opPart = opPart[:i]
		}
	}
	taken, err := time.Parse(backupTimeLayout, parts[len(parts)-2])
	if err != nil {
		return time.Time{}, "", false
	}
	switch op := Operation(opPart); op {
	case OpUpsert, OpBatch, OpReplace, OpClear:
		return taken, op, true
	}
	return time.Time{}, "", false
}

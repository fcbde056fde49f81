package markerbed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/andreiashu/markerbed/internal/fsutil"
)

// ReplaceMode is reported by Replace.
const ReplaceMode = "complete_replace"

// Store is the upsert engine for one dataset file. Mutating operations on the
// same file are serialized; reads never block.
type Store struct {
	path       string
	cfg        *Config
	normalizer *Normalizer
	backups    *Backups
	ledger     Ledger
	token      *semaphore.Weighted
	log        *zap.Logger

	hooksMu sync.RWMutex
	hooks   []func([]Record)
}

// UpsertResult is returned by Upsert.
type UpsertResult struct {
	Success    bool   `json:"success"`
	Action     string `json:"action"` // "added" or "updated"
	Record     Record `json:"record"`
	TotalCount int    `json:"totalCount"`
}

// BatchResult is returned by UpsertBatch.
type BatchResult struct {
	Success      bool `json:"success"`
	AddedCount   int  `json:"addedCount"`
	UpdatedCount int  `json:"updatedCount"`
	TotalCount   int  `json:"totalCount"`
}

// ReplaceResult is returned by Replace.
type ReplaceResult struct {
	Success      bool   `json:"success"`
	TotalRecords int    `json:"totalRecords"`
	Mode         string `json:"mode"`
}

// ClearResult is returned by Clear.
type ClearResult struct {
	Success      bool `json:"success"`
	ClearedCount int  `json:"clearedCount"`
}

// Status is the ledger plus the current size of the dataset.
type Status struct {
	LedgerSnapshot
	RecordCount int    `json:"recordCount"`
	DatasetPath string `json:"datasetPath"`
}

// Open returns a Store for the dataset at path. The dataset and backup
// directories are created if needed; the file itself is created by the first
// write.
//
// Example:
//
//	s, err := Open("./data/markers.csv", WithBackupDir("./data/backups"), WithLogger(logger))
func Open(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: dataset path is empty", ErrInvalidConfig)
	}
	cfg := defaultConfig(path)
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if err := fsutil.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("creating dataset directory: %w", err)
	}
	if err := fsutil.EnsureDir(cfg.BackupDir); err != nil {
		return nil, fmt.Errorf("creating backup directory: %w", err)
	}

	return &Store{
		path:       path,
		cfg:        cfg,
		normalizer: NewNormalizer(cfg.FuzzyDistance, cfg.DefaultKecamatan),
		backups:    NewBackups(cfg.BackupDir, cfg.Now),
		token:      fileToken(path),
		log:        cfg.Logger.With(zap.String("dataset", path)),
	}, nil
}

// Path returns the dataset file path.
func (s *Store) Path() string { return s.path }

// Backups returns the store's backup manager.
func (s *Store) Backups() *Backups { return s.backups }

// Normalizer returns the normalizer used for incoming payloads.
func (s *Store) Normalizer() *Normalizer { return s.normalizer }

// OnCommit registers fn to run after every committed write with the new
// records. Hooks run while the file token is held, in commit order, and must
// not call mutating Store methods.
func (s *Store) OnCommit(fn func([]Record)) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// Upsert normalizes and validates one payload, then replaces the record with
// the same shop code in place or appends it.
func (s *Store) Upsert(ctx context.Context, payload map[string]any) (UpsertResult, error) {
	var res UpsertResult
	err := s.run(ctx, OpUpsert, func(tx *txn) error {
		rec, err := s.normalizer.Normalize(payload).Validate()
		if err != nil {
			return err
		}
		ds, err := tx.load()
		if err != nil {
			return err
		}
		res.Action = "updated"
		if ds.upsert(rec) {
			res.Action = "added"
		}
		tx.next = ds.records
		res.Record = rec
		res.TotalCount = ds.len()
		return nil
	})
	if err != nil {
		return UpsertResult{}, err
	}
	res.Success = true
	return res, nil
}

// UpsertBatch validates every payload first and writes nothing if any is
// invalid. Otherwise the records are merged in input order with one backup and
// one write.
func (s *Store) UpsertBatch(ctx context.Context, payloads []map[string]any) (BatchResult, error) {
	var res BatchResult
	err := s.run(ctx, OpBatch, func(tx *txn) error {
		records, err := s.validatePayloads(payloads)
		if err != nil {
			return err
		}
		ds, err := tx.load()
		if err != nil {
			return err
		}
		for _, rec := range records {
			if ds.upsert(rec) {
				res.AddedCount++
			} else {
				res.UpdatedCount++
			}
		}
		tx.next = ds.records
		res.TotalCount = ds.len()
		return nil
	})
	if err != nil {
		return BatchResult{}, err
	}
	res.Success = true
	return res, nil
}

// Replace discards the current dataset and writes payloads verbatim as the new
// one. Records missing from payloads survive only in the backup.
func (s *Store) Replace(ctx context.Context, payloads []map[string]any) (ReplaceResult, error) {
	var res ReplaceResult
	err := s.run(ctx, OpReplace, func(tx *txn) error {
		records, err := s.validatePayloads(payloads)
		if err != nil {
			return err
		}
		tx.next = records
		res.TotalRecords = len(records)
		return nil
	})
	if err != nil {
		return ReplaceResult{}, err
	}
	res.Success = true
	res.Mode = ReplaceMode
	return res, nil
}

// Clear resets the dataset to the header line. It does nothing and returns
// ErrConfirmationRequired unless confirm is true.
func (s *Store) Clear(ctx context.Context, confirm bool) (ClearResult, error) {
	var res ClearResult
	err := s.run(ctx, OpClear, func(tx *txn) error {
		if !confirm {
			return ErrConfirmationRequired
		}
		res.ClearedCount = countRows(tx.raw)
		tx.next = []Record{}
		return nil
	})
	if err != nil {
		return ClearResult{}, err
	}
	res.Success = true
	return res, nil
}

// Export returns the raw dataset file. A dataset that was never written reads
// as the header line.
func (s *Store) Export() ([]byte, error) {
	data, exists, err := fsutil.ReadFileIfExists(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}
	if !exists {
		return MarshalDataset(nil), nil
	}
	return data, nil
}

// Records returns the decoded dataset.
func (s *Store) Records() ([]Record, error) {
	data, err := s.Export()
	if err != nil {
		return nil, err
	}
	return ParseDataset(bytes.NewReader(data))
}

// Status returns the ledger and the current record count.
func (s *Store) Status() (Status, error) {
	data, err := s.Export()
	if err != nil {
		return Status{}, err
	}
	return Status{
		LedgerSnapshot: s.ledger.Snapshot(),
		RecordCount:    countRows(data),
		DatasetPath:    s.path,
	}, nil
}

// Ledger returns a snapshot of the store's counters.
func (s *Store) Ledger() LedgerSnapshot { return s.ledger.Snapshot() }

func (s *Store) validatePayloads(payloads []map[string]any) ([]Record, error) {
	if len(payloads) == 0 {
		return nil, ErrEmptyBatch
	}
	candidates := make([]Candidate, len(payloads))
	for i, p := range payloads {
		candidates[i] = s.normalizer.Normalize(p)
	}
	return validateAll(candidates)
}

// txn is the state of one mutating operation while it holds the file token.
type txn struct {
	raw    []byte // dataset file as read under the token
	exists bool
	next   []Record // dataset to commit
}

// load decodes the file read under the token.
func (t *txn) load() (*dataset, error) {
	if !t.exists {
		return newDataset(nil), nil
	}
	records, err := ParseDataset(bytes.NewReader(t.raw))
	if err != nil {
		return nil, fmt.Errorf("decoding dataset: %w", err)
	}
	return newDataset(records), nil
}

// run executes one mutating operation: take the token, read the file, let
// apply compute the new dataset, back up the old file, write the new one and
// record the outcome.
func (s *Store) run(ctx context.Context, op Operation, apply func(*txn) error) (err error) {
	log := s.log.With(zap.String("op", string(op)), zap.String("op_id", uuid.NewString()))
	defer func() { s.outcome(log, op, err) }()

	if err := s.token.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("waiting for dataset lock: %w", err)
	}
	defer s.token.Release(1)
	start := time.Now()

	tx := &txn{}
	tx.raw, tx.exists, err = fsutil.ReadFileIfExists(s.path)
	if err != nil {
		return fmt.Errorf("reading dataset: %w", err)
	}
	if err := apply(tx); err != nil {
		return err
	}

	backup, err := s.backups.Snapshot(s.path, op)
	if err != nil {
		return fmt.Errorf("backing up dataset: %w", err)
	}
	if err := fsutil.WriteFileAtomic(s.path, MarshalDataset(tx.next), fsutil.FilePerm); err != nil {
		return fmt.Errorf("writing dataset: %w", err)
	}

	s.cfg.Metrics.committed(op, len(tx.next), backup != "", time.Since(start))
	log.Info("dataset committed",
		zap.Int("records", len(tx.next)),
		zap.String("backup", backup),
		zap.Duration("took", time.Since(start)))

	s.hooksMu.RLock()
	hooks := s.hooks
	s.hooksMu.RUnlock()
	for _, fn := range hooks {
		fn(append([]Record(nil), tx.next...))
	}
	return nil
}

// outcome records the result of one operation in the ledger and metrics.
func (s *Store) outcome(log *zap.Logger, op Operation, err error) {
	s.ledger.record(err == nil, s.cfg.Now())
	switch {
	case err == nil:
		s.cfg.Metrics.observe(op, outcomeOK)
	case IsRejection(err):
		s.cfg.Metrics.observe(op, outcomeRejected)
		log.Warn("operation rejected", zap.Error(err))
	default:
		s.cfg.Metrics.observe(op, outcomeFailed)
		log.Error("operation failed", zap.Error(err))
	}
}

// RecordMalformed counts a request for op that never reached the store
// because its body could not be decoded. It is tallied as a rejection.
func (s *Store) RecordMalformed(op Operation, err error) {
	log := s.log.With(zap.String("op", string(op)))
	s.outcome(log, op, fmt.Errorf("%w: %v", ErrMalformedRequest, err))
}

// IsRejection reports whether err means the request itself was invalid
// (validation failure, missing confirmation, empty batch, undecodable body).
// Other errors are server-side failures.
func IsRejection(err error) bool {
	var ve *ValidationError
	var be *BatchError
	return errors.As(err, &ve) || errors.As(err, &be) ||
		errors.Is(err, ErrConfirmationRequired) || errors.Is(err, ErrEmptyBatch) ||
		errors.Is(err, ErrMalformedRequest)
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package corpus

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/AleutianAI/zkfuzz/pkg/validation"
	"github.com/AleutianAI/zkfuzz/services/fuzzer/oracle"
	storagebadger "github.com/AleutianAI/zkfuzz/services/fuzzer/storage/badger"
)

// Index key prefixes. Keys are "<prefix><runID>" for runs and
// "<prefix><runID>:<suffix>" otherwise; run IDs never contain ':'.
const (
	keyPrefixRun   = "run:"
	keyPrefixEntry = "entry:"
	keyPrefixDup   = "dup:"
)

// saveRetries bounds the read-check-write loop under Badger's
// serializable snapshot isolation. Two goroutines persisting the same
// divergence conflict at commit; the loser re-reads and sees the dup.
const saveRetries = 3

var corpusEntries = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "zkfuzz_corpus_entries_total",
	Help: "Corpus save outcomes partitioned by result.",
}, []string{"result"})

// =============================================================================
// Store
// =============================================================================

// Store is the corpus root plus its BadgerDB index.
//
// Thread Safety: safe for concurrent use. Concurrent saves of the same
// divergence resolve to one entry via transaction conflict retry.
type Store struct {
	root   string
	db     *storagebadger.DB
	logger *slog.Logger
}

type storeOptions struct {
	inMemoryIndex bool
	syncWrites    bool
	logger        *slog.Logger
}

// StoreOption customizes Open.
type StoreOption func(*storeOptions)

// WithInMemoryIndex keeps the index out of the filesystem. Entries
// still hit disk; duplicate suppression does not survive reopen. Tests
// use it.
func WithInMemoryIndex() StoreOption {
	return func(o *storeOptions) { o.inMemoryIndex = true }
}

// WithLogger routes index-internal logging. Nil silences it.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(o *storeOptions) { o.logger = logger }
}

// WithoutSyncWrites trades index durability for write latency. The
// entry files are written regardless; a crash can only cost dup
// suppression and journal checkpoints.
func WithoutSyncWrites() StoreOption {
	return func(o *storeOptions) { o.syncWrites = false }
}

// Open opens (or creates) the corpus at root.
//
// Inputs:
//
//	root - The corpus root directory. Created if missing.
//	opts - Optional store settings.
//
// Outputs:
//
//	*Store - The opened store. Caller must Close it.
//	error - Non-nil if the root or index cannot be opened.
func Open(root string, opts ...StoreOption) (*Store, error) {
	if root == "" {
		return nil, errors.New("corpus root must not be empty")
	}
	options := storeOptions{syncWrites: true}
	for _, opt := range opts {
		opt(&options)
	}

	if err := os.MkdirAll(root, 0750); err != nil {
		return nil, fmt.Errorf("create corpus root %s: %w", root, err)
	}

	cfg := storagebadger.DefaultConfig()
	cfg.Path = filepath.Join(root, indexDirName)
	cfg.SyncWrites = options.syncWrites
	cfg.Logger = options.logger
	if options.inMemoryIndex {
		cfg = storagebadger.InMemoryConfig()
	}

	db, err := storagebadger.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open corpus index: %w", err)
	}

	return &Store{root: root, db: db, logger: options.logger}, nil
}

// HasIndex reports whether root carries an on-disk index. Reporting
// tools use it to choose between the journal and a bare directory
// scan without creating an index as a side effect.
func HasIndex(root string) bool {
	info, err := os.Stat(filepath.Join(root, indexDirName))
	return err == nil && info.IsDir()
}

// Root returns the corpus root directory.
func (s *Store) Root() string { return s.root }

// EntryDir returns the directory an entry lives in.
func (s *Store) EntryDir(runID, entryID string) string {
	return filepath.Join(s.root, runID, entryID)
}

// Close closes the index. Entry files need no teardown.
func (s *Store) Close() error { return s.db.Close() }

// =============================================================================
// Saving
// =============================================================================

// Save persists one divergence, suppressing duplicates.
//
// Description:
//
//	Two findings are duplicates when pattern, input, and verdict all
//	repeat within the same run; repeat divergences of a buggy pattern
//	across an input batch would otherwise bury the corpus. The first
//	save writes the entry directory and indexes it atomically with the
//	duplicate marker; later saves return the existing entry.
//
// Inputs:
//
//	ctx - Context for cancellation.
//	runID - The capturing run. Must pass validation.ValidateRunID;
//	    the ID becomes a directory name and an index key segment.
//	e - The divergence to persist.
//
// Outputs:
//
//	*SavedEntry - The persisted (or pre-existing) entry.
//	bool - True when this call created the entry.
//	error - Non-nil on filesystem or index failure.
func (s *Store) Save(ctx context.Context, runID string, e Entry) (*SavedEntry, bool, error) {
	if runID == "" {
		return nil, false, ErrNoRunID
	}
	if err := validation.ValidateRunID(runID); err != nil {
		return nil, false, err
	}
	dup := dupKey(runID, e.Pattern, e.Input.Text, e.Judgment.Verdict)

	var conflictErr error
	for attempt := 0; attempt < saveRetries; attempt++ {
		existing, err := s.entryIDForDup(ctx, dup)
		if err != nil {
			return nil, false, err
		}
		if existing != "" {
			saved, err := s.savedEntry(ctx, runID, existing)
			if err != nil {
				return nil, false, err
			}
			corpusEntries.WithLabelValues("duplicate").Inc()
			return saved, false, nil
		}

		saved, err := s.createEntry(ctx, runID, e, dup)
		if err == nil {
			corpusEntries.WithLabelValues("created").Inc()
			return saved, true, nil
		}
		if !errors.Is(err, dgbadger.ErrConflict) {
			return nil, false, err
		}
		conflictErr = err
	}
	return nil, false, fmt.Errorf("save corpus entry: %w", conflictErr)
}

// createEntry writes the entry directory and commits its index keys.
// The files land before the index commit so a crash leaves at worst an
// unindexed but replayable directory; a commit conflict removes it.
func (s *Store) createEntry(ctx context.Context, runID string, e Entry, dup []byte) (*SavedEntry, error) {
	now := time.Now().UTC()
	meta := Metadata{
		RunID:      runID,
		EntryID:    newEntryID(now),
		Label:      e.Input.Label.String(),
		Strategy:   e.Input.Strategy,
		Seed:       e.Seed,
		Judgment:   e.Judgment,
		Results:    e.Results,
		Toolchains: e.Toolchains,
		CreatedAt:  now,
	}
	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal corpus metadata: %w", err)
	}

	dir := s.EntryDir(runID, meta.EntryID)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create entry directory %s: %w", dir, err)
	}
	cleanup := true
	defer func() {
		if cleanup {
			os.RemoveAll(dir)
		}
	}()

	if err := os.WriteFile(filepath.Join(dir, PatternFile), []byte(e.Pattern), 0640); err != nil {
		return nil, fmt.Errorf("write %s: %w", PatternFile, err)
	}
	if err := os.WriteFile(filepath.Join(dir, InputFile), []byte(e.Input.Text), 0640); err != nil {
		return nil, fmt.Errorf("write %s: %w", InputFile, err)
	}
	if err := os.WriteFile(filepath.Join(dir, MetadataFile), metaBytes, 0640); err != nil {
		return nil, fmt.Errorf("write %s: %w", MetadataFile, err)
	}

	err = s.db.WithTxn(ctx, func(txn *dgbadger.Txn) error {
		// Re-check inside the transaction; a concurrent save may have
		// won between the fast-path read and here.
		if _, err := txn.Get(dup); err == nil {
			return dgbadger.ErrConflict
		} else if !errors.Is(err, dgbadger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(entryKey(runID, meta.EntryID), metaBytes); err != nil {
			return err
		}
		return txn.Set(dup, []byte(meta.EntryID))
	})
	if err != nil {
		return nil, err
	}

	cleanup = false
	if s.logger != nil {
		s.logger.Info("corpus entry saved",
			slog.String("run_id", runID),
			slog.String("entry_id", meta.EntryID),
			slog.String("verdict", string(meta.Judgment.Verdict)))
	}
	return &SavedEntry{Dir: dir, Metadata: meta}, nil
}

// savedEntry reloads an indexed entry by ID.
func (s *Store) savedEntry(ctx context.Context, runID, entryID string) (*SavedEntry, error) {
	meta, err := s.GetEntry(ctx, runID, entryID)
	if err != nil {
		return nil, err
	}
	return &SavedEntry{Dir: s.EntryDir(runID, entryID), Metadata: meta}, nil
}

// entryIDForDup returns the entry holding the duplicate key, or "".
func (s *Store) entryIDForDup(ctx context.Context, dup []byte) (string, error) {
	var entryID string
	err := s.db.WithReadTxn(ctx, func(txn *dgbadger.Txn) error {
		item, err := txn.Get(dup)
		if errors.Is(err, dgbadger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			entryID = string(val)
			return nil
		})
	})
	return entryID, err
}

// =============================================================================
// Queries
// =============================================================================

// GetEntry returns one entry's indexed metadata.
func (s *Store) GetEntry(ctx context.Context, runID, entryID string) (Metadata, error) {
	var meta Metadata
	err := s.db.WithReadTxn(ctx, func(txn *dgbadger.Txn) error {
		item, err := txn.Get(entryKey(runID, entryID))
		if errors.Is(err, dgbadger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s/%s", ErrEntryNotFound, runID, entryID)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		})
	})
	return meta, err
}

// Entries returns a run's indexed metadata ordered by capture time.
func (s *Store) Entries(ctx context.Context, runID string) ([]Metadata, error) {
	if runID == "" {
		return nil, ErrNoRunID
	}
	var metas []Metadata
	prefix := []byte(keyPrefixEntry + runID + ":")
	err := s.db.WithReadTxn(ctx, func(txn *dgbadger.Txn) error {
		opts := dgbadger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var meta Metadata
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			})
			if err != nil {
				return fmt.Errorf("decode entry %s: %w", it.Item().Key(), err)
			}
			metas = append(metas, meta)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(metas, func(i, j int) bool {
		if metas[i].CreatedAt.Equal(metas[j].CreatedAt) {
			return metas[i].EntryID < metas[j].EntryID
		}
		return metas[i].CreatedAt.Before(metas[j].CreatedAt)
	})
	return metas, nil
}

// =============================================================================
// Keys
// =============================================================================

// newEntryID builds a sortable directory name: capture second plus a
// random suffix for uniqueness within it.
func newEntryID(now time.Time) string {
	return now.Format("20060102-150405") + "-" + uuid.NewString()[:8]
}

func entryKey(runID, entryID string) []byte {
	return []byte(keyPrefixEntry + runID + ":" + entryID)
}

// dupKey hashes the identity of a finding. The hash keeps arbitrary
// pattern and input bytes out of the key space.
func dupKey(runID, pattern, inputText string, verdict oracle.Verdict) []byte {
	h := sha256.New()
	h.Write([]byte(pattern))
	h.Write([]byte{0})
	h.Write([]byte(inputText))
	h.Write([]byte{0})
	h.Write([]byte(verdict))
	return []byte(keyPrefixDup + runID + ":" + hex.EncodeToString(h.Sum(nil)))
}

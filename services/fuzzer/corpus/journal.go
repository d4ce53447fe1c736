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
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"
)

// RunRecord is one campaign run's journal entry. The campaign writes
// it at start, overwrites it at stats checkpoints, and finalizes it on
// exit; report reads it back.
type RunRecord struct {
	// ID is the run identifier, also the run's directory name under
	// the corpus root. Must not contain ':'.
	ID string `json:"id"`

	// StartedAt is when the run began, UTC.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the run ended. Nil while running; a record
	// with a nil FinishedAt after the process died marks an
	// interrupted run.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Config is the resolved campaign configuration snapshot.
	Config json.RawMessage `json:"config,omitempty"`

	// Summary is the latest stats checkpoint.
	Summary json.RawMessage `json:"summary,omitempty"`
}

// PutRun writes (or overwrites) a run's journal record.
func (s *Store) PutRun(ctx context.Context, rec RunRecord) error {
	if rec.ID == "" {
		return ErrNoRunID
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal run record: %w", err)
	}
	return s.db.WithTxn(ctx, func(txn *dgbadger.Txn) error {
		return txn.Set([]byte(keyPrefixRun+rec.ID), payload)
	})
}

// GetRun returns one run's journal record.
func (s *Store) GetRun(ctx context.Context, runID string) (RunRecord, error) {
	if runID == "" {
		return RunRecord{}, ErrNoRunID
	}
	var rec RunRecord
	err := s.db.WithReadTxn(ctx, func(txn *dgbadger.Txn) error {
		item, err := txn.Get([]byte(keyPrefixRun + runID))
		if errors.Is(err, dgbadger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	return rec, err
}

// Runs returns every journaled run ordered by start time.
func (s *Store) Runs(ctx context.Context) ([]RunRecord, error) {
	var recs []RunRecord
	prefix := []byte(keyPrefixRun)
	err := s.db.WithReadTxn(ctx, func(txn *dgbadger.Txn) error {
		opts := dgbadger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var rec RunRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return fmt.Errorf("decode run %s: %w", it.Item().Key(), err)
			}
			recs = append(recs, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].StartedAt.Equal(recs[j].StartedAt) {
			return recs[i].ID < recs[j].ID
		}
		return recs[i].StartedAt.Before(recs[j].StartedAt)
	})
	return recs, nil
}

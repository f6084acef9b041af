package observer

import (
	"database/sql"

	"github.com/dotcommander/memengine/internal/models"
	"github.com/dotcommander/memengine/internal/store"
)

// PersistSessionSignals flushes the scratchpad's raw counters to the Store
// ahead of calling Finalize, so the next session's frequency filter
// (stage 2) sees this session's contribution and the retrieval graph
// path's co-access sub-path sees fresh co-access weights. This is the one point in the
// Observer's lifecycle that touches I/O — it runs at session end, never on
// the per-event ingest path.
func (s *Scratchpad) PersistSessionSignals(db *sql.DB) error {
	for pair := range s.coAccess {
		if err := store.RecordCoAccess(db, s.ProjectID, pair[0], pair[1], s.SessionID); err != nil {
			return err
		}
	}
	for fp := range s.errorFPs {
		if _, err := store.RecordErrorFingerprint(db, s.ProjectID, fp, "", s.SessionID); err != nil {
			return err
		}
	}
	kinds := map[models.SignalKind]bool{}
	for _, c := range s.acuteCandidates {
		kinds[c.SignalKind] = true
	}
	if len(s.errorFPs) > 0 {
		kinds[models.SignalErrorRetry] = true
	}
	if len(s.coAccess) > 0 {
		kinds[models.SignalCoAccess] = true
	}
	for kind := range kinds {
		if err := store.RecordSignalSession(db, s.ProjectID, kind); err != nil {
			return err
		}
	}
	return nil
}

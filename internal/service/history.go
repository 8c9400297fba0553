package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// HistoryEntry is one recorded popup event.
type HistoryEntry struct {
	At        time.Time `json:"at" doc:"When the event happened"`
	Kind      string    `json:"kind" enum:"opened,closed" doc:"Event kind"`
	PopupID   string    `json:"popupId" doc:"Popup identifier"`
	LayerID   string    `json:"layerId" doc:"Layer of the selected feature"`
	FeatureID string    `json:"featureId" doc:"Selected feature"`
}

// HistoryStore logs popup events to the popup_events table. A store
// without a database records nothing.
type HistoryStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewHistoryStore creates the popup_events table when db is available.
func NewHistoryStore(ctx context.Context, db *sql.DB) (*HistoryStore, error) {
	h := &HistoryStore{db: db, now: time.Now}
	if db == nil {
		return h, nil
	}
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS popup_events (
		at TIMESTAMP NOT NULL,
		kind VARCHAR NOT NULL,
		popup_id VARCHAR NOT NULL,
		layer_id VARCHAR,
		feature_id VARCHAR
	)`)
	if err != nil {
		return nil, fmt.Errorf("create popup_events: %w", err)
	}
	return h, nil
}

// Enabled reports whether events are persisted.
func (h *HistoryStore) Enabled() bool {
	return h != nil && h.db != nil
}

// Record stores ev.
func (h *HistoryStore) Record(ctx context.Context, ev Event) error {
	if !h.Enabled() {
		return nil
	}
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO popup_events (at, kind, popup_id, layer_id, feature_id) VALUES (?, ?, ?, ?, ?)`,
		h.now().UTC(), ev.Kind, ev.PopupID, ev.LayerID, ev.FeatureID,
	)
	if err != nil {
		return fmt.Errorf("record popup event: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (h *HistoryStore) Recent(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if !h.Enabled() {
		return []HistoryEntry{}, nil
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := h.db.QueryContext(ctx,
		`SELECT at, kind, popup_id, layer_id, feature_id FROM popup_events ORDER BY at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query popup events: %w", err)
	}
	defer rows.Close()

	entries := []HistoryEntry{}
	for rows.Next() {
		var e HistoryEntry
		var layerID, featureID sql.NullString
		if err := rows.Scan(&e.At, &e.Kind, &e.PopupID, &layerID, &featureID); err != nil {
			return nil, fmt.Errorf("scan popup event: %w", err)
		}
		e.LayerID, e.FeatureID = layerID.String, featureID.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

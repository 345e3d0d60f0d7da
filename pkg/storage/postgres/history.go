package postgres

import (
	"context"
	"time"

	"gorm.io/gorm/clause"
)

// InsertValuationBatch writes all rows of one refresh in a single statement.
func (p *PostgresClient) InsertValuationBatch(ctx context.Context, records []ValuationRecord) error {
	if len(records) == 0 {
		return nil
	}
	return p.DB.WithContext(ctx).CreateInBatches(&records, 100).Error
}

// UpsertTransactions mirrors trade history. Rows already stored are skipped;
// the returned count is the number of new rows.
func (p *PostgresClient) UpsertTransactions(ctx context.Context, records []TransactionRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}
	tx := p.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "username"},
			{Name: "symbol"},
			{Name: "side"},
			{Name: "quantity"},
			{Name: "price"},
			{Name: "timestamp"},
		},
		DoNothing: true,
	}).Create(&records)

	if tx.Error != nil {
		return 0, tx.Error
	}
	return tx.RowsAffected, nil
}

// LatestBatches returns the most recent refreshes for a user, newest first.
func (p *PostgresClient) LatestBatches(ctx context.Context, username string, limit int) ([]ValuationBatch, error) {
	type head struct {
		BatchID    string
		RecordedAt time.Time
	}
	var heads []head
	err := p.DB.WithContext(ctx).
		Model(&ValuationRecord{}).
		Select("batch_id, MAX(recorded_at) AS recorded_at").
		Where("username = ?", username).
		Group("batch_id").
		Order("recorded_at DESC").
		Limit(limit).
		Scan(&heads).Error
	if err != nil {
		return nil, err
	}
	if len(heads) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(heads))
	for _, h := range heads {
		ids = append(ids, h.BatchID)
	}
	var rows []ValuationRecord
	err = p.DB.WithContext(ctx).
		Where("batch_id IN ?", ids).
		Order("symbol").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	byBatch := make(map[string][]ValuationRecord, len(heads))
	for _, r := range rows {
		byBatch[r.BatchID] = append(byBatch[r.BatchID], r)
	}
	out := make([]ValuationBatch, 0, len(heads))
	for _, h := range heads {
		out = append(out, ValuationBatch{BatchID: h.BatchID, RecordedAt: h.RecordedAt, Records: byBatch[h.BatchID]})
	}
	return out, nil
}

// RecentTransactions returns mirrored trades for a user, newest first.
func (p *PostgresClient) RecentTransactions(ctx context.Context, username string, limit int) ([]TransactionRecord, error) {
	var rows []TransactionRecord
	err := p.DB.WithContext(ctx).
		Where("username = ?", username).
		Order("timestamp DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// DeleteValuationsBefore prunes old history.
func (p *PostgresClient) DeleteValuationsBefore(ctx context.Context, before time.Time) (int64, error) {
	tx := p.DB.WithContext(ctx).
		Where("recorded_at < ?", before).
		Delete(&ValuationRecord{})
	return tx.RowsAffected, tx.Error
}

package database

import (
	"context"
	"fmt"
	"time"

	"mentorasi/internal/models"
)

// CreateAvailabilityRule inserts a rule. Callers validate before insert.
func (db *DB) CreateAvailabilityRule(ctx context.Context, r *models.AvailabilityRule) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO availability_rules
			(id, mentor_id, is_recurring, day_of_week, specific_date, start_time, end_time, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.MentorID, r.IsRecurring, r.DayOfWeek, r.SpecificDate,
		r.StartTime, r.EndTime, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("create availability rule: %w", err)
	}
	return nil
}

// ListAvailabilityRules returns all rules, optionally filtered by mentor.
func (db *DB) ListAvailabilityRules(ctx context.Context, mentorID string) ([]models.AvailabilityRule, error) {
	query := `SELECT id, mentor_id, is_recurring, day_of_week, specific_date, start_time, end_time, created_at
		FROM availability_rules`
	args := []any{}
	if mentorID != "" {
		query += ` WHERE mentor_id = ?`
		args = append(args, mentorID)
	}
	query += ` ORDER BY created_at`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list availability rules: %w", err)
	}
	defer rows.Close()

	var rules []models.AvailabilityRule
	for rows.Next() {
		var r models.AvailabilityRule
		if err := rows.Scan(&r.ID, &r.MentorID, &r.IsRecurring, &r.DayOfWeek,
			&r.SpecificDate, &r.StartTime, &r.EndTime, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan availability rule: %w", err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// DeleteAvailabilityRule removes a rule owned by mentorID. Deleting a rule
// another mentor owns reports ErrNotFound rather than leaking existence.
func (db *DB) DeleteAvailabilityRule(ctx context.Context, id, mentorID string) error {
	res, err := db.ExecContext(ctx,
		`DELETE FROM availability_rules WHERE id = ? AND mentor_id = ?`, id, mentorID)
	if err != nil {
		return fmt.Errorf("delete availability rule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

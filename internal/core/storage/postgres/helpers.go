package postgres

import (
	"database/sql"
	"fmt"

	v1 "github.com/sensorwatch-lab/sensorwatch/internal/api/v1"
)

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanReadingRow scans one readings row.
// Compatible with both sql.Row (single) and sql.Rows (multiple).
func scanReadingRow(row scanner) (v1.Reading, error) {
	var r v1.Reading
	err := row.Scan(
		&r.SequenceID,
		&r.ObservedAt,
		&r.Temperature,
		&r.Humidity,
		&r.Distance,
	)
	if err != nil {
		return v1.Reading{}, fmt.Errorf("failed to scan reading row: %w", err)
	}
	r.ObservedAt = r.ObservedAt.UTC()
	return r, nil
}

// collectReadings drains rows into a non-nil slice.
func collectReadings(rows *sql.Rows) ([]v1.Reading, error) {
	defer rows.Close()

	readings := []v1.Reading{}
	for rows.Next() {
		r, err := scanReadingRow(rows)
		if err != nil {
			return nil, err
		}
		readings = append(readings, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating readings: %w", err)
	}
	return readings, nil
}

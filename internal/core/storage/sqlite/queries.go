package sqlite

// SQL queries for the append-only readings log.
// observed_at is stored as fixed-width UTC text, so string comparison is time comparison.

const (
	queryAppendReading = `
		INSERT INTO readings (observed_at, temperature, humidity, distance)
		VALUES (?, ?, ?, ?)
		RETURNING sequence_id
	`

	queryRecentReadings = `
		SELECT sequence_id, observed_at, temperature, humidity, distance
		FROM readings
		ORDER BY sequence_id DESC
		LIMIT ?
	`

	querySinceReadings = `
		SELECT sequence_id, observed_at, temperature, humidity, distance
		FROM readings
		WHERE observed_at > ?
		ORDER BY sequence_id ASC
	`

	queryCountReadings = `SELECT COUNT(*) FROM readings`
)

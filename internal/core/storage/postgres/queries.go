package postgres

// SQL queries for the append-only readings log.

const (
	// queryAppendReading inserts one reading.
	// RETURNING hands back the BIGSERIAL sequence id, which is the canonical order.
	queryAppendReading = `
		INSERT INTO readings (observed_at, temperature, humidity, distance)
		VALUES ($1, $2, $3, $4)
		RETURNING sequence_id
	`

	// queryRecentReadings fetches the newest readings, newest first.
	queryRecentReadings = `
		SELECT sequence_id, observed_at, temperature, humidity, distance
		FROM readings
		ORDER BY sequence_id DESC
		LIMIT $1
	`

	// querySinceReadings fetches readings observed after a cutoff in insertion order.
	querySinceReadings = `
		SELECT sequence_id, observed_at, temperature, humidity, distance
		FROM readings
		WHERE observed_at > $1
		ORDER BY sequence_id ASC
	`

	queryCountReadings = `SELECT COUNT(*) FROM readings`
)

package postgres

const (
	queryAppendEvent = `
		INSERT INTO presence_events (kind, participant_id, nickname, reason, occurred_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5);
	`
)

package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const jobColumns = "id, topic, platform, style, duration_seconds, transition, caption_style, voice, use_stored, status, storyboard_json, output_file, error_message, progress_stage, progress_percent, progress_message, stage_times_json, cancel_requested, created_at, updated_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id              int64
		topic           string
		platform        string
		style           string
		durationSeconds int
		transition      sql.NullString
		captionStyle    sql.NullString
		voice           sql.NullString
		useStored       sql.NullInt64
		statusStr       string
		storyboard      sql.NullString
		outputFile      sql.NullString
		errorMessage    sql.NullString
		progressStage   sql.NullString
		progressPercent sql.NullFloat64
		progressMessage sql.NullString
		stageTimesRaw   sql.NullString
		cancelRequested sql.NullInt64
		createdRaw      sql.NullString
		updatedRaw      sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&topic,
		&platform,
		&style,
		&durationSeconds,
		&transition,
		&captionStyle,
		&voice,
		&useStored,
		&statusStr,
		&storyboard,
		&outputFile,
		&errorMessage,
		&progressStage,
		&progressPercent,
		&progressMessage,
		&stageTimesRaw,
		&cancelRequested,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:              id,
		Topic:           topic,
		Platform:        platform,
		Style:           style,
		DurationSeconds: durationSeconds,
		Transition:      transition.String,
		CaptionStyle:    captionStyle.String,
		Voice:           voice.String,
		Status:          Status(statusStr),
		StoryboardJSON:  storyboard.String,
		OutputFile:      outputFile.String,
		ErrorMessage:    errorMessage.String,
		ProgressStage:   progressStage.String,
		ProgressPercent: progressPercent.Float64,
		ProgressMessage: progressMessage.String,
	}
	if useStored.Valid {
		job.UseStored = useStored.Int64 != 0
	}
	if cancelRequested.Valid {
		job.CancelRequested = cancelRequested.Int64 != 0
	}
	if stageTimesRaw.Valid && strings.TrimSpace(stageTimesRaw.String) != "" {
		times := make(map[string]string)
		if err := json.Unmarshal([]byte(stageTimesRaw.String), &times); err == nil {
			job.StageTimes = times
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

const busyRetryAttempts = 3

// execWithRetry retries short writes that lose the race for the SQLite write lock.
func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var (
		res sql.Result
		err error
	)
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		res, err = s.db.ExecContext(ctx, query, args...)
		if err == nil || !isBusyError(err) {
			return res, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 50 * time.Millisecond):
		}
	}
	return res, err
}

func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

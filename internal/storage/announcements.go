package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/bizscrape/grant-pipeline/internal/domain"
)

// ErrAnnouncementNotFound is returned when no record exists for the key.
var ErrAnnouncementNotFound = errors.New("announcement not found")

// UpsertAnnouncement inserts or updates the record keyed by
// (folder_name, site_code). Repeated processing of the same folder always
// converges to a single row.
func (db *DB) UpsertAnnouncement(ctx context.Context, rec *domain.AnnouncementRecord) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO announcements (
			folder_name,
			site_code,
			primary_text,
			combined_text,
			title,
			target,
			target_type,
			amount,
			period,
			schedule,
			content,
			announcement_date,
			announcement_date_iso,
			source_url,
			attachment_files,
			exclusion_keyword,
			exclusion_reason,
			category,
			sub_categories,
			confidence,
			matched_keywords,
			status,
			error_message,
			created_at,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, now(), now())
		ON CONFLICT (folder_name, site_code) DO UPDATE SET
			primary_text = EXCLUDED.primary_text,
			combined_text = EXCLUDED.combined_text,
			title = EXCLUDED.title,
			target = EXCLUDED.target,
			target_type = EXCLUDED.target_type,
			amount = EXCLUDED.amount,
			period = EXCLUDED.period,
			schedule = EXCLUDED.schedule,
			content = EXCLUDED.content,
			announcement_date = EXCLUDED.announcement_date,
			announcement_date_iso = EXCLUDED.announcement_date_iso,
			source_url = EXCLUDED.source_url,
			attachment_files = EXCLUDED.attachment_files,
			exclusion_keyword = EXCLUDED.exclusion_keyword,
			exclusion_reason = EXCLUDED.exclusion_reason,
			category = EXCLUDED.category,
			sub_categories = EXCLUDED.sub_categories,
			confidence = EXCLUDED.confidence,
			matched_keywords = EXCLUDED.matched_keywords,
			status = EXCLUDED.status,
			error_message = EXCLUDED.error_message,
			updated_at = now()
	`,
		rec.FolderName,
		rec.SiteCode,
		SanitizeUTF8(rec.PrimaryText),
		SanitizeUTF8(rec.CombinedText),
		toText(rec.Title.Serialize()),
		toText(rec.Target.Serialize()),
		toText(rec.TargetType.Serialize()),
		toText(rec.Amount.Serialize()),
		toText(rec.Period.Serialize()),
		toText(rec.Schedule.Serialize()),
		toText(rec.Content.Serialize()),
		toText(rec.AnnouncementDate.Serialize()),
		toText(rec.AnnouncementDateISO),
		toText(rec.SourceURL.Serialize()),
		rec.AttachmentFiles,
		toText(rec.ExclusionKeyword),
		toText(rec.ExclusionReason),
		toText(rec.Category),
		rec.SubCategories,
		rec.Confidence,
		rec.MatchedKeywords,
		rec.Status,
		toText(rec.ErrorMessage),
	)
	if err != nil {
		return fmt.Errorf("upsert announcement: %w", err)
	}

	return nil
}

// UpdateStatus moves an existing record to a new status, recording an error
// message when present. Missing rows are not an error: a failure may occur
// before the first write.
func (db *DB) UpdateStatus(ctx context.Context, folderName, siteCode, status, errorMessage string) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE announcements
		SET status = $3, error_message = $4, updated_at = now()
		WHERE folder_name = $1 AND site_code = $2
	`, folderName, siteCode, status, toText(errorMessage))
	if err != nil {
		return fmt.Errorf("update announcement status: %w", err)
	}

	return nil
}

// AnnouncementExists reports whether a record exists for the key.
func (db *DB) AnnouncementExists(ctx context.Context, folderName, siteCode string) (bool, error) {
	var exists bool

	err := db.Pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM announcements WHERE folder_name = $1 AND site_code = $2
		)
	`, folderName, siteCode).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("announcement exists: %w", err)
	}

	return exists, nil
}

// SourceURLExists reports whether another announcement for the same site
// already points at the given source URL.
func (db *DB) SourceURLExists(ctx context.Context, sourceURL, siteCode, excludeFolder string) (bool, error) {
	var exists bool

	err := db.Pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM announcements
			WHERE source_url = $1 AND site_code = $2 AND folder_name <> $3
		)
	`, sourceURL, siteCode, excludeFolder).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("source url exists: %w", err)
	}

	return exists, nil
}

// ListFolderNames returns all processed folder names for a site. The intake
// gate loads this set once before fan-out.
func (db *DB) ListFolderNames(ctx context.Context, siteCode string) ([]string, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT folder_name FROM announcements WHERE site_code = $1
	`, siteCode)
	if err != nil {
		return nil, fmt.Errorf("list folder names: %w", err)
	}
	defer rows.Close()

	var names []string

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan folder name: %w", err)
		}

		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folder names: %w", err)
	}

	return names, nil
}

// GetAnnouncement fetches one record by key.
func (db *DB) GetAnnouncement(ctx context.Context, folderName, siteCode string) (*domain.AnnouncementRecord, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT id::text,
		       folder_name,
		       site_code,
		       primary_text,
		       combined_text,
		       title,
		       target,
		       target_type,
		       amount,
		       period,
		       schedule,
		       content,
		       announcement_date,
		       announcement_date_iso,
		       source_url,
		       attachment_files,
		       exclusion_keyword,
		       exclusion_reason,
		       category,
		       sub_categories,
		       confidence,
		       matched_keywords,
		       status,
		       error_message,
		       created_at,
		       updated_at
		FROM announcements
		WHERE folder_name = $1 AND site_code = $2
	`, folderName, siteCode)

	var (
		rec        domain.AnnouncementRecord
		title      pgtype.Text
		target     pgtype.Text
		targetType pgtype.Text
		amount     pgtype.Text
		period     pgtype.Text
		schedule   pgtype.Text
		content    pgtype.Text
		annDate    pgtype.Text
		annDateISO pgtype.Text
		sourceURL  pgtype.Text
		exclKw     pgtype.Text
		exclReason pgtype.Text
		category   pgtype.Text
		errMsg     pgtype.Text
		createdAt  pgtype.Timestamptz
		updatedAt  pgtype.Timestamptz
	)

	err := row.Scan(
		&rec.ID,
		&rec.FolderName,
		&rec.SiteCode,
		&rec.PrimaryText,
		&rec.CombinedText,
		&title,
		&target,
		&targetType,
		&amount,
		&period,
		&schedule,
		&content,
		&annDate,
		&annDateISO,
		&sourceURL,
		&rec.AttachmentFiles,
		&exclKw,
		&exclReason,
		&category,
		&rec.SubCategories,
		&rec.Confidence,
		&rec.MatchedKeywords,
		&rec.Status,
		&errMsg,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAnnouncementNotFound
		}

		return nil, fmt.Errorf("get announcement: %w", err)
	}

	rec.Title = domain.Some(fromText(title))
	rec.Target = domain.Some(fromText(target))
	rec.TargetType = domain.Some(fromText(targetType))
	rec.Amount = domain.Some(fromText(amount))
	rec.Period = domain.Some(fromText(period))
	rec.Schedule = domain.Some(fromText(schedule))
	rec.Content = domain.Some(fromText(content))
	rec.AnnouncementDate = domain.Some(fromText(annDate))
	rec.AnnouncementDateISO = fromText(annDateISO)
	rec.SourceURL = domain.Some(fromText(sourceURL))
	rec.ExclusionKeyword = fromText(exclKw)
	rec.ExclusionReason = fromText(exclReason)
	rec.Category = fromText(category)
	rec.ErrorMessage = fromText(errMsg)
	rec.CreatedAt = fromTimestamptz(createdAt)
	rec.UpdatedAt = fromTimestamptz(updatedAt)

	return &rec, nil
}

package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
)

// ExclusionKeyword is one configured name-based exclusion term.
type ExclusionKeyword struct {
	Keyword     string
	Description string
}

// CategoryKeyword is one configured classification term for an audience
// category. Synonyms score with the same weight as the keyword itself.
type CategoryKeyword struct {
	Category string
	Keyword  string
	Synonyms []string
	Weight   float64
}

// IndustryKeyword tags an industry-sector term with the audience category it
// reinforces.
type IndustryKeyword struct {
	Keyword  string
	Category string
}

// ListExclusionKeywords loads the exclusion keyword set. The pipeline loads
// it once per run into an immutable snapshot.
func (db *DB) ListExclusionKeywords(ctx context.Context) ([]ExclusionKeyword, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT keyword, description FROM exclusion_keywords ORDER BY keyword
	`)
	if err != nil {
		return nil, fmt.Errorf("list exclusion keywords: %w", err)
	}
	defer rows.Close()

	var keywords []ExclusionKeyword

	for rows.Next() {
		var (
			kw   ExclusionKeyword
			desc pgtype.Text
		)

		if err := rows.Scan(&kw.Keyword, &desc); err != nil {
			return nil, fmt.Errorf("scan exclusion keyword: %w", err)
		}

		kw.Description = fromText(desc)
		keywords = append(keywords, kw)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exclusion keywords: %w", err)
	}

	return keywords, nil
}

// IncrementKeywordUsage bumps the effectiveness counter for a matched
// exclusion keyword. Callers treat failures as non-fatal.
func (db *DB) IncrementKeywordUsage(ctx context.Context, keyword string) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE exclusion_keywords
		SET usage_count = usage_count + 1, last_used_at = now()
		WHERE keyword = $1
	`, keyword)
	if err != nil {
		return fmt.Errorf("increment keyword usage: %w", err)
	}

	return nil
}

// ListCategoryKeywords loads the classification keyword configuration.
func (db *DB) ListCategoryKeywords(ctx context.Context) ([]CategoryKeyword, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT category, keyword, synonyms, weight
		FROM category_keywords
		ORDER BY category, keyword
	`)
	if err != nil {
		return nil, fmt.Errorf("list category keywords: %w", err)
	}
	defer rows.Close()

	var keywords []CategoryKeyword

	for rows.Next() {
		var kw CategoryKeyword
		if err := rows.Scan(&kw.Category, &kw.Keyword, &kw.Synonyms, &kw.Weight); err != nil {
			return nil, fmt.Errorf("scan category keyword: %w", err)
		}

		keywords = append(keywords, kw)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category keywords: %w", err)
	}

	return keywords, nil
}

// ListIndustryKeywords loads the industry-sector keyword list.
func (db *DB) ListIndustryKeywords(ctx context.Context) ([]IndustryKeyword, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT keyword, category FROM industry_keywords ORDER BY keyword
	`)
	if err != nil {
		return nil, fmt.Errorf("list industry keywords: %w", err)
	}
	defer rows.Close()

	var keywords []IndustryKeyword

	for rows.Next() {
		var kw IndustryKeyword
		if err := rows.Scan(&kw.Keyword, &kw.Category); err != nil {
			return nil, fmt.Errorf("scan industry keyword: %w", err)
		}

		keywords = append(keywords, kw)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate industry keywords: %w", err)
	}

	return keywords, nil
}

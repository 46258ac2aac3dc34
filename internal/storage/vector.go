package storage

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
)

// SimilarAnnouncement is one vector search hit.
type SimilarAnnouncement struct {
	FolderName string
	SiteCode   string
	Snippet    string
	Similarity float32
}

// StoreEmbedding writes or refreshes the embedding for an announcement.
// Keyed the same way as the announcements table so re-runs overwrite.
func (db *DB) StoreEmbedding(ctx context.Context, folderName, siteCode, snippet string, embedding []float32) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO announcement_embeddings (folder_name, site_code, snippet, embedding, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (folder_name, site_code) DO UPDATE SET
			snippet = EXCLUDED.snippet,
			embedding = EXCLUDED.embedding,
			created_at = now()
	`, folderName, siteCode, SanitizeUTF8(snippet), pgvector.NewVector(embedding))
	if err != nil {
		return fmt.Errorf("store embedding: %w", err)
	}

	return nil
}

// SearchSimilar returns the topK most similar announcements for the site,
// best first. Cosine distance; similarity = 1 - distance.
func (db *DB) SearchSimilar(ctx context.Context, embedding []float32, siteCode string, topK int) ([]SimilarAnnouncement, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT folder_name,
		       site_code,
		       snippet,
		       1 - (embedding <=> $1) AS similarity
		FROM announcement_embeddings
		WHERE site_code = $2
		ORDER BY embedding <=> $1
		LIMIT $3
	`, pgvector.NewVector(embedding), siteCode, topK)
	if err != nil {
		return nil, fmt.Errorf("search similar: %w", err)
	}
	defer rows.Close()

	var results []SimilarAnnouncement

	for rows.Next() {
		var hit SimilarAnnouncement
		if err := rows.Scan(&hit.FolderName, &hit.SiteCode, &hit.Snippet, &hit.Similarity); err != nil {
			return nil, fmt.Errorf("scan similar announcement: %w", err)
		}

		results = append(results, hit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate similar announcements: %w", err)
	}

	return results, nil
}

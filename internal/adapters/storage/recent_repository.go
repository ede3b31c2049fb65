package storage

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"
	"github.com/xvierd/branchbar/internal/domain"
)

// recentRepository implements ports.RecentRepositoryStore using SQLite.
type recentRepository struct {
	db  *sql.DB
	now func() time.Time
}

func newRecentRepository(db *sql.DB) *recentRepository {
	return &recentRepository{db: db, now: time.Now}
}

// Touch records a selection of path, moving it to the front.
func (r *recentRepository) Touch(ctx context.Context, path string) error {
	query := `
		INSERT INTO recent_repositories (path, name, last_selected_at, select_count)
		VALUES (?, ?, ?, 1)
		ON CONFLICT(path) DO UPDATE SET
			last_selected_at = excluded.last_selected_at,
			select_count = select_count + 1
	`
	if _, err := r.db.ExecContext(ctx, query, path, filepath.Base(path), r.now().UTC()); err != nil {
		return fmt.Errorf("failed to record recent repository: %w", err)
	}
	return nil
}

// List returns recent repositories, most recently selected first.
// A limit of zero or less returns all of them.
func (r *recentRepository) List(ctx context.Context, limit int) ([]domain.RecentRepository, error) {
	query := `
		SELECT path, name, last_selected_at, select_count
		FROM recent_repositories
		ORDER BY last_selected_at DESC, select_count DESC
	`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent repositories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var repos []domain.RecentRepository
	for rows.Next() {
		var repo domain.RecentRepository
		if err := rows.Scan(&repo.Path, &repo.Name, &repo.LastSelectedAt, &repo.SelectCount); err != nil {
			return nil, fmt.Errorf("failed to scan recent repository: %w", err)
		}
		repos = append(repos, repo)
	}
	return repos, rows.Err()
}

// Search does a fuzzy search over recent repository paths. Best matches come
// first. An empty query behaves like List.
func (r *recentRepository) Search(ctx context.Context, query string, limit int) ([]domain.RecentRepository, error) {
	repos, err := r.List(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent repositories for fuzzy search: %w", err)
	}
	return FilterRecent(repos, query, limit), nil
}

// Remove forgets path.
func (r *recentRepository) Remove(ctx context.Context, path string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM recent_repositories WHERE path = ?`, path); err != nil {
		return fmt.Errorf("failed to remove recent repository: %w", err)
	}
	return nil
}

// FilterRecent fuzzy-matches query against the paths of repos, best match
// first. A blank query keeps repos in order. A limit of zero or less keeps
// every match.
func FilterRecent(repos []domain.RecentRepository, query string, limit int) []domain.RecentRepository {
	if strings.TrimSpace(query) == "" {
		if limit > 0 && len(repos) > limit {
			return repos[:limit]
		}
		return repos
	}

	paths := make([]string, len(repos))
	for i, repo := range repos {
		paths[i] = repo.Path
	}

	matches := fuzzy.Find(query, paths)

	var result []domain.RecentRepository
	for _, match := range matches {
		result = append(result, repos[match.Index])
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result
}

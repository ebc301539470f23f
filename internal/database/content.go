package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// =============================================================================
// News Queries
// =============================================================================

const newsColumns = `id, title, slug, excerpt, content, image_url, published, published_at, author_id, created_at, updated_at`

func scanNews(row rowScanner) (*News, error) {
	var n News
	var excerpt, imageURL, publishedAt, createdAt, updatedAt sql.NullString
	var authorID sql.NullInt64

	err := row.Scan(
		&n.ID,
		&n.Title,
		&n.Slug,
		&excerpt,
		&n.Content,
		&imageURL,
		&n.Published,
		&publishedAt,
		&authorID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	n.Excerpt = nullString(excerpt)
	n.ImageURL = nullString(imageURL)
	n.PublishedAt = parseTimestamp(publishedAt)
	n.AuthorID = nullInt64(authorID)
	timestamps(createdAt, updatedAt, &n.CreatedAt, &n.UpdatedAt)

	return &n, nil
}

// NewsFilter narrows a news listing.
type NewsFilter struct {
	IncludeDrafts bool
	Limit         int
	Offset        int
}

// ListNews returns news newest first along with the total matching count.
func (q *Queries) ListNews(ctx context.Context, f NewsFilter) ([]News, int, error) {
	where := ""
	if !f.IncludeDrafts {
		where = "WHERE published = 1"
	}

	var total int
	if err := q.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM news `+where).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count news: %w", err)
	}

	rows, err := q.q.QueryContext(ctx,
		`SELECT `+newsColumns+` FROM news `+where+`
		ORDER BY COALESCE(published_at, created_at) DESC, id DESC
		LIMIT ? OFFSET ?`,
		f.Limit, f.Offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("query news: %w", err)
	}
	defer rows.Close()

	items := []News{}
	for rows.Next() {
		n, err := scanNews(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan news row: %w", err)
		}
		items = append(items, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate news rows: %w", err)
	}

	return items, total, nil
}

// GetNews retrieves an article by id.
func (q *Queries) GetNews(ctx context.Context, id int64) (*News, error) {
	n, err := scanNews(q.q.QueryRowContext(ctx, `SELECT `+newsColumns+` FROM news WHERE id = ?`, id))
	if err != nil {
		return nil, wrapLookup("news by id", err)
	}
	return n, nil
}

// GetNewsBySlug retrieves an article by slug.
func (q *Queries) GetNewsBySlug(ctx context.Context, slug string) (*News, error) {
	n, err := scanNews(q.q.QueryRowContext(ctx, `SELECT `+newsColumns+` FROM news WHERE slug = ?`, slug))
	if err != nil {
		return nil, wrapLookup("news by slug", err)
	}
	return n, nil
}

// CreateNews inserts an article. Publishing stamps published_at when unset.
func (q *Queries) CreateNews(ctx context.Context, n *News) error {
	if n.Published && n.PublishedAt == nil {
		now := time.Now().UTC()
		n.PublishedAt = &now
	}

	result, err := q.q.ExecContext(ctx, `
		INSERT INTO news (title, slug, excerpt, content, image_url, published, published_at, author_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		n.Title, n.Slug, n.Excerpt, n.Content, n.ImageURL, n.Published, nullTime(n.PublishedAt), n.AuthorID,
	)
	if err != nil {
		return fmt.Errorf("insert news: %w", mapError(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get news id: %w", err)
	}

	created, err := q.GetNews(ctx, id)
	if err != nil {
		return err
	}
	*n = *created
	return nil
}

// UpdateNews overwrites an article.
func (q *Queries) UpdateNews(ctx context.Context, n *News) error {
	if n.Published && n.PublishedAt == nil {
		now := time.Now().UTC()
		n.PublishedAt = &now
	}

	result, err := q.q.ExecContext(ctx, `
		UPDATE news SET
			title = ?, slug = ?, excerpt = ?, content = ?, image_url = ?,
			published = ?, published_at = ?, updated_at = datetime('now')
		WHERE id = ?
	`,
		n.Title, n.Slug, n.Excerpt, n.Content, n.ImageURL, n.Published, nullTime(n.PublishedAt), n.ID,
	)
	if err != nil {
		return fmt.Errorf("update news: %w", mapError(err))
	}
	if err := checkAffected(result); err != nil {
		return err
	}

	updated, err := q.GetNews(ctx, n.ID)
	if err != nil {
		return err
	}
	*n = *updated
	return nil
}

// DeleteNews removes an article.
func (q *Queries) DeleteNews(ctx context.Context, id int64) error {
	result, err := q.q.ExecContext(ctx, `DELETE FROM news WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete news: %w", err)
	}
	return checkAffected(result)
}

// =============================================================================
// Page Queries
// =============================================================================

const pageColumns = `id, title, slug, content, meta_description, published, created_at, updated_at`

func scanPage(row rowScanner) (*Page, error) {
	var p Page
	var meta, createdAt, updatedAt sql.NullString

	if err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Content, &meta, &p.Published, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.MetaDescription = nullString(meta)
	timestamps(createdAt, updatedAt, &p.CreatedAt, &p.UpdatedAt)
	return &p, nil
}

// ListPages returns pages ordered by title.
func (q *Queries) ListPages(ctx context.Context, includeDrafts bool) ([]Page, error) {
	where := ""
	if !includeDrafts {
		where = "WHERE published = 1"
	}

	rows, err := q.q.QueryContext(ctx, `SELECT `+pageColumns+` FROM pages `+where+` ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("query pages: %w", err)
	}
	defer rows.Close()

	pages := []Page{}
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan page row: %w", err)
		}
		pages = append(pages, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate page rows: %w", err)
	}
	return pages, nil
}

// GetPage retrieves a page by id.
func (q *Queries) GetPage(ctx context.Context, id int64) (*Page, error) {
	p, err := scanPage(q.q.QueryRowContext(ctx, `SELECT `+pageColumns+` FROM pages WHERE id = ?`, id))
	if err != nil {
		return nil, wrapLookup("page by id", err)
	}
	return p, nil
}

// GetPageBySlug retrieves a page by slug.
func (q *Queries) GetPageBySlug(ctx context.Context, slug string) (*Page, error) {
	p, err := scanPage(q.q.QueryRowContext(ctx, `SELECT `+pageColumns+` FROM pages WHERE slug = ?`, slug))
	if err != nil {
		return nil, wrapLookup("page by slug", err)
	}
	return p, nil
}

// CreatePage inserts a page.
func (q *Queries) CreatePage(ctx context.Context, p *Page) error {
	result, err := q.q.ExecContext(ctx,
		`INSERT INTO pages (title, slug, content, meta_description, published) VALUES (?, ?, ?, ?, ?)`,
		p.Title, p.Slug, p.Content, p.MetaDescription, p.Published,
	)
	if err != nil {
		return fmt.Errorf("insert page: %w", mapError(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get page id: %w", err)
	}

	created, err := q.GetPage(ctx, id)
	if err != nil {
		return err
	}
	*p = *created
	return nil
}

// UpdatePage overwrites a page.
func (q *Queries) UpdatePage(ctx context.Context, p *Page) error {
	result, err := q.q.ExecContext(ctx, `
		UPDATE pages SET
			title = ?, slug = ?, content = ?, meta_description = ?, published = ?,
			updated_at = datetime('now')
		WHERE id = ?
	`,
		p.Title, p.Slug, p.Content, p.MetaDescription, p.Published, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update page: %w", mapError(err))
	}
	if err := checkAffected(result); err != nil {
		return err
	}

	updated, err := q.GetPage(ctx, p.ID)
	if err != nil {
		return err
	}
	*p = *updated
	return nil
}

// DeletePage removes a page. Menu items pointing at it lose the link.
func (q *Queries) DeletePage(ctx context.Context, id int64) error {
	result, err := q.q.ExecContext(ctx, `DELETE FROM pages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	return checkAffected(result)
}

// ListSitemap returns published pages and news, pages first.
func (q *Queries) ListSitemap(ctx context.Context) ([]SitemapEntry, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT 'page', slug, title, updated_at FROM pages WHERE published = 1
		UNION ALL
		SELECT 'news', slug, title, updated_at FROM news WHERE published = 1
		ORDER BY 1 DESC, 2 ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sitemap: %w", err)
	}
	defer rows.Close()

	entries := []SitemapEntry{}
	for rows.Next() {
		var e SitemapEntry
		var updatedAt sql.NullString
		if err := rows.Scan(&e.Kind, &e.Slug, &e.Title, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan sitemap row: %w", err)
		}
		if t := parseTimestamp(updatedAt); t != nil {
			e.UpdatedAt = *t
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sitemap rows: %w", err)
	}
	return entries, nil
}

// wrapLookup maps a missing row to ErrNotFound and wraps everything else.
func wrapLookup(what string, err error) error {
	if mapped := mapError(err); mapped == ErrNotFound {
		return ErrNotFound
	}
	return fmt.Errorf("query %s: %w", what, err)
}

package database

import (
	"context"
	"database/sql"
	"fmt"
)

// =============================================================================
// Menu Queries
// =============================================================================

// ListMenuItems returns menu items flat, ordered by parent then order.
// Hidden items are included only when includeHidden is set.
func (q *Queries) ListMenuItems(ctx context.Context, includeHidden bool) ([]MenuItem, error) {
	where := ""
	if !includeHidden {
		where = "WHERE m.is_visible = 1"
	}

	rows, err := q.q.QueryContext(ctx, `
		SELECT m.id, m.title, m.url, m.page_id, p.slug, m.parent_id, m.sort_order, m.is_visible,
			m.created_at, m.updated_at
		FROM menu_items m
		LEFT JOIN pages p ON p.id = m.page_id
		`+where+`
		ORDER BY COALESCE(m.parent_id, 0), m.sort_order, m.id
	`)
	if err != nil {
		return nil, fmt.Errorf("query menu items: %w", err)
	}
	defer rows.Close()

	items := []MenuItem{}
	for rows.Next() {
		var m MenuItem
		var url, pageSlug, createdAt, updatedAt sql.NullString
		var pageID, parentID sql.NullInt64

		err := rows.Scan(&m.ID, &m.Title, &url, &pageID, &pageSlug, &parentID, &m.Order, &m.IsVisible, &createdAt, &updatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan menu row: %w", err)
		}
		m.URL = nullString(url)
		m.PageID = nullInt64(pageID)
		m.PageSlug = nullString(pageSlug)
		m.ParentID = nullInt64(parentID)
		timestamps(createdAt, updatedAt, &m.CreatedAt, &m.UpdatedAt)
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate menu rows: %w", err)
	}

	return items, nil
}

// GetMenuItem retrieves a menu item by id.
func (q *Queries) GetMenuItem(ctx context.Context, id int64) (*MenuItem, error) {
	var m MenuItem
	var url, createdAt, updatedAt sql.NullString
	var pageID, parentID sql.NullInt64

	err := q.q.QueryRowContext(ctx, `
		SELECT id, title, url, page_id, parent_id, sort_order, is_visible, created_at, updated_at
		FROM menu_items WHERE id = ?
	`, id).Scan(&m.ID, &m.Title, &url, &pageID, &parentID, &m.Order, &m.IsVisible, &createdAt, &updatedAt)
	if err != nil {
		return nil, wrapLookup("menu item", err)
	}

	m.URL = nullString(url)
	m.PageID = nullInt64(pageID)
	m.ParentID = nullInt64(parentID)
	timestamps(createdAt, updatedAt, &m.CreatedAt, &m.UpdatedAt)
	return &m, nil
}

// CreateMenuItem inserts a menu item.
func (q *Queries) CreateMenuItem(ctx context.Context, m *MenuItem) error {
	result, err := q.q.ExecContext(ctx, `
		INSERT INTO menu_items (title, url, page_id, parent_id, sort_order, is_visible)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.Title, m.URL, m.PageID, m.ParentID, m.Order, m.IsVisible)
	if err != nil {
		return fmt.Errorf("insert menu item: %w", mapError(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get menu item id: %w", err)
	}

	created, err := q.GetMenuItem(ctx, id)
	if err != nil {
		return err
	}
	*m = *created
	return nil
}

// UpdateMenuItem overwrites a menu item.
func (q *Queries) UpdateMenuItem(ctx context.Context, m *MenuItem) error {
	result, err := q.q.ExecContext(ctx, `
		UPDATE menu_items SET
			title = ?, url = ?, page_id = ?, parent_id = ?, sort_order = ?, is_visible = ?,
			updated_at = datetime('now')
		WHERE id = ?
	`, m.Title, m.URL, m.PageID, m.ParentID, m.Order, m.IsVisible, m.ID)
	if err != nil {
		return fmt.Errorf("update menu item: %w", mapError(err))
	}
	if err := checkAffected(result); err != nil {
		return err
	}

	updated, err := q.GetMenuItem(ctx, m.ID)
	if err != nil {
		return err
	}
	*m = *updated
	return nil
}

// MoveMenuItem sets the order and parent of one item.
func (q *Queries) MoveMenuItem(ctx context.Context, pos MenuPosition) error {
	result, err := q.q.ExecContext(ctx, `
		UPDATE menu_items SET sort_order = ?, parent_id = ?, updated_at = datetime('now')
		WHERE id = ?
	`, pos.Order, pos.ParentID, pos.ID)
	if err != nil {
		return fmt.Errorf("move menu item %d: %w", pos.ID, mapError(err))
	}
	return checkAffected(result)
}

// DeleteMenuItem removes an item and, by cascade, its children.
func (q *Queries) DeleteMenuItem(ctx context.Context, id int64) error {
	result, err := q.q.ExecContext(ctx, `DELETE FROM menu_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete menu item: %w", err)
	}
	return checkAffected(result)
}

// BuildMenuTree nests a flat list under parents. Items whose parent is not in
// the list (for example a hidden parent) are dropped along with their subtree.
func BuildMenuTree(items []MenuItem) []MenuItem {
	children := make(map[int64][]MenuItem)
	var roots []MenuItem
	for _, item := range items {
		if item.ParentID == nil {
			roots = append(roots, item)
			continue
		}
		children[*item.ParentID] = append(children[*item.ParentID], item)
	}

	var attach func(nodes []MenuItem) []MenuItem
	attach = func(nodes []MenuItem) []MenuItem {
		for i := range nodes {
			if kids, ok := children[nodes[i].ID]; ok {
				nodes[i].Children = attach(kids)
			}
		}
		return nodes
	}

	if roots == nil {
		return []MenuItem{}
	}
	return attach(roots)
}

// =============================================================================
// Carousel Queries
// =============================================================================

const slideColumns = `id, title, subtitle, image_url, link, sort_order, is_active, created_at, updated_at`

func scanSlide(row rowScanner) (*CarouselSlide, error) {
	var s CarouselSlide
	var title, subtitle, link, createdAt, updatedAt sql.NullString

	if err := row.Scan(&s.ID, &title, &subtitle, &s.ImageURL, &link, &s.Order, &s.IsActive, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	s.Title = nullString(title)
	s.Subtitle = nullString(subtitle)
	s.Link = nullString(link)
	timestamps(createdAt, updatedAt, &s.CreatedAt, &s.UpdatedAt)
	return &s, nil
}

// ListSlides returns carousel slides by order.
func (q *Queries) ListSlides(ctx context.Context, activeOnly bool) ([]CarouselSlide, error) {
	where := ""
	if activeOnly {
		where = "WHERE is_active = 1"
	}

	rows, err := q.q.QueryContext(ctx, `SELECT `+slideColumns+` FROM carousel_slides `+where+` ORDER BY sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("query slides: %w", err)
	}
	defer rows.Close()

	slides := []CarouselSlide{}
	for rows.Next() {
		s, err := scanSlide(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slide row: %w", err)
		}
		slides = append(slides, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slide rows: %w", err)
	}
	return slides, nil
}

// GetSlide retrieves a slide by id.
func (q *Queries) GetSlide(ctx context.Context, id int64) (*CarouselSlide, error) {
	s, err := scanSlide(q.q.QueryRowContext(ctx, `SELECT `+slideColumns+` FROM carousel_slides WHERE id = ?`, id))
	if err != nil {
		return nil, wrapLookup("slide", err)
	}
	return s, nil
}

// CreateSlide inserts a slide.
func (q *Queries) CreateSlide(ctx context.Context, s *CarouselSlide) error {
	result, err := q.q.ExecContext(ctx, `
		INSERT INTO carousel_slides (title, subtitle, image_url, link, sort_order, is_active)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.Title, s.Subtitle, s.ImageURL, s.Link, s.Order, s.IsActive)
	if err != nil {
		return fmt.Errorf("insert slide: %w", mapError(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get slide id: %w", err)
	}

	created, err := q.GetSlide(ctx, id)
	if err != nil {
		return err
	}
	*s = *created
	return nil
}

// UpdateSlide overwrites a slide.
func (q *Queries) UpdateSlide(ctx context.Context, s *CarouselSlide) error {
	result, err := q.q.ExecContext(ctx, `
		UPDATE carousel_slides SET
			title = ?, subtitle = ?, image_url = ?, link = ?, sort_order = ?, is_active = ?,
			updated_at = datetime('now')
		WHERE id = ?
	`, s.Title, s.Subtitle, s.ImageURL, s.Link, s.Order, s.IsActive, s.ID)
	if err != nil {
		return fmt.Errorf("update slide: %w", mapError(err))
	}
	if err := checkAffected(result); err != nil {
		return err
	}

	updated, err := q.GetSlide(ctx, s.ID)
	if err != nil {
		return err
	}
	*s = *updated
	return nil
}

// DeleteSlide removes a slide.
func (q *Queries) DeleteSlide(ctx context.Context, id int64) error {
	result, err := q.q.ExecContext(ctx, `DELETE FROM carousel_slides WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete slide: %w", err)
	}
	return checkAffected(result)
}

// ReorderMenu applies every position in one transaction. An unknown id rolls
// back the whole batch with ErrNotFound.
func (db *DB) ReorderMenu(ctx context.Context, positions []MenuPosition) error {
	return db.WithTx(ctx, func(tx *Tx) error {
		for _, pos := range positions {
			if err := tx.MoveMenuItem(ctx, pos); err != nil {
				return err
			}
		}
		return nil
	})
}

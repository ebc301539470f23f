package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mozillazg/go-unidecode"

	"github.com/zapponejosh/parish-api/internal/database"
)

// maxSlugLen bounds generated slugs.
const maxSlugLen = 80

// Hard and soft signs are dropped rather than transliterated to quotes.
var signs = strings.NewReplacer("ъ", "", "ь", "", "Ъ", "", "Ь", "")

// Slugify transliterates s to ASCII, lower-cases it and joins words with
// dashes.
func Slugify(s string) string {
	ascii := strings.ToLower(unidecode.Unidecode(signs.Replace(s)))

	var b strings.Builder
	dash := false
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case r == '\'':
		default:
			if b.Len() > 0 && !dash {
				b.WriteByte('-')
				dash = true
			}
		}
	}

	slug := strings.Trim(b.String(), "-")
	if len(slug) > maxSlugLen {
		slug = strings.TrimRight(slug[:maxSlugLen], "-")
	}
	return slug
}

// uniqueSlug returns base, or base-2, base-3... until taken reports false.
// An empty base becomes fallback.
func uniqueSlug(ctx context.Context, base, fallback string, taken func(context.Context, string) (bool, error)) (string, error) {
	if base == "" {
		base = fallback
	}
	candidate := base
	for i := 2; i < 1000; i++ {
		exists, err := taken(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", fmt.Errorf("no free slug for %q", base)
}

// newsSlugTaken reports whether another article uses slug.
func newsSlugTaken(db *database.DB, selfID int64) func(context.Context, string) (bool, error) {
	return func(ctx context.Context, slug string) (bool, error) {
		n, err := db.GetNewsBySlug(ctx, slug)
		if errors.Is(err, database.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return n.ID != selfID, nil
	}
}

// pageSlugTaken reports whether another page uses slug.
func pageSlugTaken(db *database.DB, selfID int64) func(context.Context, string) (bool, error) {
	return func(ctx context.Context, slug string) (bool, error) {
		p, err := db.GetPageBySlug(ctx, slug)
		if errors.Is(err, database.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return p.ID != selfID, nil
	}
}

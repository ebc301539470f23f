package database

import (
	"context"
	"testing"
	"time"
)

// -----------------------------------------------------------------
// News and Page tests
// -----------------------------------------------------------------

func TestNews_PublishedOnly(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	older := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	items := []News{
		{Title: "Old", Slug: "old", Content: "a", Published: true, PublishedAt: &older},
		{Title: "Draft", Slug: "draft", Content: "b"},
		{Title: "New", Slug: "new", Content: "c", Published: true},
	}
	for i := range items {
		if err := db.CreateNews(ctx, &items[i]); err != nil {
			t.Fatalf("CreateNews(%s) error = %v", items[i].Slug, err)
		}
	}
	if items[2].PublishedAt == nil {
		t.Error("publishing did not stamp PublishedAt")
	}
	if items[1].PublishedAt != nil {
		t.Error("draft has PublishedAt")
	}

	public, total, err := db.ListNews(ctx, NewsFilter{Limit: 10})
	if err != nil {
		t.Fatalf("ListNews() error = %v", err)
	}
	if total != 2 || len(public) != 2 {
		t.Fatalf("ListNews() = %d items, total %d, want 2/2", len(public), total)
	}
	if public[0].Slug != "new" || public[1].Slug != "old" {
		t.Errorf("ListNews() order = %s, %s", public[0].Slug, public[1].Slug)
	}

	all, total, err := db.ListNews(ctx, NewsFilter{IncludeDrafts: true, Limit: 1, Offset: 0})
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(all) != 1 {
		t.Errorf("ListNews(drafts, limit 1) = %d items, total %d", len(all), total)
	}
}

func TestNews_SlugLookupAndDuplicate(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	n := &News{Title: "Pascha", Slug: "pascha", Content: "Christ is risen"}
	if err := db.CreateNews(ctx, n); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetNewsBySlug(ctx, "pascha")
	if err != nil {
		t.Fatalf("GetNewsBySlug() error = %v", err)
	}
	if got.ID != n.ID {
		t.Errorf("GetNewsBySlug() id = %d, want %d", got.ID, n.ID)
	}
	if _, err := db.GetNewsBySlug(ctx, "missing"); err != ErrNotFound {
		t.Errorf("GetNewsBySlug(missing) error = %v, want ErrNotFound", err)
	}

	dup := &News{Title: "Pascha again", Slug: "pascha"}
	if err := db.CreateNews(ctx, dup); !IsDuplicate(err) {
		t.Errorf("CreateNews(dup) error = %v, want ErrDuplicate", err)
	}

	n.Title = "Bright Week"
	if err := db.UpdateNews(ctx, n); err != nil {
		t.Fatalf("UpdateNews() error = %v", err)
	}
	if n.Title != "Bright Week" {
		t.Errorf("UpdateNews() title = %s", n.Title)
	}
	if err := db.DeleteNews(ctx, n.ID); err != nil {
		t.Fatalf("DeleteNews() error = %v", err)
	}
	if err := db.DeleteNews(ctx, n.ID); err != ErrNotFound {
		t.Errorf("DeleteNews() twice error = %v, want ErrNotFound", err)
	}
}

func TestPages(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	about := &Page{Title: "About", Slug: "about", Content: "history", Published: true}
	hidden := &Page{Title: "Hidden", Slug: "hidden", Content: "wip"}
	for _, p := range []*Page{about, hidden} {
		if err := db.CreatePage(ctx, p); err != nil {
			t.Fatalf("CreatePage(%s) error = %v", p.Slug, err)
		}
	}

	published, err := db.ListPages(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(published) != 1 || published[0].Slug != "about" {
		t.Errorf("ListPages(published) = %+v", published)
	}

	all, err := db.ListPages(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("ListPages(all) = %d pages, want 2", len(all))
	}

	about.MetaDescription = strPtr("Parish history")
	if err := db.UpdatePage(ctx, about); err != nil {
		t.Fatalf("UpdatePage() error = %v", err)
	}
	got, err := db.GetPageBySlug(ctx, "about")
	if err != nil {
		t.Fatal(err)
	}
	if got.MetaDescription == nil || *got.MetaDescription != "Parish history" {
		t.Errorf("MetaDescription = %v", got.MetaDescription)
	}
}

func TestListSitemap(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	for _, p := range []*Page{
		{Title: "Contacts", Slug: "contacts", Published: true},
		{Title: "About", Slug: "about", Published: true},
		{Title: "Draft", Slug: "draft"},
	} {
		if err := db.CreatePage(ctx, p); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.CreateNews(ctx, &News{Title: "News", Slug: "news-1", Published: true}); err != nil {
		t.Fatal(err)
	}

	entries, err := db.ListSitemap(ctx)
	if err != nil {
		t.Fatalf("ListSitemap() error = %v", err)
	}

	want := []string{"page:about", "page:contacts", "news:news-1"}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i, w := range want {
		if got := entries[i].Kind + ":" + entries[i].Slug; got != w {
			t.Errorf("entry[%d] = %s, want %s", i, got, w)
		}
	}
}

// -----------------------------------------------------------------
// Menu and Carousel tests
// -----------------------------------------------------------------

func TestMenu_TreeAndReorder(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	page := &Page{Title: "About", Slug: "about", Published: true}
	if err := db.CreatePage(ctx, page); err != nil {
		t.Fatal(err)
	}

	parish := &MenuItem{Title: "Parish", Order: 1, IsVisible: true}
	schedule := &MenuItem{Title: "Schedule", URL: strPtr("/schedule"), Order: 0, IsVisible: true}
	for _, m := range []*MenuItem{parish, schedule} {
		if err := db.CreateMenuItem(ctx, m); err != nil {
			t.Fatal(err)
		}
	}
	about := &MenuItem{Title: "About", PageID: &page.ID, ParentID: &parish.ID, IsVisible: true}
	secret := &MenuItem{Title: "Secret", ParentID: &parish.ID, Order: 1}
	for _, m := range []*MenuItem{about, secret} {
		if err := db.CreateMenuItem(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	items, err := db.ListMenuItems(ctx, false)
	if err != nil {
		t.Fatalf("ListMenuItems() error = %v", err)
	}
	tree := BuildMenuTree(items)
	if len(tree) != 2 {
		t.Fatalf("tree has %d roots, want 2", len(tree))
	}
	if tree[0].Title != "Schedule" || tree[1].Title != "Parish" {
		t.Errorf("roots = %s, %s", tree[0].Title, tree[1].Title)
	}
	if len(tree[1].Children) != 1 || tree[1].Children[0].Title != "About" {
		t.Fatalf("Parish children = %+v", tree[1].Children)
	}
	if slug := tree[1].Children[0].PageSlug; slug == nil || *slug != "about" {
		t.Errorf("PageSlug = %v, want about", slug)
	}

	err = db.ReorderMenu(ctx, []MenuPosition{
		{ID: parish.ID, Order: 0},
		{ID: schedule.ID, Order: 1},
	})
	if err != nil {
		t.Fatalf("ReorderMenu() error = %v", err)
	}
	items, _ = db.ListMenuItems(ctx, true)
	tree = BuildMenuTree(items)
	if tree[0].Title != "Parish" {
		t.Errorf("first root after reorder = %s, want Parish", tree[0].Title)
	}

	// Unknown id rolls back the whole batch
	err = db.ReorderMenu(ctx, []MenuPosition{
		{ID: parish.ID, Order: 5},
		{ID: 9999, Order: 0},
	})
	if err != ErrNotFound {
		t.Fatalf("ReorderMenu(unknown) error = %v, want ErrNotFound", err)
	}
	got, _ := db.GetMenuItem(ctx, parish.ID)
	if got.Order != 0 {
		t.Errorf("Order = %d after rollback, want 0", got.Order)
	}

	// Deleting the parent removes the children
	if err := db.DeleteMenuItem(ctx, parish.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := db.GetMenuItem(ctx, about.ID); err != ErrNotFound {
		t.Errorf("child survived parent delete: %v", err)
	}
}

func TestBuildMenuTree_Empty(t *testing.T) {
	tree := BuildMenuTree(nil)
	if tree == nil || len(tree) != 0 {
		t.Errorf("BuildMenuTree(nil) = %v, want empty slice", tree)
	}
}

func TestCarousel(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	second := &CarouselSlide{ImageURL: "/uploads/b.jpg", Order: 2, IsActive: true}
	first := &CarouselSlide{ImageURL: "/uploads/a.jpg", Order: 1, IsActive: true, Title: strPtr("Welcome")}
	off := &CarouselSlide{ImageURL: "/uploads/c.jpg", Order: 0}
	for _, s := range []*CarouselSlide{second, first, off} {
		if err := db.CreateSlide(ctx, s); err != nil {
			t.Fatal(err)
		}
	}

	active, err := db.ListSlides(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 2 || active[0].ID != first.ID {
		t.Errorf("ListSlides(active) = %+v", active)
	}

	off.IsActive = true
	if err := db.UpdateSlide(ctx, off); err != nil {
		t.Fatal(err)
	}
	active, _ = db.ListSlides(ctx, true)
	if len(active) != 3 || active[0].ID != off.ID {
		t.Errorf("after activation = %+v", active)
	}

	if err := db.DeleteSlide(ctx, off.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := db.GetSlide(ctx, off.ID); err != ErrNotFound {
		t.Errorf("GetSlide() after delete error = %v", err)
	}
}

// -----------------------------------------------------------------
// User and Treba tests
// -----------------------------------------------------------------

func TestUsers(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	u := &User{Email: "  Rector@Parish.org ", Name: "Fr. John", Role: RoleAdmin, PasswordHash: "hash"}
	if err := db.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if u.Email != "rector@parish.org" {
		t.Errorf("Email = %q, want lower-cased", u.Email)
	}

	got, err := db.GetUserByEmail(ctx, "RECTOR@parish.org")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if got.ID != u.ID || got.Role != RoleAdmin {
		t.Errorf("GetUserByEmail() = %+v", got)
	}

	if err := db.CreateUser(ctx, &User{Email: "rector@parish.org", PasswordHash: "x"}); err != ErrDuplicate {
		t.Errorf("CreateUser(dup) error = %v, want ErrDuplicate", err)
	}

	plain := &User{Email: "reader@parish.org", PasswordHash: "x"}
	if err := db.CreateUser(ctx, plain); err != nil {
		t.Fatal(err)
	}
	if plain.Role != RoleUser {
		t.Errorf("default role = %s, want USER", plain.Role)
	}

	if err := db.UpdateUserPassword(ctx, plain.ID, "new-hash"); err != nil {
		t.Fatal(err)
	}
	users, err := db.ListUsers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 || users[1].PasswordHash != "new-hash" {
		t.Errorf("ListUsers() = %+v", users)
	}

	if err := db.DeleteUser(ctx, plain.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := db.GetUserByID(ctx, plain.ID); err != ErrNotFound {
		t.Errorf("GetUserByID() after delete error = %v", err)
	}
}

func TestTreby_Lifecycle(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	tr := &Treba{
		OrderNumber: "T-1",
		Type:        TrebaHealth,
		Period:      PeriodWeek,
		Names:       []string{"Maria", "Nikolai"},
		Price:       400,
	}
	if err := db.CreateTreba(ctx, tr); err != nil {
		t.Fatalf("CreateTreba() error = %v", err)
	}
	if tr.Status != TrebaPending || len(tr.Names) != 2 {
		t.Errorf("created = %+v", tr)
	}

	if err := db.UpdateTrebaStatus(ctx, tr.ID, TrebaPaid, TrebaInProgress); err != ErrInvalidTransition {
		t.Errorf("stale transition error = %v, want ErrInvalidTransition", err)
	}

	paidAt := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
	if err := db.MarkTrebaPaid(ctx, tr.ID, "pay-42", paidAt); err != nil {
		t.Fatalf("MarkTrebaPaid() error = %v", err)
	}
	if err := db.MarkTrebaPaid(ctx, tr.ID, "pay-43", paidAt); err != ErrInvalidTransition {
		t.Errorf("second MarkTrebaPaid() error = %v, want ErrInvalidTransition", err)
	}

	got, err := db.GetTrebaByOrderNumber(ctx, "T-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != TrebaPaid || got.PaymentID == nil || *got.PaymentID != "pay-42" {
		t.Errorf("after payment = %+v", got)
	}
	if got.PaidAt == nil || !got.PaidAt.Equal(paidAt) {
		t.Errorf("PaidAt = %v, want %v", got.PaidAt, paidAt)
	}

	if err := db.UpdateTrebaStatus(ctx, tr.ID, TrebaPaid, TrebaInProgress); err != nil {
		t.Fatalf("UpdateTrebaStatus() error = %v", err)
	}
	if err := db.UpdateTrebaStatus(ctx, 999, TrebaPending, TrebaPaid); err != ErrNotFound {
		t.Errorf("UpdateTrebaStatus(missing) error = %v, want ErrNotFound", err)
	}

	pending, err := db.ListTreby(ctx, TrebaPending)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("ListTreby(PENDING) = %d, want 0", len(pending))
	}
	all, _ := db.ListTreby(ctx, "")
	if len(all) != 1 || all[0].Status != TrebaInProgress {
		t.Errorf("ListTreby() = %+v", all)
	}
}

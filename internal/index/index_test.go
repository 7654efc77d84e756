package index

import (
	"log/slog"
	"os"
	"reflect"
	"testing"

	"github.com/starford/notetags/internal/classifier"
	"github.com/starford/notetags/internal/models"
	"github.com/starford/notetags/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "notetags-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func upsert(t *testing.T, db *DB, path, id, title string, dests ...string) {
	t.Helper()
	var node *models.Node
	if id != "" {
		node = &models.Node{ID: id, Title: title}
	}
	links := make([]models.Link, 0, len(dests))
	for _, d := range dests {
		links = append(links, models.Link{Dest: d, Type: models.LinkID})
	}
	if err := db.UpsertFile(FileRow{Path: path, Checksum: "cs-" + path}, node, links); err != nil {
		t.Fatalf("UpsertFile(%s): %v", path, err)
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	for _, table := range []string{"files", "notes", "links"} {
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestUpsertAndLookup(t *testing.T) {
	db := testDB(t)
	upsert(t, db, "alpha.md", "id-a", "alpha")

	cs, err := db.GetChecksum("alpha.md")
	if err != nil || cs != "cs-alpha.md" {
		t.Fatalf("GetChecksum = %q, %v", cs, err)
	}
	n, err := db.Node("id-a")
	if err != nil {
		t.Fatalf("Node: %v", err)
	}
	if n == nil || n.Title != "alpha" || n.File != "alpha.md" {
		t.Errorf("Node = %+v", n)
	}
	n, err = db.NodeByFile("alpha.md")
	if err != nil || n == nil || n.ID != "id-a" {
		t.Errorf("NodeByFile = %+v, %v", n, err)
	}
	n, err = db.Node("missing")
	if err != nil || n != nil {
		t.Errorf("Node(missing) = %+v, %v", n, err)
	}
}

func TestFileWithoutIDHasNoNode(t *testing.T) {
	db := testDB(t)
	upsert(t, db, "plain.md", "", "")
	cs, _ := db.GetChecksum("plain.md")
	if cs == "" {
		t.Fatal("file should be tracked")
	}
	n, err := db.NodeByFile("plain.md")
	if err != nil || n != nil {
		t.Errorf("NodeByFile = %+v, %v; want nil", n, err)
	}
}

func TestTitlesCoarseFilter(t *testing.T) {
	db := testDB(t)
	upsert(t, db, "a.md", "1", "alpha")
	upsert(t, db, "b.md", "2", "Not A Tag")
	upsert(t, db, "c.md", "3", "Beta")

	got, err := db.Titles(classifier.DefaultCoarse())
	if err != nil {
		t.Fatalf("Titles: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"alpha", "Beta"}) {
		t.Errorf("Titles = %v", got)
	}

	got, err = db.Titles(classifier.CoarseFilter{})
	if err != nil || len(got) != 3 {
		t.Errorf("unfiltered Titles = %v, %v", got, err)
	}
}

func TestTitlesEmpty(t *testing.T) {
	db := testDB(t)
	got, err := db.Titles(classifier.DefaultCoarse())
	if err != nil {
		t.Fatalf("Titles: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Titles = %#v, want empty", got)
	}
}

func TestIDsByTitle(t *testing.T) {
	db := testDB(t)
	upsert(t, db, "a.md", "1", "alpha")
	ids, err := db.IDsByTitle("alpha")
	if err != nil || !reflect.DeepEqual(ids, []string{"1"}) {
		t.Errorf("IDsByTitle = %v, %v", ids, err)
	}
	ids, _ = db.IDsByTitle("ALPHA")
	if len(ids) != 0 {
		t.Errorf("title match must be exact, got %v", ids)
	}
}

func TestLinksKeepOrderAndDuplicates(t *testing.T) {
	db := testDB(t)
	upsert(t, db, "n.md", "n", "note", "b", "a", "b")

	links, err := db.Links("n")
	if err != nil {
		t.Fatalf("Links: %v", err)
	}
	var dests []string
	for _, l := range links {
		dests = append(dests, l.Dest)
	}
	if !reflect.DeepEqual(dests, []string{"b", "a", "b"}) {
		t.Errorf("dests = %v", dests)
	}
}

func TestBacklinks(t *testing.T) {
	db := testDB(t)
	upsert(t, db, "t.md", "t", "topic")
	upsert(t, db, "a.md", "a", "zeta", "t", "t")
	upsert(t, db, "c.md", "c", "eta", "t")

	bl, err := db.Backlinks("t")
	if err != nil {
		t.Fatalf("Backlinks: %v", err)
	}
	if len(bl) != 2 || bl[0].Title != "eta" || bl[1].Title != "zeta" {
		t.Fatalf("Backlinks = %+v", bl)
	}
}

func TestUpsertReplacesLinks(t *testing.T) {
	db := testDB(t)
	upsert(t, db, "up.md", "u", "up", "x")
	upsert(t, db, "up.md", "u", "up", "y")

	if bl, _ := db.Backlinks("x"); len(bl) != 0 {
		t.Error("old link should be removed on upsert")
	}
	if bl, _ := db.Backlinks("y"); len(bl) != 1 {
		t.Error("new link should exist")
	}
}

func TestDeleteFile(t *testing.T) {
	db := testDB(t)
	upsert(t, db, "del.md", "d", "del", "target")

	if err := db.DeleteFile("del.md"); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	if cs, _ := db.GetChecksum("del.md"); cs != "" {
		t.Errorf("deleted file still has checksum %q", cs)
	}
	if n, _ := db.Node("d"); n != nil {
		t.Errorf("deleted node still present: %+v", n)
	}
	if bl, _ := db.Backlinks("target"); len(bl) != 0 {
		t.Errorf("expected 0 backlinks after delete, got %d", len(bl))
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestSyncIndexesAndRemoves(t *testing.T) {
	db := testDB(t)
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_ = store.Write("tag.md", []byte("---\nid: t1\ntitle: go\n---\n# go\n"))
	_ = store.Write("note.md", []byte("---\nid: n1\ntitle: Note\n---\n\n+ tags :: [go](id:t1)\n"))

	stats, err := Sync(db, store, quietLogger())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if stats.Indexed != 2 {
		t.Errorf("indexed = %d, want 2", stats.Indexed)
	}
	bl, _ := db.Backlinks("t1")
	if len(bl) != 1 || bl[0].ID != "n1" {
		t.Errorf("Backlinks = %+v", bl)
	}

	stats, _ = Sync(db, store, quietLogger())
	if stats.Indexed != 0 {
		t.Errorf("unchanged files re-indexed: %d", stats.Indexed)
	}

	if err := os.Remove(store.Root() + "/note.md"); err != nil {
		t.Fatal(err)
	}
	stats, _ = Sync(db, store, quietLogger())
	if stats.Removed != 1 {
		t.Errorf("removed = %d, want 1", stats.Removed)
	}
	if bl, _ := db.Backlinks("t1"); len(bl) != 0 {
		t.Errorf("stale backlink survived: %+v", bl)
	}
}

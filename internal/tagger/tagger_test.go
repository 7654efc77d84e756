package tagger

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/starford/notetags/internal/apperr"
	"github.com/starford/notetags/internal/classifier"
	"github.com/starford/notetags/internal/document"
	"github.com/starford/notetags/internal/index"
	"github.com/starford/notetags/internal/noteservice"
	"github.com/starford/notetags/internal/storage"
	"github.com/starford/notetags/internal/tagrepo"
	"github.com/starford/notetags/internal/testutil"
)

// recorder is a Notifier that answers confirmations from a fixed value and
// counts prompts.
type recorder struct {
	answer   bool
	prompts  []string
	messages []string
}

func (r *recorder) Notify(msg string) { r.messages = append(r.messages, msg) }

func (r *recorder) Confirm(q string) (bool, error) {
	r.prompts = append(r.prompts, q)
	return r.answer, nil
}

type env struct {
	store  *storage.FS
	db     *index.DB
	repo   *tagrepo.Repository
	tagger *Tagger
	notify *recorder
}

func newEnv(t *testing.T, answer bool, opts ...Option) *env {
	t.Helper()
	_, store := testutil.TestVault(t)
	db := testutil.TestDB(t)
	testutil.WriteNote(t, store, db, "tags/alpha.md", "id-a", "alpha", "# alpha\n")
	testutil.WriteNote(t, store, db, "tags/beta.md", "id-b", "beta", "# beta\n")
	testutil.WriteNote(t, store, db, "tags/gamma.md", "id-g", "gamma", "# gamma\n")

	n := 0
	opts = append([]Option{WithIDFunc(func() string {
		n++
		return fmt.Sprintf("new-%d", n)
	})}, opts...)

	repo := tagrepo.New(db, classifier.Default())
	rec := &recorder{answer: answer}
	tg := New(Config{Directory: "tags"}, repo, noteservice.NewService(store, db), rec, opts...)
	return &env{store: store, db: db, repo: repo, tagger: tg, notify: rec}
}

func fileCount(t *testing.T, s *storage.FS) int {
	t.Helper()
	metas, err := s.List("")
	if err != nil {
		t.Fatal(err)
	}
	return len(metas)
}

func TestEnsureTagExists_ExistingIsNoop(t *testing.T) {
	e := newEnv(t, false)
	before := fileCount(t, e.store)

	tag, ok, err := e.tagger.EnsureTagExists(context.Background(), "gamma")
	if err != nil || !ok || tag != "gamma" {
		t.Fatalf("EnsureTagExists = %q %v %v", tag, ok, err)
	}
	if len(e.notify.prompts) != 0 {
		t.Errorf("unexpected prompts: %v", e.notify.prompts)
	}
	if fileCount(t, e.store) != before {
		t.Error("no file should be written")
	}
}

func TestEnsureTagExists_CreatesOnConfirm(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()
	before := fileCount(t, e.store)

	tag, ok, err := e.tagger.EnsureTagExists(ctx, "brand-new")
	if err != nil || !ok || tag != "brand-new" {
		t.Fatalf("EnsureTagExists = %q %v %v", tag, ok, err)
	}
	if fileCount(t, e.store) != before+1 {
		t.Error("exactly one file should be created")
	}
	data, err := e.store.Read("tags/brand-new.md")
	if err != nil {
		t.Fatalf("tag file missing: %v", err)
	}
	if !strings.Contains(string(data), "id: new-1") || !strings.HasSuffix(string(data), "# brand-new\n") {
		t.Errorf("tag file = %q", data)
	}
	id, ok, _ := e.repo.IDForTag(ctx, "brand-new")
	if !ok || id != "new-1" {
		t.Errorf("new tag not indexed: %q %v", id, ok)
	}
	if !reflect.DeepEqual(e.notify.prompts, []string{"Create tag «brand-new»?"}) {
		t.Errorf("prompts = %v", e.notify.prompts)
	}
	if !reflect.DeepEqual(e.notify.messages, []string{"Created tag «brand-new»"}) {
		t.Errorf("messages = %v", e.notify.messages)
	}
}

func TestEnsureTagExists_Declined(t *testing.T) {
	e := newEnv(t, false)
	before := fileCount(t, e.store)

	tag, ok, err := e.tagger.EnsureTagExists(context.Background(), "brand-new")
	if err != nil || ok || tag != "" {
		t.Fatalf("EnsureTagExists = %q %v %v", tag, ok, err)
	}
	if fileCount(t, e.store) != before {
		t.Error("declined creation must not write a file")
	}
	if !reflect.DeepEqual(e.notify.messages, []string{"Aborted"}) {
		t.Errorf("messages = %v", e.notify.messages)
	}
}

func TestEnsureTagExists_NotATag(t *testing.T) {
	e := newEnv(t, true)
	_, ok, err := e.tagger.EnsureTagExists(context.Background(), "Not A Tag")
	if ok || !errors.Is(err, apperr.ErrNotATag) {
		t.Fatalf("ok = %v err = %v", ok, err)
	}
	if len(e.notify.prompts) != 0 {
		t.Error("no prompt for a non-tag")
	}
}

func TestCreateTag_Collision(t *testing.T) {
	e := newEnv(t, true)
	_ = e.store.Write("tags/clash.md", []byte("hand written"))

	_, err := e.tagger.CreateTag(context.Background(), "clash")
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
	data, _ := e.store.Read("tags/clash.md")
	if string(data) != "hand written" {
		t.Errorf("existing file overwritten: %q", data)
	}
}

func TestCreateTag_OnCreateHook(t *testing.T) {
	var got []string
	e := newEnv(t, true, WithOnCreate(func(tag, id, file string) {
		got = append(got, tag+"|"+id+"|"+file)
	}))
	if _, err := e.tagger.CreateTag(context.Background(), "hooked"); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"hooked|new-1|tags/hooked.md"}) {
		t.Errorf("hook calls = %v", got)
	}
}

func TestFindFileTagsLine_AppendsOnce(t *testing.T) {
	e := newEnv(t, true)
	buf := document.New("n.md", "...text")

	p1 := e.tagger.FindFileTagsLine(buf)
	p2 := e.tagger.FindFileTagsLine(buf)
	if buf.String() != "...text\n\n+ tags ::" {
		t.Errorf("buffer = %q", buf.String())
	}
	if p1 != buf.Len() || p2 != p1 {
		t.Errorf("points = %d, %d; len %d", p1, p2, buf.Len())
	}
}

func TestFindFileTagsLine_LastMarkerWins(t *testing.T) {
	e := newEnv(t, true)
	buf := document.New("n.md", "+ tags :: old\nbody\n+ tags :: new\ntail")
	p := e.tagger.FindFileTagsLine(buf)
	if p != 28 {
		t.Errorf("point = %d, want 28", p)
	}
}

func TestClearFileTagsLine(t *testing.T) {
	e := newEnv(t, true)
	buf := document.New("n.md", "text\n+ tags :: [alpha](id:id-a)\nafter")
	e.tagger.ClearFileTagsLine(buf)
	if buf.String() != "text\n+ tags ::" {
		t.Errorf("buffer = %q", buf.String())
	}
}

func TestInsertFileTag_AppendsToExistingLine(t *testing.T) {
	e := newEnv(t, false)
	buf := document.New("n.md", "...text\n+ tags :: [alpha](id:id-a) [beta](id:id-b)")

	ok, err := e.tagger.InsertFileTag(context.Background(), buf, "gamma")
	if err != nil || !ok {
		t.Fatalf("InsertFileTag = %v %v", ok, err)
	}
	want := "...text\n+ tags :: [alpha](id:id-a) [beta](id:id-b) [gamma](id:id-g)"
	if buf.String() != want {
		t.Errorf("buffer = %q\nwant     %q", buf.String(), want)
	}
	if len(e.notify.prompts) != 0 {
		t.Error("existing tag must not prompt")
	}
}

func TestInsertFileTag_TrimsTrailingWhitespace(t *testing.T) {
	e := newEnv(t, false)
	buf := document.New("n.md", "+ tags :: [alpha](id:id-a)  \t\nbody")
	if _, err := e.tagger.InsertFileTag(context.Background(), buf, "beta"); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "+ tags :: [alpha](id:id-a) [beta](id:id-b)\nbody" {
		t.Errorf("buffer = %q", buf.String())
	}
}

func TestInsertFileTag_KeepsCRLF(t *testing.T) {
	e := newEnv(t, false)
	buf := document.New("n.md", "text\r\n+ tags :: [alpha](id:id-a) \r\n")
	if _, err := e.tagger.InsertFileTag(context.Background(), buf, "gamma"); err != nil {
		t.Fatal(err)
	}
	want := "text\r\n+ tags :: [alpha](id:id-a) [gamma](id:id-g)\r\n"
	if buf.String() != want {
		t.Errorf("buffer = %q\nwant     %q", buf.String(), want)
	}
}

func TestInsertFileTag_DeclinedLeavesSpace(t *testing.T) {
	e := newEnv(t, false)
	buf := document.New("n.md", "x")
	ok, err := e.tagger.InsertFileTag(context.Background(), buf, "brand-new")
	if err != nil || ok {
		t.Fatalf("InsertFileTag = %v %v", ok, err)
	}
	if buf.String() != "x\n\n+ tags :: " {
		t.Errorf("buffer = %q", buf.String())
	}
}

func TestInsertInlineTag_Spacing(t *testing.T) {
	cases := []struct {
		name    string
		content string
		point   int
		want    string
	}{
		{"between words", "foobar", 3, "foo [gamma](id:id-g) bar"},
		{"line start", "line\nbar", 5, "line\n[gamma](id:id-g) bar"},
		{"buffer start", "bar", 0, "[gamma](id:id-g) bar"},
		{"after space", "foo bar", 4, "foo [gamma](id:id-g) bar"},
		{"after dash", "a-b", 2, "a-[gamma](id:id-g) b"},
		{"before dash", "a-b", 1, "a [gamma](id:id-g)-b"},
		{"line end", "foo\nnext", 3, "foo [gamma](id:id-g)\nnext"},
		{"buffer end", "foo", 3, "foo [gamma](id:id-g)"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			e := newEnv(t, false)
			buf := document.New("n.md", c.content)
			buf.Goto(c.point)
			ok, err := e.tagger.InsertInlineTag(context.Background(), buf, "gamma")
			if err != nil || !ok {
				t.Fatalf("InsertInlineTag = %v %v", ok, err)
			}
			if buf.String() != c.want {
				t.Errorf("buffer = %q, want %q", buf.String(), c.want)
			}
		})
	}
}

func TestLinkFor_Dangling(t *testing.T) {
	e := newEnv(t, true)
	_, err := e.tagger.LinkFor(context.Background(), "ghost")
	if !errors.Is(err, apperr.ErrDanglingTag) {
		t.Fatalf("err = %v, want ErrDanglingTag", err)
	}
	if !strings.Contains(err.Error(), "No tag «ghost»") {
		t.Errorf("message = %q", err.Error())
	}
}

func TestTagFileAndDocumentTags(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()
	testutil.WriteNote(t, e.store, e.db, "note.md", "id-n", "A note", "See [beta](id:id-b).\n")

	if ok, err := e.tagger.TagFile(ctx, "note.md", "alpha"); err != nil || !ok {
		t.Fatalf("TagFile(alpha) = %v %v", ok, err)
	}
	if ok, err := e.tagger.TagFile(ctx, "note.md", "fresh"); err != nil || !ok {
		t.Fatalf("TagFile(fresh) = %v %v", ok, err)
	}

	got, err := e.tagger.DocumentTags(ctx, "note.md")
	if err != nil {
		t.Fatalf("DocumentTags: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"beta", "alpha", "fresh"}) {
		t.Errorf("DocumentTags = %v", got)
	}

	indexed, err := e.repo.TagsForNote(ctx, "id-n")
	if err != nil || !reflect.DeepEqual(indexed, got) {
		t.Errorf("TagsForNote = %v %v; saved file should be re-indexed", indexed, err)
	}

	data, _ := e.store.Read("note.md")
	if !strings.HasSuffix(string(data), "\n\n+ tags :: [alpha](id:id-a) [fresh](id:new-1)") {
		t.Errorf("file = %q", data)
	}
}

func TestTagAtAndClearFile(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()
	data := testutil.WriteNote(t, e.store, e.db, "note.md", "id-n", "A note", "alpha beta\n")
	offset := len([]rune(string(data))) - len("beta\n")

	if _, err := e.tagger.TagAt(ctx, "note.md", offset, "gamma"); err != nil {
		t.Fatalf("TagAt: %v", err)
	}
	got, _ := e.store.Read("note.md")
	if !strings.HasSuffix(string(got), "alpha [gamma](id:id-g) beta\n") {
		t.Errorf("file = %q", got)
	}

	if _, err := e.tagger.TagFile(ctx, "note.md", "beta"); err != nil {
		t.Fatal(err)
	}
	if err := e.tagger.ClearFile(ctx, "note.md"); err != nil {
		t.Fatalf("ClearFile: %v", err)
	}
	got, _ = e.store.Read("note.md")
	if !strings.HasSuffix(string(got), "\n+ tags ::") {
		t.Errorf("file = %q", got)
	}
	tags, _ := e.tagger.DocumentTags(ctx, "note.md")
	if !reflect.DeepEqual(tags, []string{"gamma"}) {
		t.Errorf("DocumentTags after clear = %v", tags)
	}
}

func TestTagAt_OffsetOutOfRange(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()
	data := testutil.WriteNote(t, e.store, e.db, "note.md", "id-n", "A note", "body\n")
	n := len([]rune(string(data)))

	for _, offset := range []int{-1, n + 1, 99999} {
		if _, err := e.tagger.TagAt(ctx, "note.md", offset, "alpha"); !errors.Is(err, apperr.ErrBadOffset) {
			t.Errorf("TagAt(%d) err = %v, want ErrBadOffset", offset, err)
		}
	}
	got, _ := e.store.Read("note.md")
	if string(got) != string(data) {
		t.Errorf("file changed: %q", got)
	}

	if _, err := e.tagger.TagAt(ctx, "note.md", n, "alpha"); err != nil {
		t.Errorf("TagAt at end: %v", err)
	}
}

func TestTagFile_MissingFile(t *testing.T) {
	e := newEnv(t, true)
	if _, err := e.tagger.TagFile(context.Background(), "nope.md", "alpha"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

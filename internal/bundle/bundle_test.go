package bundle

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const (
	uuidA = "9818ecda-9cbf-4f2a-9af8-8136ef39cfcd"
	uuidB = "3b3e7a3e-3a3f-4c7e-8a64-2f0f7e6a1b10"
)

// writeTestBundle creates a bundle with a single category "a".
func writeTestBundle(t *testing.T) *Bundle {
	t.Helper()

	b := New(t.TempDir())
	version := VersionDescriptor{
		ProtocolVersion: "1.0.0",
		BundleVersion:   "1.0.3",
		UpdatedAt:       1600000000000,
		Categories:      CategoriesRef{Path: "./categories.json", Timestamp: 1},
		Sentences: []SentenceRef{
			{Name: "Anime", Key: "a", Path: "./sentences/a.json", Timestamp: 2},
		},
	}
	categories := []Category{{ID: 1, Name: "Anime", Key: "a", Path: "./sentences/a.json"}}
	sentences := []Sentence{
		{ID: 1, UUID: uuidA, Hitokoto: "abc", Type: "a", Length: 3},
		{ID: 2, UUID: uuidB, Hitokoto: "abcdefg", Type: "a", Length: 7},
	}

	for path, v := range map[string]any{
		VersionFile:        version,
		"categories.json":  categories,
		"sentences/a.json": sentences,
	} {
		if err := b.WriteFile(path, v); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
	}
	return b
}

func TestLoadVersion(t *testing.T) {
	b := writeTestBundle(t)

	v, err := b.LoadVersion()
	if err != nil {
		t.Fatalf("LoadVersion failed: %v", err)
	}
	if v.ProtocolVersion != "1.0.0" || v.BundleVersion != "1.0.3" {
		t.Errorf("versions = (%s, %s), want (1.0.0, 1.0.3)", v.ProtocolVersion, v.BundleVersion)
	}
	if v.UpdatedAt != 1600000000000 {
		t.Errorf("UpdatedAt = %d, want 1600000000000", v.UpdatedAt)
	}

	ref, ok := v.SentenceRef("a")
	if !ok {
		t.Fatal("SentenceRef(a) not found")
	}
	if ref.Timestamp != 2 {
		t.Errorf("SentenceRef(a).Timestamp = %d, want 2", ref.Timestamp)
	}
	if _, ok := v.SentenceRef("zz"); ok {
		t.Error("SentenceRef(zz) found, want missing")
	}
}

func TestLoadCategoriesAndSentences(t *testing.T) {
	b := writeTestBundle(t)

	v, err := b.LoadVersion()
	if err != nil {
		t.Fatalf("LoadVersion failed: %v", err)
	}

	categories, err := b.LoadCategories(v.Categories)
	if err != nil {
		t.Fatalf("LoadCategories failed: %v", err)
	}
	if len(categories) != 1 || categories[0].Key != "a" {
		t.Fatalf("categories = %+v, want single category a", categories)
	}

	sentences, err := b.LoadSentences(categories[0].Path)
	if err != nil {
		t.Fatalf("LoadSentences failed: %v", err)
	}
	if len(sentences) != 2 {
		t.Fatalf("got %d sentences, want 2", len(sentences))
	}
	if sentences[1].Length != 7 {
		t.Errorf("sentences[1].Length = %d, want 7", sentences[1].Length)
	}
}

func TestLoadVersion_MissingFile(t *testing.T) {
	b := New(t.TempDir())
	_, err := b.LoadVersion()
	if !errors.Is(err, ErrBundleFile) {
		t.Errorf("LoadVersion error = %v, want ErrBundleFile", err)
	}
}

func TestLoadVersion_Corrupt(t *testing.T) {
	b := New(t.TempDir())
	if err := os.WriteFile(filepath.Join(b.Root, VersionFile), []byte("{not json"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	_, err := b.LoadVersion()
	if !errors.Is(err, ErrBundleFile) {
		t.Errorf("LoadVersion error = %v, want ErrBundleFile", err)
	}
}

func TestLoadSentences_InvalidUUID(t *testing.T) {
	b := New(t.TempDir())
	if err := b.WriteFile("s.json", []Sentence{{UUID: "not-a-uuid", Length: 1}}); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	_, err := b.LoadSentences("s.json")
	if !errors.Is(err, ErrInvalidBundle) {
		t.Errorf("LoadSentences error = %v, want ErrInvalidBundle", err)
	}
}

func TestLoadSentences_KeepsRecordVerbatim(t *testing.T) {
	b := New(t.TempDir())
	raw := `[{"id":1,"uuid":"` + uuidA + `","hitokoto":"abc","type":"a","length":3,"created_at":1600000000,"likes":5}]`
	if err := os.WriteFile(filepath.Join(b.Root, "s.json"), []byte(raw), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	sentences, err := b.LoadSentences("s.json")
	if err != nil {
		t.Fatalf("LoadSentences failed: %v", err)
	}
	s := sentences[0]
	if s.UUID != uuidA || s.Type != "a" || s.Length != 3 || s.Hitokoto != "abc" {
		t.Errorf("sentence = %+v", s)
	}
	if s.CreatedAt != "" {
		t.Errorf("CreatedAt = %q, want empty for a numeric value", s.CreatedAt)
	}

	out, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	for _, field := range []string{`"likes":5`, `"created_at":1600000000`} {
		if !strings.Contains(string(out), field) {
			t.Errorf("marshalled record %s lacks %s", out, field)
		}
	}
}

func TestLoadSentences_KeyFieldTypeMismatch(t *testing.T) {
	b := New(t.TempDir())
	raw := `[{"uuid":"` + uuidA + `","type":"a","length":"three"}]`
	if err := os.WriteFile(filepath.Join(b.Root, "s.json"), []byte(raw), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if _, err := b.LoadSentences("s.json"); err == nil {
		t.Error("LoadSentences with a string length succeeded, want error")
	}
}

func TestSentence_MarshalBuiltInCode(t *testing.T) {
	out, err := json.Marshal(Sentence{UUID: uuidB, Type: "b", Length: 2})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var back Sentence
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if back.UUID != uuidB || back.Type != "b" || back.Length != 2 {
		t.Errorf("decoded = %+v", back)
	}
}

func TestLoadCategories_DuplicateKey(t *testing.T) {
	b := New(t.TempDir())
	categories := []Category{
		{Key: "a", Path: "a.json"},
		{Key: "a", Path: "a2.json"},
	}
	if err := b.WriteFile("categories.json", categories); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	_, err := b.LoadCategories(CategoriesRef{Path: "categories.json"})
	if err == nil || !strings.Contains(err.Error(), "duplicate category key") {
		t.Errorf("LoadCategories error = %v, want duplicate key error", err)
	}
}

func TestResolve(t *testing.T) {
	b := New("/bundle")

	tests := []struct {
		name    string
		rel     string
		want    string
		wantErr bool
	}{
		{name: "dot prefix", rel: "./sentences/a.json", want: filepath.Join("/bundle", "sentences", "a.json")},
		{name: "plain", rel: "version.json", want: filepath.Join("/bundle", "version.json")},
		{name: "escape", rel: "../etc/passwd", wantErr: true},
		{name: "absolute", rel: "/etc/passwd", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := b.Resolve(tt.rel)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidBundle) {
					t.Errorf("Resolve(%q) error = %v, want ErrInvalidBundle", tt.rel, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q) failed: %v", tt.rel, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.rel, got, tt.want)
			}
		})
	}
}

func TestVersionDescriptor_Validate(t *testing.T) {
	valid := func() VersionDescriptor {
		return VersionDescriptor{
			ProtocolVersion: "1.0.0",
			BundleVersion:   "1.0.0",
			Categories:      CategoriesRef{Path: "categories.json"},
			Sentences:       []SentenceRef{{Key: "a", Path: "a.json"}},
		}
	}

	tests := []struct {
		name   string
		mutate func(v *VersionDescriptor)
		errMsg string
	}{
		{name: "valid", mutate: func(v *VersionDescriptor) {}},
		{name: "missing protocol", mutate: func(v *VersionDescriptor) { v.ProtocolVersion = "" }, errMsg: "protocol_version is required"},
		{name: "missing bundle version", mutate: func(v *VersionDescriptor) { v.BundleVersion = "" }, errMsg: "bundle_version is required"},
		{name: "missing categories path", mutate: func(v *VersionDescriptor) { v.Categories.Path = "" }, errMsg: "categories.path is required"},
		{name: "missing sentence key", mutate: func(v *VersionDescriptor) { v.Sentences[0].Key = "" }, errMsg: "sentences[0].key is required"},
		{
			name: "duplicate sentence key",
			mutate: func(v *VersionDescriptor) {
				v.Sentences = append(v.Sentences, SentenceRef{Key: "a", Path: "b.json"})
			},
			errMsg: "duplicate sentences key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := valid()
			tt.mutate(&v)
			err := v.Validate()
			if tt.errMsg == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.errMsg)
			}
		})
	}
}

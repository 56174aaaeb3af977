package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCacheKeyStableAcrossSubpaths(t *testing.T) {
	a := Source{Kind: KindGit, URL: "https://example.com/repo.git", Reference: "main", Subpaths: []string{"a", "b"}}
	b := Source{Kind: KindGit, URL: "https://example.com/repo.git", Reference: "main", Subpaths: []string{"z"}}
	if a.CacheKey() != b.CacheKey() {
		t.Fatal("cache keys differ despite identical kind/url/reference/checksum")
	}
	if len(a.CacheKey()) != 64 {
		t.Fatalf("cache key length = %d, want 64", len(a.CacheKey()))
	}
}

func TestCacheKeyDiffersOnChecksum(t *testing.T) {
	a := Source{Kind: KindHTTP, URL: "https://example.com/a.zip", Checksum: "sha256:aa"}
	b := Source{Kind: KindHTTP, URL: "https://example.com/a.zip", Checksum: "sha256:bb"}
	if a.CacheKey() == b.CacheKey() {
		t.Fatal("cache keys should differ on checksum")
	}
}

func TestSkillEntryRejectsUnknownFields(t *testing.T) {
	var e SkillEntry
	err := e.UnmarshalJSON([]byte(`{"id":"x","name":"X","bogus":true,"selector":{},"source":{"kind":"local","url":"/tmp"}}`))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestMergeSkillLayersLastWriterWins(t *testing.T) {
	embedded := SkillsCatalog{SchemaVersion: "1.0", Type: "skills", Entries: []SkillEntry{
		{ID: "a", Name: "embedded-a"},
		{ID: "b", Name: "embedded-b"},
	}}
	project := SkillsCatalog{SchemaVersion: "1.0", Type: "skills", UpdatedAt: "2026-01-01", Entries: []SkillEntry{
		{ID: "a", Name: "project-a"},
	}}

	merged := MergeSkillLayers(embedded, project)
	if merged.UpdatedAt != "2026-01-01" {
		t.Fatalf("UpdatedAt = %q, want overriding layer's value", merged.UpdatedAt)
	}
	var gotA, gotB string
	for _, e := range merged.Entries {
		if e.ID == "a" {
			gotA = e.Name
		}
		if e.ID == "b" {
			gotB = e.Name
		}
	}
	if gotA != "project-a" {
		t.Fatalf("entry a = %q, want project-a to win", gotA)
	}
	if gotB != "embedded-b" {
		t.Fatalf("entry b = %q, want embedded-b to survive", gotB)
	}
}

func TestLoadEffectiveSkillsCatalogPrecedence(t *testing.T) {
	dir := t.TempDir()
	userDir := filepath.Join(dir, "user")
	projectDir := filepath.Join(dir, "project")
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(projectDir, 0o755); err != nil {
		t.Fatal(err)
	}

	userCatalog := SkillsCatalog{SchemaVersion: "1.0", Type: "skills", Entries: []SkillEntry{
		{ID: "create-plan", Name: "user-override"},
	}}
	if err := SaveSkillsCatalog(filepath.Join(userDir, "skills.catalog.json"), userCatalog); err != nil {
		t.Fatal(err)
	}

	effective, err := LoadEffectiveSkillsCatalog(userDir, projectDir)
	if err != nil {
		t.Fatalf("LoadEffectiveSkillsCatalog: %v", err)
	}
	found := false
	for _, e := range effective.Entries {
		if e.ID == "create-plan" && e.Name == "user-override" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected user layer to override embedded default, entries=%v", effective.Entries)
	}
}

func TestDiscoverLocalSkillEntries(t *testing.T) {
	dir := t.TempDir()
	skillsDir := filepath.Join(dir, "skills")
	skillDir := filepath.Join(skillsDir, "my-skill")
	if err := os.MkdirAll(skillDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(skillDir, "SKILL.md"), []byte("content"), 0o644); err != nil {
		t.Fatal(err)
	}
	// A sibling dir with no marker must be ignored.
	if err := os.MkdirAll(filepath.Join(skillsDir, "not-a-skill"), 0o755); err != nil {
		t.Fatal(err)
	}

	found, err := DiscoverLocalSkillEntries(skillsDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 || found[0].ID != "my-skill" {
		t.Fatalf("found = %+v, want exactly my-skill", found)
	}
}

func TestLoadSkillsCatalogWithLocalMergesAndSorts(t *testing.T) {
	dir := t.TempDir()
	userDir := filepath.Join(dir, "user")
	projectDir := filepath.Join(dir, "project")
	skillsDir := filepath.Join(dir, "skills")
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(projectDir, 0o755); err != nil {
		t.Fatal(err)
	}

	projectCatalog := SkillsCatalog{SchemaVersion: "1.0", Type: "skills", Entries: []SkillEntry{
		{ID: "zeta-skill", Name: "catalog-declared"},
	}}
	if err := SaveSkillsCatalog(filepath.Join(projectDir, "skills.catalog.json"), projectCatalog); err != nil {
		t.Fatal(err)
	}

	// A local folder whose id collides with a catalog-declared entry must
	// lose to it.
	for _, name := range []string{"zeta-skill", "alpha-local"} {
		skillDir := filepath.Join(skillsDir, name)
		if err := os.MkdirAll(skillDir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(skillDir, "SKILL.md"), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cat, err := LoadSkillsCatalogWithLocal(userDir, projectDir, skillsDir)
	if err != nil {
		t.Fatalf("LoadSkillsCatalogWithLocal: %v", err)
	}
	if len(cat.Entries) != 2 {
		t.Fatalf("expected 2 merged entries, got %+v", cat.Entries)
	}
	if cat.Entries[0].ID != "alpha-local" || cat.Entries[1].ID != "zeta-skill" {
		t.Fatalf("expected sorted ids [alpha-local zeta-skill], got %v", []string{cat.Entries[0].ID, cat.Entries[1].ID})
	}
	if cat.Entries[1].Name != "catalog-declared" {
		t.Fatalf("expected catalog entry to win id collision, got %q", cat.Entries[1].Name)
	}
}

func TestSeedBuiltinSkillsAddsMissingOnly(t *testing.T) {
	cat := SkillsCatalog{SchemaVersion: "1.0", Type: "skills", Entries: []SkillEntry{
		{ID: "create-plan", Name: "project-override"},
	}}

	seeded := SeedBuiltinSkills(cat)

	byID := make(map[string]SkillEntry, len(seeded.Entries))
	for _, e := range seeded.Entries {
		byID[e.ID] = e
	}
	if byID["create-plan"].Name != "project-override" {
		t.Fatalf("catalog-declared entry must win over the builtin, got %q", byID["create-plan"].Name)
	}
	if _, ok := byID["implement"]; !ok {
		t.Fatal("expected builtin skill id implement to be seeded")
	}
	if _, ok := byID["security-check"]; !ok {
		t.Fatal("expected builtin skill id security-check to be seeded")
	}
}

func TestValidChecksum(t *testing.T) {
	hex64 := "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcd"
	if !ValidChecksum("sha256:" + hex64) {
		t.Fatal("expected valid checksum to pass")
	}
	if !ValidChecksum("") {
		t.Fatal("empty checksum should be valid (unset)")
	}
	if ValidChecksum("sha256:nothex") {
		t.Fatal("expected short/non-hex checksum to fail")
	}
	if ValidChecksum("md5:" + hex64) {
		t.Fatal("expected non-sha256 prefix to fail")
	}
}

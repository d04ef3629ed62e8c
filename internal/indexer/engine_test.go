package indexer

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/config"
)

type recordingSink struct {
	mu     sync.Mutex
	events []analytics.IndexEvent
}

func (s *recordingSink) Track(_ string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, value.(analytics.IndexEvent))
}

func writeCorpus(t *testing.T, root string) config.CorpusConfig {
	t.Helper()
	files := map[string]string{
		"tokens/article_1.txt": "cat\ndog\n",
		"tokens/article_2.txt": "cats\ncat\nbird\n",
		"lemmas/article_1.txt": "cat cat\ndog dog\n",
		"lemmas/article_2.txt": "cat cats cat\nbird bird\n",
	}
	for rel, content := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return config.CorpusConfig{
		TokensDir: filepath.Join(root, "tokens"),
		LemmasDir: filepath.Join(root, "lemmas"),
	}
}

func TestBuildWritesAllArtifacts(t *testing.T) {
	root := t.TempDir()
	corpusCfg := writeCorpus(t, root)
	indexCfg := config.IndexConfig{
		SnapshotPath:    filepath.Join(root, "out", "index.csv"),
		TokenVectorsDir: filepath.Join(root, "out", "tokens"),
		LemmaVectorsDir: filepath.Join(root, "out", "lemmas"),
	}
	sink := &recordingSink{}

	report, err := NewEngine(corpusCfg, indexCfg, sink).Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if report.Documents != 2 || report.Terms != 3 || report.Postings != 4 {
		t.Errorf("report = %+v", report)
	}
	if report.Indexed != 2 || report.TokenFiles != 2 || report.LemmaFiles != 2 || report.BuildID == "" {
		t.Errorf("report = %+v", report)
	}
	for _, phase := range []string{"read-corpus", "inverted-index", ArtifactTokenTFIDF, ArtifactLemmaTFIDF} {
		if _, ok := report.Phases[phase]; !ok {
			t.Errorf("report lacks phase %q", phase)
		}
	}

	idx, err := snapshot.ReadFile(indexCfg.SnapshotPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if diff := cmp.Diff([]uint32{1, 2}, idx.Postings("cat").ToArray()); diff != "" {
		t.Errorf("cat postings mismatch (-want +got):\n%s", diff)
	}
	for _, dir := range []string{indexCfg.TokenVectorsDir, indexCfg.LemmaVectorsDir} {
		for _, name := range []string{"article_1.txt", "article_2.txt"} {
			if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
				t.Errorf("missing vector file: %v", err)
			}
		}
	}

	perArtifact := make(map[string]int)
	for _, ev := range sink.events {
		perArtifact[ev.Artifact]++
	}
	want := map[string]int{ArtifactIndex: 2, ArtifactTokenTFIDF: 2, ArtifactLemmaTFIDF: 2}
	if diff := cmp.Diff(want, perArtifact); diff != "" {
		t.Errorf("events per artifact mismatch (-want +got):\n%s", diff)
	}

	ev := report.CompleteEvent()
	if ev.Type != analytics.EventIndexComplete || ev.BuildID != report.BuildID || ev.Documents != 2 {
		t.Errorf("CompleteEvent = %+v", ev)
	}
}

func testIndexConfig(root string) config.IndexConfig {
	return config.IndexConfig{
		SnapshotPath:    filepath.Join(root, "out", "index.csv"),
		TokenVectorsDir: filepath.Join(root, "out", "tokens"),
		LemmaVectorsDir: filepath.Join(root, "out", "lemmas"),
	}
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestRebuildDropsRemovedDocuments(t *testing.T) {
	root := t.TempDir()
	corpusCfg := writeCorpus(t, root)
	indexCfg := testIndexConfig(root)
	eng := NewEngine(corpusCfg, indexCfg, nil)
	if _, err := eng.Build(context.Background()); err != nil {
		t.Fatalf("first Build: %v", err)
	}

	for _, dir := range []string{corpusCfg.TokensDir, corpusCfg.LemmasDir} {
		if err := os.Remove(filepath.Join(dir, "article_2.txt")); err != nil {
			t.Fatal(err)
		}
	}
	report, err := eng.Build(context.Background())
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if report.Documents != 1 || report.TokenFiles != 1 || report.LemmaFiles != 1 {
		t.Errorf("report = %+v", report)
	}

	for _, dir := range []string{indexCfg.TokenVectorsDir, indexCfg.LemmaVectorsDir} {
		if diff := cmp.Diff([]string{"article_1.txt"}, listDir(t, dir)); diff != "" {
			t.Errorf("%s files mismatch (-want +got):\n%s", dir, diff)
		}
	}
	idx, err := snapshot.ReadFile(indexCfg.SnapshotPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if diff := cmp.Diff([]uint32{1}, idx.Universe().ToArray()); diff != "" {
		t.Errorf("indexed documents mismatch (-want +got):\n%s", diff)
	}
	if idx.Postings("bird") != nil {
		t.Errorf("bird still indexed after its only document was removed")
	}
}

func TestBuildIndexesLemmaFilesWithoutTokens(t *testing.T) {
	root := t.TempDir()
	corpusCfg := writeCorpus(t, root)
	if err := os.WriteFile(filepath.Join(corpusCfg.LemmasDir, "article_3.txt"), []byte("fish fish\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	indexCfg := testIndexConfig(root)

	report, err := NewEngine(corpusCfg, indexCfg, nil).Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if report.Documents != 2 || report.Indexed != 3 || report.TokenFiles != 2 {
		t.Errorf("report = %+v", report)
	}
	idx, err := snapshot.ReadFile(indexCfg.SnapshotPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if diff := cmp.Diff([]uint32{3}, idx.Postings("fish").ToArray()); diff != "" {
		t.Errorf("fish postings mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"article_1.txt", "article_2.txt"}, listDir(t, indexCfg.TokenVectorsDir)); diff != "" {
		t.Errorf("token vectors mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildFailsOnBadDocumentName(t *testing.T) {
	root := t.TempDir()
	corpusCfg := writeCorpus(t, root)
	if err := os.WriteFile(filepath.Join(corpusCfg.TokensDir, "readme.txt"), []byte("x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	indexCfg := config.IndexConfig{
		SnapshotPath:    filepath.Join(root, "out", "index.csv"),
		TokenVectorsDir: filepath.Join(root, "out", "tokens"),
		LemmaVectorsDir: filepath.Join(root, "out", "lemmas"),
	}
	if _, err := NewEngine(corpusCfg, indexCfg, nil).Build(context.Background()); err == nil {
		t.Fatal("expected error for a document name without numeric suffix")
	}
	if _, err := os.Stat(indexCfg.SnapshotPath); !os.IsNotExist(err) {
		t.Errorf("snapshot written despite failure: %v", err)
	}
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/cognicore/annotate/pkg/annotate/bundled"
	"github.com/cognicore/annotate/pkg/annotate/config"
	"github.com/cognicore/annotate/pkg/annotate/model"
	"github.com/cognicore/annotate/pkg/annotate/render"
	"github.com/cognicore/annotate/pkg/annotate/store/memstore"
)

// run executes the CLI with args and returns stdout, stderr and the error.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	for _, v := range []string{"ANNOTATE_CONFIG", "ANNOTATE_MODELS_DIR", "ANNOTATE_STORE"} {
		t.Setenv(v, "")
	}
	var out, errOut bytes.Buffer
	err := newApp(UI{Out: &out, Err: &errOut}).Run(append([]string{"annotate"}, args...))
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDemo(t *testing.T) {
	out, errOut, err := run(t, "demo")
	if err != nil {
		t.Fatalf("demo: %v", err)
	}
	if !strings.Contains(errOut, "Loading models...\nModels loaded.\n") {
		t.Errorf("progress lines missing from stderr: %q", errOut)
	}
	for _, want := range []string{
		"--- text: Hi. How are you today?",
		"  - How are you today?\n",
		"How/ADV are/AUX you/PRON today/NOUN ?/PUNCT",
		"are -> be",
		"--- text: OpenNLP is an Apache project",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("demo output missing %q", want)
		}
	}
}

func TestRunJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "in.txt", "Hi. How are you today?")

	out, _, err := run(t, "run", "--json", path)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	line := strings.TrimSpace(out)
	var doc struct {
		Input     string `json:"input"`
		Sentences []struct {
			Tokens []string `json:"tokens"`
			Lemmas []string `json:"lemmas"`
		} `json:"sentences"`
	}
	if err := json.Unmarshal([]byte(line), &doc); err != nil {
		t.Fatalf("decode %q: %v", line, err)
	}
	if len(doc.Sentences) != 2 || doc.Sentences[1].Lemmas[1] != "be" {
		t.Errorf("run --json = %+v", doc)
	}
}

func TestCompileThenRunFromDir(t *testing.T) {
	dir := t.TempDir()
	models := filepath.Join(dir, "models")

	out, _, err := run(t, "compile", "--bundled", "-o", models)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if strings.Count(out, ".bin") != 4 {
		t.Errorf("compile output:\n%s", out)
	}

	blob := filepath.Join(models, "en-ud-ewt-pos-1.2.bin")
	out, _, err = run(t, "inspect", blob)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !strings.Contains(out, "kind=pos") || !strings.Contains(out, "model=en-ud-ewt-pos-1.2") {
		t.Errorf("inspect output: %s", out)
	}

	in := writeFile(t, dir, "in.txt", "How are you today?")
	out, _, err = run(t, "--models-dir", models, "run", in)
	if err != nil {
		t.Fatalf("run with models dir: %v", err)
	}
	if !strings.Contains(out, "are -> be") {
		t.Errorf("run output:\n%s", out)
	}
}

func TestRunMissingModels(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "in.txt", "Hi.")

	_, errOut, err := run(t, "--models-dir", filepath.Join(dir, "empty"), "run", in)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("want model not found error, got %v", err)
	}
	if strings.Contains(errOut, "Models loaded.") {
		t.Error("pipeline reported loaded despite missing models")
	}
}

func TestStoreSaveAndShow(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "annotate.db")
	in := writeFile(t, dir, "in.jsonl", `{"source":"greeting","text":"Hi. How are you today?"}`+"\n")

	if _, _, err := run(t, "--store", db, "run", "--save", in); err != nil {
		t.Fatalf("run --save: %v", err)
	}

	out, _, err := run(t, "--store", db, "show")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	fields := strings.Split(strings.TrimSpace(out), "\t")
	if len(fields) < 4 || fields[1] != "greeting" || fields[2] != "2 sentences" || fields[3] != "7 tokens" {
		t.Fatalf("show list = %q", out)
	}

	out, _, err = run(t, "--store", db, "show", fields[0])
	if err != nil {
		t.Fatalf("show %s: %v", fields[0], err)
	}
	if !strings.Contains(out, "How/ADV are/AUX") {
		t.Errorf("show doc output:\n%s", out)
	}
}

func TestSaveWithoutStore(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "in.txt", "Hi.")
	if _, _, err := run(t, "run", "--save", in); err == nil {
		t.Error("--save without a store should fail")
	}
}

func TestCompileStoreModels(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "annotate.db")

	if _, _, err := run(t, "--store", db, "compile", "--bundled"); err != nil {
		t.Fatalf("compile into store: %v", err)
	}
	out, _, err := run(t, "--store", db, "inspect")
	if err != nil {
		t.Fatalf("inspect store: %v", err)
	}
	if strings.Count(out, "kind=") != 4 {
		t.Errorf("inspect store output:\n%s", out)
	}

	// Models in the store take precedence over an empty models dir.
	in := writeFile(t, dir, "in.txt", "Hi.")
	if _, _, err := run(t, "--store", db, "--models-dir", filepath.Join(dir, "none"), "run", in); err != nil {
		t.Errorf("run with store models: %v", err)
	}
}

func TestRunContinuesAfterFailedInput(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.txt", "\xff\xfe broken. Text.")
	good := writeFile(t, dir, "good.txt", "Hi. How are you today?")

	out, errOut, err := run(t, "run", bad, good)
	if err == nil || err.Error() != "1 of 2 inputs failed" {
		t.Fatalf("run err = %v, want \"1 of 2 inputs failed\"", err)
	}
	if !strings.Contains(out, "--- text: Hi. How are you today? ---") || !strings.Contains(out, "are -> be") {
		t.Errorf("good input missing from stdout:\n%s", out)
	}
	if strings.Contains(out, "broken") {
		t.Errorf("failed input rendered on stdout:\n%s", out)
	}
	if !strings.Contains(errOut, "bad.txt") || !strings.Contains(errOut, "tokenize") {
		t.Errorf("stderr does not name the failed input and stage:\n%s", errOut)
	}
	if n := strings.Count(errOut, "bad.txt"); n != 1 {
		t.Errorf("failed input reported %d times on stderr:\n%s", n, errOut)
	}
}

func TestEnvSelectsModelsDir(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "in.txt", "Hi.")
	t.Setenv("ANNOTATE_CONFIG", "")
	t.Setenv("ANNOTATE_STORE", "")
	t.Setenv("ANNOTATE_MODELS_DIR", filepath.Join(dir, "missing"))

	var out, errOut bytes.Buffer
	err := newApp(UI{Out: &out, Err: &errOut}).Run([]string{"annotate", "run", in})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("ANNOTATE_MODELS_DIR ignored: err = %v", err)
	}

	// An explicit flag wins over the environment.
	models := filepath.Join(dir, "models")
	if _, _, err := run(t, "compile", "--bundled", "-o", models); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ANNOTATE_MODELS_DIR", filepath.Join(dir, "missing"))
	out.Reset()
	err = newApp(UI{Out: &out, Err: &errOut}).Run([]string{"annotate", "--models-dir", models, "run", in})
	if err != nil {
		t.Fatalf("flag should override env: %v", err)
	}
}

// memoryEnv returns an env whose only model source is an in-memory store
// holding the compiled bundled models.
func memoryEnv(t *testing.T) (*env, *memstore.Store) {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()
	for _, ref := range bundled.List() {
		src, err := bundled.Source(ref)
		if err != nil {
			t.Fatal(err)
		}
		blob, got, err := bundled.Compile(src)
		if err != nil {
			t.Fatal(err)
		}
		hdr, err := model.Decode(blob)
		if err != nil {
			t.Fatal(err)
		}
		if err := st.PutModel(ctx, got, hdr.Kind, blob); err != nil {
			t.Fatal(err)
		}
	}

	cfg := config.Default()
	cfg.Models.Dir = filepath.Join(t.TempDir(), "none")
	return &env{cfg: cfg, log: zap.NewNop(), store: st}, st
}

func TestAnnotateAllWithMemoryStore(t *testing.T) {
	ctx := context.Background()
	e, st := memoryEnv(t)
	defer e.Close()

	var out, errOut bytes.Buffer
	ui := UI{Out: &out, Err: &errOut}
	p, err := e.pipeline(ctx, ui)
	if err != nil {
		t.Fatalf("pipeline from memory store: %v", err)
	}

	items := []item{
		{source: "first", text: "Hi."},
		{source: "second", text: "How are you today?"},
	}
	if err := annotateAll(ctx, e, p, items, render.NewJSONRenderer(&out), true); err != nil {
		t.Fatalf("annotateAll: %v", err)
	}
	if lines := strings.Count(out.String(), "\n"); lines != 2 {
		t.Errorf("want 2 NDJSON lines, got %d:\n%s", lines, out.String())
	}

	docs, err := st.ListDocs(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 || docs[0].Source != "second" || docs[1].Source != "first" {
		t.Fatalf("stored docs = %+v", docs)
	}
	if docs[0].Sentences != 1 || docs[0].Tokens != 5 {
		t.Errorf("second doc counts = %d sentences %d tokens", docs[0].Sentences, docs[0].Tokens)
	}

	d, err := st.GetDoc(ctx, docs[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if d.Models != bundled.Refs() {
		t.Errorf("stored models = %+v", d.Models)
	}
	if got := d.Sentences[0].Lemmas; strings.Join(got, " ") != "how be you today ?" {
		t.Errorf("stored lemmas = %q", got)
	}
}

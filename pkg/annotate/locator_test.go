package annotate_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/cognicore/annotate/pkg/annotate"
	"github.com/cognicore/annotate/pkg/annotate/annoterr"
	"github.com/cognicore/annotate/pkg/annotate/bundled"
	"github.com/cognicore/annotate/pkg/annotate/model"
	"github.com/cognicore/annotate/pkg/annotate/store/memstore"
)

// putBundled compiles every bundled source into st.
func putBundled(t *testing.T, st *memstore.Store) {
	t.Helper()
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
		if err := st.PutModel(context.Background(), got, hdr.Kind, blob); err != nil {
			t.Fatal(err)
		}
	}
}

func TestNewFromStoreLocator(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	putBundled(t, st)

	p, err := annotate.New(ctx, st, bundled.Refs(), annotate.Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := p.Annotate(ctx, "Hi. How are you today?")
	if err != nil {
		t.Fatal(err)
	}
	want, err := newDefault(t).Annotate(ctx, "Hi. How are you today?")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("store-backed result =\n %+v\nwant\n %+v", got, want)
	}
}

func TestNewFromStoreMissingModel(t *testing.T) {
	st := memstore.New()
	putBundled(t, st)
	refs := bundled.Refs()
	refs.Lemmas.Version = "9.9"

	_, err := annotate.New(context.Background(), st, refs, annotate.Options{})
	var ce *annoterr.ConstructionError
	if !errors.As(err, &ce) || ce.Stage != annotate.StageLemmatize || !errors.Is(err, annoterr.ErrModelNotFound) {
		t.Errorf("want lemmatize ConstructionError wrapping ErrModelNotFound, got %v", err)
	}
}

func newDefault(t *testing.T) *annotate.Pipeline {
	t.Helper()
	p, err := annotate.NewDefault(context.Background(), annotate.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

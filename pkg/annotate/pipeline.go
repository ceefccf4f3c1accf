package annotate

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/annotate/pkg/annotate/annoterr"
	"github.com/cognicore/annotate/pkg/annotate/lemma"
	"github.com/cognicore/annotate/pkg/annotate/model"
	"github.com/cognicore/annotate/pkg/annotate/postag"
	"github.com/cognicore/annotate/pkg/annotate/segment"
	"github.com/cognicore/annotate/pkg/annotate/tokenize"
)

// Pipeline runs segmentation once per text, then tokenization, tagging and
// lemmatization per sentence. It owns its stages for its whole lifetime and
// is safe for concurrent Annotate calls.
type Pipeline struct {
	stages  Stages
	refs    model.Refs
	workers int
	log     *zap.Logger
}

// Options configures a Pipeline
type Options struct {
	// Logger receives construction and per-call events. Nil means no logging.
	Logger *zap.Logger
	// Workers bounds how many sentences of one call are processed at once.
	// Values below 2 process sentences sequentially.
	Workers int
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// New loads the four models named by refs through loc and builds a
// Pipeline. Any load failure aborts construction and returns a
// *annoterr.ConstructionError wrapping the model error; no pipeline is
// returned in that case.
func New(ctx context.Context, loc model.Locator, refs model.Refs, opts Options) (*Pipeline, error) {
	log := opts.logger()
	log.Info("loading models")

	seg, err := load(ctx, log, loc, refs.Sentence, model.KindSentence, StageSegment, segment.Decode)
	if err != nil {
		return nil, err
	}
	tok, err := load(ctx, log, loc, refs.Tokens, model.KindTokens, StageTokenize, tokenize.Decode)
	if err != nil {
		return nil, err
	}
	tagger, err := load(ctx, log, loc, refs.POS, model.KindPOS, StageTag, postag.Decode)
	if err != nil {
		return nil, err
	}
	lem, err := load(ctx, log, loc, refs.Lemmas, model.KindLemmas, StageLemmatize, lemma.Decode)
	if err != nil {
		return nil, err
	}

	p, err := FromStages(Stages{
		Segmenter:  seg,
		Tokenizer:  tok,
		Tagger:     tagger,
		Lemmatizer: lem,
	}, opts)
	if err != nil {
		return nil, err
	}
	p.refs = refs
	log.Info("models loaded")
	return p, nil
}

func load[M any](ctx context.Context, log *zap.Logger, loc model.Locator, ref model.Ref, kind model.Kind, stage string, decode func([]byte) (M, error)) (M, error) {
	m, size, err := model.Load(ctx, loc, ref, kind, decode)
	if err != nil {
		log.Error("model load failed",
			zap.String("stage", stage),
			zap.Stringer("model", ref),
			zap.Error(err))
		return m, &annoterr.ConstructionError{Stage: stage, Err: err}
	}
	log.Info("model loaded",
		zap.String("stage", stage),
		zap.Stringer("model", ref),
		zap.String("size", humanize.Bytes(uint64(size))))
	return m, nil
}

// FromStages builds a Pipeline from already constructed stages.
func FromStages(stages Stages, opts Options) (*Pipeline, error) {
	switch {
	case stages.Segmenter == nil:
		return nil, &annoterr.ConstructionError{Stage: StageSegment, Err: fmt.Errorf("missing segmenter")}
	case stages.Tokenizer == nil:
		return nil, &annoterr.ConstructionError{Stage: StageTokenize, Err: fmt.Errorf("missing tokenizer")}
	case stages.Tagger == nil:
		return nil, &annoterr.ConstructionError{Stage: StageTag, Err: fmt.Errorf("missing tagger")}
	case stages.Lemmatizer == nil:
		return nil, &annoterr.ConstructionError{Stage: StageLemmatize, Err: fmt.Errorf("missing lemmatizer")}
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		stages:  stages,
		workers: workers,
		log:     opts.logger(),
	}, nil
}

// Refs returns the model refs the pipeline was loaded from. It is zero for
// pipelines built with FromStages.
func (p *Pipeline) Refs() model.Refs {
	return p.refs
}

// Annotate segments text and annotates every sentence.
//
// A stage failure aborts the call: the failure of the lowest-indexed
// sentence is returned as *annoterr.AnnotationError naming the sentence and
// stage, and no partial result is returned. The pipeline stays usable.
func (p *Pipeline) Annotate(ctx context.Context, text string) (AnnotatedText, error) {
	if err := ctx.Err(); err != nil {
		return AnnotatedText{}, err
	}

	spans, err := p.stages.Segmenter.Segment(text)
	if err != nil {
		return AnnotatedText{}, &annoterr.AnnotationError{Sentence: -1, Stage: StageSegment, Err: err}
	}

	out := AnnotatedText{Sentences: make([]AnnotatedSentence, len(spans))}
	if p.workers < 2 || len(spans) < 2 {
		for i, span := range spans {
			if err := ctx.Err(); err != nil {
				return AnnotatedText{}, err
			}
			s, err := p.annotateSentence(i, span)
			if err != nil {
				return AnnotatedText{}, err
			}
			out.Sentences[i] = s
		}
	} else if err := p.annotateParallel(ctx, spans, out.Sentences); err != nil {
		return AnnotatedText{}, err
	}

	p.log.Debug("annotated",
		zap.Int("sentences", len(out.Sentences)),
		zap.Int("tokens", out.TokenCount()))
	return out, nil
}

// annotateParallel fills dst by index. Every sentence runs to completion so
// the reported failure is the same one a sequential run would report.
func (p *Pipeline) annotateParallel(ctx context.Context, spans []segment.Span, dst []AnnotatedSentence) error {
	errs := make([]error, len(spans))
	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, span := range spans {
		i, span := i, span
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			s, err := p.annotateSentence(i, span)
			if err != nil {
				errs[i] = err
				return nil
			}
			dst[i] = s
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) annotateSentence(i int, span segment.Span) (AnnotatedSentence, error) {
	fail := func(stage string, err error) (AnnotatedSentence, error) {
		return AnnotatedSentence{}, &annoterr.AnnotationError{Sentence: i, Stage: stage, Err: err}
	}

	tokens, err := p.stages.Tokenizer.Tokenize(span.Text)
	if err != nil {
		return fail(StageTokenize, err)
	}
	if tokens == nil {
		tokens = []string{}
	}

	tags, err := p.stages.Tagger.Tag(tokens)
	if err != nil {
		return fail(StageTag, err)
	}
	if len(tags) != len(tokens) {
		return fail(StageTag, fmt.Errorf("got %d tags for %d tokens", len(tags), len(tokens)))
	}

	lemmas, err := p.stages.Lemmatizer.Lemmatize(tokens, tags)
	if err != nil {
		return fail(StageLemmatize, err)
	}
	if len(lemmas) != len(tokens) {
		return fail(StageLemmatize, fmt.Errorf("got %d lemmas for %d tokens", len(lemmas), len(tokens)))
	}

	return AnnotatedSentence{
		Text:   span.Text,
		Start:  span.Start,
		End:    span.End,
		Tokens: tokens,
		Tags:   tags,
		Lemmas: lemmas,
	}, nil
}

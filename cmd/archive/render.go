package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/lk2023060901/archive-go/internal/config"
	"github.com/lk2023060901/archive-go/internal/envelope"
	"github.com/lk2023060901/archive-go/internal/serializer"
	"github.com/lk2023060901/archive-go/pkg/archive"
	"github.com/lk2023060901/archive-go/pkg/codec"
	"github.com/lk2023060901/archive-go/pkg/log"
	"github.com/lk2023060901/archive-go/pkg/util/conc"
	"github.com/lk2023060901/archive-go/pkg/util/merr"
)

const rootName = "input"

type document struct {
	Format  string `json:"format" yaml:"format" msgpack:"format"`
	Bytes   int    `json:"bytes" yaml:"bytes" msgpack:"bytes"`
	Sealed  bool   `json:"sealed" yaml:"sealed" msgpack:"sealed"`
	Display string `json:"display" yaml:"display" msgpack:"display"`

	format codec.Format
	data   []byte
}

func (d document) label() string {
	return d.format.Label()
}

type report struct {
	Input     string     `json:"input" yaml:"input" msgpack:"input"`
	Documents []document `json:"documents" yaml:"documents" msgpack:"documents"`
}

type renderer struct {
	log.Binder

	cfg  *config.Config
	env  *envelope.Envelope
	pool *conc.Pool[[]byte]
}

func newRenderer(cfg *config.Config, logger *log.MLogger) (*renderer, error) {
	r := &renderer{
		cfg:  cfg,
		pool: conc.NewPool[[]byte](cfg.WorkerNum(), cfg.PoolOptions()...),
	}
	r.SetLogger(logger)
	if cfg.Envelope.Enable {
		env, err := envelope.New(cfg.Envelope.Config)
		if err != nil {
			r.pool.Release()
			return nil, err
		}
		r.env = env
	}
	return r, nil
}

func (r *renderer) Close() {
	r.pool.Release()
	if r.env != nil {
		r.env.Close()
	}
}

// render saves input in every configured format, sealing the documents
// when the envelope is enabled.
func (r *renderer) render(ctx context.Context, input string) (*report, error) {
	formats := r.cfg.FormatList()
	docs, err := codec.MarshalAll(ctx, r.pool, formats, archive.NVP(rootName, input))
	if err != nil {
		return nil, err
	}

	rep := &report{Input: input, Documents: make([]document, 0, len(docs))}
	for i, f := range formats {
		data := docs[i]
		if r.env != nil {
			if data, err = r.env.Seal(f, data); err != nil {
				return nil, err
			}
		}
		r.Logger().Debug("rendered document", log.FieldFormat(f.String()), zap.Int("bytes", len(data)))
		rep.Documents = append(rep.Documents, document{
			Format:  f.String(),
			Bytes:   len(data),
			Sealed:  r.env != nil,
			Display: display(data),
			format:  f,
			data:    data,
		})
	}
	return rep, nil
}

// verify loads every document back and compares it with the input.
func (r *renderer) verify(ctx context.Context, rep *report) error {
	for _, doc := range rep.Documents {
		s := serializer.ArchiveSerializer{Format: doc.format, Root: rootName, Envelope: r.env}
		var got string
		if err := s.UnmarshalContext(ctx, doc.data, &got); err != nil {
			return err
		}
		if got != rep.Input {
			return merr.WrapErrFormat(rep.Input, got, doc.Format+" document does not round trip")
		}
	}
	return nil
}

package serializer

import (
	"context"

	"github.com/lk2023060901/archive-go/internal/envelope"
	"github.com/lk2023060901/archive-go/pkg/archive"
	"github.com/lk2023060901/archive-go/pkg/codec"
	"github.com/lk2023060901/archive-go/pkg/util/merr"
)

// ArchiveSerializer runs values through the archive engine.
//
// The value is stored under Root, or as an unnamed value when Root is
// empty. With an Envelope the document is sealed into a frame and the
// frame format must match Format when reading.
type ArchiveSerializer struct {
	Format   codec.Format
	Root     string
	Envelope *envelope.Envelope
}

var _ Serializer = (*ArchiveSerializer)(nil)

func (s ArchiveSerializer) Marshal(v any) ([]byte, error) {
	return s.MarshalContext(context.Background(), v)
}

func (s ArchiveSerializer) Unmarshal(data []byte, v any) error {
	return s.UnmarshalContext(context.Background(), data, v)
}

func (s ArchiveSerializer) MarshalContext(ctx context.Context, v any) ([]byte, error) {
	doc, err := codec.Marshal(ctx, s.Format, s.item(v))
	if err != nil {
		return nil, err
	}
	if s.Envelope == nil {
		return doc, nil
	}
	return s.Envelope.Seal(s.Format, doc)
}

func (s ArchiveSerializer) UnmarshalContext(ctx context.Context, data []byte, v any) error {
	if s.Envelope != nil {
		frame, err := s.Envelope.Open(data)
		if err != nil {
			return err
		}
		if frame.Format != s.Format {
			return merr.WrapErrEnvelopeInvalid("format mismatch", "frame holds "+frame.Format.String()+", want "+s.Format.String())
		}
		data = frame.Payload
	}
	return codec.Unmarshal(ctx, s.Format, data, s.item(v))
}

func (s ArchiveSerializer) item(v any) any {
	if s.Root == "" {
		return v
	}
	return archive.NVP(s.Root, v)
}

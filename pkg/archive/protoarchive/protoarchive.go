// Package protoarchive lets protobuf messages travel through any archive
// format. A registered message is saved as a single bytes leaf holding its
// deterministic wire encoding.
package protoarchive

import (
	"google.golang.org/protobuf/proto"

	"github.com/lk2023060901/archive-go/pkg/archive"
	"github.com/lk2023060901/archive-go/pkg/util/merr"
)

var (
	marshalOptions   = proto.MarshalOptions{Deterministic: true}
	unmarshalOptions = proto.UnmarshalOptions{DiscardUnknown: false}
)

// Register installs a minimal strategy for the message type T.
//
//	protoarchive.Register[timestamppb.Timestamp]()
func Register[T any, PT interface {
	*T
	proto.Message
}]() error {
	return archive.RegisterMinimal(save[T, PT], load[T, PT])
}

// MustRegister is Register that panics on error, for use in init.
func MustRegister[T any, PT interface {
	*T
	proto.Message
}]() {
	if err := Register[T, PT](); err != nil {
		panic(err)
	}
}

func save[T any, PT interface {
	*T
	proto.Message
}](v *T) ([]byte, error) {
	data, err := marshalOptions.Marshal(PT(v))
	if err != nil {
		return nil, merr.WrapErrParameterInvalidMsg("marshal %T: %s", v, err.Error())
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

func load[T any, PT interface {
	*T
	proto.Message
}](v *T, data []byte) error {
	if err := unmarshalOptions.Unmarshal(data, PT(v)); err != nil {
		return merr.WrapErrFormat("protobuf message", string(PT(v).ProtoReflect().Descriptor().FullName()), err.Error())
	}
	return nil
}

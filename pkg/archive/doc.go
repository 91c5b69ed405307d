// Package archive is a reflection driven serialization engine.
//
// A value is written through an *Output and read back through an *Input.
// Both are bound to a format backend (see the jsonarchive, xmlarchive,
// binaryarchive and portablearchive packages) which implements Encoder or
// Decoder. For every Go type the engine picks exactly one strategy:
//
//   - minimal split: SaveMinimal() (S, error) / LoadMinimal(S) error, or
//     RegisterMinimal / GrantMinimal
//   - minimal combined: SerializeMinimal(Direction, *S) error, or
//     RegisterMinimalFunc
//   - member split: Save(*Output) error / Load(*Input) error, or Grant
//   - member combined: Serialize(Archive) error, or Grant
//   - free split: RegisterSave / RegisterLoad
//   - free combined: RegisterSerialize
//
// Minimal strategies shadow the others. Two applicable strategies of the
// same tier are reported as merr.ErrResolutionConflict before anything is
// written. Types without a user strategy fall back to the built-in handling
// of leaf kinds, slices, arrays, maps, owning pointers and
// encoding.TextMarshaler implementations.
//
// Unexported methods are invisible to the engine. A type may hand them to
// the engine with Grant, which keeps them out of reach of any other caller.
package archive

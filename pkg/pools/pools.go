// Package pools provides object pooling for reducing GC pressure.
//
// The master sits on the hot path of every read and write, so the byte
// slices used for record framing and buffer arenas are pooled:
//
//   - BytePool: Size-class based byte slice pooling
//   - BufferBuilder: Efficient buffer construction with pooling
package pools

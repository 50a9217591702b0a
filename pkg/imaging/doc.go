// Package imaging provides image codecs and transforms for the blob cache.
//
//   - Codec: image.Image values stored as JPEG (honouring quality) or PNG
//   - Fit: nearest-neighbour scale to fit a bounding box
//   - FitTransformer / BytesFitTransformer: variant transforms for
//     keycodec.Fit descriptors over decoded images or raw encoded bytes
//
// Only the standard library decoders are registered: JPEG, PNG and GIF.
package imaging

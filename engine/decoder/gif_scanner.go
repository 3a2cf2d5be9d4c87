package decoder

import (
	"fmt"
	"io"
)

// Block introducers and extension labels of the GIF89a format.
// Reference: https://www.w3.org/Graphics/GIF/spec-gif89a.txt
const (
	gifExtension       = 0x21
	gifImageDescriptor = 0x2C
	gifTrailer         = 0x3B

	gifLabelGraphicControl = 0xF9
	gifLabelApplication    = 0xFF

	gifColorTableFlag = 0x80
	gifColorTableSize = 0x07

	gifHeaderLen          = 6
	gifScreenDescLen      = 7
	gifImageDescLen       = 9
	gifGraphicControlSize = 4
)

// gifSegment is the raw byte range of one frame: its optional graphic control extension and its
// image descriptor, local color table and image data.
type gifSegment struct {
	index int

	// gce is a well-formed graphic control extension re-encoded as a standalone block, or nil when the
	// frame has none or the one it has is malformed.
	gce []byte
	// delay is the frame delay in hundredths of a second; only meaningful when gce is non-nil.
	delay int

	// image spans from the image separator through the image data block terminator.
	image []byte
	// truncated is set when the stream ended inside this frame.
	truncated bool
}

// gifStream is the block structure of a complete GIF stream.
type gifStream struct {
	// preamble is the header, logical screen descriptor and global color table.
	preamble []byte

	width, height int
	loopCount     int

	segments []gifSegment

	// err is the structural problem that ended the scan early, if any. Segments found before it are kept.
	err error
}

// gifScanner walks the block structure of an in-memory GIF stream without decoding pixel data.
type gifScanner struct {
	data []byte
	pos  int
}

// scanGIF splits data into the shared preamble and one segment per frame so that the frame count is known
// before any pixel data is decoded.
//
// Parameters:
//   - data: the complete encoded GIF
//
// Returns:
//   - *gifStream: the preamble and frame segments
//   - error: ErrInvalidHeader if the header or global color table is unreadable
func scanGIF(data []byte) (*gifStream, error) {
	s := &gifScanner{data: data}

	head, ok := s.take(gifHeaderLen + gifScreenDescLen)
	if !ok {
		return nil, fmt.Errorf("%w: stream too short", ErrInvalidHeader)
	}
	if sig := string(head[:gifHeaderLen]); sig != "GIF87a" && sig != "GIF89a" {
		return nil, fmt.Errorf("%w: unrecognised signature %q", ErrInvalidHeader, sig)
	}
	packed := head[10]
	if packed&gifColorTableFlag != 0 {
		if _, ok := s.take(colorTableLen(packed)); !ok {
			return nil, fmt.Errorf("%w: short global color table", ErrInvalidHeader)
		}
	}

	stream := &gifStream{
		preamble:  data[:s.pos],
		width:     int(head[6]) | int(head[7])<<8,
		height:    int(head[8]) | int(head[9])<<8,
		loopCount: -1,
	}

	var (
		pendingGCE   []byte
		pendingDelay int
	)

	for {
		introducer, ok := s.next()
		if !ok {
			stream.err = fmt.Errorf("missing trailer: %w", io.ErrUnexpectedEOF)
			return stream, nil
		}

		switch introducer {
		case gifExtension:
			label, ok := s.next()
			if !ok {
				stream.err = fmt.Errorf("truncated extension: %w", io.ErrUnexpectedEOF)
				return stream, nil
			}
			blocks, ok := s.subBlocks()
			if !ok {
				stream.err = fmt.Errorf("truncated extension 0x%02x: %w", label, io.ErrUnexpectedEOF)
				return stream, nil
			}
			switch label {
			case gifLabelGraphicControl:
				pendingGCE, pendingDelay = graphicControl(blocks)
			case gifLabelApplication:
				if n, ok := netscapeLoopCount(blocks); ok {
					stream.loopCount = n
				}
			}

		case gifImageDescriptor:
			seg := gifSegment{
				index: len(stream.segments),
				gce:   pendingGCE,
				delay: pendingDelay,
			}
			pendingGCE, pendingDelay = nil, 0

			start := s.pos - 1
			ok := s.skipImage()
			seg.image = data[start:s.pos]
			seg.truncated = !ok
			stream.segments = append(stream.segments, seg)
			if !ok {
				stream.err = fmt.Errorf("truncated image data in frame %d: %w", seg.index, io.ErrUnexpectedEOF)
				return stream, nil
			}

		case gifTrailer:
			return stream, nil

		default:
			stream.err = fmt.Errorf("unknown block type 0x%02x at offset %d", introducer, s.pos-1)
			return stream, nil
		}
	}
}

// frame assembles a standalone single-frame GIF from the shared preamble and one segment.
//
// Parameters:
//   - seg: the frame segment
//
// Returns:
//   - []byte: a complete GIF stream containing only seg
func (g *gifStream) frame(seg gifSegment) []byte {
	buf := make([]byte, 0, len(g.preamble)+len(seg.gce)+len(seg.image)+1)
	buf = append(buf, g.preamble...)
	buf = append(buf, seg.gce...)
	buf = append(buf, seg.image...)
	return append(buf, gifTrailer)
}

func (s *gifScanner) next() (byte, bool) {
	if s.pos >= len(s.data) {
		return 0, false
	}
	b := s.data[s.pos]
	s.pos++
	return b, true
}

func (s *gifScanner) take(n int) ([]byte, bool) {
	if n < 0 || len(s.data)-s.pos < n {
		s.pos = len(s.data)
		return nil, false
	}
	b := s.data[s.pos : s.pos+n]
	s.pos += n
	return b, true
}

// subBlocks consumes a sequence of length-prefixed data sub-blocks up to and including the zero-length
// terminator.
func (s *gifScanner) subBlocks() ([][]byte, bool) {
	var blocks [][]byte
	for {
		n, ok := s.next()
		if !ok {
			return blocks, false
		}
		if n == 0 {
			return blocks, true
		}
		b, ok := s.take(int(n))
		if !ok {
			return blocks, false
		}
		blocks = append(blocks, b)
	}
}

// skipImage consumes an image descriptor, its optional local color table and its image data.
// The image separator must already have been consumed.
func (s *gifScanner) skipImage() bool {
	desc, ok := s.take(gifImageDescLen)
	if !ok {
		return false
	}
	if packed := desc[8]; packed&gifColorTableFlag != 0 {
		if _, ok := s.take(colorTableLen(packed)); !ok {
			return false
		}
	}
	// LZW minimum code size.
	if _, ok := s.next(); !ok {
		return false
	}
	_, ok = s.subBlocks()
	return ok
}

// colorTableLen returns the byte length of the color table described by a packed field.
func colorTableLen(packed byte) int {
	return 3 * (1 << (int(packed&gifColorTableSize) + 1))
}

// graphicControl validates the sub-blocks of a graphic control extension. A well-formed extension is a
// single 4-byte sub-block; anything else is treated as absent.
//
// Returns:
//   - []byte: the extension re-encoded as a standalone block, or nil if malformed
//   - int: the frame delay in hundredths of a second
func graphicControl(blocks [][]byte) ([]byte, int) {
	if len(blocks) != 1 || len(blocks[0]) != gifGraphicControlSize {
		return nil, 0
	}
	b := blocks[0]
	gce := []byte{gifExtension, gifLabelGraphicControl, gifGraphicControlSize, b[0], b[1], b[2], b[3], 0}
	return gce, int(b[1]) | int(b[2])<<8
}

// netscapeLoopCount extracts the repeat count of a NETSCAPE2.0 (or ANIMEXTS1.0) application extension.
func netscapeLoopCount(blocks [][]byte) (int, bool) {
	if len(blocks) < 2 {
		return 0, false
	}
	if id := string(blocks[0]); id != "NETSCAPE2.0" && id != "ANIMEXTS1.0" {
		return 0, false
	}
	sub := blocks[1]
	if len(sub) < 3 || sub[0] != 1 {
		return 0, false
	}
	return int(sub[1]) | int(sub[2])<<8, true
}

// Package galmon decodes the Galmon project's navmon wire format — a
// 4-byte "bert" magic, a 2-byte big-endian length, and a protobuf
// NavMonMessage — and feeds the GalileoInav submessages it carries into
// an engine.Engine (spec.md §6 external interfaces).
//
// There is no generated .pb.go here: the field subset this engine reads
// is decoded directly with protowire, the same low-level approach a
// streaming collaborator uses when it only needs a handful of a larger
// message's fields.
package galmon

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protowire"

	"osnma/bitparse"
	"osnma/engine"
	"osnma/gst"
	"osnma/store"
)

// magic is the 4-byte frame marker every navmon message is prefixed with.
var magic = [4]byte{'b', 'e', 'r', 't'}

// NavMonMessage field numbers this decoder reads.
const (
	fieldType         = 1 // varint: message type, must be typeGalileoInav
	fieldGalileoInav  = 2 // embedded GalileoInav
	typeGalileoInav   = 2
)

// GalileoInav field numbers this decoder reads.
const (
	fieldSVID  = 2 // varint: satellite vehicle number
	fieldWN    = 3 // varint: GST week number
	fieldTOW   = 4 // varint: GST time of week, seconds
	fieldWord  = 5 // bytes: 30-byte (240-bit) I/NAV word
	fieldOSNMA = 6 // bytes: 5-byte (40-bit) OSNMA page
	fieldBand  = 7 // varint: 0 = E1-B, 1 = E5b-I
)

// ErrBadFrame is returned when a frame's magic or length is malformed.
var ErrBadFrame = errors.New("galmon: malformed frame")

// Decoder reads a sequence of navmon frames from an underlying stream.
type Decoder struct {
	r io.Reader
}

// NewDecoder wraps r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// GalileoInav is the decoded subset of one GalileoInav submessage.
type GalileoInav struct {
	SVN  store.SVN
	GST  gst.Time
	Band bitparse.Band
	Word [30]byte // raw 240-bit I/NAV word
	OSNMA [5]byte // raw 40-bit OSNMA page: HKROOT octet || 4-byte MACK fragment
}

// ReadMessage reads and decodes the next frame, skipping any frame whose
// type is not GalileoInav. Returns io.EOF once the stream is exhausted.
func (d *Decoder) ReadMessage() (GalileoInav, error) {
	for {
		payload, err := d.readFrame()
		if err != nil {
			return GalileoInav{}, err
		}
		msg, isInav, err := decodeNavMonMessage(payload)
		if err != nil {
			return GalileoInav{}, err
		}
		if isInav {
			return msg, nil
		}
	}
}

func (d *Decoder) readFrame() ([]byte, error) {
	var header [6]byte
	if _, err := io.ReadFull(d.r, header[:]); err != nil {
		return nil, err
	}
	if [4]byte{header[0], header[1], header[2], header[3]} != magic {
		return nil, ErrBadFrame
	}
	n := binary.BigEndian.Uint16(header[4:6])
	payload := make([]byte, n)
	if _, err := io.ReadFull(d.r, payload); err != nil {
		return nil, fmt.Errorf("galmon: short frame: %w", err)
	}
	return payload, nil
}

func decodeNavMonMessage(b []byte) (GalileoInav, bool, error) {
	var msgType int64 = -1
	var inavBytes []byte

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return GalileoInav{}, false, protowire.ParseError(n)
		}
		b = b[n:]
		switch num {
		case fieldType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return GalileoInav{}, false, protowire.ParseError(n)
			}
			msgType = int64(v)
			b = b[n:]
		case fieldGalileoInav:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return GalileoInav{}, false, protowire.ParseError(n)
			}
			inavBytes = v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return GalileoInav{}, false, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}

	if msgType != typeGalileoInav || inavBytes == nil {
		return GalileoInav{}, false, nil
	}
	msg, err := decodeGalileoInav(inavBytes)
	return msg, true, err
}

func decodeGalileoInav(b []byte) (GalileoInav, error) {
	var out GalileoInav
	var svid, wn, tow, band uint64

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return GalileoInav{}, protowire.ParseError(n)
		}
		b = b[n:]
		switch num {
		case fieldSVID:
			v, n := protowire.ConsumeVarint(b)
			svid, b = v, b[consumeOK(n):]
		case fieldWN:
			v, n := protowire.ConsumeVarint(b)
			wn, b = v, b[consumeOK(n):]
		case fieldTOW:
			v, n := protowire.ConsumeVarint(b)
			tow, b = v, b[consumeOK(n):]
		case fieldBand:
			v, n := protowire.ConsumeVarint(b)
			band, b = v, b[consumeOK(n):]
		case fieldWord:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 || len(v) != 30 {
				return GalileoInav{}, fmt.Errorf("galmon: I/NAV word field: %w", ErrBadFrame)
			}
			copy(out.Word[:], v)
			b = b[n:]
		case fieldOSNMA:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 || len(v) != 5 {
				return GalileoInav{}, fmt.Errorf("galmon: OSNMA field: %w", ErrBadFrame)
			}
			copy(out.OSNMA[:], v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return GalileoInav{}, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}

	out.SVN = store.SVN(svid)
	out.Band = bitparse.Band(band)
	g, err := gst.New(uint32(wn), uint32(tow))
	if err != nil {
		return GalileoInav{}, fmt.Errorf("galmon: %w", err)
	}
	out.GST = g
	return out, nil
}

func consumeOK(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// Feed decodes msg's raw word and OSNMA bits and pushes them into eng.
func Feed(eng *engine.Engine, msg GalileoInav) error {
	wordBits, err := bitparse.FromBytes(msg.Word[:], bitparse.INAVWordBits)
	if err != nil {
		return err
	}
	word, err := bitparse.ParseINAVWord(wordBits)
	if err != nil {
		return err
	}
	eng.FeedINAV(msg.SVN, msg.Band, msg.GST, word)

	if msg.Band == bitparse.BandE1B {
		pageBits, err := bitparse.FromBytes(msg.OSNMA[:], bitparse.OSNMAPageBits)
		if err != nil {
			return err
		}
		page, err := bitparse.ParseOSNMAPage(pageBits)
		if err != nil {
			return err
		}
		eng.FeedOSNMA(msg.SVN, msg.GST, page)
	}
	return nil
}

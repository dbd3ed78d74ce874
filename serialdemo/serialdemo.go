// Package serialdemo implements the embedded demo's ASCII, CRLF-terminated
// serial-line protocol (spec.md §6): a host feeds I/NAV words and OSNMA
// pages as hex lines, and a device replies with flow-control tokens,
// per-record acknowledgements, and authentication status lines.
//
// Host -> device: "SVN WN TOW BAND HEX" (BAND is E1B or E5B; for an E1B
// record HEX may be either a 30-byte I/NAV word or, when the line carries
// a trailing "OSNMA" marker, a 5-byte OSNMA page).
// Device -> host: "READY" (one flow-control token per expected record),
// "E<svn> WN <wn> TOW <tow> E1B [INAV|OSNMA]" (acknowledgement), and
// "AUTH ADKD=<k> ..." or "AUTH NONE" (authenticated NavBlock status).
package serialdemo

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"osnma/bitparse"
	"osnma/engine"
	"osnma/gst"
	"osnma/store"
)

// ErrMalformedLine is returned when a host line does not match the
// protocol's fixed shape.
var ErrMalformedLine = errors.New("serialdemo: malformed line")

// Device drives the embedded demo's device role against an engine.
type Device struct {
	eng *engine.Engine
	rw  io.ReadWriter
	r   *bufio.Reader
}

// NewDevice wraps rw (a serial port, or an in-memory pipe for tests).
func NewDevice(eng *engine.Engine, rw io.ReadWriter) *Device {
	return &Device{eng: eng, rw: rw, r: bufio.NewReader(rw)}
}

// Run services host records until rw returns io.EOF, emitting one READY
// token before each expected record and an acknowledgement plus an
// authentication status line after each one.
func (d *Device) Run() error {
	for {
		if err := d.writeLine("READY"); err != nil {
			return err
		}
		line, err := d.r.ReadString('\n')
		if err != nil {
			if err == io.EOF && line == "" {
				return nil
			}
			if err != io.EOF {
				return fmt.Errorf("serialdemo: %w", err)
			}
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}
		if err := d.handleLine(line); err != nil {
			return err
		}
	}
}

func (d *Device) handleLine(line string) error {
	svn, g, band, kind, raw, err := parseHostLine(line)
	if err != nil {
		return err
	}
	if err := feedRecord(d.eng, svn, g, band, kind, raw); err != nil {
		return err
	}

	if err := d.writeLine(ackLine(svn, g, kind)); err != nil {
		return err
	}
	return d.writeLine(authLine(d.eng, svn, g))
}

// feedRecord decodes one raw I/NAV word or OSNMA page and feeds it into
// eng.
func feedRecord(eng *engine.Engine, svn store.SVN, g gst.Time, band bitparse.Band, kind string, raw []byte) error {
	switch kind {
	case "INAV":
		bits, err := bitparse.FromBytes(raw, bitparse.INAVWordBits)
		if err != nil {
			return err
		}
		word, err := bitparse.ParseINAVWord(bits)
		if err != nil {
			return err
		}
		eng.FeedINAV(svn, band, g, word)
	case "OSNMA":
		bits, err := bitparse.FromBytes(raw, bitparse.OSNMAPageBits)
		if err != nil {
			return err
		}
		page, err := bitparse.ParseOSNMAPage(bits)
		if err != nil {
			return err
		}
		eng.FeedOSNMA(svn, g, page)
	}
	return nil
}

// ReplayLine parses and feeds one capture-file line ("SVN WN TOW BAND
// HEX [OSNMA]", the same shape the device role reads) into eng, without
// producing any device protocol output. Used by the replay CLI command
// to drive an engine from a recorded capture file.
func ReplayLine(eng *engine.Engine, line string) error {
	svn, g, band, kind, raw, err := parseHostLine(line)
	if err != nil {
		return err
	}
	return feedRecord(eng, svn, g, band, kind, raw)
}

func (d *Device) writeLine(s string) error {
	_, err := io.WriteString(d.rw, s+"\r\n")
	return err
}

func ackLine(svn store.SVN, g gst.Time, kind string) string {
	return fmt.Sprintf("E%d WN %d TOW %d E1B %s", svn, g.WN, g.TOW, kind)
}

// authLine reports which ADKDs have g as their most recently
// authenticated subframe (spec.md §6 authenticated(adkd, prn_d)).
func authLine(eng *engine.Engine, svn store.SVN, g gst.Time) string {
	adkds := []store.ADKD{store.ADKD0, store.ADKD4, store.ADKD12}
	var parts []string
	for _, adkd := range adkds {
		if adkd == store.ADKD4 {
			if authGST, _, ok := eng.AuthenticatedTiming(); ok && authGST.Equal(g) {
				parts = append(parts, "ADKD=4")
			}
			continue
		}
		if authGST, _, ok := eng.Authenticated(adkd, svn); ok && authGST.Equal(g) {
			parts = append(parts, fmt.Sprintf("ADKD=%d", adkd))
		}
	}
	if len(parts) == 0 {
		return "AUTH NONE"
	}
	return "AUTH " + strings.Join(parts, " ")
}

// parseHostLine parses "SVN WN TOW BAND HEX [OSNMA]".
func parseHostLine(line string) (svn store.SVN, g gst.Time, band bitparse.Band, kind string, raw []byte, err error) {
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return 0, gst.Time{}, 0, "", nil, ErrMalformedLine
	}

	svnN, err1 := strconv.Atoi(fields[0])
	wn, err2 := strconv.Atoi(fields[1])
	tow, err3 := strconv.Atoi(fields[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, gst.Time{}, 0, "", nil, ErrMalformedLine
	}

	switch fields[3] {
	case "E1B":
		band = bitparse.BandE1B
	case "E5B":
		band = bitparse.BandE5bI
	default:
		return 0, gst.Time{}, 0, "", nil, ErrMalformedLine
	}

	raw, err = hex.DecodeString(fields[4])
	if err != nil {
		return 0, gst.Time{}, 0, "", nil, fmt.Errorf("serialdemo: %w", err)
	}

	kind = "INAV"
	if len(fields) >= 6 && fields[5] == "OSNMA" {
		kind = "OSNMA"
	} else if len(raw) == bitparse.OSNMAPageBits/8 {
		kind = "OSNMA"
	}

	g, err = gst.New(uint32(wn), uint32(tow))
	if err != nil {
		return 0, gst.Time{}, 0, "", nil, fmt.Errorf("serialdemo: %w", err)
	}
	return store.SVN(svnN), g, band, kind, raw, nil
}

package binary

import (
	"github.com/rfk/wasm-polyfill-sub001/internal/tracelog"
	"github.com/rfk/wasm-polyfill-sub001/internal/wasm"
)

var magic = [4]byte{0x00, 0x61, 0x73, 0x6D}
var version = [4]byte{0x01, 0x00, 0x00, 0x00}

// DecodeModule implements spec.md §4.B: verify magic/version, then walk
// sections in strictly increasing known-section-id order, dispatching each
// to its per-section parser (§4.C), tolerating and skipping custom
// sections anywhere.
func DecodeModule(b []byte) (*wasm.Module, error) {
	log := tracelog.L()
	r := newReader(b)

	for i := 0; i < 4; i++ {
		got, err := r.U8()
		if err != nil {
			return nil, wasm.NewDecodeError("magic", err)
		}
		if got != magic[i] {
			return nil, wasm.Decodef("invalid magic number")
		}
	}
	for i := 0; i < 4; i++ {
		got, err := r.U8()
		if err != nil {
			return nil, wasm.NewDecodeError("version", err)
		}
		if got != version[i] {
			return nil, wasm.Decodef("unsupported version")
		}
	}

	m := &wasm.Module{}
	var lastKnownID wasm.SectionID = 0

	for r.Remaining() > 0 {
		id, err := r.VarUint7()
		if err != nil {
			return nil, wasm.NewDecodeError("section id", err)
		}
		size, err := r.VarUint32()
		if err != nil {
			return nil, wasm.NewDecodeError("section size", err)
		}
		payloadEnd := r.Pos() + uint64(size)
		sid := wasm.SectionID(id)

		if sid == wasm.SectionCustom {
			name, err := r.Name()
			if err != nil {
				return nil, err
			}
			log.Debugw("skipping custom section", "name", name, "size", size)
			if name == "name" {
				// Best-effort only: a malformed name section is never
				// fatal (SPEC_FULL.md §3).
				tryDecodeNameSection(r, payloadEnd, m)
			}
			if err := r.SkipTo(payloadEnd); err != nil {
				return nil, err
			}
			continue
		}

		if sid <= lastKnownID {
			return nil, wasm.Decodef("section %d out of order (last known section was %d)", sid, lastKnownID)
		}

		log.Debugw("decoding section", "id", sid, "size", size)
		if err := dispatchSection(r, sid, m); err != nil {
			return nil, err
		}
		if r.Pos() > payloadEnd {
			return nil, wasm.Decodef("section %d overran its declared payload end", sid)
		}
		// Trailing padding inside a section is tolerated (spec.md §4.B):
		// the payload-end marker is authoritative.
		if err := r.SkipTo(payloadEnd); err != nil {
			return nil, err
		}
		lastKnownID = sid
	}

	if err := validateModule(m); err != nil {
		return nil, err
	}
	return m, nil
}

func dispatchSection(r *reader, id wasm.SectionID, m *wasm.Module) error {
	switch id {
	case wasm.SectionType:
		return decodeTypeSection(r, m)
	case wasm.SectionImport:
		return decodeImportSection(r, m)
	case wasm.SectionFunction:
		return decodeFunctionSection(r, m)
	case wasm.SectionTable:
		return decodeTableSection(r, m)
	case wasm.SectionMemory:
		return decodeMemorySection(r, m)
	case wasm.SectionGlobal:
		return decodeGlobalSection(r, m)
	case wasm.SectionExport:
		return decodeExportSection(r, m)
	case wasm.SectionStart:
		return decodeStartSection(r, m)
	case wasm.SectionElement:
		return decodeElementSection(r, m)
	case wasm.SectionCode:
		return decodeCodeSection(r, m)
	case wasm.SectionData:
		return decodeDataSection(r, m)
	default:
		return wasm.Decodef("unrecognised known section id %d", id)
	}
}

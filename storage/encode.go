package storage

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/vocdoni/davinci-tally/log"
)

// ArtifactEncoding defines the encoding formats for artifacts.
type ArtifactEncoding int

const (
	// ArtifactEncodingCBOR is the CBOR encoding format.
	ArtifactEncodingCBOR ArtifactEncoding = iota
	// ArtifactEncodingJSON is the JSON encoding format.
	ArtifactEncodingJSON
)

// cborEncMode is deterministic and keeps sub-second timestamps, which order
// the ballot queue.
var cborEncMode = func() cbor.EncMode {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	em, err := opts.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// EncodeArtifact encodes an artifact into the specified encoding format. If no
// format is specified, CBOR is used.
func EncodeArtifact(a any, encoding ...ArtifactEncoding) ([]byte, error) {
	if len(encoding) == 0 {
		return cborEncMode.Marshal(a)
	}
	switch encoding[0] {
	case ArtifactEncodingCBOR:
		return cborEncMode.Marshal(a)
	case ArtifactEncodingJSON:
		res, err := json.Marshal(a)
		if err != nil {
			log.Warnw("falling back to CBOR encoding due to JSON encoding failure", "error", err)
			return cborEncMode.Marshal(a)
		}
		return res, nil
	default:
		return nil, fmt.Errorf("unknown artifact encoding: %d", encoding[0])
	}
}

// DecodeArtifact decodes an artifact from the specified format. If no format
// is specified, CBOR is used.
func DecodeArtifact(data []byte, out any, encoding ...ArtifactEncoding) error {
	if len(encoding) == 0 {
		return cbor.Unmarshal(data, out)
	}
	switch encoding[0] {
	case ArtifactEncodingCBOR:
		return cbor.Unmarshal(data, out)
	case ArtifactEncodingJSON:
		if err := json.Unmarshal(data, out); err != nil {
			log.Warnw("falling back to CBOR decoding due to JSON decoding failure", "error", err)
			return cbor.Unmarshal(data, out)
		}
		return nil
	default:
		return fmt.Errorf("unknown artifact encoding: %d", encoding[0])
	}
}

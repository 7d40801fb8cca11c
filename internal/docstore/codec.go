package docstore

import (
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

// Records are stored as zstd-compressed CBOR behind a one-byte format
// tag. Canvas JSON is highly repetitive and compresses well.
const recordFormatV1 = 0x01

var errBadRecord = errors.New("docstore: unreadable record")

type wireRecord struct {
	CanvasData []byte `cbor:"1,keyasint"`
	UpdatedAt  int64  `cbor:"2,keyasint"`
}

var (
	encMode     cbor.EncMode
	decMode     cbor.DecMode
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("docstore: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("docstore: CBOR decoder initialization failed: " + err.Error())
	}
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("docstore: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("docstore: zstd decoder initialization failed: " + err.Error())
	}
}

// EncodeRecord returns the storage form of rec.
func EncodeRecord(rec Record) ([]byte, error) {
	raw, err := encMode.Marshal(wireRecord{
		CanvasData: rec.CanvasData,
		UpdatedAt:  rec.UpdatedAt.UnixNano(),
	})
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	out := make([]byte, 1, 1+len(raw)/2)
	out[0] = recordFormatV1
	return zstdEncoder.EncodeAll(raw, out), nil
}

// DecodeRecord is the inverse of EncodeRecord.
func DecodeRecord(data []byte) (Record, error) {
	if len(data) == 0 || data[0] != recordFormatV1 {
		return Record{}, errBadRecord
	}
	raw, err := zstdDecoder.DecodeAll(data[1:], nil)
	if err != nil {
		return Record{}, fmt.Errorf("%w: zstd: %v", errBadRecord, err)
	}
	var w wireRecord
	if err := decMode.Unmarshal(raw, &w); err != nil {
		return Record{}, fmt.Errorf("%w: cbor: %v", errBadRecord, err)
	}
	return Record{
		CanvasData: w.CanvasData,
		UpdatedAt:  time.Unix(0, w.UpdatedAt).UTC(),
	}, nil
}

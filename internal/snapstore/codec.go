package snapstore

import (
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"

	"genloop/internal/session"
)

const (
	envelopeVersion = 1
	// maxStateBytes bounds the uncompressed engine state of one snapshot.
	maxStateBytes = 16 << 30
	// initialRatio sizes the first decompression buffer from the
	// compressed length; DecodeAll grows it when needed.
	initialRatio = 4
)

// envelope is the persisted form of a Record.
type envelope struct {
	Version       int       `cbor:"version"`
	ID            string    `cbor:"id"`
	Name          string    `cbor:"name"`
	CreatedAt     time.Time `cbor:"created_at"`
	LastTokenType int       `cbor:"last_token_type"`
	TokenCount    int       `cbor:"token_count"`
	Size          int       `cbor:"size"`
	Data          []byte    `cbor:"data"`
}

var encMode = func() cbor.EncMode {
	em, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

func toEnvelope(rec Record, enc *zstd.Encoder) envelope {
	return envelope{
		Version:       envelopeVersion,
		ID:            rec.ID,
		Name:          rec.Name,
		CreatedAt:     rec.CreatedAt,
		LastTokenType: int(rec.LastTokenType),
		TokenCount:    rec.TokenCount,
		Size:          len(rec.Data),
		Data:          enc.EncodeAll(rec.Data, make([]byte, 0, len(rec.Data)/2)),
	}
}

// fromEnvelope validates env and, when withData is set, decompresses the
// engine bytes.
func fromEnvelope(env envelope, dec *zstd.Decoder, withData bool) (Record, error) {
	if env.Version != envelopeVersion {
		return Record{}, fmt.Errorf("snapstore: unsupported envelope version %d", env.Version)
	}
	if env.TokenCount < 0 || env.Size < 0 || int64(env.Size) > maxStateBytes {
		return Record{}, fmt.Errorf("snapstore: corrupt envelope for %q: size %d", env.Name, env.Size)
	}
	rec := Record{
		ID:            env.ID,
		Name:          env.Name,
		CreatedAt:     env.CreatedAt,
		LastTokenType: session.TokenType(env.LastTokenType),
		TokenCount:    env.TokenCount,
		Size:          env.Size,
	}
	if !withData {
		return rec, nil
	}
	data, err := dec.DecodeAll(env.Data, make([]byte, 0, min(env.Size, initialRatio*len(env.Data))))
	if err != nil {
		return Record{}, fmt.Errorf("snapstore: decompress %q: %w", env.Name, err)
	}
	if len(data) != env.Size {
		return Record{}, fmt.Errorf("snapstore: %q decompressed to %d bytes, want %d", env.Name, len(data), env.Size)
	}
	rec.Data = data
	return rec, nil
}

func (s *Store) marshal(rec Record) ([]byte, error) {
	return encMode.Marshal(toEnvelope(rec, s.enc))
}

func (s *Store) unmarshal(val []byte, withData bool) (Record, error) {
	var env envelope
	if err := cbor.Unmarshal(val, &env); err != nil {
		return Record{}, fmt.Errorf("snapstore: decode envelope: %w", err)
	}
	return fromEnvelope(env, s.dec, withData)
}

// Encode writes rec to w in the store's envelope format.
func Encode(w io.Writer, rec Record) error {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return err
	}
	defer enc.Close()
	return encMode.NewEncoder(w).Encode(toEnvelope(rec, enc))
}

// Decode reads one envelope written by Encode.
func Decode(r io.Reader) (Record, error) {
	var env envelope
	if err := cbor.NewDecoder(r).Decode(&env); err != nil {
		return Record{}, fmt.Errorf("snapstore: decode envelope: %w", err)
	}
	dec, err := newDecoder()
	if err != nil {
		return Record{}, err
	}
	defer dec.Close()
	return fromEnvelope(env, dec, true)
}

func newDecoder() (*zstd.Decoder, error) {
	return zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxStateBytes))
}

// Package codec encodes and decodes journal records.
//
// Records are serialized as a fixed 5-element MessagePack array:
// [seqNo, timestamp, filter, status, payload]. The payload slot holds the
// recorded value for NEXT records, the error message string for ERROR
// records, and nil for COMPLETE records.
//
// The codec is pure: it carries no replay or recording logic. Malformed
// input fails decoding with *types.DecodeError, which the replay engine
// treats as terminal for the affected subscription.
package codec

import (
	"fmt"

	"github.com/tinylib/msgp/msgp"

	"github.com/arloliu/reel/types"
)

// recordFields is the arity of the wire-format array.
const recordFields = 5

// Encode appends the MessagePack encoding of rec to buf and returns the
// extended buffer. Passing nil for buf allocates a fresh one.
//
// Parameters:
//   - buf: Destination buffer to append to (may be nil)
//   - rec: The record to encode
//
// Returns:
//   - []byte: The buffer with the encoded record appended
//   - error: Encoding error if the status is invalid or the payload type
//     is not MessagePack-representable
func Encode(buf []byte, rec types.Record) ([]byte, error) {
	if !rec.Status.Valid() {
		return nil, fmt.Errorf("reel: cannot encode record with status %d", rec.Status)
	}

	buf = msgp.AppendArrayHeader(buf, recordFields)
	buf = msgp.AppendInt64(buf, rec.SeqNo)
	buf = msgp.AppendInt64(buf, rec.Timestamp)
	buf = msgp.AppendString(buf, rec.Filter)
	buf = msgp.AppendUint8(buf, uint8(rec.Status))

	switch rec.Status {
	case types.StatusNext:
		// msgp handles interface{} payloads by encoding them according
		// to their underlying type.
		var err error
		buf, err = msgp.AppendIntf(buf, rec.Value)
		if err != nil {
			return nil, fmt.Errorf("reel: failed to encode payload: %w", err)
		}
	case types.StatusError:
		buf = msgp.AppendString(buf, rec.ErrMsg)
	case types.StatusComplete:
		buf = msgp.AppendNil(buf)
	}

	return buf, nil
}

// Decode parses one encoded record.
//
// Parameters:
//   - data: The encoded record bytes
//
// Returns:
//   - types.Record: The decoded record
//   - error: *types.DecodeError if the record is truncated, has the wrong
//     arity, or carries an unknown status tag
func Decode(data []byte) (types.Record, error) {
	var rec types.Record

	sz, buf, err := msgp.ReadArrayHeaderBytes(data)
	if err != nil {
		return rec, &types.DecodeError{Cause: fmt.Errorf("reading array header: %w", err)}
	}
	if sz != recordFields {
		return rec, &types.DecodeError{Cause: fmt.Errorf("unexpected field count %d", sz)}
	}

	rec.SeqNo, buf, err = msgp.ReadInt64Bytes(buf)
	if err != nil {
		return rec, &types.DecodeError{Cause: fmt.Errorf("reading sequence number: %w", err)}
	}

	rec.Timestamp, buf, err = msgp.ReadInt64Bytes(buf)
	if err != nil {
		return rec, &types.DecodeError{Cause: fmt.Errorf("reading timestamp: %w", err)}
	}

	rec.Filter, buf, err = msgp.ReadStringBytes(buf)
	if err != nil {
		return rec, &types.DecodeError{Cause: fmt.Errorf("reading filter: %w", err)}
	}

	var status uint8
	status, buf, err = msgp.ReadUint8Bytes(buf)
	if err != nil {
		return rec, &types.DecodeError{Cause: fmt.Errorf("reading status: %w", err)}
	}
	rec.Status = types.Status(status)
	if !rec.Status.Valid() {
		return rec, &types.DecodeError{Cause: fmt.Errorf("unknown status tag %d", status)}
	}

	switch rec.Status {
	case types.StatusNext:
		rec.Value, _, err = msgp.ReadIntfBytes(buf)
		if err != nil {
			return rec, &types.DecodeError{Cause: fmt.Errorf("reading payload: %w", err)}
		}
	case types.StatusError:
		rec.ErrMsg, _, err = msgp.ReadStringBytes(buf)
		if err != nil {
			return rec, &types.DecodeError{Cause: fmt.Errorf("reading error message: %w", err)}
		}
	case types.StatusComplete:
		if _, err = msgp.ReadNilBytes(buf); err != nil {
			return rec, &types.DecodeError{Cause: fmt.Errorf("reading completion marker: %w", err)}
		}
	}

	return rec, nil
}

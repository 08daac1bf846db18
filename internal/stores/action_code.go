package stores

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	actionRecordVersionV1 = 1
)

// Action identifies what an action code authorizes.
type Action uint8

const (
	// ActionVerifyEmail marks the account email as verified.
	ActionVerifyEmail Action = 1
	// ActionResetPassword allows one password change.
	ActionResetPassword Action = 2
)

var (
	ErrActionCodeNotFound         = errors.New("action code not found")
	ErrActionCodeMismatch         = errors.New("action code mismatch")
	ErrActionCodeAttemptsExceeded = errors.New("action code attempts exceeded")
	ErrActionCodeRedisUnavailable = errors.New("action code redis unavailable")
)

// consumeActionLua atomically performs GET→validate→DEL/SET on an action
// code record.
// KEYS[1] = record key
// ARGV[1] = provided hash (32 bytes)
// ARGV[2] = expected action (byte)
// ARGV[3] = max attempts
// ARGV[4] = current unix timestamp
//
// Layout: version(1) action(1) attempts(2) expiresAt(8) uidLen(2) uid
// emailLen(2) email hash(32), integers big-endian.
var consumeActionLua = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
  return {err='not_found'}
end

local providedHash = ARGV[1]
local expectedAction = tonumber(ARGV[2])
local maxAttempts = tonumber(ARGV[3])
local nowUnix = tonumber(ARGV[4])

if string.byte(data, 1) ~= 1 then
  redis.call('DEL', KEYS[1])
  return {err='not_found'}
end

local action = string.byte(data, 2)
local attempts = string.byte(data, 3) * 256 + string.byte(data, 4)

local expiresAt = 0
for i = 5, 12 do
  expiresAt = expiresAt * 256 + string.byte(data, i)
end

if nowUnix > expiresAt then
  redis.call('DEL', KEYS[1])
  return {err='expired'}
end

if action ~= expectedAction then
  return {err='action_mismatch'}
end

local uidLen = string.byte(data, 13) * 256 + string.byte(data, 14)
local emailOffset = 15 + uidLen
local emailLen = string.byte(data, emailOffset) * 256 + string.byte(data, emailOffset + 1)
local hashOffset = emailOffset + 2 + emailLen
local storedHash = string.sub(data, hashOffset, hashOffset + 31)

if storedHash ~= providedHash then
  attempts = attempts + 1
  if attempts >= maxAttempts then
    redis.call('DEL', KEYS[1])
    return {err='attempts_exceeded'}
  end
  local newData = string.sub(data, 1, 2) .. string.char(math.floor(attempts / 256), attempts % 256) .. string.sub(data, 5)
  local ttlMs = redis.call('PTTL', KEYS[1])
  if ttlMs <= 0 then
    redis.call('DEL', KEYS[1])
    return {err='expired'}
  end
  redis.call('SET', KEYS[1], newData, 'PX', ttlMs)
  return {err='mismatch'}
end

redis.call('DEL', KEYS[1])
return data
`)

// ActionCodeRecord is the stored half of an out-of-band action code. Only
// the SHA-256 of the secret is kept.
type ActionCodeRecord struct {
	UserID     string
	Email      string
	Action     Action
	SecretHash [32]byte
	ExpiresAt  int64
	Attempts   uint16
}

// ActionCodeStore persists single-use action codes.
type ActionCodeStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewActionCodeStore returns a store writing keys under prefix.
func NewActionCodeStore(redisClient redis.UniversalClient, prefix string) *ActionCodeStore {
	if prefix == "" {
		prefix = "gas"
	}
	return &ActionCodeStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *ActionCodeStore) key(codeID string) string {
	return s.prefix + ":oob:" + codeID
}

// Save stores record under codeID for ttl.
func (s *ActionCodeStore) Save(ctx context.Context, codeID string, record *ActionCodeRecord, ttl time.Duration) error {
	encoded, err := encodeActionCodeRecord(record)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.key(codeID), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrActionCodeRedisUnavailable, err)
	}
	return nil
}

// Consume validates and deletes the record. A wrong secret counts an attempt;
// the record is deleted once maxAttempts is reached.
func (s *ActionCodeStore) Consume(
	ctx context.Context,
	codeID string,
	providedHash [32]byte,
	expected Action,
	maxAttempts int,
) (*ActionCodeRecord, error) {
	result, err := consumeActionLua.Run(ctx, s.redis,
		[]string{s.key(codeID)},
		string(providedHash[:]),
		int(expected),
		maxAttempts,
		time.Now().Unix(),
	).Result()
	if err != nil {
		switch err.Error() {
		case "not_found", "expired":
			return nil, ErrActionCodeNotFound
		case "action_mismatch", "mismatch":
			return nil, ErrActionCodeMismatch
		case "attempts_exceeded":
			return nil, ErrActionCodeAttemptsExceeded
		default:
			return nil, fmt.Errorf("%w: %v", ErrActionCodeRedisUnavailable, err)
		}
	}

	data, ok := result.(string)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected lua result type", ErrActionCodeRedisUnavailable)
	}

	record, err := decodeActionCodeRecord([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrActionCodeRedisUnavailable, err)
	}

	// Lua string comparison is not constant time.
	if subtle.ConstantTimeCompare(record.SecretHash[:], providedHash[:]) != 1 {
		return nil, ErrActionCodeMismatch
	}

	return record, nil
}

func writeString16(buf *bytes.Buffer, s string) error {
	if len(s) > 65535 {
		return errors.New("action code record field too long")
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(s))); err != nil {
		return err
	}
	buf.WriteString(s)
	return nil
}

func readString16(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func encodeActionCodeRecord(record *ActionCodeRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(actionRecordVersionV1)
	buf.WriteByte(byte(record.Action))

	if err := binary.Write(&buf, binary.BigEndian, record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}
	if err := writeString16(&buf, record.UserID); err != nil {
		return nil, err
	}
	if err := writeString16(&buf, record.Email); err != nil {
		return nil, err
	}
	buf.Write(record.SecretHash[:])

	return buf.Bytes(), nil
}

func decodeActionCodeRecord(data []byte) (*ActionCodeRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != actionRecordVersionV1 {
		return nil, errors.New("invalid action code record version")
	}

	action, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	record := &ActionCodeRecord{Action: Action(action)}

	if err := binary.Read(reader, binary.BigEndian, &record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}
	if record.UserID, err = readString16(reader); err != nil {
		return nil, err
	}
	if record.Email, err = readString16(reader); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(reader, record.SecretHash[:]); err != nil {
		return nil, err
	}

	return record, nil
}

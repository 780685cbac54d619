package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"time"

	"github.com/eprintd/authcore/authz"
	"github.com/eprintd/authcore/taxonomy"
)

const sessionFormatVersion = 1

// invalidationOffset is the fixed byte position of the invalidation marker.
// The Redis store's MarkInvalid script patches this byte in place, so it
// must stay at offset 1 for every format version.
const invalidationOffset = 1

// Encode serializes a session for storage. The session id is the storage
// key and is not part of the blob.
func Encode(s *Session) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(sessionFormatVersion)
	if s.Invalidated {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}

	for _, field := range []string{
		s.User.ID, s.User.Username, s.User.Email,
		s.User.Name.Forename, s.User.Name.Surname, s.User.Name.Suffix,
		s.ClientIP, s.RemoteHost,
	} {
		if err := writeString(&buf, field); err != nil {
			return nil, err
		}
	}

	var userBits byte
	if s.User.Verified {
		userBits |= 1
	}
	if s.Authorizations.EditUsers {
		userBits |= 2
	}
	if s.Authorizations.EditSystem {
		userBits |= 4
	}
	buf.WriteByte(userBits)

	points := s.Authorizations.Snapshot()
	if len(points) > math.MaxUint16 {
		return nil, errors.New("too many endorsement categories")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(points))); err != nil {
		return nil, err
	}
	for cat, pts := range points {
		if err := writeString(&buf, cat.Archive); err != nil {
			return nil, err
		}
		if err := writeString(&buf, cat.SubjectClass); err != nil {
			return nil, err
		}
		if pts > math.MaxInt32 || pts < math.MinInt32 {
			return nil, errors.New("endorsement total out of range")
		}
		if err := binary.Write(&buf, binary.BigEndian, int32(pts)); err != nil {
			return nil, err
		}
	}

	if err := binary.Write(&buf, binary.BigEndian, s.IssuedAt.Unix()); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.ExpiresAt.Unix()); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode rebuilds a session from its stored blob. The caller sets the ID
// from the storage key.
func Decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != sessionFormatVersion {
		return nil, errors.New("invalid session format version")
	}

	marker, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	s := &Session{Invalidated: marker != 0}

	fields := []*string{
		&s.User.ID, &s.User.Username, &s.User.Email,
		&s.User.Name.Forename, &s.User.Name.Surname, &s.User.Name.Suffix,
		&s.ClientIP, &s.RemoteHost,
	}
	for _, field := range fields {
		if *field, err = readString(reader); err != nil {
			return nil, err
		}
	}

	userBits, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	s.User.Verified = userBits&1 != 0

	var count uint16
	if err := binary.Read(reader, binary.BigEndian, &count); err != nil {
		return nil, err
	}
	points := make(map[taxonomy.Category]int, count)
	for i := 0; i < int(count); i++ {
		archive, err := readString(reader)
		if err != nil {
			return nil, err
		}
		sc, err := readString(reader)
		if err != nil {
			return nil, err
		}
		var pts int32
		if err := binary.Read(reader, binary.BigEndian, &pts); err != nil {
			return nil, err
		}
		points[taxonomy.Category{Archive: archive, SubjectClass: sc}] = int(pts)
	}
	s.Authorizations = authz.FromSnapshot(points, userBits&2 != 0, userBits&4 != 0)

	var issued, expires int64
	if err := binary.Read(reader, binary.BigEndian, &issued); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &expires); err != nil {
		return nil, err
	}
	s.IssuedAt = time.Unix(issued, 0).UTC()
	s.ExpiresAt = time.Unix(expires, 0).UTC()

	return s, nil
}

func writeString(buf *bytes.Buffer, s string) error {
	if len(s) > 255 {
		return errors.New("session field too long")
	}
	buf.WriteByte(byte(len(s)))
	buf.WriteString(s)
	return nil
}

func readString(r *bytes.Reader) (string, error) {
	n, err := r.ReadByte()
	if err != nil {
		return "", err
	}
	raw := make([]byte, n)
	if _, err := io.ReadFull(r, raw); err != nil {
		return "", err
	}
	return string(raw), nil
}

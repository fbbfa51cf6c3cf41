// Package pipecache persists pipeline cache data between runs and rejects
// data written by a different driver or device.
package pipecache

import (
	"bytes"
	"encoding/binary"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/vkngwrapper/core/v3/common"
)

// headerVersionOne is the only cache header layout defined so far.
const headerVersionOne uint32 = 1

// HeaderSize is the length of a version one header: length, version,
// vendor ID, device ID and the cache UUID.
const HeaderSize = 4 + 4 + 4 + 4 + 16

var ErrMismatch = errors.New("pipeline cache was written for a different device")

// Identity is what a cache header must match to be accepted.
type Identity struct {
	VendorID  uint32
	DeviceID  uint32
	CacheUUID uuid.UUID
}

type header struct {
	Length    uint32
	Version   uint32
	VendorID  uint32
	DeviceID  uint32
	CacheUUID uuid.UUID
}

// Validate checks the header at the start of data against id.
func Validate(data []byte, id Identity) error {
	if len(data) < HeaderSize {
		return errors.Wrapf(ErrMismatch, "cache is %d bytes, shorter than its header", len(data))
	}

	var h header
	err := binary.Read(bytes.NewReader(data), common.ByteOrder, &h)
	if err != nil {
		return errors.Wrap(err, "read pipeline cache header")
	}

	if h.Length < HeaderSize || int(h.Length) > len(data) {
		return errors.Wrapf(ErrMismatch, "bad header length %d", h.Length)
	}
	if h.Version != headerVersionOne {
		return errors.Wrapf(ErrMismatch, "unsupported header version %d", h.Version)
	}
	if h.VendorID != id.VendorID {
		return errors.Wrapf(ErrMismatch, "vendor id 0x%x, driver expects 0x%x", h.VendorID, id.VendorID)
	}
	if h.DeviceID != id.DeviceID {
		return errors.Wrapf(ErrMismatch, "device id 0x%x, driver expects 0x%x", h.DeviceID, id.DeviceID)
	}
	if h.CacheUUID != id.CacheUUID {
		return errors.Wrapf(ErrMismatch, "cache uuid %s, driver expects %s", h.CacheUUID, id.CacheUUID)
	}

	return nil
}

// Load reads the cache at path. A missing file yields nil data. A file that
// fails validation is removed so the next run repopulates it, and nil data
// is returned.
func Load(log *slog.Logger, path string, id Identity) ([]byte, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Debug("pipeline cache miss", slog.String("path", path))
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read pipeline cache %s", path)
	}

	err = Validate(data, id)
	if err != nil {
		log.Warn("discarding pipeline cache", slog.String("path", path), slog.Any("reason", err))
		// not important if this fails
		_ = os.Remove(path)
		return nil, nil
	}

	log.Debug("pipeline cache hit", slog.String("path", path), slog.Int("bytes", len(data)))
	return data, nil
}

// Save writes data to path, creating the parent directory if needed.
func Save(path string, data []byte) error {
	if len(data) == 0 {
		return nil
	}

	dir := filepath.Dir(path)
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return errors.Wrapf(err, "create pipeline cache directory %s", dir)
	}

	err = os.WriteFile(path, data, 0o644)
	if err != nil {
		return errors.Wrapf(err, "write pipeline cache %s", path)
	}

	return nil
}

// EncodeHeader builds a version one header for id.
func EncodeHeader(id Identity) []byte {
	buf := &bytes.Buffer{}
	_ = binary.Write(buf, common.ByteOrder, header{
		Length:    HeaderSize,
		Version:   headerVersionOne,
		VendorID:  id.VendorID,
		DeviceID:  id.DeviceID,
		CacheUUID: id.CacheUUID,
	})
	return buf.Bytes()
}

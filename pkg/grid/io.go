package grid

import (
	"encoding/binary"
	"fmt"
	"os"
)

// ReadVolume loads a raw little-endian float32 volume with the given
// dimensions. This is the binary interchange format the viewer backend
// exports volumes in.
func ReadVolume(path string, nx, ny, nz int) (*Volume, error) {
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return nil, fmt.Errorf("invalid volume dimensions %dx%dx%d", nx, ny, nz)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open volume file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat volume file: %w", err)
	}

	want := int64(nx) * int64(ny) * int64(nz) * 4
	if info.Size() != want {
		return nil, fmt.Errorf("volume file is %d bytes, expected %d for %dx%dx%d float32",
			info.Size(), want, nx, ny, nz)
	}

	vol := NewVolume(nx, ny, nz)
	if err := binary.Read(file, binary.LittleEndian, vol.Data); err != nil {
		return nil, fmt.Errorf("failed to read volume data: %w", err)
	}

	return vol, nil
}

// WriteVolume saves a volume as raw little-endian float32 data.
func WriteVolume(path string, vol *Volume) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create volume file: %w", err)
	}
	defer file.Close()

	if err := binary.Write(file, binary.LittleEndian, vol.Data); err != nil {
		return fmt.Errorf("failed to write volume data: %w", err)
	}

	return nil
}

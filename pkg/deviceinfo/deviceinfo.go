// Package deviceinfo is the external device-identity collaborator: it
// answers sector-size and drive-detail queries used for validation and
// display, never for the measured hot path. A Provider can be local
// (queries the volume directly) or remote (asks another host's agent).
package deviceinfo

import "golang.org/x/sys/unix"

// DriveDetails is a best-effort description of the volume backing a
// path. Any field may be zero/empty if the underlying platform or
// provider could not determine it.
type DriveDetails struct {
	BusType        string `json:"busType,omitempty"`
	LogicalSector  int64  `json:"logicalSector"`
	PhysicalSector int64  `json:"physicalSector"`
	FreeBytes      int64  `json:"freeBytes"`
	TotalBytes     int64  `json:"totalBytes"`
	Vendor         string `json:"vendor,omitempty"`
	Product        string `json:"product,omitempty"`
	Serial         string `json:"serial,omitempty"`
	Removable      bool   `json:"removable"`
	CommandQueuing bool   `json:"commandQueuing"`
}

// Provider answers device-identity queries for a path.
type Provider interface {
	GetSectorSize(path string) (logical, physical int64, err error)
	GetDriveDetails(path string) (*DriveDetails, error)
}

// LocalProvider answers from the local filesystem via statfs. It cannot
// distinguish a device's logical sector size from its physical one, nor
// read vendor/product/serial or bus type without raw block-device
// ioctls this tool deliberately avoids (file-backed, not raw-device,
// per the core's scope) — those fields are left zero.
type LocalProvider struct{}

func (LocalProvider) GetSectorSize(path string) (int64, int64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	sz := int64(stat.Bsize)
	return sz, sz, nil
}

func (p LocalProvider) GetDriveDetails(path string) (*DriveDetails, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return nil, err
	}
	logical, physical, err := p.GetSectorSize(path)
	if err != nil {
		return nil, err
	}
	return &DriveDetails{
		LogicalSector:  logical,
		PhysicalSector: physical,
		FreeBytes:      int64(stat.Bfree) * int64(stat.Bsize),
		TotalBytes:     int64(stat.Blocks) * int64(stat.Bsize),
	}, nil
}

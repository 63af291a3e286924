//go:build linux

// File: pool/mmap_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux region backing: anonymous mmap, hugepages when requested with a
// fallback to regular pages, mlock as the registration step.

package pool

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// mapRegion maps at least size bytes, aligned to align, on pages of pageSize
// when possible. It returns the full mapping, the aligned window and the page
// granularity actually obtained.
func mapRegion(size, align, pageSize int) (mapping, window []byte, granularity int, err error) {
	length := size + align
	if pageSize == Page2M || pageSize == Page1G {
		huge := int(alignUp(uintptr(length), uintptr(pageSize)))
		flags := unix.MAP_ANONYMOUS | unix.MAP_PRIVATE | unix.MAP_HUGETLB | int(log2(pageSize))<<unix.MAP_HUGE_SHIFT
		mapping, err = unix.Mmap(-1, 0, huge, unix.PROT_READ|unix.PROT_WRITE, flags)
		if err == nil {
			return mapping, alignedWindow(mapping, size, align), pageSize, nil
		}
	}
	length = int(alignUp(uintptr(length), Page4K))
	mapping, err = unix.Mmap(-1, 0, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANONYMOUS|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, 0, errors.Wrapf(err, "mmap %d bytes", length)
	}
	return mapping, alignedWindow(mapping, size, align), Page4K, nil
}

func unmapRegion(mapping []byte) error {
	return unix.Munmap(mapping)
}

func lockRegion(mem []byte) error {
	return unix.Mlock(mem)
}

func unlockRegion(mem []byte) error {
	return unix.Munlock(mem)
}

// Package gateways provides adapter implementations for external services and tools.
package gateways

import (
	"debug/elf"
	"debug/macho"
	"errors"
	"fmt"
	"strings"

	"github.com/ochairo/pgbrew/internal/domain/entities"
)

// ErrUnknownFormat is returned when a file is neither ELF nor Mach-O
var ErrUnknownFormat = errors.New("unknown object format")

// LibraryInspector reads object headers of staged libraries using pure Go
// (debug/elf and debug/macho), no external tools required
type LibraryInspector struct{}

// NewLibraryInspector creates a new library inspector
func NewLibraryInspector() *LibraryInspector {
	return &LibraryInspector{}
}

// Inspect reports the object format of path and whether it is loadable as a
// shared object
func (i *LibraryInspector) Inspect(path string) (*entities.LibraryFormat, error) {
	if f, err := elf.Open(path); err == nil {
		//nolint:errcheck // Defer close on read-only file
		defer f.Close()
		return &entities.LibraryFormat{
			Format: "elf",
			Shared: f.Type == elf.ET_DYN,
			Arch:   elfArch(f.Machine),
		}, nil
	}

	if f, err := macho.Open(path); err == nil {
		//nolint:errcheck // Defer close on read-only file
		defer f.Close()
		return &entities.LibraryFormat{
			Format: "macho",
			Shared: f.Type == macho.TypeDylib || f.Type == macho.TypeBundle,
			Arch:   machoArch(f.Cpu),
		}, nil
	}

	if f, err := macho.OpenFat(path); err == nil {
		//nolint:errcheck // Defer close on read-only file
		defer f.Close()
		format := &entities.LibraryFormat{Format: "macho", Shared: len(f.Arches) > 0}
		arches := make([]string, 0, len(f.Arches))
		for _, a := range f.Arches {
			arches = append(arches, machoArch(a.Cpu))
			format.Shared = format.Shared && (a.Type == macho.TypeDylib || a.Type == macho.TypeBundle)
		}
		format.Arch = strings.Join(arches, ",")
		return format, nil
	}

	return nil, fmt.Errorf("failed to inspect %s: %w", path, ErrUnknownFormat)
}

func elfArch(m elf.Machine) string {
	switch m {
	case elf.EM_X86_64:
		return "amd64"
	case elf.EM_AARCH64:
		return "arm64"
	case elf.EM_386:
		return "386"
	default:
		return strings.ToLower(strings.TrimPrefix(m.String(), "EM_"))
	}
}

func machoArch(c macho.Cpu) string {
	switch c {
	case macho.CpuAmd64:
		return "amd64"
	case macho.CpuArm64:
		return "arm64"
	default:
		return strings.ToLower(strings.TrimPrefix(c.String(), "Cpu"))
	}
}

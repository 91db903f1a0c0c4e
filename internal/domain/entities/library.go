package entities

// LibraryFormat describes the object format detected for a staged library
type LibraryFormat struct {
	Format string // "elf", "macho"
	Shared bool   // ELF ET_DYN or Mach-O dylib/bundle
	Arch   string
}

package services

import (
	"fmt"
	"os"
	"strings"
)

const (
	// InstallCommand is the copy tool the installer script invokes
	InstallCommand = "/usr/bin/install"
	// LibraryMode is applied to the shared library
	LibraryMode os.FileMode = 0o755
	// ShareMode is applied to control and SQL files
	ShareMode os.FileMode = 0o644
)

// Instruction is one line of an installer script.
type Instruction interface {
	Render() string
}

// EchoInstruction prints a status message.
type EchoInstruction struct {
	Message string
}

// Render implements Instruction
func (e EchoInstruction) Render() string {
	return "echo " + ShellQuote(e.Message)
}

// InstallInstruction copies Sources into DestDir with Mode.
// With Glob set, every Source is a directory whose entries ("/*") are copied.
type InstallInstruction struct {
	Mode    os.FileMode
	Sources []string
	Glob    bool
	DestDir string
}

// Render implements Instruction
func (i InstallInstruction) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s -c -m %o", InstallCommand, i.Mode.Perm())
	for _, src := range i.Sources {
		b.WriteByte(' ')
		if i.Glob {
			b.WriteString(ShellQuote(strings.TrimSuffix(src, "/")) + "/*")
			continue
		}
		b.WriteString(ShellQuote(src))
	}
	b.WriteByte(' ')
	b.WriteString(ShellQuote(strings.TrimSuffix(i.DestDir, "/") + "/"))
	return b.String()
}

// InstallerScript is an ordered list of instructions rendered once at the end.
type InstallerScript struct {
	Shebang      string
	instructions []Instruction
}

// NewInstallerScript returns an empty bash script.
func NewInstallerScript() *InstallerScript {
	return &InstallerScript{Shebang: "#!/bin/bash"}
}

// Echo appends a status message.
func (s *InstallerScript) Echo(msg string) *InstallerScript {
	s.instructions = append(s.instructions, EchoInstruction{Message: msg})
	return s
}

// Install appends a file copy.
func (s *InstallerScript) Install(mode os.FileMode, destDir string, sources ...string) *InstallerScript {
	s.instructions = append(s.instructions, InstallInstruction{Mode: mode, Sources: sources, DestDir: destDir})
	return s
}

// InstallDirContents appends a copy of every entry of srcDir.
func (s *InstallerScript) InstallDirContents(mode os.FileMode, destDir, srcDir string) *InstallerScript {
	s.instructions = append(s.instructions, InstallInstruction{Mode: mode, Sources: []string{srcDir}, Glob: true, DestDir: destDir})
	return s
}

// Instructions returns a copy of the instruction list.
func (s *InstallerScript) Instructions() []Instruction {
	out := make([]Instruction, len(s.instructions))
	copy(out, s.instructions)
	return out
}

// Render returns the script text, newline terminated.
func (s *InstallerScript) Render() string {
	var b strings.Builder
	b.WriteString(s.Shebang)
	b.WriteByte('\n')
	for _, ins := range s.instructions {
		b.WriteString(ins.Render())
		b.WriteByte('\n')
	}
	return b.String()
}

// InstallerPlan is what the generator knows when composing the script.
type InstallerPlan struct {
	Extension  string // e.g. "lantern"
	Library    string // absolute path of the staged library
	ShareDir   string // keg share directory
	PkgLibDir  string // reported by the configuration tool
	PGShareDir string // reported by the configuration tool
}

// BuildInstallerScript composes the installer: a status echo, the library
// copy, the share directory copy into <sharedir>/extension, and a final echo.
// The directories reported by the configuration tool are used verbatim.
func BuildInstallerScript(plan InstallerPlan) *InstallerScript {
	return NewInstallerScript().
		Echo(fmt.Sprintf("Moving %s files into postgres extension folder...", plan.Extension)).
		Install(LibraryMode, plan.PkgLibDir, plan.Library).
		InstallDirContents(ShareMode, plan.PGShareDir+"/extension", plan.ShareDir).
		Echo("Success.")
}

// ShellQuote quotes s for POSIX shells. Strings made only of safe
// characters are returned unchanged.
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, needsQuote) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func needsQuote(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	}
	return !strings.ContainsRune("@%+=:,./-_", r)
}

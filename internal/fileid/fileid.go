// Package fileid turns client-supplied file names into safe, collision-free storage names.
package fileid

import (
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// fallbackStem replaces a name whose characters were all stripped.
const fallbackStem = "upload"

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// windowsReserved are device names that cannot be used as file names on Windows.
var windowsReserved = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// Extension returns the lower-cased extension of name without the dot,
// or "" when name has no dot.
func Extension(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

// Sanitize reduces name to ASCII letters, digits, '_', '.' and '-'.
// Accented letters are folded to their base letter, whitespace becomes '_',
// and path components are flattened so the result is a bare file name.
// It may return "".
func Sanitize(name string) string {
	name = norm.NFKD.String(name)
	ascii := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		if name[i] < 0x80 {
			ascii = append(ascii, name[i])
		}
	}
	name = strings.NewReplacer("/", " ", "\\", " ").Replace(string(ascii))
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeChars.ReplaceAllString(name, "")
	name = strings.Trim(name, "._")
	if stem := strings.ToUpper(strings.SplitN(name, ".", 2)[0]); windowsReserved[stem] {
		name = "_" + name
	}
	return name
}

// SafeName sanitizes name while keeping its extension. The stem falls back to
// "upload" when sanitizing leaves nothing, so "日本.pdf" becomes "upload.pdf".
func SafeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	stem, ext := name, ""
	if i := strings.LastIndex(name, "."); i >= 0 {
		stem, ext = name[:i], Sanitize(name[i+1:])
	}
	stem = Sanitize(stem)
	if stem == "" {
		stem = fallbackStem
	}
	if ext == "" {
		return stem
	}
	return stem + "." + ext
}

// StorageName returns a unique storage name for the already sanitized name.
func StorageName(safeName string) string {
	return uuid.New().String() + "_" + safeName
}

package source

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// EncodingUTF8 is the default input encoding.
const EncodingUTF8 = "utf-8"

func lookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf8", EncodingUTF8:
		return nil, nil
	case "latin1", "iso-8859-1":
		return charmap.ISO8859_1, nil
	case "latin9", "iso-8859-15":
		return charmap.ISO8859_15, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	case "utf-16", "utf16":
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
}

// ValidEncoding reports whether name is an encoding Load understands.
func ValidEncoding(name string) bool {
	_, err := lookupEncoding(name)
	return err == nil
}

// decode transcodes content to UTF-8. For the utf-8 encoding the content is
// returned unchanged, invalid sequences included.
func decode(content []byte, name string) ([]byte, bool, error) {
	enc, err := lookupEncoding(name)
	if err != nil {
		return nil, false, err
	}
	if enc == nil {
		return content, false, nil
	}
	if utf8.Valid(content) && !strings.HasPrefix(strings.ToLower(name), "utf") {
		// Pure ASCII is identical in every supported single-byte charset.
		ascii := true
		for _, b := range content {
			if b >= utf8.RuneSelf {
				ascii = false
				break
			}
		}
		if ascii {
			return content, false, nil
		}
	}
	out, err := enc.NewDecoder().Bytes(content)
	if err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", name, err)
	}
	return out, true, nil
}

func encode(content []byte, name string) ([]byte, error) {
	enc, err := lookupEncoding(name)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return content, nil
	}
	out, err := enc.NewEncoder().Bytes(content)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	return out, nil
}

// Restore converts normalized content back to the on-disk form of f: CRLF
// line endings, byte order mark and encoding are reapplied.
func (f *File) Restore(content []byte) ([]byte, error) {
	out := content
	if f.Flags&FileNormalizedCRLF != 0 {
		out = bytes.ReplaceAll(out, []byte("\n"), []byte("\r\n"))
	}
	if f.Flags&FileHadBOM != 0 {
		out = append([]byte{0xEF, 0xBB, 0xBF}, out...)
	}
	return encode(out, f.Encoding)
}

package assets

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
)

const (
	// DefaultHashLength is used by [hash] and [contenthash] without an explicit length.
	DefaultHashLength = 20

	// DefaultFileTemplate names file outputs that carry no template of their own.
	DefaultFileTemplate = "[path][name].[ext]"
)

var placeholder = regexp.MustCompile(`\[(name|ext|path|id|hash|contenthash)(?::(\d+))?\]`)

// NameData feeds template expansion.
type NameData struct {
	Name string
	// Ext is the extension without the leading dot.
	Ext string
	// Path is the directory relative to the source root, with a trailing slash
	// unless empty.
	Path    string
	ID      string
	Content []byte
}

// Expand substitutes placeholders in template. Unknown bracketed text is kept
// literally.
func Expand(template string, data NameData) (string, error) {
	var (
		digest string
		err    error
	)

	out := placeholder.ReplaceAllStringFunc(template, func(m string) string {
		if err != nil {
			return m
		}
		sub := placeholder.FindStringSubmatch(m)
		switch sub[1] {
		case "name":
			return data.Name
		case "ext":
			return data.Ext
		case "path":
			return data.Path
		case "id":
			return data.ID
		}

		length := DefaultHashLength
		if sub[2] != "" {
			length, _ = strconv.Atoi(sub[2])
			if length < 1 || length > sha256.Size*2 {
				err = fmt.Errorf("invalid hash length in %q: must be between 1 and %d", m, sha256.Size*2)
				return m
			}
		}
		if digest == "" {
			sum := sha256.Sum256(data.Content)
			digest = hex.EncodeToString(sum[:])
		}
		return digest[:length]
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

// CheckTemplate reports malformed placeholders without expanding anything.
func CheckTemplate(template string) error {
	_, err := Expand(template, NameData{})
	return err
}

package backend

import (
	"mime"
	"net/url"
	"path"
	"regexp"
	"strings"
)

var (
	extFilenameRegex   = regexp.MustCompile(`(?i)filename\*\s*=\s*UTF-8''([^;]+)`)
	plainFilenameRegex = regexp.MustCompile(`(?i)filename\s*=\s*"?([^";]+)"?`)
)

// Filename extracts the suggested download name from a Content-Disposition
// header. The RFC 5987 form filename*=UTF-8''... wins over filename="...".
// fallback is returned when neither is present.
func Filename(disposition, fallback string) string {
	disposition = strings.TrimSpace(disposition)
	if disposition == "" {
		return fallback
	}

	// mime decodes filename* into the plain filename parameter.
	if _, params, err := mime.ParseMediaType(disposition); err == nil {
		if name := clean(params["filename"]); name != "" {
			return name
		}
	}

	// Lenient path for headers mime rejects, such as unquoted spaces.
	if m := extFilenameRegex.FindStringSubmatch(disposition); m != nil {
		if name, err := url.PathUnescape(strings.TrimSpace(m[1])); err == nil {
			if name = clean(name); name != "" {
				return name
			}
		}
	}
	if m := plainFilenameRegex.FindStringSubmatch(disposition); m != nil {
		if name := clean(m[1]); name != "" {
			return name
		}
	}
	return fallback
}

// clean strips any directory component from a server-supplied name.
func clean(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, `\`, "/"))
	if name == "" {
		return ""
	}
	base := path.Base(name)
	if base == "." || base == "/" || base == ".." {
		return ""
	}
	return base
}

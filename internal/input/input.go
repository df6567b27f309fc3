// Package input extracts email addresses from line-oriented TXT and CSV
// uploads.
package input

import (
	"bufio"
	"io"
	"strings"
)

// MaxAddresses is the hard ceiling on addresses extracted from one upload.
const MaxAddresses = 50000

// ParseAddressList reads a line-oriented UTF-8 address list. Per line:
// leading/trailing whitespace is trimmed, empty lines and lines starting
// with "#" or "//" are dropped, CSV lines contribute their first field
// only, and a field is kept only if it contains "@" and is longer than
// three characters. Reading stops after MaxAddresses kept addresses.
//
// CSV quoting is deliberately not honored: the first comma always ends the
// field, matching the upload contract.
func ParseAddressList(r io.Reader) ([]string, error) {
	var addresses []string

	scanner := bufio.NewScanner(r)
	// Uploads can contain very long junk lines; don't let one of them
	// abort the whole parse.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}

		field := line
		if idx := strings.Index(line, ","); idx >= 0 {
			field = strings.TrimSpace(line[:idx])
		}

		if !strings.Contains(field, "@") || len(field) <= 3 {
			continue
		}

		addresses = append(addresses, field)
		if len(addresses) >= MaxAddresses {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return addresses, nil
}

package attachment

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nhle/card-statements/internal/model"
)

var unsafeChars = strings.NewReplacer(
	"<", "_", ">", "_", ":", "_", `"`, "_", "/", "_",
	`\`, "_", "|", "_", "?", "_", "*", "_",
)

// SanitizeFilename replaces every character in <>:"/\|?* with an
// underscore. Applying it to its own output is a no-op.
func SanitizeFilename(name string) string {
	return unsafeChars.Replace(name)
}

// Namer builds the on-disk name of a saved attachment.
type Namer struct {
	IncludeBank      bool
	IncludeTimestamp bool
}

// DefaultNamer produces {BANK}_{YYYYMMDD_HHMMSS}_{safe_name}.pdf.
func DefaultNamer() Namer {
	return Namer{IncludeBank: true, IncludeTimestamp: true}
}

// NamerFromConfig builds a Namer from the file naming section of the config.
func NamerFromConfig(cfg model.FileNamingConfig) Namer {
	return Namer{IncludeBank: cfg.IncludeBankName, IncludeTimestamp: cfg.IncludeTimestamp}
}

// Name returns the file name for original, downloaded at t. Names saved in
// the same second from identical originals are equal; Save disambiguates
// them on disk.
func (n Namer) Name(bank model.Bank, original string, t time.Time) string {
	safe := SanitizeFilename(original)
	if !strings.HasSuffix(strings.ToLower(safe), ".pdf") {
		safe += ".pdf"
	}

	var parts []string
	if n.IncludeBank {
		parts = append(parts, string(bank))
	}
	if n.IncludeTimestamp {
		parts = append(parts, t.Format("20060102_150405"))
	}
	parts = append(parts, safe)

	return strings.Join(parts, "_")
}

// maxDuplicates bounds the _(n) suffixes Save tries for one name.
const maxDuplicates = 1000

// Save writes data into dir under the name produced by n and returns the
// full path. The directory is created when missing. An existing file is
// never replaced: the name gets a _(1), _(2), ... suffix before the
// extension instead.
func (n Namer) Save(dir string, bank model.Bank, original string, data []byte, t time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating download directory %s: %w", dir, err)
	}

	name := n.Name(bank, original, t)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for i := 0; i <= maxDuplicates; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s_(%d)%s", stem, i, ext)
		}
		path := filepath.Join(dir, candidate)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("creating attachment %s: %w", path, err)
		}

		_, werr := f.Write(data)
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			return "", fmt.Errorf("writing attachment %s: %w", path, werr)
		}
		return path, nil
	}

	return "", fmt.Errorf("saving %s: more than %d files with the same name", name, maxDuplicates)
}

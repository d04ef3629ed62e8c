package corpus

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/errors"
)

// ParseID derives the canonical document id from a corpus file name: the
// integer after the last underscore of the name without its extension
// ("article_812345.txt" -> 812345). A name without an underscore must be an
// integer as a whole.
func ParseID(name string) (uint32, error) {
	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	suffix := stem
	if i := strings.LastIndex(stem, "_"); i >= 0 {
		suffix = stem[i+1:]
	}
	id, err := strconv.ParseUint(suffix, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: document name %q has no numeric suffix", apperrors.ErrInvalidInput, name)
	}
	return uint32(id), nil
}

package crawler

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/EvoluTechs/riftcollect/pkg/validator"
)

// Options control one discovery run. Recognized options mirror the CLI
// flags: sets, candidate id range, inter-probe delay, asset filename, rescan
// and an optional discovery cap (0 = unlimited).
type Options struct {
	Sets          []string `json:"sets" validate:"required,min=1"`
	Range         string   `json:"range" validate:"required"`
	DelayMS       int      `json:"delay_ms" validate:"gte=0"`
	AssetFilename string   `json:"asset_filename" validate:"required"`
	Rescan        bool     `json:"rescan"`
	MaxFound      int      `json:"max_found" validate:"gte=0"`
}

// Validate checks field constraints and the range expression.
func (o Options) Validate() error {
	if err := validator.ValidateStruct(o); err != nil {
		return err
	}
	if _, err := ParseRange(o.Range); err != nil {
		return err
	}
	return nil
}

// ParseRange expands a candidate number expression: either a span "a-b"
// (inclusive) or a comma list "n,m,...". Numbers are returned sorted and
// deduplicated.
func ParseRange(expr string) ([]int, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("crawler: empty range expression")
	}

	seen := map[int]struct{}{}

	add := func(n int) error {
		if n < 1 {
			return fmt.Errorf("crawler: candidate numbers must be positive, got %d", n)
		}
		seen[n] = struct{}{}
		return nil
	}

	if strings.Contains(expr, "-") && !strings.Contains(expr, ",") {
		parts := strings.SplitN(expr, "-", 2)
		lo, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("crawler: bad range bound %q", parts[0])
		}
		hi, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("crawler: bad range bound %q", parts[1])
		}
		if hi < lo {
			return nil, fmt.Errorf("crawler: range %d-%d is inverted", lo, hi)
		}
		for n := lo; n <= hi; n++ {
			if err := add(n); err != nil {
				return nil, err
			}
		}
	} else {
		for _, part := range strings.Split(expr, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("crawler: bad candidate number %q", part)
			}
			if err := add(n); err != nil {
				return nil, err
			}
		}
	}

	if len(seen) == 0 {
		return nil, fmt.Errorf("crawler: range %q expands to nothing", expr)
	}

	numbers := make([]int, 0, len(seen))
	for n := range seen {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers, nil
}

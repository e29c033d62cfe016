package secret

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
)

var bracedEnvPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

const escapedDollar = "\x00webguard-dollar\x00"

// ExpandEnvStrict expands $VAR and ${VAR} in s. A ${VAR} whose variable is
// unset is an error wrapping ErrMissingEnv; a bare $VAR expands to "".
// "$$" produces a literal "$".
func ExpandEnvStrict(s string) (string, error) {
	s = strings.ReplaceAll(s, "$$", escapedDollar)

	var missing []string
	for _, m := range bracedEnvPattern.FindAllStringSubmatch(s, -1) {
		if _, ok := os.LookupEnv(m[1]); !ok && !slices.Contains(missing, m[1]) {
			missing = append(missing, m[1])
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(missing, ", "))
	}

	return strings.ReplaceAll(os.ExpandEnv(s), escapedDollar, "$"), nil
}

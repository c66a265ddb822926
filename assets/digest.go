package assets

import (
	"encoding/hex"
	"io"
	"os"
	"slices"
	"strings"

	"lukechampine.com/blake3"
)

// Digest is the BLAKE3-256 hash of an asset's source bytes.
type Digest [32]byte

// Sum hashes data.
func Sum(data []byte) Digest { return blake3.Sum256(data) }

// SumFile hashes a file without reading it into memory at once.
func SumFile(path string) (Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return Digest{}, err
	}
	defer f.Close()
	h := blake3.New(32, nil)
	if _, err := io.Copy(h, f); err != nil {
		return Digest{}, err
	}
	var d Digest
	h.Sum(d[:0])
	return d, nil
}

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// sortNatural orders names so that embedded numbers compare by value:
// frame2.png sorts before frame10.png.
func sortNatural(names []string) {
	slices.SortFunc(names, compareNatural)
}

func compareNatural(a, b string) int {
	for a != "" && b != "" {
		da, db := digitPrefix(a), digitPrefix(b)
		if da > 0 && db > 0 {
			na := strings.TrimLeft(a[:da], "0")
			nb := strings.TrimLeft(b[:db], "0")
			if len(na) != len(nb) {
				return len(na) - len(nb)
			}
			if c := strings.Compare(na, nb); c != 0 {
				return c
			}
			a, b = a[da:], b[db:]
			continue
		}
		if a[0] != b[0] {
			return int(a[0]) - int(b[0])
		}
		a, b = a[1:], b[1:]
	}
	return len(a) - len(b)
}

func digitPrefix(s string) int {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return i
}

package balance

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/PaesslerAG/jsonpath"
)

// Decode reads a ledger from JSON. A non-empty selector is a JSONPath
// expression locating the ledger inside a larger document, e.g. "$.trips[0]".
func Decode(r io.Reader, selector string) (*Ledger, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if selector != "" {
		if data, err = selectJSON(data, selector); err != nil {
			return nil, err
		}
	}
	var l Ledger
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("decoding ledger: %w", err)
	}
	return &l, nil
}

// Load decodes the ledger stored in the named file.
func Load(path, selector string) (*Ledger, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	l, err := Decode(f, selector)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

func selectJSON(data []byte, selector string) ([]byte, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	v, err := jsonpath.Get(selector, doc)
	if err != nil {
		return nil, fmt.Errorf("selecting %q: %w", selector, err)
	}
	// filters and slices always answer a list, keep its only element
	if list, ok := v.([]any); ok && len(list) == 1 {
		v = list[0]
	}
	if _, ok := v.(map[string]any); !ok {
		return nil, fmt.Errorf("selecting %q: %w: not an object", selector, ErrInvalidLedger)
	}
	return json.Marshal(v)
}

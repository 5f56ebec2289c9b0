package total

import (
	"encoding/gob"
	"fmt"
	"os"
)

// Save writes t as the MAT-equivalent binary: the merge authority format
// read back by the next run's merge step. It round-trips every field
// (including NaN positions) bit-for-bit, which saveMat.py's MATLAB
// interchange format is not required to do -- see DESIGN.md for why gob,
// not a MAT-compatible encoder, is the right tool here.
func Save(path string, t *Total) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("total: creating %s: %w", path, err)
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(t); err != nil {
		return fmt.Errorf("total: encoding %s: %w", path, err)
	}
	return nil
}

// Load reads back a Total previously written by Save. A missing file is
// reported as *DataError so callers can distinguish "no prior total" from
// a genuine decoding failure.
func Load(path string) (*Total, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &DataError{Msg: fmt.Sprintf("no total file at %s", path)}
		}
		return nil, fmt.Errorf("total: opening %s: %w", path, err)
	}
	defer f.Close()

	var t Total
	if err := gob.NewDecoder(f).Decode(&t); err != nil {
		return nil, fmt.Errorf("total: decoding %s: %w", path, err)
	}
	return &t, nil
}

// Exists reports whether a total file is present at path, without
// decoding it.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// RemoveAll deletes the total file at path. It is not an error if the file
// is already absent.
func RemoveAll(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("total: removing %s: %w", path, err)
	}
	return nil
}

// SaveAvg persists an Avg (STC/LTA average product) as the merge-authority
// binary for that product line.
func SaveAvg(path string, a *Avg) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("total: creating %s: %w", path, err)
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(a); err != nil {
		return fmt.Errorf("total: encoding %s: %w", path, err)
	}
	return nil
}

// LoadAvg reads back an Avg previously written by SaveAvg.
func LoadAvg(path string) (*Avg, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &DataError{Msg: fmt.Sprintf("no avg file at %s", path)}
		}
		return nil, fmt.Errorf("total: opening %s: %w", path, err)
	}
	defer f.Close()

	var a Avg
	if err := gob.NewDecoder(f).Decode(&a); err != nil {
		return nil, fmt.Errorf("total: decoding %s: %w", path, err)
	}
	return &a, nil
}

// SaveSum persists a Sum accumulator (LTA's monthly-sum product, which has
// no average/variance yet computed).
func SaveSum(path string, s *Sum) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("total: creating %s: %w", path, err)
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(s); err != nil {
		return fmt.Errorf("total: encoding %s: %w", path, err)
	}
	return nil
}

// LoadSum reads back a Sum previously written by SaveSum.
func LoadSum(path string) (*Sum, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &DataError{Msg: fmt.Sprintf("no sum file at %s", path)}
		}
		return nil, fmt.Errorf("total: opening %s: %w", path, err)
	}
	defer f.Close()

	var s Sum
	if err := gob.NewDecoder(f).Decode(&s); err != nil {
		return nil, fmt.Errorf("total: decoding %s: %w", path, err)
	}
	return &s, nil
}

package syzygy

import "fmt"

// MissingTableError reports that no table covers a material signature.
// Callers should treat it as "unknown result", not as a failure: most
// positions simply have no tablebase coverage.
type MissingTableError struct {
	Key string
}

func (e *MissingTableError) Error() string {
	return fmt.Sprintf("syzygy: no table for %s", e.Key)
}

// CorruptTableError reports an unreadable or malformed table file. The file
// is quarantined for the rest of the process; other tables stay usable.
type CorruptTableError struct {
	Path   string
	Reason string
}

func (e *CorruptTableError) Error() string {
	return fmt.Sprintf("syzygy: corrupt table %s: %s", e.Path, e.Reason)
}

// InvalidPositionError reports a position tablebases cannot encode:
// castling rights remaining, or more pieces than the table set supports.
type InvalidPositionError struct {
	Reason string
}

func (e *InvalidPositionError) Error() string {
	return fmt.Sprintf("syzygy: invalid position: %s", e.Reason)
}

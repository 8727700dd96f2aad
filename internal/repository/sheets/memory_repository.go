package sheets

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MemoryRepository keeps whole sheets in memory. Ranges are resolved by their
// sheet name only; the cell reference after "!" is ignored.
type MemoryRepository struct {
	mu     sync.RWMutex
	sheets map[string][][]interface{}
}

// NewMemoryRepository returns an empty in-memory spreadsheet.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{sheets: make(map[string][][]interface{})}
}

func sheetName(sheetRange string) (string, error) {
	if sheetRange == "" {
		return "", fmt.Errorf("sheetRange must not be empty")
	}
	name, _, _ := strings.Cut(sheetRange, "!")
	return name, nil
}

// WriteRow appends values to the sheet.
func (m *MemoryRepository) WriteRow(_ context.Context, sheetRange string, values []interface{}) error {
	name, err := sheetName(sheetRange)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sheets[name] = append(m.sheets[name], append([]interface{}(nil), values...))
	return nil
}

// ReadRange returns a copy of every row of the sheet.
func (m *MemoryRepository) ReadRange(_ context.Context, sheetRange string) ([][]interface{}, error) {
	name, err := sheetName(sheetRange)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := m.sheets[name]
	out := make([][]interface{}, len(rows))
	for i, row := range rows {
		out[i] = append([]interface{}(nil), row...)
	}
	return out, nil
}

// WriteRange replaces the sheet content with rows.
func (m *MemoryRepository) WriteRange(_ context.Context, sheetRange string, rows [][]interface{}) error {
	name, err := sheetName(sheetRange)
	if err != nil {
		return err
	}
	copied := make([][]interface{}, len(rows))
	for i, row := range rows {
		copied[i] = append([]interface{}(nil), row...)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sheets[name] = copied
	return nil
}

// ClearRange empties the sheet.
func (m *MemoryRepository) ClearRange(_ context.Context, sheetRange string) error {
	name, err := sheetName(sheetRange)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sheets, name)
	return nil
}

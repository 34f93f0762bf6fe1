package pos

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	"restopos/internal/domain"
)

// LineKey identifies a product and add-on combination independent of line id
// and of the order the add-ons were picked in.
func LineKey(line domain.CartLine) string {
	parts := make([]string, 0, len(line.Addons))
	for _, addon := range line.Addons {
		parts = append(parts, addon.GroupName+"\x1f"+addon.Name)
	}
	sort.Strings(parts)
	return line.ProductID + "\x1e" + strings.Join(parts, "\x1e")
}

func Equivalent(a, b domain.CartLine) bool {
	return LineKey(a) == LineKey(b)
}

func NewLineID() string {
	return uuid.NewString()
}

// CloneLines returns a deep copy so staged or split lines never alias tab state.
func CloneLines(lines []domain.CartLine) ([]domain.CartLine, error) {
	if len(lines) == 0 {
		return nil, nil
	}
	var out []domain.CartLine
	if err := copier.CopyWithOption(&out, &lines, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("copy cart lines: %w", err)
	}
	return out, nil
}

func cloneCustomer(ref *domain.CustomerRef) *domain.CustomerRef {
	if ref == nil {
		return nil
	}
	cp := *ref
	return &cp
}

// mergeLine adds line into lines, folding it into an equivalent line when one exists.
func mergeLine(lines []domain.CartLine, line domain.CartLine) []domain.CartLine {
	for i := range lines {
		if Equivalent(lines[i], line) {
			lines[i].Quantity += line.Quantity
			return lines
		}
	}
	return append(lines, line)
}

func findLine(lines []domain.CartLine, lineID string) int {
	for i := range lines {
		if lines[i].LineID == lineID {
			return i
		}
	}
	return -1
}

// QuantitiesByKey sums quantities per LineKey.
func QuantitiesByKey(lines []domain.CartLine) map[string]int {
	out := make(map[string]int)
	for _, line := range lines {
		out[LineKey(line)] += line.Quantity
	}
	return out
}

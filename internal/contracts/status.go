package contracts

import (
	"math/big"
	"slices"

	"go-roundflow/internal/domain"
)

const (
	statusBits         = 2
	applicationsPerRow = 256 / statusBits
)

// StatusRow is one 256-bit word of the round's application status bitmap.
type StatusRow struct {
	Index     *big.Int
	StatusRow *big.Int
}

// BuildStatusRows packs application statuses into bitmap rows. Only rows
// that contain a changed index are returned, each rebuilt from every known
// application in that row. An empty changed list rebuilds every row.
func BuildStatusRows(apps []domain.ApplicationStatusEntry, changed []uint64) ([]StatusRow, error) {
	rows := make(map[uint64]*big.Int)
	touched := make(map[uint64]struct{})
	if len(changed) == 0 {
		for _, a := range apps {
			touched[a.Index/applicationsPerRow] = struct{}{}
		}
	}
	for _, idx := range changed {
		touched[idx/applicationsPerRow] = struct{}{}
	}

	for _, a := range apps {
		row := a.Index / applicationsPerRow
		if _, ok := touched[row]; !ok {
			continue
		}
		code, err := a.Status.Code()
		if err != nil {
			return nil, err
		}
		word, ok := rows[row]
		if !ok {
			word = new(big.Int)
			rows[row] = word
		}
		shift := uint(a.Index%applicationsPerRow) * statusBits
		word.Or(word, new(big.Int).Lsh(big.NewInt(int64(code)), shift))
	}

	indexes := make([]uint64, 0, len(touched))
	for row := range touched {
		indexes = append(indexes, row)
	}
	slices.Sort(indexes)

	out := make([]StatusRow, 0, len(indexes))
	for _, row := range indexes {
		word, ok := rows[row]
		if !ok {
			word = new(big.Int)
		}
		out = append(out, StatusRow{
			Index:     new(big.Int).SetUint64(row),
			StatusRow: word,
		})
	}
	return out, nil
}

// statusAt decodes the status stored for index in a row word.
func statusAt(row *big.Int, index uint64) domain.ApplicationStatus {
	shift := uint(index%applicationsPerRow) * statusBits
	code := new(big.Int).Rsh(row, shift).Uint64() & 0b11
	switch code {
	case 1:
		return domain.ApplicationApproved
	case 2:
		return domain.ApplicationRejected
	case 3:
		return domain.ApplicationCanceled
	default:
		return domain.ApplicationPending
	}
}
